package models

import (
	"time"

	"gorm.io/gorm"
)

// Expense 支出记录模型
// 归属一个类别和一个账户，并拥有至少一条按百分比分摊的责任人记录
type Expense struct {
	ID            uint           `json:"expense_id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"size:255;not null"`
	Amount        float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	CategoryID    uint           `json:"category_id" gorm:"not null;index"`
	CardAccountID uint           `json:"card_account_id" gorm:"not null;index"`
	Annotation    string         `json:"annotation,omitempty" gorm:"size:255"`
	ExpenseDate   time.Time      `json:"expense_date" gorm:"not null;index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
	Category      *Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	CardAccount   *CardAccount   `json:"card_account,omitempty" gorm:"foreignKey:CardAccountID"`
	Owners        []ExpenseOwner `json:"expense_owners,omitempty" gorm:"foreignKey:ExpenseID"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// ExpenseOwner 支出责任人分摊记录
// 生命周期绑定所属支出：随支出创建/整体替换，随支出删除级联删除
type ExpenseOwner struct {
	ID         uint      `json:"expense_owner_id" gorm:"primaryKey"`
	ExpenseID  uint      `json:"expense_id" gorm:"not null;index"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`
	Percentage float64   `json:"percentage" gorm:"type:decimal(5,2);not null"` // 分摊百分比 (0,100]
	CreatedAt  time.Time      `json:"created_at"`
	User       *User          `json:"-" gorm:"foreignKey:UserID"`
	Profile    *PublicProfile `json:"user,omitempty" gorm:"-"`
}

// FillOwnerProfiles 将分摊记录上的用户投影为公开信息
// 支出响应只携带责任人的公开字段，邮箱、手机号等不随支出外泄
func (e *Expense) FillOwnerProfiles() {
	for i := range e.Owners {
		if u := e.Owners[i].User; u != nil {
			p := u.Public()
			e.Owners[i].Profile = &p
		}
	}
}

// TableName 设置表名
func (ExpenseOwner) TableName() string {
	return "expense_owners"
}
