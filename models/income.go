package models

import (
	"time"

	"gorm.io/gorm"
)

// Income 收入记录模型
// 与支出对称：类别必须为 INCOME 类型且启用，账户必须启用；收入不做分摊
type Income struct {
	ID            uint           `json:"income_id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"size:255;not null"`
	Amount        float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	CategoryID    uint           `json:"category_id" gorm:"not null;index"`
	CardAccountID uint           `json:"card_account_id" gorm:"not null;index"`
	Annotation    string         `json:"annotation,omitempty" gorm:"size:255"`
	IncomeDate    time.Time      `json:"income_date" gorm:"not null;index"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
	Category      *Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	CardAccount   *CardAccount   `json:"card_account,omitempty" gorm:"foreignKey:CardAccountID"`
}

// TableName 设置表名
func (Income) TableName() string {
	return "incomes"
}
