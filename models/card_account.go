package models

import (
	"time"

	"gorm.io/gorm"
)

// CardAccount 账户/卡片类型常量
const (
	AccountTypeCreditCard  = "CREDIT_CARD"
	AccountTypeDebitCard   = "DEBIT_CARD"
	AccountTypeBankAccount = "BANK_ACCOUNT"
	AccountTypePix         = "PIX"
	AccountTypeCash        = "CASH"
)

// CardAccount 账户/卡片模型
// 同一用户下名称唯一
type CardAccount struct {
	ID         uint           `json:"card_account_id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"not null;uniqueIndex:idx_card_accounts_user_name;index"`
	Name       string         `json:"name" gorm:"size:100;not null;uniqueIndex:idx_card_accounts_user_name"`
	Type       string         `json:"type" gorm:"size:20;not null;index"` // CREDIT_CARD/DEBIT_CARD/BANK_ACCOUNT/PIX/CASH
	BankName   string         `json:"bank_name,omitempty" gorm:"size:100"`
	LastDigits string         `json:"last_digits,omitempty" gorm:"size:4"` // 卡号后4位
	Color      string         `json:"color,omitempty" gorm:"size:20"`
	Active     bool           `json:"active" gorm:"default:true;index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	User       User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (CardAccount) TableName() string {
	return "card_accounts"
}

// IsValidAccountType 校验账户/卡片类型
func IsValidAccountType(t string) bool {
	switch t {
	case AccountTypeCreditCard, AccountTypeDebitCard, AccountTypeBankAccount, AccountTypePix, AccountTypeCash:
		return true
	}
	return false
}
