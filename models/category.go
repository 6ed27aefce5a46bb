package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// CategoryTypeIncome 收入类别
	CategoryTypeIncome = "INCOME"
	// CategoryTypeExpense 支出类别
	CategoryTypeExpense = "EXPENSE"
)

// Category 收支类别模型
// 名称+类型 组合唯一；active=false 的类别保留历史但不参与新记录
type Category struct {
	ID          uint           `json:"category_id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"size:50;not null;uniqueIndex:idx_categories_name_type"`
	Type        string         `json:"type" gorm:"size:10;not null;uniqueIndex:idx_categories_name_type;index"` // INCOME/EXPENSE
	Description string         `json:"description,omitempty" gorm:"size:255"`
	Color       string         `json:"color" gorm:"size:20;default:#64748b"` // 颜色代码，如 #ef4444
	Active      bool           `json:"active" gorm:"default:true;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Category) TableName() string {
	return "categories"
}

// IsValidCategoryType 校验类别类型
func IsValidCategoryType(t string) bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}
