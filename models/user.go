package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// RoleAdmin 管理员：可管理用户、类别和账户
	RoleAdmin = "admin"
	// RoleMember 普通成员：只能管理自己的数据
	RoleMember = "member"
)

// User 用户模型
type User struct {
	ID             uint           `json:"user_id" gorm:"primaryKey"`
	Username       string         `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Password       string         `json:"-" gorm:"size:255;not null"`
	FullName       string         `json:"full_name" gorm:"size:100;not null"`
	Email          string         `json:"email" gorm:"size:255"`
	Phone          string         `json:"phone" gorm:"size:20"` // 11位手机号
	ProfilePicture string         `json:"profile_picture,omitempty" gorm:"size:255"`
	Role           string         `json:"role" gorm:"size:20;default:member;index"` // 角色：admin/member
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// PublicProfile 用户公开信息（挂在分摊记录上返回，不含敏感字段）
type PublicProfile struct {
	ID             uint   `json:"user_id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// Public 返回用户的公开信息
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		ProfilePicture: u.ProfilePicture,
	}
}
