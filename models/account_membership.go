package models

import (
	"time"
)

const (
	// RoleAdmin 管理员：可管理账本与成员
	RoleAdmin = "admin"
	// RoleMember 普通成员：可读写流水，不能管理成员
	RoleMember = "member"
)

// AccountMembership 账本成员关系（多对多 + 角色），(account_id, user_id) 唯一
type AccountMembership struct {
	AccountID uint      `json:"account_id" gorm:"primaryKey;autoIncrement:false"`
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Role      string    `json:"role" gorm:"size:20;not null;default:member"`
	JoinedAt  time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// TableName 设置表名
func (AccountMembership) TableName() string {
	return "account_memberships"
}

// IsValidRole 校验角色取值
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
