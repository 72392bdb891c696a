package models

import (
	"time"

	"gorm.io/gorm"
)

// Account 账本模型（一个账本可由多个成员共享）
// Balance 为缓存余额，必须始终等于该账本全部流水的带符号合计
type Account struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"size:100;not null;index"`
	Description string         `json:"description" gorm:"size:255"`
	Currency    string         `json:"currency" gorm:"size:10;default:CNY"`
	Balance     float64        `json:"balance" gorm:"type:decimal(12,2);default:0"`
	OwnerID     uint           `json:"owner_id" gorm:"index;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Owner       User           `json:"-" gorm:"foreignKey:OwnerID"`
}

// TableName 设置表名
func (Account) TableName() string {
	return "accounts"
}
