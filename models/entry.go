package models

import (
	"time"

	"gorm.io/gorm"
)

// 流水类型常量，类型决定金额计入余额时的符号
const (
	EntryTypeIncome   = "income"   // 收入：余额加
	EntryTypeExpense  = "expense"  // 支出：余额减
	EntryTypeTransfer = "transfer" // 转账：本账本减，目标账本加
)

// Entry 流水记录模型
type Entry struct {
	ID                  uint           `json:"id" gorm:"primaryKey"`
	AccountID           uint           `json:"account_id" gorm:"index;not null"`
	CategoryID          *uint          `json:"category_id" gorm:"index"`
	UserID              *uint          `json:"user_id" gorm:"index"` // 创建人，用户注销后置空
	Type                string         `json:"type" gorm:"size:20;not null;index"`
	Amount              float64        `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency            string         `json:"currency" gorm:"size:10;default:CNY"`
	Description         string         `json:"description" gorm:"size:255"`
	EntryDate           time.Time      `json:"entry_date" gorm:"not null;index"`
	TransferToAccountID *uint          `json:"transfer_to_account_id" gorm:"index"` // 仅 transfer 使用
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `json:"-" gorm:"index"`
	Account             Account        `json:"-" gorm:"foreignKey:AccountID"`
	Category            *Category      `json:"-" gorm:"foreignKey:CategoryID"`
	Creator             *User          `json:"-" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Entry) TableName() string {
	return "entries"
}

// IsValidEntryType 校验流水类型取值
func IsValidEntryType(t string) bool {
	switch t {
	case EntryTypeIncome, EntryTypeExpense, EntryTypeTransfer:
		return true
	}
	return false
}

// SignedAmount 按类型返回计入余额的带符号金额
func (e *Entry) SignedAmount() float64 {
	if e.Type == EntryTypeIncome {
		return e.Amount
	}
	// expense 与 transfer 均从本账本扣减
	return -e.Amount
}
