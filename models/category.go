package models

import (
	"time"

	"gorm.io/gorm"
)

// Category 类别模型
// AccountID 为空且 IsDefault 为真时是全局默认类别，默认类别不可修改、不可删除
type Category struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:50;not null"`
	Type      string         `json:"type" gorm:"size:20;not null;index"` // income/expense/transfer
	AccountID *uint          `json:"account_id" gorm:"index"`            // 账本内自定义类别，空表示全局
	IsDefault bool           `json:"is_default" gorm:"default:false;index"`
	Icon      string         `json:"icon" gorm:"size:50"`
	Color     string         `json:"color" gorm:"size:20;default:#64748b"` // 颜色代码，如 #ef4444
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Category) TableName() string {
	return "categories"
}

// DefaultCategories 返回固定的默认类别集合（16 个，覆盖收入/支出/转账）
func DefaultCategories() []Category {
	return []Category{
		{Name: "工资", Type: EntryTypeIncome, IsDefault: true, Icon: "cash", Color: "#4CAF50"},
		{Name: "兼职", Type: EntryTypeIncome, IsDefault: true, Icon: "laptop", Color: "#4CAF50"},
		{Name: "投资", Type: EntryTypeIncome, IsDefault: true, Icon: "trending-up", Color: "#4CAF50"},
		{Name: "礼金", Type: EntryTypeIncome, IsDefault: true, Icon: "gift", Color: "#4CAF50"},
		{Name: "其他收入", Type: EntryTypeIncome, IsDefault: true, Icon: "plus-circle", Color: "#4CAF50"},
		{Name: "住房", Type: EntryTypeExpense, IsDefault: true, Icon: "home", Color: "#F44336"},
		{Name: "水电", Type: EntryTypeExpense, IsDefault: true, Icon: "zap", Color: "#F44336"},
		{Name: "买菜", Type: EntryTypeExpense, IsDefault: true, Icon: "shopping-cart", Color: "#F44336"},
		{Name: "交通", Type: EntryTypeExpense, IsDefault: true, Icon: "truck", Color: "#F44336"},
		{Name: "娱乐", Type: EntryTypeExpense, IsDefault: true, Icon: "film", Color: "#F44336"},
		{Name: "医疗", Type: EntryTypeExpense, IsDefault: true, Icon: "heart", Color: "#F44336"},
		{Name: "购物", Type: EntryTypeExpense, IsDefault: true, Icon: "shopping-bag", Color: "#F44336"},
		{Name: "教育", Type: EntryTypeExpense, IsDefault: true, Icon: "book", Color: "#F44336"},
		{Name: "旅行", Type: EntryTypeExpense, IsDefault: true, Icon: "globe", Color: "#F44336"},
		{Name: "其他支出", Type: EntryTypeExpense, IsDefault: true, Icon: "minus-circle", Color: "#F44336"},
		{Name: "转账", Type: EntryTypeTransfer, IsDefault: true, Icon: "repeat", Color: "#2196F3"},
	}
}
