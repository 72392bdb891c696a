package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEntryType(t *testing.T) {
	assert.True(t, IsValidEntryType(EntryTypeIncome))
	assert.True(t, IsValidEntryType(EntryTypeExpense))
	assert.True(t, IsValidEntryType(EntryTypeTransfer))

	assert.False(t, IsValidEntryType(""))
	assert.False(t, IsValidEntryType("INCOME"))
	assert.False(t, IsValidEntryType("withdraw"))
}

func TestEntry_SignedAmount(t *testing.T) {
	// 收入计正
	income := &Entry{Type: EntryTypeIncome, Amount: 100.50}
	assert.Equal(t, 100.50, income.SignedAmount())

	// 支出计负
	expense := &Entry{Type: EntryTypeExpense, Amount: 42.00}
	assert.Equal(t, -42.00, expense.SignedAmount())

	// 转账从本账本扣减，计负
	transfer := &Entry{Type: EntryTypeTransfer, Amount: 300.00}
	assert.Equal(t, -300.00, transfer.SignedAmount())
}
