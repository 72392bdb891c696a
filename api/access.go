package api

import (
	"errors"

	"budget/database"
	"budget/models"

	"gorm.io/gorm"
)

// findAccount 按 ID 查找账本
func findAccount(accountID uint) (*models.Account, error) {
	var account models.Account
	if err := database.DB.First(&account, accountID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// findMembership 精确查找 (账本, 用户) 成员关系，非成员返回 nil
func findMembership(accountID, userID uint) (*models.AccountMembership, error) {
	var m models.AccountMembership
	err := database.DB.Where("account_id = ? AND user_id = ?", accountID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// isMember 判断用户是否是账本成员
func isMember(accountID, userID uint) (bool, error) {
	m, err := findMembership(accountID, userID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}
