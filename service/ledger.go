package service

import (
	"errors"
	"log"
	"time"

	"budget/database"
	"budget/models"

	"gorm.io/gorm"
)

var (
	// ErrInvalidAmount 金额必须大于 0
	ErrInvalidAmount = errors.New("金额必须大于 0")
	// ErrInvalidEntryType 流水类型必须是 income/expense/transfer 之一
	ErrInvalidEntryType = errors.New("无效的流水类型")
	// ErrAccountNotFound 所属账本不存在，整个变更被拒绝
	ErrAccountNotFound = errors.New("账本不存在")
)

// LedgerService 流水引擎：维护账本缓存余额与流水记录的一致性
// 所有变更（新增/修改/删除）都在单个数据库事务内完成，
// 修改采用先撤销旧影响、再施加新影响的方式，保证任意类型/目标账本切换下余额精确
type LedgerService struct{}

// NewLedgerService 创建流水引擎
func NewLedgerService() *LedgerService {
	return &LedgerService{}
}

// accountSet 事务内已加载的账本缓存，同一账本的多次增减在内存中合并后一次落库
type accountSet map[uint]*models.Account

func loadAccount(tx *gorm.DB, set accountSet, id uint) (*models.Account, error) {
	if acc, ok := set[id]; ok {
		return acc, nil
	}
	var acc models.Account
	if err := tx.First(&acc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	set[id] = &acc
	return &acc, nil
}

// applyEffect 将流水的余额影响按 direction 施加到相关账本
// direction 为 +1 表示施加影响，-1 表示撤销影响
// 转账目标账本不存在时仅记录警告并跳过入账，不阻断整个操作
func applyEffect(tx *gorm.DB, set accountSet, entry *models.Entry, direction float64) error {
	acc, err := loadAccount(tx, set, entry.AccountID)
	if err != nil {
		return err
	}
	acc.Balance += direction * entry.SignedAmount()

	if entry.Type == models.EntryTypeTransfer && entry.TransferToAccountID != nil {
		target, err := loadAccount(tx, set, *entry.TransferToAccountID)
		if errors.Is(err, ErrAccountNotFound) {
			log.Printf("警告: 转账目标账本 %d 不存在，跳过入账（流水 %d）", *entry.TransferToAccountID, entry.ID)
			return nil
		}
		if err != nil {
			return err
		}
		target.Balance += direction * entry.Amount
	}
	return nil
}

// saveAccounts 将缓存中的账本余额落库
func saveAccounts(tx *gorm.DB, set accountSet) error {
	for id, acc := range set {
		if err := tx.Model(&models.Account{}).Where("id = ?", id).
			Update("balance", acc.Balance).Error; err != nil {
			return err
		}
	}
	return nil
}

func validateEntry(entry *models.Entry) error {
	if entry.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !models.IsValidEntryType(entry.Type) {
		return ErrInvalidEntryType
	}
	return nil
}

// Record 记一笔流水并更新相关账本余额
// income 加到所属账本；expense/transfer 从所属账本扣减；
// transfer 且设置了目标账本时同时给目标账本入账
func (s *LedgerService) Record(entry *models.Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		set := accountSet{}
		if err := applyEffect(tx, set, entry, +1); err != nil {
			return err
		}
		if err := saveAccounts(tx, set); err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
}

// Revise 修改一笔流水：先撤销旧流水的余额影响，再按修改后的字段施加新影响
// old 为修改前的流水，updated 为合并修改后的同一条流水（ID 相同）
// 净效果等价于「撤销旧、记录新」，类型、金额、账本、转账目标的任意变化均成立
func (s *LedgerService) Revise(old, updated *models.Entry) error {
	if err := validateEntry(updated); err != nil {
		return err
	}
	return database.DB.Transaction(func(tx *gorm.DB) error {
		set := accountSet{}
		if err := applyEffect(tx, set, old, -1); err != nil {
			return err
		}
		if err := applyEffect(tx, set, updated, +1); err != nil {
			return err
		}
		if err := saveAccounts(tx, set); err != nil {
			return err
		}
		return tx.Save(updated).Error
	})
}

// Retire 删除一笔流水并撤销其余额影响
func (s *LedgerService) Retire(entry *models.Entry) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		set := accountSet{}
		if err := applyEffect(tx, set, entry, -1); err != nil {
			return err
		}
		if err := saveAccounts(tx, set); err != nil {
			return err
		}
		return tx.Delete(entry).Error
	})
}

// BalanceAsOf 按需重算指定日期（含当天）前的账本余额
// 口径为流水的带符号合计，外加以该账本为目标的转账入账；
// asOf 为 nil 表示不限日期，此时结果应与缓存余额一致
func (s *LedgerService) BalanceAsOf(accountID uint, asOf *time.Time) (float64, error) {
	var outgoing float64
	query := database.DB.Model(&models.Entry{}).Where("account_id = ?", accountID)
	if asOf != nil {
		query = query.Where("entry_date <= ?", *asOf)
	}
	err := query.
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0)", models.EntryTypeIncome).
		Scan(&outgoing).Error
	if err != nil {
		return 0, err
	}

	// 以本账本为目标的转账入账
	var incoming float64
	query = database.DB.Model(&models.Entry{}).
		Where("transfer_to_account_id = ? AND type = ?", accountID, models.EntryTypeTransfer)
	if asOf != nil {
		query = query.Where("entry_date <= ?", *asOf)
	}
	if err := query.Select("COALESCE(SUM(amount), 0)").Scan(&incoming).Error; err != nil {
		return 0, err
	}

	return outgoing + incoming, nil
}
