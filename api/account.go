package api

import (
	"strconv"
	"time"

	"budget/database"
	"budget/middleware"
	"budget/models"
	"budget/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AccountHandler 账本处理器
type AccountHandler struct {
	ledger *service.LedgerService
}

// NewAccountHandler 创建账本处理器
func NewAccountHandler() *AccountHandler {
	return &AccountHandler{ledger: service.NewLedgerService()}
}

// CreateAccountRequest 创建账本请求
type CreateAccountRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100" example:"家庭账本"`
	Description string `json:"description" binding:"omitempty,max=255" example:"日常开销"`
	Currency    string `json:"currency" binding:"omitempty,max=10" example:"CNY"`
}

// UpdateAccountRequest 更新账本请求
type UpdateAccountRequest struct {
	Name        string  `json:"name" binding:"omitempty,min=1,max=100" example:"家庭账本"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	Currency    string  `json:"currency" binding:"omitempty,max=10" example:"CNY"`
}

// parseAccountID 解析路径中的账本 ID
func parseAccountID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

// Create 创建账本
// @Summary 创建账本
// @Description 创建新账本，创建人自动成为账本所有者和管理员成员
// @Tags 账本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountRequest true "账本信息"
// @Success 200 {object} Response{data=models.Account} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "CNY"
	}

	// 余额只能由流水驱动，新账本从 0 开始
	account := models.Account{
		Name:        req.Name,
		Description: req.Description,
		Currency:    currency,
		OwnerID:     userID,
	}

	// 账本与所有者成员关系一并创建
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		membership := models.AccountMembership{
			AccountID: account.ID,
			UserID:    userID,
			Role:      models.RoleAdmin,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "创建账本失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", account)
}

// List 获取当前用户的账本列表
// @Summary 获取账本列表
// @Description 获取当前用户作为成员的全部账本
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Account} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var accounts []models.Account
	if err := database.DB.Model(&models.Account{}).
		Joins("JOIN account_memberships ON account_memberships.account_id = accounts.id").
		Where("account_memberships.user_id = ?", userID).
		Order("accounts.id ASC").
		Find(&accounts).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, accounts)
}

// Get 获取账本详情
// @Summary 获取账本详情
// @Description 获取指定账本的详细信息，仅账本成员可见
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Param id path int true "账本ID"
// @Success 200 {object} Response{data=models.Account} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	account, err := findAccount(accountID)
	if err != nil {
		NotFound(c, "账本不存在")
		return
	}

	member, err := isMember(accountID, userID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	if !member {
		Forbidden(c, "您不是该账本的成员")
		return
	}

	Success(c, account)
}

// Update 更新账本
// @Summary 更新账本
// @Description 更新账本信息，仅账本所有者可操作；余额由流水维护，不可直接修改
// @Tags 账本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账本ID"
// @Param request body UpdateAccountRequest true "账本信息"
// @Success 200 {object} Response{data=models.Account} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "仅所有者可操作"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/accounts/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	account, err := findAccount(accountID)
	if err != nil {
		NotFound(c, "账本不存在")
		return
	}
	if account.OwnerID != userID {
		Forbidden(c, "仅账本所有者可以修改账本")
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Currency != "" {
		updates["currency"] = req.Currency
	}

	if len(updates) > 0 {
		if err := database.DB.Model(account).Updates(updates).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "更新失败"))
			return
		}
	}

	database.DB.First(account, account.ID)
	SuccessWithMessage(c, "更新成功", account)
}

// Delete 删除账本
// @Summary 删除账本
// @Description 删除账本及其全部流水和成员关系，并冲回转出到其他账本的入账，仅账本所有者可操作
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Param id path int true "账本ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "仅所有者可操作"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	account, err := findAccount(accountID)
	if err != nil {
		NotFound(c, "账本不存在")
		return
	}
	if account.OwnerID != userID {
		Forbidden(c, "仅账本所有者可以删除账本")
		return
	}

	// 级联清理流水与成员关系
	// 本账本转出给其他账本的入账要先冲回，否则目标账本的缓存余额与流水重算会不一致
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		type transferCredit struct {
			TargetID uint
			Total    float64
		}
		var credits []transferCredit
		if err := tx.Model(&models.Entry{}).
			Select("transfer_to_account_id AS target_id, SUM(amount) AS total").
			Where("account_id = ? AND type = ? AND transfer_to_account_id IS NOT NULL",
				accountID, models.EntryTypeTransfer).
			Group("transfer_to_account_id").
			Scan(&credits).Error; err != nil {
			return err
		}
		for _, credit := range credits {
			if err := tx.Model(&models.Account{}).
				Where("id = ?", credit.TargetID).
				Update("balance", gorm.Expr("balance - ?", credit.Total)).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("account_id = ?", accountID).Delete(&models.Entry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", accountID).Delete(&models.AccountMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(account).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// BalanceResponse 余额响应
type BalanceResponse struct {
	AccountID uint    `json:"account_id"`
	Currency  string  `json:"currency"`
	Cached    float64 `json:"cached_balance"`   // 缓存余额字段
	Computed  float64 `json:"computed_balance"` // 按流水重算的余额
	AsOf      string  `json:"as_of,omitempty"`  // 截止日期，空表示不限
}

// Balance 查询账本余额
// @Summary 查询账本余额
// @Description 返回缓存余额和按流水重算的余额；可选 as_of 参数按日期截止重算。不传 as_of 时两者应一致
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Param id path int true "账本ID"
// @Param as_of query string false "截止日期 (2024-01-31)"
// @Success 200 {object} Response{data=BalanceResponse} "获取成功"
// @Failure 400 {object} Response "日期格式错误"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/accounts/{id}/balance [get]
func (h *AccountHandler) Balance(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	account, err := findAccount(accountID)
	if err != nil {
		NotFound(c, "账本不存在")
		return
	}

	member, err := isMember(accountID, userID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	if !member {
		Forbidden(c, "您不是该账本的成员")
		return
	}

	var asOf *time.Time
	asOfStr := c.Query("as_of")
	if asOfStr != "" {
		t, err := time.ParseInLocation("2006-01-02", asOfStr, time.Local)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return
		}
		// 包含截止日期当天
		t = t.Add(24*time.Hour - time.Second)
		asOf = &t
	}

	computed, err := h.ledger.BalanceAsOf(accountID, asOf)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "余额计算失败"))
		return
	}

	Success(c, BalanceResponse{
		AccountID: accountID,
		Currency:  account.Currency,
		Cached:    account.Balance,
		Computed:  computed,
		AsOf:      asOfStr,
	})
}
