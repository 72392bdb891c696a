package api

import (
	"errors"
	"strconv"
	"time"

	"budget/database"
	"budget/middleware"
	"budget/models"
	"budget/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EntryHandler 流水处理器
type EntryHandler struct {
	ledger *service.LedgerService
}

// NewEntryHandler 创建流水处理器
func NewEntryHandler() *EntryHandler {
	return &EntryHandler{ledger: service.NewLedgerService()}
}

// CreateEntryRequest 创建流水请求
type CreateEntryRequest struct {
	AccountID           uint    `json:"account_id" binding:"required" example:"1"`
	CategoryID          *uint   `json:"category_id" example:"3"`
	Type                string  `json:"type" binding:"required" example:"expense"` // income/expense/transfer
	Amount              float64 `json:"amount" binding:"required,gt=0" example:"99.99"`
	Currency            string  `json:"currency" binding:"omitempty,max=10" example:"CNY"`
	Description         string  `json:"description" binding:"omitempty,max=255" example:"午餐"`
	EntryDate           string  `json:"entry_date" binding:"required" example:"2024-01-15"`
	TransferToAccountID *uint   `json:"transfer_to_account_id" example:"2"` // 仅 transfer 使用
}

// UpdateEntryRequest 更新流水请求，未提供的字段保持不变
type UpdateEntryRequest struct {
	AccountID           *uint   `json:"account_id"`
	CategoryID          *uint   `json:"category_id"`
	Type                string  `json:"type" binding:"omitempty"`
	Amount              float64 `json:"amount" binding:"omitempty,gt=0"`
	Currency            string  `json:"currency" binding:"omitempty,max=10"`
	Description         *string `json:"description" binding:"omitempty,max=255"`
	EntryDate           string  `json:"entry_date" binding:"omitempty"`
	TransferToAccountID *uint   `json:"transfer_to_account_id"`
}

// EntryListRequest 流水列表请求
type EntryListRequest struct {
	Page       int    `form:"page" example:"1"`
	PageSize   int    `form:"page_size" example:"10"`
	AccountID  uint   `form:"account_id" example:"1"`
	CategoryID uint   `form:"category_id" example:"3"`
	Type       string `form:"type" example:"expense"`
	StartDate  string `form:"start_date" example:"2024-01-01"`
	EndDate    string `form:"end_date" example:"2024-12-31"`
}

// requireEntryAccess 加载流水并校验当前用户对其所属账本的成员权限
func (h *EntryHandler) requireEntryAccess(c *gin.Context) (*models.Entry, bool) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return nil, false
	}

	var entry models.Entry
	if err := database.DB.First(&entry, uint(id)).Error; err != nil {
		NotFound(c, "流水不存在")
		return nil, false
	}

	member, err := isMember(entry.AccountID, userID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return nil, false
	}
	if !member {
		Forbidden(c, "您不是该账本的成员")
		return nil, false
	}
	return &entry, true
}

// validateCategory 校验类别存在且可用于指定账本（默认类别或该账本的自定义类别）
func validateCategory(c *gin.Context, categoryID, accountID uint) bool {
	var cat models.Category
	if err := database.DB.First(&cat, categoryID).Error; err != nil {
		BadRequest(c, "类别不存在")
		return false
	}
	if !cat.IsDefault && (cat.AccountID == nil || *cat.AccountID != accountID) {
		BadRequest(c, "类别不属于该账本")
		return false
	}
	return true
}

// mapLedgerError 将流水引擎错误映射为 HTTP 响应
func mapLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidEntryType):
		BadRequest(c, err.Error())
	default:
		InternalError(c, SafeErrorMessage(err, "操作失败"))
	}
}

// Create 创建流水
// @Summary 创建流水
// @Description 记一笔流水并同步更新账本余额；income 加余额，expense/transfer 减余额，transfer 并给目标账本入账
// @Tags 流水
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateEntryRequest true "流水信息"
// @Success 200 {object} Response{data=models.Entry} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/entries [post]
func (h *EntryHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	if !models.IsValidEntryType(req.Type) {
		BadRequest(c, "无效的流水类型，应为 income/expense/transfer")
		return
	}
	if req.TransferToAccountID != nil {
		if req.Type != models.EntryTypeTransfer {
			BadRequest(c, "仅转账流水可以指定目标账本")
			return
		}
		if *req.TransferToAccountID == req.AccountID {
			BadRequest(c, "转账目标不能是本账本")
			return
		}
	}

	account, err := findAccount(req.AccountID)
	if err != nil {
		NotFound(c, "账本不存在")
		return
	}
	member, err := isMember(req.AccountID, userID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	if !member {
		Forbidden(c, "您不是该账本的成员")
		return
	}

	if req.CategoryID != nil && !validateCategory(c, *req.CategoryID, req.AccountID) {
		return
	}

	entryDate, err := time.ParseInLocation("2006-01-02", req.EntryDate, time.Local)
	if err != nil {
		BadRequest(c, "日期格式错误，应为: 2006-01-02")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = account.Currency
	}

	entry := models.Entry{
		AccountID:           req.AccountID,
		CategoryID:          req.CategoryID,
		UserID:              &userID,
		Type:                req.Type,
		Amount:              req.Amount,
		Currency:            currency,
		Description:         req.Description,
		EntryDate:           entryDate,
		TransferToAccountID: req.TransferToAccountID,
	}

	if err := h.ledger.Record(&entry); err != nil {
		mapLedgerError(c, err)
		return
	}

	SuccessWithMessage(c, "创建成功", entry)
}

// List 获取流水列表
// @Summary 获取流水列表
// @Description 获取流水列表，支持按账本、类别、类型和日期范围筛选；不指定账本时返回当前用户全部账本的流水
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param account_id query int false "账本ID"
// @Param category_id query int false "类别ID"
// @Param type query string false "流水类型 income/expense/transfer"
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response{data=PageResponse{list=[]models.Entry}} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 403 {object} Response "非账本成员"
// @Router /api/v1/entries [get]
func (h *EntryHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req EntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 默认分页参数
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	query := database.DB.Model(&models.Entry{})

	if req.AccountID != 0 {
		if _, err := findAccount(req.AccountID); err != nil {
			NotFound(c, "账本不存在")
			return
		}
		member, err := isMember(req.AccountID, userID)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询失败"))
			return
		}
		if !member {
			Forbidden(c, "您不是该账本的成员")
			return
		}
		query = query.Where("entries.account_id = ?", req.AccountID)
	} else {
		// 跨账本查询：限定在当前用户作为成员的账本
		query = query.
			Joins("JOIN account_memberships ON account_memberships.account_id = entries.account_id").
			Where("account_memberships.user_id = ?", userID)
	}

	if req.CategoryID != 0 {
		query = query.Where("entries.category_id = ?", req.CategoryID)
	}
	if req.Type != "" {
		if !models.IsValidEntryType(req.Type) {
			BadRequest(c, "无效的流水类型，应为 income/expense/transfer")
			return
		}
		query = query.Where("entries.type = ?", req.Type)
	}

	// 日期范围筛选
	if req.StartDate != "" {
		startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
		if err == nil {
			query = query.Where("entries.entry_date >= ?", startDate)
		}
	}
	if req.EndDate != "" {
		endDate, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local)
		if err == nil {
			// 包含结束日期当天
			endDate = endDate.Add(24*time.Hour - time.Second)
			query = query.Where("entries.entry_date <= ?", endDate)
		}
	}

	// 获取总数
	var total int64
	query.Count(&total)

	// 获取列表
	var entries []models.Entry
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("entries.entry_date DESC, entries.id DESC").
		Offset(offset).Limit(req.PageSize).Find(&entries).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		List:     entries,
	})
}

// Get 获取单条流水
// @Summary 获取流水详情
// @Description 根据ID获取流水详情，需要所属账本的成员权限
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Param id path int true "流水ID"
// @Success 200 {object} Response{data=models.Entry} "获取成功"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "流水不存在"
// @Router /api/v1/entries/{id} [get]
func (h *EntryHandler) Get(c *gin.Context) {
	entry, ok := h.requireEntryAccess(c)
	if !ok {
		return
	}
	Success(c, entry)
}

// Update 更新流水
// @Summary 更新流水
// @Description 更新流水并保持账本余额一致：先撤销旧流水的影响，再按新字段重新入账
// @Tags 流水
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "流水ID"
// @Param request body UpdateEntryRequest true "流水信息"
// @Success 200 {object} Response{data=models.Entry} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "流水不存在"
// @Router /api/v1/entries/{id} [put]
func (h *EntryHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	entry, ok := h.requireEntryAccess(c)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 合并修改后的字段集
	updated := *entry
	if req.AccountID != nil && *req.AccountID != entry.AccountID {
		// 移动到其他账本需要目标账本的成员权限
		if _, err := findAccount(*req.AccountID); err != nil {
			NotFound(c, "目标账本不存在")
			return
		}
		member, err := isMember(*req.AccountID, userID)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询失败"))
			return
		}
		if !member {
			Forbidden(c, "您不是目标账本的成员")
			return
		}
		updated.AccountID = *req.AccountID
	}
	if req.Type != "" {
		if !models.IsValidEntryType(req.Type) {
			BadRequest(c, "无效的流水类型，应为 income/expense/transfer")
			return
		}
		updated.Type = req.Type
	}
	if req.Amount > 0 {
		updated.Amount = req.Amount
	}
	if req.Currency != "" {
		updated.Currency = req.Currency
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.EntryDate != "" {
		entryDate, err := time.ParseInLocation("2006-01-02", req.EntryDate, time.Local)
		if err != nil {
			BadRequest(c, "日期格式错误，应为: 2006-01-02")
			return
		}
		updated.EntryDate = entryDate
	}
	if req.CategoryID != nil {
		if !validateCategory(c, *req.CategoryID, updated.AccountID) {
			return
		}
		updated.CategoryID = req.CategoryID
	}
	if req.TransferToAccountID != nil {
		updated.TransferToAccountID = req.TransferToAccountID
	}

	if updated.TransferToAccountID != nil {
		if updated.Type != models.EntryTypeTransfer {
			// 类型改为非转账后目标账本随之失效
			updated.TransferToAccountID = nil
		} else if *updated.TransferToAccountID == updated.AccountID {
			BadRequest(c, "转账目标不能是本账本")
			return
		}
	}

	if err := h.ledger.Revise(entry, &updated); err != nil {
		mapLedgerError(c, err)
		return
	}

	SuccessWithMessage(c, "更新成功", updated)
}

// Delete 删除流水
// @Summary 删除流水
// @Description 删除流水并撤销其对账本余额的影响
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Param id path int true "流水ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "流水不存在"
// @Router /api/v1/entries/{id} [delete]
func (h *EntryHandler) Delete(c *gin.Context) {
	entry, ok := h.requireEntryAccess(c)
	if !ok {
		return
	}

	if err := h.ledger.Retire(entry); err != nil {
		mapLedgerError(c, err)
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}

// GetStatistics 获取流水统计
// @Summary 获取流水统计
// @Description 获取指定账本在日期范围内按类别汇总的统计数据，适合绘制饼图
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Param account_id query int true "账本ID"
// @Param type query string false "流水类型 income/expense/transfer"
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Success 200 {object} Response "获取成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/entries/statistics [get]
func (h *EntryHandler) GetStatistics(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	accountIDStr := c.Query("account_id")
	if accountIDStr == "" {
		BadRequest(c, "account_id参数必填")
		return
	}
	accountID64, err := strconv.ParseUint(accountIDStr, 10, 32)
	if err != nil {
		BadRequest(c, "无效的账本ID")
		return
	}
	accountID := uint(accountID64)

	if _, err := findAccount(accountID); err != nil {
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

	query := database.DB.Model(&models.Entry{}).Where("entries.account_id = ?", accountID)

	if entryType := c.Query("type"); entryType != "" {
		if !models.IsValidEntryType(entryType) {
			BadRequest(c, "无效的流水类型，应为 income/expense/transfer")
			return
		}
		query = query.Where("entries.type = ?", entryType)
	}

	// 日期范围筛选
	if startDateStr := c.Query("start_date"); startDateStr != "" {
		startDate, err := time.ParseInLocation("2006-01-02", startDateStr, time.Local)
		if err == nil {
			query = query.Where("entries.entry_date >= ?", startDate)
		}
	}
	if endDateStr := c.Query("end_date"); endDateStr != "" {
		endDate, err := time.ParseInLocation("2006-01-02", endDateStr, time.Local)
		if err == nil {
			endDate = endDate.Add(24*time.Hour - time.Second)
			query = query.Where("entries.entry_date <= ?", endDate)
		}
	}

	// 总金额和总记录数
	var totalAmount float64
	var totalCount int64
	query.Session(&gorm.Session{}).Select("COALESCE(SUM(entries.amount), 0)").Scan(&totalAmount)
	query.Session(&gorm.Session{}).Count(&totalCount)

	// 按类别统计，未设置类别的归入"未分类"
	type CategoryStat struct {
		CategoryID *uint   `json:"category_id"`
		Category   string  `json:"category"`
		Type       string  `json:"type"`
		Total      float64 `json:"total"`
		Count      int64   `json:"count"`
	}
	var categoryStats []CategoryStat

	if err := query.Session(&gorm.Session{}).
		Select("entries.category_id, COALESCE(categories.name, '未分类') as category, entries.type, SUM(entries.amount) as total, COUNT(*) as count").
		Joins("LEFT JOIN categories ON categories.id = entries.category_id").
		Group("entries.category_id, categories.name, entries.type").
		Order("total DESC").
		Scan(&categoryStats).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, gin.H{
		"account_id":     accountID,
		"total_amount":   totalAmount,
		"total_count":    totalCount,
		"category_stats": categoryStats,
	})
}
