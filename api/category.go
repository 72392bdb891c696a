package api

import (
	"strconv"
	"strings"

	"budget/database"
	"budget/middleware"
	"budget/models"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 类别处理器
type CategoryHandler struct{}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// CreateCategoryRequest 创建类别请求
type CreateCategoryRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=50" example:"宠物"`
	Type      string `json:"type" binding:"required" example:"expense"` // income/expense/transfer
	AccountID *uint  `json:"account_id" example:"1"`                    // 空表示全局类别
	Icon      string `json:"icon" binding:"omitempty,max=50" example:"paw"`
	Color     string `json:"color" binding:"omitempty,max=20" example:"#a855f7"`
}

// UpdateCategoryRequest 更新类别请求
type UpdateCategoryRequest struct {
	Name  string  `json:"name" binding:"omitempty,min=1,max=50"`
	Type  string  `json:"type" binding:"omitempty"`
	Icon  *string `json:"icon" binding:"omitempty,max=50"`
	Color *string `json:"color" binding:"omitempty,max=20"`
}

// GetDefault 获取默认类别列表
// @Summary 获取默认类别列表
// @Description 获取固定的全局默认类别（无需登录），默认类别不可修改、不可删除
// @Tags 类别
// @Produce json
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/v1/categories/default [get]
func (h *CategoryHandler) GetDefault(c *gin.Context) {
	var list []models.Category
	if err := database.DB.Where("is_default = ?", true).Order("id ASC").Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	Success(c, list)
}

// List 获取类别列表
// @Summary 获取类别列表
// @Description 获取类别列表；指定 account_id 时返回该账本的自定义类别加全局默认类别，需要账本成员权限
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param account_id query int false "账本ID"
// @Param type query string false "类别类型 income/expense/transfer"
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	query := database.DB.Model(&models.Category{})

	if accountIDStr := c.Query("account_id"); accountIDStr != "" {
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

		// 账本自定义类别 + 全局默认类别
		query = query.Where("account_id = ? OR is_default = ?", accountID, true)
	}

	if catType := c.Query("type"); catType != "" {
		if !models.IsValidEntryType(catType) {
			BadRequest(c, "无效的类别类型，应为 income/expense/transfer")
			return
		}
		query = query.Where("type = ?", catType)
	}

	var list []models.Category
	if err := query.Order("id ASC").Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, list)
}

// Get 获取单个类别
// @Summary 获取类别详情
// @Description 获取指定类别详情，账本自定义类别需要成员权限
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response{data=models.Category} "获取成功"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var cat models.Category
	if err := database.DB.First(&cat, uint(id)).Error; err != nil {
		NotFound(c, "类别不存在")
		return
	}

	// 账本自定义类别仅成员可见
	if cat.AccountID != nil {
		member, err := isMember(*cat.AccountID, userID)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询失败"))
			return
		}
		if !member {
			Forbidden(c, "您不是该账本的成员")
			return
		}
	}

	Success(c, cat)
}

// Create 创建类别
// @Summary 创建类别
// @Description 创建自定义类别；指定 account_id 时需要账本成员权限
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCategoryRequest true "类别信息"
// @Success 200 {object} Response{data=models.Category} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		BadRequest(c, "名称不能为空")
		return
	}
	if !models.IsValidEntryType(req.Type) {
		BadRequest(c, "无效的类别类型，应为 income/expense/transfer")
		return
	}

	if req.AccountID != nil {
		if _, err := findAccount(*req.AccountID); err != nil {
			NotFound(c, "账本不存在")
			return
		}
		member, err := isMember(*req.AccountID, userID)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询失败"))
			return
		}
		if !member {
			Forbidden(c, "您不是该账本的成员")
			return
		}
	}

	color := req.Color
	if color == "" {
		color = "#64748b" // 默认灰色
	}

	cat := models.Category{
		Name:      req.Name,
		Type:      req.Type,
		AccountID: req.AccountID,
		Icon:      req.Icon,
		Color:     color,
	}
	if err := database.DB.Create(&cat).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", cat)
}

// Update 更新类别
// @Summary 更新类别
// @Description 更新自定义类别；默认类别不可修改
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Param request body UpdateCategoryRequest true "类别信息"
// @Success 200 {object} Response{data=models.Category} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "默认类别不可修改或非账本成员"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var cat models.Category
	if err := database.DB.First(&cat, uint(id)).Error; err != nil {
		NotFound(c, "类别不存在")
		return
	}

	// 默认类别不可变
	if cat.IsDefault {
		Forbidden(c, "默认类别不可修改")
		return
	}

	if cat.AccountID != nil {
		member, err := isMember(*cat.AccountID, userID)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询失败"))
			return
		}
		if !member {
			Forbidden(c, "您不是该账本的成员")
			return
		}
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			BadRequest(c, "名称不能为空")
			return
		}
		updates["name"] = req.Name
	}
	if req.Type != "" {
		if !models.IsValidEntryType(req.Type) {
			BadRequest(c, "无效的类别类型，应为 income/expense/transfer")
			return
		}
		updates["type"] = req.Type
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&cat).Updates(updates).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "更新失败"))
			return
		}
	}

	database.DB.First(&cat, cat.ID)
	SuccessWithMessage(c, "更新成功", cat)
}

// Delete 删除类别
// @Summary 删除类别
// @Description 删除自定义类别；默认类别不可删除
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "默认类别不可删除或非账本成员"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var cat models.Category
	if err := database.DB.First(&cat, uint(id)).Error; err != nil {
		NotFound(c, "类别不存在")
		return
	}

	// 默认类别不可删除
	if cat.IsDefault {
		Forbidden(c, "默认类别不可删除")
		return
	}

	if cat.AccountID != nil {
		member, err := isMember(*cat.AccountID, userID)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询失败"))
			return
		}
		if !member {
			Forbidden(c, "您不是该账本的成员")
			return
		}
	}

	if err := database.DB.Delete(&cat).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	SuccessWithMessage(c, "删除成功", nil)
}
