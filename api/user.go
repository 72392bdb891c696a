package api

import (
	"budget/database"
	"budget/middleware"
	"budget/models"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct{}

// NewUserHandler 创建用户处理器
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// UpdateProfileRequest 更新个人信息请求
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"omitempty,max=50" example:"张三"`
	Email string `json:"email" binding:"omitempty,email" example:"user@example.com"`
}

// List 获取用户列表（仅管理员）
// @Summary 获取用户列表
// @Description 获取全部用户列表，仅管理员可用
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} Response{data=PageResponse{list=[]models.User}} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 403 {object} Response "非管理员"
// @Router /api/v1/users [get]
func (h *UserHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var current models.User
	if err := database.DB.First(&current, userID).Error; err != nil {
		Unauthorized(c, "用户不存在")
		return
	}
	if !current.IsAdmin {
		Forbidden(c, "需要管理员权限")
		return
	}

	page, pageSize := parsePagination(c)

	var total int64
	database.DB.Model(&models.User{}).Count(&total)

	var users []models.User
	if err := database.DB.Order("id ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&users).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		List:     users,
	})
}

// UpdateProfile 更新个人信息
// @Summary 更新个人信息
// @Description 更新当前用户的昵称或邮箱
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "用户信息"
// @Success 200 {object} Response{data=models.User} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "邮箱已被占用"
// @Router /api/v1/users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		Unauthorized(c, "用户不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" && req.Email != user.Email {
		// 邮箱唯一性校验
		var count int64
		database.DB.Model(&models.User{}).Where("email = ? AND id != ?", req.Email, userID).Count(&count)
		if count > 0 {
			Conflict(c, "该邮箱已被注册")
			return
		}
		updates["email"] = req.Email
	}

	if len(updates) == 0 {
		Success(c, user)
		return
	}

	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	SuccessWithMessage(c, "更新成功", user)
}
