package api

import (
	"strconv"
	"time"

	"budget/database"
	"budget/middleware"
	"budget/models"

	"github.com/gin-gonic/gin"
)

// MemberHandler 账本成员处理器
type MemberHandler struct{}

// NewMemberHandler 创建账本成员处理器
func NewMemberHandler() *MemberHandler {
	return &MemberHandler{}
}

// AddMemberRequest 添加成员请求
type AddMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required" example:"2"`
	Role   string `json:"role" binding:"omitempty" example:"member"` // admin/member，默认 member
}

// UpdateMemberRequest 更新成员角色请求
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required" example:"admin"`
}

// MemberInfo 成员信息（含用户资料）
type MemberInfo struct {
	UserID   uint      `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	IsOwner  bool      `json:"is_owner"`
}

// parseMemberUserID 解析路径中的成员用户 ID
func parseMemberUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的用户ID")
		return 0, false
	}
	return uint(id), true
}

// List 获取账本成员列表
// @Summary 获取账本成员列表
// @Description 获取账本的全部成员及其角色，仅账本成员可见
// @Tags 账本成员
// @Produce json
// @Security BearerAuth
// @Param id path int true "账本ID"
// @Success 200 {object} Response{data=[]MemberInfo} "获取成功"
// @Failure 403 {object} Response "非账本成员"
// @Failure 404 {object} Response "账本不存在"
// @Router /api/v1/accounts/{id}/members [get]
func (h *MemberHandler) List(c *gin.Context) {
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

	var rows []struct {
		UserID   uint
		Email    string
		Name     string
		Role     string
		JoinedAt time.Time
	}
	if err := database.DB.Model(&models.AccountMembership{}).
		Select("account_memberships.user_id, users.email, users.name, account_memberships.role, account_memberships.joined_at").
		Joins("JOIN users ON users.id = account_memberships.user_id").
		Where("account_memberships.account_id = ?", accountID).
		Order("account_memberships.joined_at ASC").
		Scan(&rows).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	members := make([]MemberInfo, 0, len(rows))
	for _, r := range rows {
		members = append(members, MemberInfo{
			UserID:   r.UserID,
			Email:    r.Email,
			Name:     r.Name,
			Role:     r.Role,
			JoinedAt: r.JoinedAt,
			IsOwner:  r.UserID == account.OwnerID,
		})
	}

	Success(c, members)
}

// Add 添加账本成员
// @Summary 添加账本成员
// @Description 将用户加入账本，仅账本所有者可操作
// @Tags 账本成员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账本ID"
// @Param request body AddMemberRequest true "成员信息"
// @Success 200 {object} Response{data=models.AccountMembership} "添加成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "仅所有者可操作"
// @Failure 404 {object} Response "账本或用户不存在"
// @Failure 409 {object} Response "用户已是账本成员"
// @Router /api/v1/accounts/{id}/members [post]
func (h *MemberHandler) Add(c *gin.Context) {
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
		Forbidden(c, "仅账本所有者可以管理成员")
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if !models.IsValidRole(role) {
		BadRequest(c, "无效的角色，应为 admin 或 member")
		return
	}

	// 目标用户必须存在
	var user models.User
	if err := database.DB.First(&user, req.UserID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	// (账本, 用户) 唯一
	existing, err := findMembership(accountID, req.UserID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	if existing != nil {
		Conflict(c, "用户已是账本成员")
		return
	}

	membership := models.AccountMembership{
		AccountID: accountID,
		UserID:    req.UserID,
		Role:      role,
	}
	if err := database.DB.Create(&membership).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "添加成员失败"))
		return
	}

	SuccessWithMessage(c, "添加成功", membership)
}

// Update 更新成员角色
// @Summary 更新成员角色
// @Description 修改账本成员的角色，仅账本所有者可操作
// @Tags 账本成员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账本ID"
// @Param user_id path int true "成员用户ID"
// @Param request body UpdateMemberRequest true "角色信息"
// @Success 200 {object} Response{data=models.AccountMembership} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "仅所有者可操作"
// @Failure 404 {object} Response "账本或成员不存在"
// @Router /api/v1/accounts/{id}/members/{user_id} [put]
func (h *MemberHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	memberID, ok := parseMemberUserID(c)
	if !ok {
		return
	}

	account, err := findAccount(accountID)
	if err != nil {
		NotFound(c, "账本不存在")
		return
	}
	if account.OwnerID != userID {
		Forbidden(c, "仅账本所有者可以管理成员")
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	if !models.IsValidRole(req.Role) {
		BadRequest(c, "无效的角色，应为 admin 或 member")
		return
	}

	membership, err := findMembership(accountID, memberID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	if membership == nil {
		NotFound(c, "成员不存在")
		return
	}

	if err := database.DB.Model(&models.AccountMembership{}).
		Where("account_id = ? AND user_id = ?", accountID, memberID).
		Update("role", req.Role).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	membership.Role = req.Role
	SuccessWithMessage(c, "更新成功", membership)
}

// Remove 移除账本成员
// @Summary 移除账本成员
// @Description 将成员移出账本，仅账本所有者可操作；所有者本人不可被移除
// @Tags 账本成员
// @Produce json
// @Security BearerAuth
// @Param id path int true "账本ID"
// @Param user_id path int true "成员用户ID"
// @Success 200 {object} Response "移除成功"
// @Failure 403 {object} Response "仅所有者可操作或试图移除所有者"
// @Failure 404 {object} Response "账本或成员不存在"
// @Router /api/v1/accounts/{id}/members/{user_id} [delete]
func (h *MemberHandler) Remove(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}
	memberID, ok := parseMemberUserID(c)
	if !ok {
		return
	}

	account, err := findAccount(accountID)
	if err != nil {
		NotFound(c, "账本不存在")
		return
	}
	if account.OwnerID != userID {
		Forbidden(c, "仅账本所有者可以管理成员")
		return
	}

	// 所有者无条件不可被移除
	if memberID == account.OwnerID {
		Forbidden(c, "账本所有者不可被移除")
		return
	}

	membership, err := findMembership(accountID, memberID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	if membership == nil {
		NotFound(c, "成员不存在")
		return
	}

	if err := database.DB.Where("account_id = ? AND user_id = ?", accountID, memberID).
		Delete(&models.AccountMembership{}).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "移除失败"))
		return
	}

	SuccessWithMessage(c, "移除成功", nil)
}
