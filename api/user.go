package api

import (
	"strconv"

	"kontas/database"
	"kontas/middleware"
	"kontas/models"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户管理处理器
type UserHandler struct{}

// NewUserHandler 创建用户管理处理器
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// ListUsers 获取用户列表
// @Summary 获取用户列表
// @Description 分页获取所有用户（仅管理员）
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} PageResponse{data=[]models.User} "获取成功"
// @Failure 403 {object} Response "权限不足"
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := database.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询用户失败"))
		return
	}

	var users []models.User
	if err := database.DB.Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询用户失败"))
		return
	}

	SuccessPage(c, users, total, page, limit)
}

// GetUser 获取用户详情
// @Summary 获取用户详情
// @Description 根据 ID 获取用户公开信息
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} Response{data=models.PublicProfile} "获取成功"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的用户ID")
		return
	}

	var user models.User
	if err := database.DB.First(&user, uint(id)).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	Success(c, user.Public())
}

// UpdateProfileRequest 更新个人资料请求
type UpdateProfileRequest struct {
	FullName       *string `json:"full_name" binding:"omitempty,min=3,max=100"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Phone          *string `json:"phone" binding:"omitempty,len=11,numeric"`
	ProfilePicture *string `json:"profile_picture" binding:"omitempty,url"`
}

// UpdateProfile 更新个人资料
// @Summary 更新个人资料
// @Description 更新当前登录用户的资料，未提供的字段保持不变
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "资料信息"
// @Success 200 {object} Response{data=models.User} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.ProfilePicture != nil {
		updates["profile_picture"] = *req.ProfilePicture
	}
	if len(updates) == 0 {
		Success(c, user)
		return
	}

	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新资料失败"))
		return
	}

	Success(c, user)
}
