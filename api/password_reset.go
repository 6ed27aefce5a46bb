package api

import (
	"time"

	"kontas/config"
	"kontas/database"
	"kontas/models"
	"kontas/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// PasswordResetHandler 密码重置处理器
type PasswordResetHandler struct {
	email *service.EmailService
}

// NewPasswordResetHandler 创建密码重置处理器
func NewPasswordResetHandler(cfg *config.Config) *PasswordResetHandler {
	return &PasswordResetHandler{email: service.NewEmailService(&cfg.Email)}
}

// RequestResetRequest 请求重置密码
type RequestResetRequest struct {
	Email string `json:"email" binding:"required,email" example:"joao@example.com"`
}

// VerifyCodeRequest 验证重置验证码
type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email" example:"joao@example.com"`
	Code  string `json:"code" binding:"required,len=6" example:"123456"`
}

// ResetPasswordRequest 重置密码
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email" example:"joao@example.com"`
	Code        string `json:"code" binding:"required,len=6" example:"123456"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=64" example:"newpassword123"`
}

// RequestReset 发送重置密码验证码
// @Summary 发送重置密码验证码
// @Description 向指定邮箱发送 6 位验证码，10 分钟内有效。无论邮箱是否注册都返回相同提示
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RequestResetRequest true "邮箱"
// @Success 200 {object} Response "发送成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 429 {object} Response "请求过于频繁"
// @Router /api/v1/auth/password/request-reset [post]
func (h *PasswordResetHandler) RequestReset(c *gin.Context) {
	var req RequestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 邮箱未注册也返回成功，避免被用来探测账号
	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		SuccessWithMessage(c, "如果该邮箱已注册，验证码已发送", nil)
		return
	}

	// 1 分钟内不允许重复发送
	var recent models.PasswordReset
	if err := database.DB.Where("email = ? AND created_at > ?", req.Email, time.Now().Add(-time.Minute)).
		First(&recent).Error; err == nil {
		Error(c, 429, "请求过于频繁，请稍后再试")
		return
	}

	code, err := models.GenerateVerificationCode()
	if err != nil {
		InternalError(c, "生成验证码失败")
		return
	}
	reset := models.PasswordReset{
		UserID:    user.ID,
		Email:     req.Email,
		Token:     code,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	if err := database.DB.Create(&reset).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建验证码失败"))
		return
	}

	if err := h.email.SendPasswordResetEmail(req.Email, user.Username, code); err != nil {
		InternalError(c, SafeErrorMessage(err, "发送邮件失败"))
		return
	}

	SuccessWithMessage(c, "如果该邮箱已注册，验证码已发送", nil)
}

// VerifyCode 校验重置验证码
// @Summary 校验重置验证码
// @Description 校验验证码是否有效（不消耗验证码）
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "邮箱和验证码"
// @Success 200 {object} Response "验证码有效"
// @Failure 400 {object} Response "验证码无效或已过期"
// @Router /api/v1/auth/password/verify-code [post]
func (h *PasswordResetHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var reset models.PasswordReset
	if err := database.DB.Where("email = ? AND token = ?", req.Email, req.Code).
		Order("created_at DESC").First(&reset).Error; err != nil {
		BadRequest(c, "验证码无效或已过期")
		return
	}
	if !reset.IsValid() {
		BadRequest(c, "验证码无效或已过期")
		return
	}

	SuccessWithMessage(c, "验证码有效", nil)
}

// ResetPassword 重置密码
// @Summary 重置密码
// @Description 使用验证码重置密码，验证码一次有效
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "重置信息"
// @Success 200 {object} Response "重置成功"
// @Failure 400 {object} Response "验证码无效或已过期"
// @Router /api/v1/auth/password/reset [post]
func (h *PasswordResetHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var reset models.PasswordReset
	if err := database.DB.Where("email = ? AND token = ?", req.Email, req.Code).
		Order("created_at DESC").First(&reset).Error; err != nil {
		BadRequest(c, "验证码无效或已过期")
		return
	}
	if !reset.IsValid() {
		BadRequest(c, "验证码无效或已过期")
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		BadRequest(c, "验证码无效或已过期")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	if err := database.DB.Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新密码失败"))
		return
	}

	// 标记验证码已使用
	database.DB.Model(&reset).Update("used", true)

	SuccessWithMessage(c, "密码重置成功", nil)
}

// TestEmailRequest 测试邮件发送
type TestEmailRequest struct {
	Email string `json:"email" binding:"required,email" example:"admin@example.com"`
}

// SendTestEmail 发送测试邮件
// @Summary 发送测试邮件（管理员）
// @Description 向指定邮箱发送一封测试邮件，用于验证 SMTP 配置是否正确
// @Tags 系统
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TestEmailRequest true "收件邮箱"
// @Success 200 {object} Response "发送成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 503 {object} Response "邮件服务不可用"
// @Router /api/v1/system/email/test [post]
func (h *PasswordResetHandler) SendTestEmail(c *gin.Context) {
	var req TestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	if err := h.email.SendTestEmail(req.Email); err != nil {
		ServiceUnavailable(c, SafeErrorMessage(err, "测试邮件发送失败"))
		return
	}

	SuccessWithMessage(c, "测试邮件已发送", nil)
}
