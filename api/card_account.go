package api

import (
	"strconv"
	"strings"

	"kontas/database"
	"kontas/models"

	"github.com/gin-gonic/gin"
)

// CardAccountHandler 账户/卡片处理器
type CardAccountHandler struct{}

// NewCardAccountHandler 创建账户/卡片处理器
func NewCardAccountHandler() *CardAccountHandler {
	return &CardAccountHandler{}
}

// CreateCardAccountRequest 创建账户请求
type CreateCardAccountRequest struct {
	UserID     uint   `json:"user_id" binding:"required" example:"1"`
	Name       string `json:"name" binding:"required,min=1,max=100" example:"Nubank 信用卡"`
	Type       string `json:"type" binding:"required" example:"CREDIT_CARD"`
	BankName   string `json:"bank_name" binding:"omitempty,max=100" example:"Nubank"`
	LastDigits string `json:"last_digits" binding:"omitempty,len=4,numeric" example:"1234"`
	Color      string `json:"color" binding:"omitempty,hexcolor" example:"#8b5cf6"`
}

// UpdateCardAccountRequest 更新账户请求
type UpdateCardAccountRequest struct {
	Name       *string `json:"name" binding:"omitempty,min=1,max=100"`
	Type       *string `json:"type"`
	BankName   *string `json:"bank_name" binding:"omitempty,max=100"`
	LastDigits *string `json:"last_digits" binding:"omitempty,len=4,numeric"`
	Color      *string `json:"color" binding:"omitempty,hexcolor"`
}

// CardAccountStats 账户统计
type CardAccountStats struct {
	CardAccount  models.CardAccount `json:"card_account"`
	ExpenseCount int64              `json:"expense_count"`
	IncomeCount  int64              `json:"income_count"`
	TotalExpense float64            `json:"total_expense"`
	TotalIncome  float64            `json:"total_income"`
}

// UserAccountSummary 用户账户汇总
type UserAccountSummary struct {
	UserID       uint               `json:"user_id"`
	AccountCount int64              `json:"account_count"`
	Accounts     []CardAccountStats `json:"accounts"`
}

// CreateCardAccount 创建账户
// @Summary 创建账户
// @Description 为指定用户创建账户/卡片，名称在该用户下唯一
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCardAccountRequest true "账户信息"
// @Success 201 {object} Response{data=models.CardAccount} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "用户不存在"
// @Failure 409 {object} Response "账户名称已存在"
// @Router /api/v1/card-accounts [post]
func (h *CardAccountHandler) CreateCardAccount(c *gin.Context) {
	var req CreateCardAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	req.Type = strings.ToUpper(req.Type)
	if !models.IsValidAccountType(req.Type) {
		BadRequest(c, "无效的账户类型")
		return
	}

	var user models.User
	if err := database.DB.First(&user, req.UserID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	// 同一用户下名称唯一
	var existing models.CardAccount
	if err := database.DB.Where("user_id = ? AND name = ?", req.UserID, req.Name).
		First(&existing).Error; err == nil {
		Conflict(c, "该用户下已存在同名账户")
		return
	}

	account := models.CardAccount{
		UserID:     req.UserID,
		Name:       req.Name,
		Type:       req.Type,
		BankName:   req.BankName,
		LastDigits: req.LastDigits,
		Color:      req.Color,
		Active:     true,
	}

	if err := database.DB.Create(&account).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建账户失败"))
		return
	}

	Created(c, "账户创建成功", account)
}

// ListCardAccounts 获取账户列表
// @Summary 获取账户列表
// @Description 获取所有账户，可按启用状态过滤
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param active query bool false "仅启用的账户"
// @Success 200 {object} Response{data=[]models.CardAccount} "获取成功"
// @Router /api/v1/card-accounts [get]
func (h *CardAccountHandler) ListCardAccounts(c *gin.Context) {
	query := database.DB.Model(&models.CardAccount{})

	if active := c.Query("active"); active != "" {
		v, err := strconv.ParseBool(active)
		if err != nil {
			BadRequest(c, "active 参数必须为布尔值")
			return
		}
		query = query.Where("active = ?", v)
	}

	var accounts []models.CardAccount
	if err := query.Order("user_id ASC, name ASC").Find(&accounts).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询账户失败"))
		return
	}

	Success(c, accounts)
}

// GetCardAccount 获取账户详情
// @Summary 获取账户详情
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账户ID"
// @Success 200 {object} Response{data=models.CardAccount} "获取成功"
// @Failure 404 {object} Response "账户不存在"
// @Router /api/v1/card-accounts/{id} [get]
func (h *CardAccountHandler) GetCardAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的账户ID")
		return
	}

	var account models.CardAccount
	if err := database.DB.First(&account, uint(id)).Error; err != nil {
		NotFound(c, "账户不存在")
		return
	}

	Success(c, account)
}

// GetCardAccountsByUser 获取用户的账户
// @Summary 获取用户的账户
// @Description 获取指定用户的全部账户
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "用户ID"
// @Success 200 {object} Response{data=[]models.CardAccount} "获取成功"
// @Router /api/v1/card-accounts/user/{user_id} [get]
func (h *CardAccountHandler) GetCardAccountsByUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的用户ID")
		return
	}

	var accounts []models.CardAccount
	if err := database.DB.Where("user_id = ?", uint(userID)).
		Order("name ASC").Find(&accounts).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询账户失败"))
		return
	}

	Success(c, accounts)
}

// GetCardAccountsByType 按类型获取启用的账户
// @Summary 按类型获取启用的账户
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "账户类型" Enums(CREDIT_CARD, DEBIT_CARD, BANK_ACCOUNT, PIX, CASH)
// @Success 200 {object} Response{data=[]models.CardAccount} "获取成功"
// @Failure 400 {object} Response "无效的账户类型"
// @Router /api/v1/card-accounts/type/{type} [get]
func (h *CardAccountHandler) GetCardAccountsByType(c *gin.Context) {
	t := strings.ToUpper(c.Param("type"))
	if !models.IsValidAccountType(t) {
		BadRequest(c, "无效的账户类型")
		return
	}

	var accounts []models.CardAccount
	if err := database.DB.Where("type = ? AND active = ?", t, true).
		Order("user_id ASC, name ASC").Find(&accounts).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询账户失败"))
		return
	}

	Success(c, accounts)
}

// UpdateCardAccount 更新账户
// @Summary 更新账户
// @Description 更新账户信息，未提供的字段保持不变
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账户ID"
// @Param request body UpdateCardAccountRequest true "账户信息"
// @Success 200 {object} Response{data=models.CardAccount} "更新成功"
// @Failure 404 {object} Response "账户不存在"
// @Failure 409 {object} Response "账户名称已存在"
// @Router /api/v1/card-accounts/{id} [put]
func (h *CardAccountHandler) UpdateCardAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的账户ID")
		return
	}

	var req UpdateCardAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var account models.CardAccount
	if err := database.DB.First(&account, uint(id)).Error; err != nil {
		NotFound(c, "账户不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil && *req.Name != account.Name {
		var existing models.CardAccount
		if err := database.DB.Where("user_id = ? AND name = ? AND id != ?", account.UserID, *req.Name, account.ID).
			First(&existing).Error; err == nil {
			Conflict(c, "该用户下已存在同名账户")
			return
		}
		updates["name"] = *req.Name
	}
	if req.Type != nil {
		t := strings.ToUpper(*req.Type)
		if !models.IsValidAccountType(t) {
			BadRequest(c, "无效的账户类型")
			return
		}
		updates["type"] = t
	}
	if req.BankName != nil {
		updates["bank_name"] = *req.BankName
	}
	if req.LastDigits != nil {
		updates["last_digits"] = *req.LastDigits
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if len(updates) == 0 {
		Success(c, account)
		return
	}

	if err := database.DB.Model(&account).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新账户失败"))
		return
	}

	Success(c, account)
}

// ToggleCardAccountStatus 切换账户启用状态
// @Summary 切换账户启用状态
// @Description 启用或停用账户。停用的账户不能用于新记录，历史记录不受影响
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账户ID"
// @Success 200 {object} Response{data=models.CardAccount} "切换成功"
// @Failure 404 {object} Response "账户不存在"
// @Router /api/v1/card-accounts/{id}/toggle-status [patch]
func (h *CardAccountHandler) ToggleCardAccountStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的账户ID")
		return
	}

	var account models.CardAccount
	if err := database.DB.First(&account, uint(id)).Error; err != nil {
		NotFound(c, "账户不存在")
		return
	}

	account.Active = !account.Active
	if err := database.DB.Model(&account).Update("active", account.Active).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "切换账户状态失败"))
		return
	}

	if account.Active {
		SuccessWithMessage(c, "账户已启用", account)
	} else {
		SuccessWithMessage(c, "账户已停用", account)
	}
}

// DeleteCardAccount 删除账户
// @Summary 删除账户
// @Description 删除账户。账户被任何支出或收入引用时拒绝删除
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账户ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "账户不存在"
// @Failure 409 {object} Response "账户正在使用中"
// @Router /api/v1/card-accounts/{id} [delete]
func (h *CardAccountHandler) DeleteCardAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的账户ID")
		return
	}

	var account models.CardAccount
	if err := database.DB.First(&account, uint(id)).Error; err != nil {
		NotFound(c, "账户不存在")
		return
	}

	var expenseCount, incomeCount int64
	if err := database.DB.Model(&models.Expense{}).Where("card_account_id = ?", account.ID).
		Count(&expenseCount).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询账户使用情况失败"))
		return
	}
	if err := database.DB.Model(&models.Income{}).Where("card_account_id = ?", account.ID).
		Count(&incomeCount).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询账户使用情况失败"))
		return
	}
	if expenseCount+incomeCount > 0 {
		Conflict(c, "账户正在使用中，无法删除，可改为停用")
		return
	}

	if err := database.DB.Delete(&account).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除账户失败"))
		return
	}

	SuccessWithMessage(c, "账户删除成功", nil)
}

// GetCardAccountStats 获取账户统计
// @Summary 获取账户统计
// @Description 统计账户关联的支出/收入笔数与总额
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账户ID"
// @Success 200 {object} Response{data=CardAccountStats} "获取成功"
// @Failure 404 {object} Response "账户不存在"
// @Router /api/v1/card-accounts/{id}/stats [get]
func (h *CardAccountHandler) GetCardAccountStats(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的账户ID")
		return
	}

	var account models.CardAccount
	if err := database.DB.First(&account, uint(id)).Error; err != nil {
		NotFound(c, "账户不存在")
		return
	}

	stats, err := h.accountStats(account)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询账户统计失败"))
		return
	}

	Success(c, stats)
}

// GetUserAccountSummary 获取用户账户汇总
// @Summary 获取用户账户汇总
// @Description 汇总指定用户名下所有账户的收支情况
// @Tags 账户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "用户ID"
// @Success 200 {object} Response{data=UserAccountSummary} "获取成功"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/v1/card-accounts/user/{user_id}/summary [get]
func (h *CardAccountHandler) GetUserAccountSummary(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的用户ID")
		return
	}

	var user models.User
	if err := database.DB.First(&user, uint(userID)).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	var accounts []models.CardAccount
	if err := database.DB.Where("user_id = ?", user.ID).
		Order("name ASC").Find(&accounts).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询账户失败"))
		return
	}

	summary := UserAccountSummary{
		UserID:       user.ID,
		AccountCount: int64(len(accounts)),
		Accounts:     make([]CardAccountStats, 0, len(accounts)),
	}
	for _, account := range accounts {
		stats, err := h.accountStats(account)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "查询账户统计失败"))
			return
		}
		summary.Accounts = append(summary.Accounts, stats)
	}

	Success(c, summary)
}

func (h *CardAccountHandler) accountStats(account models.CardAccount) (CardAccountStats, error) {
	stats := CardAccountStats{CardAccount: account}

	if err := database.DB.Model(&models.Expense{}).Where("card_account_id = ?", account.ID).
		Count(&stats.ExpenseCount).Error; err != nil {
		return stats, err
	}
	if err := database.DB.Model(&models.Income{}).Where("card_account_id = ?", account.ID).
		Count(&stats.IncomeCount).Error; err != nil {
		return stats, err
	}

	var sum struct {
		Total float64
	}
	if err := database.DB.Model(&models.Expense{}).Where("card_account_id = ?", account.ID).
		Select("COALESCE(SUM(amount), 0) AS total").Scan(&sum).Error; err != nil {
		return stats, err
	}
	stats.TotalExpense = sum.Total
	if err := database.DB.Model(&models.Income{}).Where("card_account_id = ?", account.ID).
		Select("COALESCE(SUM(amount), 0) AS total").Scan(&sum).Error; err != nil {
		return stats, err
	}
	stats.TotalIncome = sum.Total

	return stats, nil
}
