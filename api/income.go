package api

import (
	"strconv"

	"kontas/database"
	"kontas/models"
	"kontas/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// IncomeHandler 收入处理器
type IncomeHandler struct{}

// NewIncomeHandler 创建收入处理器
func NewIncomeHandler() *IncomeHandler {
	return &IncomeHandler{}
}

// CreateIncomeRequest 创建收入请求
type CreateIncomeRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=100" example:"工资"`
	Amount        float64 `json:"amount" binding:"required,gt=0" example:"5000.00"`
	CategoryID    uint    `json:"category_id" binding:"required" example:"1"`
	CardAccountID uint    `json:"card_account_id" binding:"required" example:"1"`
	Annotation    string  `json:"annotation" binding:"omitempty,max=255"`
	IncomeDate    string  `json:"income_date" binding:"required" example:"2025-01-05"`
}

// UpdateIncomeRequest 更新收入请求，未提供的字段保持不变
type UpdateIncomeRequest struct {
	Name          *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Amount        *float64 `json:"amount" binding:"omitempty,gt=0"`
	CategoryID    *uint    `json:"category_id"`
	CardAccountID *uint    `json:"card_account_id"`
	Annotation    *string  `json:"annotation" binding:"omitempty,max=255"`
	IncomeDate    *string  `json:"income_date"`
}

// checkIncomeCategory 校验类别存在、类型为 INCOME 且启用
func checkIncomeCategory(c *gin.Context, id uint) bool {
	var cat models.Category
	if err := database.DB.First(&cat, id).Error; err != nil {
		NotFound(c, "类别不存在")
		return false
	}
	if cat.Type != models.CategoryTypeIncome {
		BadRequest(c, "类别必须为 INCOME 类型")
		return false
	}
	if !cat.Active {
		BadRequest(c, "类别已停用")
		return false
	}
	return true
}

// checkActiveAccount 校验账户存在且启用
func checkActiveAccount(c *gin.Context, id uint) bool {
	var acc models.CardAccount
	if err := database.DB.First(&acc, id).Error; err != nil {
		NotFound(c, "账户/卡片不存在")
		return false
	}
	if !acc.Active {
		BadRequest(c, "账户/卡片已停用")
		return false
	}
	return true
}

// checkIncomeAmount 校验金额为正且最多2位小数
func checkIncomeAmount(c *gin.Context, amount float64) bool {
	cents, ok := service.ToCents(amount)
	if !ok {
		BadRequest(c, "金额最多2位小数")
		return false
	}
	if cents <= 0 {
		BadRequest(c, "金额必须大于0")
		return false
	}
	return true
}

// CreateIncome 创建收入
// @Summary 创建收入
// @Description 创建收入记录。类别必须为 INCOME 类型且启用，账户必须启用
// @Tags 收入管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateIncomeRequest true "收入信息"
// @Success 201 {object} Response{data=models.Income} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "类别/账户不存在"
// @Router /api/v1/incomes [post]
func (h *IncomeHandler) CreateIncome(c *gin.Context) {
	var req CreateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	incomeDate, ok := parseExpenseDate(req.IncomeDate)
	if !ok {
		BadRequest(c, "日期格式必须为 YYYY-MM-DD")
		return
	}

	if !checkIncomeAmount(c, req.Amount) {
		return
	}
	if !checkIncomeCategory(c, req.CategoryID) {
		return
	}
	if !checkActiveAccount(c, req.CardAccountID) {
		return
	}

	income := models.Income{
		Name:          req.Name,
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		CardAccountID: req.CardAccountID,
		Annotation:    req.Annotation,
		IncomeDate:    incomeDate,
	}

	if err := database.DB.Create(&income).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建收入失败"))
		return
	}

	database.DB.Preload("Category").Preload("CardAccount").First(&income, income.ID)
	Created(c, "收入创建成功", income)
}

// ListIncomes 获取收入列表
// @Summary 获取收入列表
// @Description 分页获取收入，可按类别、账户和日期区间过滤
// @Tags 收入管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category_id query int false "类别ID"
// @Param card_account_id query int false "账户ID"
// @Param start_date query string false "开始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} Response "获取成功"
// @Router /api/v1/incomes [get]
func (h *IncomeHandler) ListIncomes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := database.DB.Model(&models.Income{})
	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			BadRequest(c, "无效的类别ID")
			return
		}
		query = query.Where("category_id = ?", uint(id))
	}
	if v := c.Query("card_account_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			BadRequest(c, "无效的账户ID")
			return
		}
		query = query.Where("card_account_id = ?", uint(id))
	}
	if v := c.Query("start_date"); v != "" {
		t, ok := parseExpenseDate(v)
		if !ok {
			BadRequest(c, "日期格式必须为 YYYY-MM-DD")
			return
		}
		query = query.Where("income_date >= ?", t)
	}
	if v := c.Query("end_date"); v != "" {
		t, ok := parseExpenseDate(v)
		if !ok {
			BadRequest(c, "日期格式必须为 YYYY-MM-DD")
			return
		}
		query = query.Where("income_date <= ?", t)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询收入失败"))
		return
	}
	var totalAmount float64
	if err := query.Session(&gorm.Session{}).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalAmount).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询收入失败"))
		return
	}

	var incomes []models.Income
	if err := query.
		Preload("Category").
		Preload("CardAccount").
		Order("income_date DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&incomes).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询收入失败"))
		return
	}

	Success(c, gin.H{
		"total":        total,
		"total_amount": totalAmount,
		"page":         page,
		"page_size":    limit,
		"list":         incomes,
	})
}

// GetIncome 获取收入详情
// @Summary 获取收入详情
// @Tags 收入管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "收入ID"
// @Success 200 {object} Response{data=models.Income} "获取成功"
// @Failure 404 {object} Response "收入不存在"
// @Router /api/v1/incomes/{id} [get]
func (h *IncomeHandler) GetIncome(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的收入ID")
		return
	}

	var income models.Income
	if err := database.DB.Preload("Category").Preload("CardAccount").
		First(&income, uint(id)).Error; err != nil {
		NotFound(c, "收入不存在")
		return
	}

	Success(c, income)
}

// UpdateIncome 更新收入
// @Summary 更新收入
// @Description 部分更新收入，未提供的字段保持不变
// @Tags 收入管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "收入ID"
// @Param request body UpdateIncomeRequest true "收入信息"
// @Success 200 {object} Response{data=models.Income} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "收入不存在"
// @Router /api/v1/incomes/{id} [put]
func (h *IncomeHandler) UpdateIncome(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的收入ID")
		return
	}

	var req UpdateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var income models.Income
	if err := database.DB.First(&income, uint(id)).Error; err != nil {
		NotFound(c, "收入不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Amount != nil {
		if !checkIncomeAmount(c, *req.Amount) {
			return
		}
		updates["amount"] = *req.Amount
	}
	if req.CategoryID != nil {
		if !checkIncomeCategory(c, *req.CategoryID) {
			return
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.CardAccountID != nil {
		if !checkActiveAccount(c, *req.CardAccountID) {
			return
		}
		updates["card_account_id"] = *req.CardAccountID
	}
	if req.Annotation != nil {
		updates["annotation"] = *req.Annotation
	}
	if req.IncomeDate != nil {
		t, ok := parseExpenseDate(*req.IncomeDate)
		if !ok {
			BadRequest(c, "日期格式必须为 YYYY-MM-DD")
			return
		}
		updates["income_date"] = t
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&income).Updates(updates).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "更新收入失败"))
			return
		}
	}

	database.DB.Preload("Category").Preload("CardAccount").First(&income, income.ID)
	Success(c, income)
}

// DeleteIncome 删除收入
// @Summary 删除收入
// @Tags 收入管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "收入ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "收入不存在"
// @Router /api/v1/incomes/{id} [delete]
func (h *IncomeHandler) DeleteIncome(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的收入ID")
		return
	}

	var income models.Income
	if err := database.DB.First(&income, uint(id)).Error; err != nil {
		NotFound(c, "收入不存在")
		return
	}

	if err := database.DB.Delete(&income).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除收入失败"))
		return
	}

	SuccessWithMessage(c, "收入删除成功", nil)
}
