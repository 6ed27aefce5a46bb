package api

import (
	"strconv"
	"time"

	"kontas/database"
	"kontas/models"
	"kontas/service"

	"github.com/gin-gonic/gin"
)

// ExpenseHandler 支出处理器
type ExpenseHandler struct{}

// NewExpenseHandler 创建支出处理器
func NewExpenseHandler() *ExpenseHandler {
	return &ExpenseHandler{}
}

func expenseService() *service.ExpenseService {
	return service.NewExpenseService(database.DB)
}

// CreateExpenseRequest 创建支出请求
type CreateExpenseRequest struct {
	Name          string               `json:"name" binding:"required,min=1,max=100" example:"超市采购"`
	Amount        float64              `json:"amount" binding:"required,gt=0" example:"200.00"`
	CategoryID    uint                 `json:"category_id" binding:"required" example:"1"`
	CardAccountID uint                 `json:"card_account_id" binding:"required" example:"1"`
	Annotation    string               `json:"annotation" binding:"omitempty,max=255"`
	ExpenseDate   string               `json:"expense_date" binding:"required" example:"2025-01-15"`
	ExpenseOwners []service.OwnerInput `json:"expense_owners" binding:"required"`
}

// UpdateExpenseRequest 更新支出请求，未提供的字段保持不变
type UpdateExpenseRequest struct {
	Name          *string              `json:"name" binding:"omitempty,min=1,max=100"`
	Amount        *float64             `json:"amount" binding:"omitempty,gt=0"`
	CategoryID    *uint                `json:"category_id"`
	CardAccountID *uint                `json:"card_account_id"`
	Annotation    *string              `json:"annotation" binding:"omitempty,max=255"`
	ExpenseDate   *string              `json:"expense_date"`
	ExpenseOwners []service.OwnerInput `json:"expense_owners"`
}

// ExpenseStatsResponse 支出分摊统计响应
type ExpenseStatsResponse struct {
	Expense *models.Expense       `json:"expense"`
	Stats   *service.ExpenseStats `json:"stats"`
}

// UserCategorySummary 用户在单个分类下的分摊汇总
type UserCategorySummary struct {
	Category     models.Category `json:"category"`
	ExpenseCount int             `json:"expense_count"`
	TotalShare   float64         `json:"total_share"`
}

// UserExpenseSummary 用户支出分摊汇总
type UserExpenseSummary struct {
	User       models.PublicProfile  `json:"user"`
	TotalShare float64               `json:"total_share"`
	Categories []UserCategorySummary `json:"categories"`
}

// parseExpenseDate 解析 YYYY-MM-DD 格式的日期
func parseExpenseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CreateExpense 创建支出
// @Summary 创建支出
// @Description 创建支出及其分摊记录。分摊百分比之和必须精确等于100，支出与分摊在同一事务内写入
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExpenseRequest true "支出信息"
// @Success 201 {object} Response{data=models.Expense} "创建成功"
// @Failure 400 {object} Response "请求参数错误或分摊信息无效"
// @Failure 404 {object} Response "类别/账户/用户不存在"
// @Router /api/v1/expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	expenseDate, ok := parseExpenseDate(req.ExpenseDate)
	if !ok {
		BadRequest(c, "日期格式必须为 YYYY-MM-DD")
		return
	}

	expense, err := expenseService().Create(service.ExpenseDraft{
		Name:          req.Name,
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		CardAccountID: req.CardAccountID,
		Annotation:    req.Annotation,
		ExpenseDate:   expenseDate,
	}, req.ExpenseOwners)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Created(c, "支出创建成功", expense)
}

// listExpenses 按过滤条件查询支出并输出分页响应
func (h *ExpenseHandler) listExpenses(c *gin.Context, f service.ExpenseFilter) {
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	expenses, total, totalAmount, err := expenseService().List(f)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, gin.H{
		"total":        total,
		"total_amount": totalAmount,
		"page":         f.Page,
		"page_size":    f.Limit,
		"list":         expenses,
	})
}

// ListExpenses 获取支出列表
// @Summary 获取支出列表
// @Description 分页获取支出，可按类别、账户、责任人、日期区间和金额区间过滤
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category_id query int false "类别ID"
// @Param card_account_id query int false "账户ID"
// @Param user_id query int false "分摊责任人ID"
// @Param start_date query string false "开始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Param min_amount query number false "金额下界"
// @Param max_amount query number false "金额上界"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} Response "获取成功"
// @Router /api/v1/expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	var f service.ExpenseFilter

	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			BadRequest(c, "无效的类别ID")
			return
		}
		f.CategoryID = uint(id)
	}
	if v := c.Query("card_account_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			BadRequest(c, "无效的账户ID")
			return
		}
		f.CardAccountID = uint(id)
	}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			BadRequest(c, "无效的用户ID")
			return
		}
		f.UserID = uint(id)
	}
	if v := c.Query("start_date"); v != "" {
		t, ok := parseExpenseDate(v)
		if !ok {
			BadRequest(c, "日期格式必须为 YYYY-MM-DD")
			return
		}
		f.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, ok := parseExpenseDate(v)
		if !ok {
			BadRequest(c, "日期格式必须为 YYYY-MM-DD")
			return
		}
		f.EndDate = &t
	}
	if v := c.Query("min_amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			BadRequest(c, "无效的金额")
			return
		}
		f.MinAmount = &amount
	}
	if v := c.Query("max_amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			BadRequest(c, "无效的金额")
			return
		}
		f.MaxAmount = &amount
	}

	h.listExpenses(c, f)
}

// GetExpense 获取支出详情
// @Summary 获取支出详情
// @Description 获取单条支出，附带类别、账户和按百分比降序的分摊记录
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "支出ID"
// @Success 200 {object} Response{data=models.Expense} "获取成功"
// @Failure 404 {object} Response "支出不存在"
// @Router /api/v1/expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的支出ID")
		return
	}

	expense, svcErr := expenseService().Get(uint(id))
	if svcErr != nil {
		HandleServiceError(c, svcErr)
		return
	}

	Success(c, expense)
}

// UpdateExpense 更新支出
// @Summary 更新支出
// @Description 部分更新支出。提供 expense_owners 时整体替换原有分摊，新分摊需通过全部校验
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "支出ID"
// @Param request body UpdateExpenseRequest true "支出信息"
// @Success 200 {object} Response{data=models.Expense} "更新成功"
// @Failure 400 {object} Response "请求参数错误或分摊信息无效"
// @Failure 404 {object} Response "支出不存在"
// @Router /api/v1/expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的支出ID")
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	upd := service.ExpenseUpdate{
		Name:          req.Name,
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		CardAccountID: req.CardAccountID,
		Annotation:    req.Annotation,
		Owners:        req.ExpenseOwners,
	}
	if req.ExpenseDate != nil {
		t, ok := parseExpenseDate(*req.ExpenseDate)
		if !ok {
			BadRequest(c, "日期格式必须为 YYYY-MM-DD")
			return
		}
		upd.ExpenseDate = &t
	}

	expense, svcErr := expenseService().Update(uint(id), upd)
	if svcErr != nil {
		HandleServiceError(c, svcErr)
		return
	}

	Success(c, expense)
}

// DeleteExpense 删除支出
// @Summary 删除支出
// @Description 删除支出并级联删除其全部分摊记录
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "支出ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "支出不存在"
// @Router /api/v1/expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的支出ID")
		return
	}

	if err := expenseService().Delete(uint(id)); err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessWithMessage(c, "支出删除成功", nil)
}

// GetExpensesByUser 获取用户参与分摊的支出
// @Summary 获取用户参与分摊的支出
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "用户ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} Response "获取成功"
// @Router /api/v1/expenses/user/{user_id} [get]
func (h *ExpenseHandler) GetExpensesByUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的用户ID")
		return
	}

	h.listExpenses(c, service.ExpenseFilter{UserID: uint(userID)})
}

// GetExpensesByCategory 按类别获取支出
// @Summary 按类别获取支出
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category_id path int true "类别ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} Response "获取成功"
// @Router /api/v1/expenses/category/{category_id} [get]
func (h *ExpenseHandler) GetExpensesByCategory(c *gin.Context) {
	categoryID, err := strconv.ParseUint(c.Param("category_id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的类别ID")
		return
	}

	h.listExpenses(c, service.ExpenseFilter{CategoryID: uint(categoryID)})
}

// GetExpensesByDateRange 按日期区间获取支出
// @Summary 按日期区间获取支出
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param start_date query string true "开始日期 YYYY-MM-DD"
// @Param end_date query string true "结束日期 YYYY-MM-DD"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} Response "获取成功"
// @Router /api/v1/expenses/date-range [get]
func (h *ExpenseHandler) GetExpensesByDateRange(c *gin.Context) {
	start, ok := parseExpenseDate(c.Query("start_date"))
	if !ok {
		BadRequest(c, "开始日期格式必须为 YYYY-MM-DD")
		return
	}
	end, ok := parseExpenseDate(c.Query("end_date"))
	if !ok {
		BadRequest(c, "结束日期格式必须为 YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		BadRequest(c, "结束日期不能早于开始日期")
		return
	}

	h.listExpenses(c, service.ExpenseFilter{StartDate: &start, EndDate: &end})
}

// GetExpensesByAmountRange 按金额区间获取支出
// @Summary 按金额区间获取支出
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param min_amount query number true "金额下界"
// @Param max_amount query number true "金额上界"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} Response "获取成功"
// @Router /api/v1/expenses/amount-range [get]
func (h *ExpenseHandler) GetExpensesByAmountRange(c *gin.Context) {
	min, err := strconv.ParseFloat(c.Query("min_amount"), 64)
	if err != nil {
		BadRequest(c, "无效的金额下界")
		return
	}
	max, err := strconv.ParseFloat(c.Query("max_amount"), 64)
	if err != nil {
		BadRequest(c, "无效的金额上界")
		return
	}
	if max < min {
		BadRequest(c, "金额上界不能小于下界")
		return
	}

	h.listExpenses(c, service.ExpenseFilter{MinAmount: &min, MaxAmount: &max})
}

// GetExpenseStats 获取支出分摊统计
// @Summary 获取支出分摊统计
// @Description 推导每个责任人应承担的金额（总额 × 百分比，四舍五入保留2位小数）
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "支出ID"
// @Success 200 {object} Response{data=ExpenseStatsResponse} "获取成功"
// @Failure 404 {object} Response "支出不存在"
// @Router /api/v1/expenses/{id}/stats [get]
func (h *ExpenseHandler) GetExpenseStats(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的支出ID")
		return
	}

	expense, stats, svcErr := expenseService().Stats(uint(id))
	if svcErr != nil {
		HandleServiceError(c, svcErr)
		return
	}

	Success(c, ExpenseStatsResponse{Expense: expense, Stats: stats})
}

// GetUserExpenseSummary 获取用户支出分摊汇总
// @Summary 获取用户支出分摊汇总
// @Description 按分类汇总指定用户应承担的支出份额，可选日期区间
// @Tags 支出管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "用户ID"
// @Param start_date query string false "开始日期 YYYY-MM-DD"
// @Param end_date query string false "结束日期 YYYY-MM-DD"
// @Success 200 {object} Response{data=UserExpenseSummary} "获取成功"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/v1/expenses/user/{user_id}/summary [get]
func (h *ExpenseHandler) GetUserExpenseSummary(c *gin.Context) {
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

	query := database.DB.Model(&models.Expense{}).
		Where("id IN (?)", database.DB.Model(&models.ExpenseOwner{}).
			Select("expense_id").Where("user_id = ?", user.ID))
	if v := c.Query("start_date"); v != "" {
		t, ok := parseExpenseDate(v)
		if !ok {
			BadRequest(c, "日期格式必须为 YYYY-MM-DD")
			return
		}
		query = query.Where("expense_date >= ?", t)
	}
	if v := c.Query("end_date"); v != "" {
		t, ok := parseExpenseDate(v)
		if !ok {
			BadRequest(c, "日期格式必须为 YYYY-MM-DD")
			return
		}
		query = query.Where("expense_date <= ?", t)
	}

	var expenses []models.Expense
	if err := query.
		Preload("Category").
		Preload("Owners").
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询支出失败"))
		return
	}

	// 每笔支出中该用户的份额 = 总额 × 其百分比，按分类聚合
	byCategory := make(map[uint]*UserCategorySummary)
	order := make([]uint, 0)
	var totalCents int64
	for i := range expenses {
		e := &expenses[i]
		var shareCents int64
		found := false
		for _, o := range e.Owners {
			if o.UserID == user.ID {
				amountCents, _ := service.ToCents(e.Amount)
				pctCents, _ := service.ToCents(o.Percentage)
				shareCents = service.ShareCents(amountCents, pctCents)
				found = true
				break
			}
		}
		if !found {
			continue
		}
		totalCents += shareCents

		entry, ok := byCategory[e.CategoryID]
		if !ok {
			entry = &UserCategorySummary{}
			if e.Category != nil {
				entry.Category = *e.Category
			} else {
				entry.Category = models.Category{ID: e.CategoryID}
			}
			byCategory[e.CategoryID] = entry
			order = append(order, e.CategoryID)
		}
		entry.ExpenseCount++
		entry.TotalShare += service.FromCents(shareCents)
	}

	summary := UserExpenseSummary{
		User:       user.Public(),
		TotalShare: service.FromCents(totalCents),
		Categories: make([]UserCategorySummary, 0, len(order)),
	}
	for _, id := range order {
		summary.Categories = append(summary.Categories, *byCategory[id])
	}

	Success(c, summary)
}
