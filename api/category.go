package api

import (
	"strconv"
	"strings"

	"kontas/database"
	"kontas/models"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 分类处理器
type CategoryHandler struct{}

// NewCategoryHandler 创建分类处理器
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=50" example:"餐饮"`
	Type        string `json:"type" binding:"required" example:"EXPENSE"`
	Description string `json:"description" binding:"omitempty,max=255"`
	Color       string `json:"color" binding:"omitempty,hexcolor" example:"#ef4444"`
}

// UpdateCategoryRequest 更新分类请求
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=50"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	Color       *string `json:"color" binding:"omitempty,hexcolor"`
}

// CategoryStats 分类统计
type CategoryStats struct {
	Category    models.Category `json:"category"`
	RecordCount int64           `json:"record_count"`
	TotalAmount float64         `json:"total_amount"`
}

// CreateCategory 创建分类
// @Summary 创建分类
// @Description 创建收入或支出分类，名称在同类型内唯一（仅管理员）
// @Tags 分类管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCategoryRequest true "分类信息"
// @Success 201 {object} Response{data=models.Category} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "分类名称已存在"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	req.Type = strings.ToUpper(req.Type)
	if !models.IsValidCategoryType(req.Type) {
		BadRequest(c, "分类类型必须为 INCOME 或 EXPENSE")
		return
	}

	// 同类型内名称唯一
	var existing models.Category
	if err := database.DB.Where("name = ? AND type = ?", req.Name, req.Type).
		First(&existing).Error; err == nil {
		Conflict(c, "该类型下已存在同名分类")
		return
	}

	category := models.Category{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Active:      true,
	}
	if req.Color != "" {
		category.Color = req.Color
	}

	if err := database.DB.Create(&category).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建分类失败"))
		return
	}

	Created(c, "分类创建成功", category)
}

// ListCategories 获取分类列表
// @Summary 获取分类列表
// @Description 获取所有分类，可按类型和启用状态过滤
// @Tags 分类管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type query string false "分类类型" Enums(INCOME, EXPENSE)
// @Param active query bool false "仅启用的分类"
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	query := database.DB.Model(&models.Category{})

	if t := strings.ToUpper(c.Query("type")); t != "" {
		if !models.IsValidCategoryType(t) {
			BadRequest(c, "分类类型必须为 INCOME 或 EXPENSE")
			return
		}
		query = query.Where("type = ?", t)
	}
	if active := c.Query("active"); active != "" {
		v, err := strconv.ParseBool(active)
		if err != nil {
			BadRequest(c, "active 参数必须为布尔值")
			return
		}
		query = query.Where("active = ?", v)
	}

	var categories []models.Category
	if err := query.Order("type ASC, name ASC").Find(&categories).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询分类失败"))
		return
	}

	Success(c, categories)
}

// GetCategory 获取分类详情
// @Summary 获取分类详情
// @Tags 分类管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} Response{data=models.Category} "获取成功"
// @Failure 404 {object} Response "分类不存在"
// @Router /api/v1/categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的分类ID")
		return
	}

	var category models.Category
	if err := database.DB.First(&category, uint(id)).Error; err != nil {
		NotFound(c, "分类不存在")
		return
	}

	Success(c, category)
}

// GetCategoriesByType 按类型获取启用的分类
// @Summary 按类型获取启用的分类
// @Description 获取指定类型下所有启用的分类，供录入表单使用
// @Tags 分类管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "分类类型" Enums(INCOME, EXPENSE)
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Failure 400 {object} Response "无效的分类类型"
// @Router /api/v1/categories/type/{type} [get]
func (h *CategoryHandler) GetCategoriesByType(c *gin.Context) {
	t := strings.ToUpper(c.Param("type"))
	if !models.IsValidCategoryType(t) {
		BadRequest(c, "分类类型必须为 INCOME 或 EXPENSE")
		return
	}

	var categories []models.Category
	if err := database.DB.Where("type = ? AND active = ?", t, true).
		Order("name ASC").Find(&categories).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询分类失败"))
		return
	}

	Success(c, categories)
}

// UpdateCategory 更新分类
// @Summary 更新分类
// @Description 更新分类名称或颜色，类型创建后不可修改（仅管理员）
// @Tags 分类管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Param request body UpdateCategoryRequest true "分类信息"
// @Success 200 {object} Response{data=models.Category} "更新成功"
// @Failure 404 {object} Response "分类不存在"
// @Failure 409 {object} Response "分类名称已存在"
// @Router /api/v1/categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的分类ID")
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	var category models.Category
	if err := database.DB.First(&category, uint(id)).Error; err != nil {
		NotFound(c, "分类不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil && *req.Name != category.Name {
		// 改名时检查同类型内唯一，排除自身
		var existing models.Category
		if err := database.DB.Where("name = ? AND type = ? AND id != ?", *req.Name, category.Type, category.ID).
			First(&existing).Error; err == nil {
			Conflict(c, "该类型下已存在同名分类")
			return
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if len(updates) == 0 {
		Success(c, category)
		return
	}

	if err := database.DB.Model(&category).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新分类失败"))
		return
	}

	Success(c, category)
}

// ToggleCategoryStatus 切换分类启用状态
// @Summary 切换分类启用状态
// @Description 启用或停用分类。停用的分类不能用于新记录，历史记录不受影响（仅管理员）
// @Tags 分类管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} Response{data=models.Category} "切换成功"
// @Failure 404 {object} Response "分类不存在"
// @Router /api/v1/categories/{id}/toggle-status [patch]
func (h *CategoryHandler) ToggleCategoryStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的分类ID")
		return
	}

	var category models.Category
	if err := database.DB.First(&category, uint(id)).Error; err != nil {
		NotFound(c, "分类不存在")
		return
	}

	category.Active = !category.Active
	if err := database.DB.Model(&category).Update("active", category.Active).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "切换分类状态失败"))
		return
	}

	if category.Active {
		SuccessWithMessage(c, "分类已启用", category)
	} else {
		SuccessWithMessage(c, "分类已停用", category)
	}
}

// DeleteCategory 删除分类
// @Summary 删除分类
// @Description 删除分类。分类被任何支出或收入引用时拒绝删除（仅管理员）
// @Tags 分类管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "分类不存在"
// @Failure 409 {object} Response "分类正在使用中"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的分类ID")
		return
	}

	var category models.Category
	if err := database.DB.First(&category, uint(id)).Error; err != nil {
		NotFound(c, "分类不存在")
		return
	}

	// 被支出或收入引用的分类不允许删除
	var expenseCount, incomeCount int64
	if err := database.DB.Model(&models.Expense{}).Where("category_id = ?", category.ID).
		Count(&expenseCount).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询分类使用情况失败"))
		return
	}
	if err := database.DB.Model(&models.Income{}).Where("category_id = ?", category.ID).
		Count(&incomeCount).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询分类使用情况失败"))
		return
	}
	if expenseCount+incomeCount > 0 {
		Conflict(c, "分类正在使用中，无法删除，可改为停用")
		return
	}

	if err := database.DB.Delete(&category).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除分类失败"))
		return
	}

	SuccessWithMessage(c, "分类删除成功", nil)
}

// GetCategoryStats 获取分类统计
// @Summary 获取分类统计
// @Description 统计分类下的记录数和总金额
// @Tags 分类管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} Response{data=CategoryStats} "获取成功"
// @Failure 404 {object} Response "分类不存在"
// @Router /api/v1/categories/{id}/stats [get]
func (h *CategoryHandler) GetCategoryStats(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的分类ID")
		return
	}

	var category models.Category
	if err := database.DB.First(&category, uint(id)).Error; err != nil {
		NotFound(c, "分类不存在")
		return
	}

	stats := CategoryStats{Category: category}

	// 按分类类型统计对应的记录
	var model interface{}
	if category.Type == models.CategoryTypeIncome {
		model = &models.Income{}
	} else {
		model = &models.Expense{}
	}
	if err := database.DB.Model(model).Where("category_id = ?", category.ID).
		Count(&stats.RecordCount).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询分类统计失败"))
		return
	}
	var total struct {
		Total float64
	}
	if err := database.DB.Model(model).Where("category_id = ?", category.ID).
		Select("COALESCE(SUM(amount), 0) AS total").Scan(&total).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询分类统计失败"))
		return
	}
	stats.TotalAmount = total.Total

	Success(c, stats)
}
