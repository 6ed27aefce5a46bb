package service

import (
	"fmt"
	"sort"
	"strings"

	"kontas/models"

	"gorm.io/gorm"
)

// 分摊引擎：校验支出责任人的百分比分配，并在读取时推导每人应承担金额。
// 校验规则：列表非空、百分比在 (0,100] 且最多2位小数、user_id 不重复、
// 百分比之和精确等于 100（定点比较）、引用的用户全部存在。

// OwnerInput 分摊责任人入参
// Percentage 省略时默认 100（仅单人分摊时有意义，多人时和校验会失败）
type OwnerInput struct {
	UserID     uint     `json:"user_id" binding:"required"`
	Percentage *float64 `json:"percentage"`
}

// pctCents 返回该责任人的百分比（分）
func (o OwnerInput) pctCents() (int64, bool) {
	pct := 100.0
	if o.Percentage != nil {
		pct = *o.Percentage
	}
	return ToCents(pct)
}

// ValidateOwners 校验分摊列表并批量检查用户存在性
// 返回 user_id → 用户 的映射，供创建/更新时补全责任人的用户公开信息
// 只读，无副作用
func ValidateOwners(db *gorm.DB, owners []OwnerInput) (map[uint]models.User, error) {
	if len(owners) == 0 {
		return nil, NewValidationError("至少需要一个分摊责任人")
	}

	var fields []FieldError
	var sum int64
	seen := make(map[uint]bool, len(owners))
	for i, o := range owners {
		cents, ok := o.pctCents()
		if !ok {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("expense_owners[%d].percentage", i),
				Message: "百分比最多2位小数",
			})
			continue
		}
		if cents <= 0 || cents > 10000 {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("expense_owners[%d].percentage", i),
				Message: "百分比必须大于0且不超过100",
			})
			continue
		}
		if seen[o.UserID] {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("expense_owners[%d].user_id", i),
				Message: "同一用户不能重复作为分摊责任人",
			})
			continue
		}
		seen[o.UserID] = true
		sum += cents
	}
	if len(fields) > 0 {
		return nil, NewValidationError("分摊信息无效", fields...)
	}
	// 定点相等，非浮点容差
	if sum != 10000 {
		return nil, NewValidationError(
			fmt.Sprintf("分摊百分比之和必须精确等于100，当前为%.2f", FromCents(sum)))
	}

	// 批量检查用户存在性，一次性报告所有缺失的 user_id
	ids := make([]uint, 0, len(owners))
	for _, o := range owners {
		ids = append(ids, o.UserID)
	}
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, NewUnavailableError("查询用户失败", err)
	}
	found := make(map[uint]models.User, len(users))
	for _, u := range users {
		found[u.ID] = u
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, fmt.Sprintf("%d", id))
		}
	}
	if len(missing) > 0 {
		return nil, NewNotFoundError("以下分摊责任人不存在: " + strings.Join(missing, ", "))
	}

	return found, nil
}

// buildOwnerRows 将入参转换为按百分比降序排列的责任人记录
// 排序在写入前完成，保证读取顺序与替换幂等性
func buildOwnerRows(owners []OwnerInput, users map[uint]models.User) []models.ExpenseOwner {
	rows := make([]models.ExpenseOwner, 0, len(owners))
	for _, o := range owners {
		cents, _ := o.pctCents()
		u := users[o.UserID]
		rows = append(rows, models.ExpenseOwner{
			UserID:     o.UserID,
			Percentage: FromCents(cents),
			User:       &u,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Percentage > rows[j].Percentage
	})
	return rows
}

// OwnerAmount 单个责任人的分摊结果
type OwnerAmount struct {
	User       models.PublicProfile `json:"user"`
	Percentage float64              `json:"percentage"`
	Amount     float64              `json:"amount"`
}

// ComputeIndividualAmounts 推导每个责任人应承担的金额
// 纯计算，无持久化；每人金额 = round(总额 × 百分比 / 100)，保留2位小数
// 各人金额之和可能与总额相差若干分，不做余数校正
// 结果按百分比降序排列，百分比相同时保持原有顺序
func ComputeIndividualAmounts(expense *models.Expense) []OwnerAmount {
	amountCents, _ := ToCents(expense.Amount)

	owners := make([]models.ExpenseOwner, len(expense.Owners))
	copy(owners, expense.Owners)
	sort.SliceStable(owners, func(i, j int) bool {
		return owners[i].Percentage > owners[j].Percentage
	})

	result := make([]OwnerAmount, 0, len(owners))
	for _, o := range owners {
		pctCents, _ := ToCents(o.Percentage)
		oa := OwnerAmount{
			Percentage: o.Percentage,
			Amount:     FromCents(ShareCents(amountCents, pctCents)),
		}
		if o.User != nil {
			oa.User = o.User.Public()
		} else {
			oa.User = models.PublicProfile{ID: o.UserID}
		}
		result = append(result, oa)
	}
	return result
}
