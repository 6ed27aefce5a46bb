package service

import (
	"errors"
	"time"

	"kontas/models"

	"gorm.io/gorm"
)

// ExpenseService 支出服务
// 负责支出及其分摊记录的一致性：创建/替换分摊必须与支出本身在同一事务内完成，
// 删除支出时级联删除分摊记录，任何前置校验失败都不会产生部分写入
type ExpenseService struct {
	db *gorm.DB
}

// NewExpenseService 创建支出服务
func NewExpenseService(db *gorm.DB) *ExpenseService {
	return &ExpenseService{db: db}
}

// ExpenseDraft 创建支出的输入
type ExpenseDraft struct {
	Name          string
	Amount        float64
	CategoryID    uint
	CardAccountID uint
	Annotation    string
	ExpenseDate   time.Time
}

// ExpenseUpdate 更新支出的输入，nil 字段不修改
// Owners 为 nil 时保留现有分摊不动（即使金额变化也不重新校验，行为与历史版本一致）
type ExpenseUpdate struct {
	Name          *string
	Amount        *float64
	CategoryID    *uint
	CardAccountID *uint
	Annotation    *string
	ExpenseDate   *time.Time
	Owners        []OwnerInput
}

// wrapDBErr 将底层存储错误翻译为领域错误
func wrapDBErr(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NewNotFoundError(notFoundMsg)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return NewConflictError("记录已存在，请检查唯一性约束")
	default:
		return NewUnavailableError("数据库操作失败", err)
	}
}

// validateAmount 校验金额为正数且最多2位小数
func validateAmount(amount float64) error {
	cents, ok := ToCents(amount)
	if !ok {
		return NewValidationError("金额最多2位小数")
	}
	if cents <= 0 {
		return NewValidationError("金额必须大于0")
	}
	return nil
}

// checkExpenseCategory 校验类别存在、类型为 EXPENSE 且处于启用状态
func (s *ExpenseService) checkExpenseCategory(id uint) (*models.Category, error) {
	var cat models.Category
	if err := s.db.First(&cat, id).Error; err != nil {
		return nil, wrapDBErr(err, "类别不存在")
	}
	if cat.Type != models.CategoryTypeExpense {
		return nil, NewValidationError("类别必须为 EXPENSE 类型")
	}
	if !cat.Active {
		return nil, NewValidationError("类别已停用")
	}
	return &cat, nil
}

// checkAccount 校验账户存在且处于启用状态
func (s *ExpenseService) checkAccount(id uint) (*models.CardAccount, error) {
	var acc models.CardAccount
	if err := s.db.First(&acc, id).Error; err != nil {
		return nil, wrapDBErr(err, "账户/卡片不存在")
	}
	if !acc.Active {
		return nil, NewValidationError("账户/卡片已停用")
	}
	return &acc, nil
}

// Create 创建支出及其分摊记录
// 所有前置校验通过后，支出行与分摊行在同一事务内写入
func (s *ExpenseService) Create(draft ExpenseDraft, owners []OwnerInput) (*models.Expense, error) {
	if err := validateAmount(draft.Amount); err != nil {
		return nil, err
	}
	cat, err := s.checkExpenseCategory(draft.CategoryID)
	if err != nil {
		return nil, err
	}
	acc, err := s.checkAccount(draft.CardAccountID)
	if err != nil {
		return nil, err
	}
	users, err := ValidateOwners(s.db, owners)
	if err != nil {
		return nil, err
	}
	ownerRows := buildOwnerRows(owners, users)

	expense := models.Expense{
		Name:          draft.Name,
		Amount:        draft.Amount,
		CategoryID:    draft.CategoryID,
		CardAccountID: draft.CardAccountID,
		Annotation:    draft.Annotation,
		ExpenseDate:   draft.ExpenseDate,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}
		rows := make([]models.ExpenseOwner, len(ownerRows))
		for i := range ownerRows {
			rows[i] = ownerRows[i]
			rows[i].ExpenseID = expense.ID
			rows[i].User = nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		// 回填生成的主键，保留已加载的用户信息
		for i := range ownerRows {
			ownerRows[i].ID = rows[i].ID
			ownerRows[i].ExpenseID = expense.ID
			ownerRows[i].CreatedAt = rows[i].CreatedAt
		}
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(err, "支出不存在")
	}

	expense.Owners = ownerRows
	expense.Category = cat
	expense.CardAccount = acc
	expense.FillOwnerProfiles()
	return &expense, nil
}

// Get 获取单条支出，附带类别、账户和按百分比降序的分摊记录
func (s *ExpenseService) Get(id uint) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.
		Preload("Category").
		Preload("CardAccount").
		Preload("Owners", func(db *gorm.DB) *gorm.DB {
			return db.Order("percentage DESC, id ASC")
		}).
		Preload("Owners.User").
		First(&expense, id).Error
	if err != nil {
		return nil, wrapDBErr(err, "支出不存在")
	}
	expense.FillOwnerProfiles()
	return &expense, nil
}

// Update 部分更新支出
// 提供了 Owners 时，旧分摊整体废弃、新分摊整体写入，与字段更新同一事务；
// 重复以相同分摊调用，最终百分比状态一致（幂等）
func (s *ExpenseService) Update(id uint, upd ExpenseUpdate) (*models.Expense, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Amount != nil {
		if err := validateAmount(*upd.Amount); err != nil {
			return nil, err
		}
		updates["amount"] = *upd.Amount
	}
	if upd.CategoryID != nil {
		if _, err := s.checkExpenseCategory(*upd.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *upd.CategoryID
	}
	if upd.CardAccountID != nil {
		if _, err := s.checkAccount(*upd.CardAccountID); err != nil {
			return nil, err
		}
		updates["card_account_id"] = *upd.CardAccountID
	}
	if upd.Annotation != nil {
		updates["annotation"] = *upd.Annotation
	}
	if upd.ExpenseDate != nil {
		updates["expense_date"] = *upd.ExpenseDate
	}

	var ownerRows []models.ExpenseOwner
	if upd.Owners != nil {
		users, err := ValidateOwners(s.db, upd.Owners)
		if err != nil {
			return nil, err
		}
		ownerRows = buildOwnerRows(upd.Owners, users)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Expense{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if upd.Owners != nil {
			// 整体替换：先删旧分摊再插新分摊，不存在分摊为空的中间可见状态
			if err := tx.Where("expense_id = ?", id).Delete(&models.ExpenseOwner{}).Error; err != nil {
				return err
			}
			rows := make([]models.ExpenseOwner, len(ownerRows))
			for i := range ownerRows {
				rows[i] = ownerRows[i]
				rows[i].ExpenseID = id
				rows[i].User = nil
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(err, "支出不存在")
	}

	return s.Get(id)
}

// Delete 删除支出并级联删除其分摊记录
func (s *ExpenseService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", id).Delete(&models.ExpenseOwner{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Expense{}, id).Error
	})
	if err != nil {
		return wrapDBErr(err, "支出不存在")
	}
	return nil
}

// ExpenseFilter 支出列表过滤条件
type ExpenseFilter struct {
	CategoryID    uint       // 类别精确匹配
	CardAccountID uint       // 账户精确匹配
	UserID        uint       // 按分摊责任人筛选
	StartDate     *time.Time // 支出日期下界（含）
	EndDate       *time.Time // 支出日期上界（含）
	MinAmount     *float64   // 金额下界（含）
	MaxAmount     *float64   // 金额上界（含）
	Page          int
	Limit         int
}

// List 按条件分页查询支出，返回列表、总条数和金额合计
func (s *ExpenseService) List(f ExpenseFilter) ([]models.Expense, int64, float64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}

	query := s.db.Model(&models.Expense{})
	if f.CategoryID > 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if f.CardAccountID > 0 {
		query = query.Where("card_account_id = ?", f.CardAccountID)
	}
	if f.UserID > 0 {
		query = query.Where("id IN (?)",
			s.db.Model(&models.ExpenseOwner{}).Select("expense_id").Where("user_id = ?", f.UserID))
	}
	if f.StartDate != nil {
		query = query.Where("expense_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		query = query.Where("expense_date <= ?", *f.EndDate)
	}
	if f.MinAmount != nil {
		query = query.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		query = query.Where("amount <= ?", *f.MaxAmount)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, 0, wrapDBErr(err, "支出不存在")
	}
	var totalAmount float64
	// 独立会话求和，避免 Select 子句污染后续的列表查询
	if err := query.Session(&gorm.Session{}).Select("COALESCE(SUM(amount), 0)").Scan(&totalAmount).Error; err != nil {
		return nil, 0, 0, wrapDBErr(err, "支出不存在")
	}

	var expenses []models.Expense
	offset := (f.Page - 1) * f.Limit
	err := query.
		Preload("Category").
		Preload("CardAccount").
		Preload("Owners", func(db *gorm.DB) *gorm.DB {
			return db.Order("percentage DESC, id ASC")
		}).
		Preload("Owners.User").
		Order("expense_date DESC").
		Offset(offset).Limit(f.Limit).
		Find(&expenses).Error
	if err != nil {
		return nil, 0, 0, wrapDBErr(err, "支出不存在")
	}

	for i := range expenses {
		expenses[i].FillOwnerProfiles()
	}
	return expenses, total, totalAmount, nil
}

// ExpenseStats 单条支出的分摊统计
type ExpenseStats struct {
	TotalOwners       int           `json:"total_owners"`
	IndividualAmounts []OwnerAmount `json:"individual_amounts"`
}

// Stats 获取支出的分摊统计（每人应承担金额）
func (s *ExpenseService) Stats(id uint) (*models.Expense, *ExpenseStats, error) {
	expense, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	return expense, &ExpenseStats{
		TotalOwners:       len(expense.Owners),
		IndividualAmounts: ComputeIndividualAmounts(expense),
	}, nil
}
