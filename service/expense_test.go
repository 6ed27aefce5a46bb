package service

import (
	"testing"
	"time"

	"kontas/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expenseCategoryRows(id uint, catType string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "type", "color", "active", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, "餐饮", catType, "#ef4444", active, time.Now(), time.Now(), nil)
}

func accountRows(id uint, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "name", "type", "active", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, 1, "Nubank", "CREDIT_CARD", active, time.Now(), time.Now(), nil)
}

func expenseRows(id uint, amount float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "amount", "category_id", "card_account_id", "annotation", "expense_date", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, "超市采购", amount, 1, 1, "", time.Now(), time.Now(), time.Now(), nil)
}

func ownerRows(pairs ...[2]float64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "expense_id", "user_id", "percentage", "created_at"})
	for i, p := range pairs {
		rows.AddRow(i+1, 1, uint(p[0]), p[1], time.Now())
	}
	return rows
}

func TestExpenseService_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	// 前置校验：类别、账户、用户，全部在事务外只读
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WillReturnRows(expenseCategoryRows(1, models.CategoryTypeExpense, true))
	mock.ExpectQuery("SELECT .* FROM `card_accounts`").
		WillReturnRows(accountRows(1, true))
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userRows(1, 2))

	// 支出行与分摊行在同一事务内写入
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `expense_owners`").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	svc := NewExpenseService(db)
	expense, err := svc.Create(ExpenseDraft{
		Name:          "超市采购",
		Amount:        200.00,
		CategoryID:    1,
		CardAccountID: 1,
		ExpenseDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}, []OwnerInput{
		{UserID: 1, Percentage: pct(70)},
		{UserID: 2, Percentage: pct(30)},
	})
	require.NoError(t, err)
	require.Len(t, expense.Owners, 2)
	// 分摊按百分比降序
	assert.Equal(t, 70.0, expense.Owners[0].Percentage)
	assert.Equal(t, 30.0, expense.Owners[1].Percentage)
	assert.NotNil(t, expense.Category)
	assert.NotNil(t, expense.CardAccount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Create_InvalidSplit_NoWrites(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `categories`").
		WillReturnRows(expenseCategoryRows(1, models.CategoryTypeExpense, true))
	mock.ExpectQuery("SELECT .* FROM `card_accounts`").
		WillReturnRows(accountRows(1, true))
	// 分摊校验失败，不应出现任何 BEGIN/INSERT

	svc := NewExpenseService(db)
	_, err := svc.Create(ExpenseDraft{
		Name: "超市采购", Amount: 200.00, CategoryID: 1, CardAccountID: 1,
		ExpenseDate: time.Now(),
	}, []OwnerInput{
		{UserID: 1, Percentage: pct(60)},
		{UserID: 2, Percentage: pct(39.99)},
	})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, svcErr.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Create_WrongCategoryType(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `categories`").
		WillReturnRows(expenseCategoryRows(1, models.CategoryTypeIncome, true))

	svc := NewExpenseService(db)
	_, err := svc.Create(ExpenseDraft{
		Name: "超市采购", Amount: 200.00, CategoryID: 1, CardAccountID: 1,
		ExpenseDate: time.Now(),
	}, []OwnerInput{{UserID: 1}})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, svcErr.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Create_InactiveAccount(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `categories`").
		WillReturnRows(expenseCategoryRows(1, models.CategoryTypeExpense, true))
	mock.ExpectQuery("SELECT .* FROM `card_accounts`").
		WillReturnRows(accountRows(1, false))

	svc := NewExpenseService(db)
	_, err := svc.Create(ExpenseDraft{
		Name: "超市采购", Amount: 200.00, CategoryID: 1, CardAccountID: 1,
		ExpenseDate: time.Now(),
	}, []OwnerInput{{UserID: 1}})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, svcErr.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Create_CategoryNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	svc := NewExpenseService(db)
	_, err := svc.Create(ExpenseDraft{
		Name: "超市采购", Amount: 200.00, CategoryID: 99, CardAccountID: 1,
		ExpenseDate: time.Now(),
	}, []OwnerInput{{UserID: 1}})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, svcErr.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Create_BadAmount(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	svc := NewExpenseService(db)
	for _, amount := range []float64{0, -10, 10.123} {
		_, err := svc.Create(ExpenseDraft{
			Name: "x", Amount: amount, CategoryID: 1, CardAccountID: 1,
			ExpenseDate: time.Now(),
		}, []OwnerInput{{UserID: 1}})
		require.Error(t, err, "amount %v", amount)
		svcErr, ok := AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, KindValidation, svcErr.Kind)
	}
}

// expectGet 注册一次 Get 调用的查询期望：主查询 + 按名称排序的各预加载。
// userIDs 必须与 owners 行中的 user_id 一一对应，多余的用户行会让关联装配报错
func expectGet(mock sqlmock.Sqlmock, owners *sqlmock.Rows, userIDs ...uint) {
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(expenseRows(1, 200.00))
	mock.ExpectQuery("SELECT .* FROM `card_accounts`").
		WillReturnRows(accountRows(1, true))
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WillReturnRows(expenseCategoryRows(1, models.CategoryTypeExpense, true))
	mock.ExpectQuery("SELECT .* FROM `expense_owners`").
		WillReturnRows(owners)
	if len(userIDs) > 0 {
		mock.ExpectQuery("SELECT .* FROM `users`").
			WillReturnRows(userRows(userIDs...))
	}
}

func TestExpenseService_Update_ReplaceOwners(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	// 先读取现有支出
	expectGet(mock, ownerRows([2]float64{1, 100}), 1)

	// 新分摊的用户存在性校验
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userRows(1, 2))

	// 整体替换：同一事务内先删后插
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `expense_owners`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `expense_owners`").
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	// 更新后重新读取
	expectGet(mock, ownerRows([2]float64{1, 60}, [2]float64{2, 40}), 1, 2)

	svc := NewExpenseService(db)
	expense, err := svc.Update(1, ExpenseUpdate{
		Owners: []OwnerInput{
			{UserID: 1, Percentage: pct(60)},
			{UserID: 2, Percentage: pct(40)},
		},
	})
	require.NoError(t, err)
	require.Len(t, expense.Owners, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Update_OwnersUntouched(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectGet(mock, ownerRows([2]float64{1, 100}), 1)

	// 仅更新金额：不触碰分摊记录
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expenses`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	expectGet(mock, ownerRows([2]float64{1, 100}), 1)

	svc := NewExpenseService(db)
	amount := 300.00
	_, err := svc.Update(1, ExpenseUpdate{Amount: &amount})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Update_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	svc := NewExpenseService(db)
	name := "x"
	_, err := svc.Update(99, ExpenseUpdate{Name: &name})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, svcErr.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Delete_Cascade(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectGet(mock, ownerRows([2]float64{1, 100}), 1)

	// 同一事务内：先硬删分摊，再软删支出
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `expense_owners`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `expenses` SET `deleted_at`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewExpenseService(db)
	require.NoError(t, svc.Delete(1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Get_OwnersOrdered(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectGet(mock, ownerRows([2]float64{2, 60}, [2]float64{1, 40}), 1, 2)

	svc := NewExpenseService(db)
	expense, err := svc.Get(1)
	require.NoError(t, err)
	require.Len(t, expense.Owners, 2)
	assert.Equal(t, 60.0, expense.Owners[0].Percentage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Get_SingleOwner(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectGet(mock, ownerRows([2]float64{1, 100}), 1)

	svc := NewExpenseService(db)
	expense, err := svc.Get(1)
	require.NoError(t, err)
	require.Len(t, expense.Owners, 1)
	require.NotNil(t, expense.Owners[0].User)
	assert.Equal(t, uint(1), expense.Owners[0].User.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseService_Stats(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	expectGet(mock, ownerRows([2]float64{1, 70}, [2]float64{2, 30}), 1, 2)

	svc := NewExpenseService(db)
	expense, stats, err := svc.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOwners)
	require.Len(t, stats.IndividualAmounts, 2)
	// 200.00 按 70/30 分摊
	assert.Equal(t, 140.00, stats.IndividualAmounts[0].Amount)
	assert.Equal(t, 60.00, stats.IndividualAmounts[1].Amount)
	assert.Equal(t, 200.00, expense.Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}
