package service

import (
	"testing"
	"time"

	"kontas/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock, func() { sqlDB.Close() }
}

func pct(v float64) *float64 {
	return &v
}

func userRows(ids ...uint) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "username", "full_name", "created_at", "updated_at", "deleted_at"})
	for _, id := range ids {
		rows.AddRow(id, "user", "用户", time.Now(), time.Now(), nil)
	}
	return rows
}

func TestValidateOwners_Valid(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userRows(1, 2))

	users, err := ValidateOwners(db, []OwnerInput{
		{UserID: 1, Percentage: pct(60)},
		{UserID: 2, Percentage: pct(40)},
	})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOwners_SumNotHundred(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	_, err := ValidateOwners(db, []OwnerInput{
		{UserID: 1, Percentage: pct(60)},
		{UserID: 2, Percentage: pct(39.99)},
	})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, svcErr.Kind)
}

func TestValidateOwners_Empty(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	_, err := ValidateOwners(db, nil)
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, svcErr.Kind)
}

func TestValidateOwners_DuplicateUser(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	_, err := ValidateOwners(db, []OwnerInput{
		{UserID: 1, Percentage: pct(50)},
		{UserID: 1, Percentage: pct(50)},
	})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, svcErr.Kind)
	require.NotEmpty(t, svcErr.Fields)
	assert.Equal(t, "expense_owners[1].user_id", svcErr.Fields[0].Field)
}

func TestValidateOwners_TooManyDecimals(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	_, err := ValidateOwners(db, []OwnerInput{
		{UserID: 1, Percentage: pct(33.333)},
		{UserID: 2, Percentage: pct(66.667)},
	})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, svcErr.Kind)
	assert.Len(t, svcErr.Fields, 2)
}

func TestValidateOwners_OutOfRange(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	for _, v := range []float64{0, -10, 100.01} {
		_, err := ValidateOwners(db, []OwnerInput{{UserID: 1, Percentage: pct(v)}})
		require.Error(t, err, "percentage %v", v)
		svcErr, ok := AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, KindValidation, svcErr.Kind)
	}
}

func TestValidateOwners_DefaultHundred(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userRows(7))

	// 单人省略百分比时默认 100
	users, err := ValidateOwners(db, []OwnerInput{{UserID: 7}})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOwners_MissingUsers(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	// 只找到 user 1，user 99 缺失
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userRows(1))

	_, err := ValidateOwners(db, []OwnerInput{
		{UserID: 1, Percentage: pct(50)},
		{UserID: 99, Percentage: pct(50)},
	})
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, svcErr.Kind)
	assert.Contains(t, svcErr.Message, "99")
	require.NoError(t, mock.ExpectationsWereMet())
}

func buildExpense(amount float64, pcts ...float64) *models.Expense {
	e := &models.Expense{Amount: amount}
	for i, p := range pcts {
		uid := uint(i + 1)
		e.Owners = append(e.Owners, models.ExpenseOwner{
			UserID:     uid,
			Percentage: p,
			User:       &models.User{ID: uid, Username: "user", FullName: "用户"},
		})
	}
	return e
}

func TestComputeIndividualAmounts_Basic(t *testing.T) {
	e := buildExpense(200.00, 70, 30)
	amounts := ComputeIndividualAmounts(e)
	require.Len(t, amounts, 2)
	assert.Equal(t, 140.00, amounts[0].Amount)
	assert.Equal(t, 70.0, amounts[0].Percentage)
	assert.Equal(t, 60.00, amounts[1].Amount)
	assert.Equal(t, 30.0, amounts[1].Percentage)
}

func TestComputeIndividualAmounts_Rounding(t *testing.T) {
	// 100.00 按 33.33/33.33/33.34 分摊
	amounts := ComputeIndividualAmounts(buildExpense(100.00, 33.33, 33.33, 33.34))
	require.Len(t, amounts, 3)
	assert.Equal(t, 33.34, amounts[0].Amount) // 降序排列，33.34 在前
	assert.Equal(t, 33.33, amounts[1].Amount)
	assert.Equal(t, 33.33, amounts[2].Amount)

	// 10.00 同样的分摊：各人之和 9.99，不做余数校正
	amounts = ComputeIndividualAmounts(buildExpense(10.00, 33.33, 33.33, 33.34))
	require.Len(t, amounts, 3)
	var sum float64
	for _, a := range amounts {
		assert.Equal(t, 3.33, a.Amount)
		sum += a.Amount
	}
	assert.InDelta(t, 9.99, sum, 1e-9)
}

func TestComputeIndividualAmounts_SortedDescStable(t *testing.T) {
	e := buildExpense(100.00, 20, 50, 30)
	amounts := ComputeIndividualAmounts(e)
	require.Len(t, amounts, 3)
	assert.Equal(t, 50.0, amounts[0].Percentage)
	assert.Equal(t, 30.0, amounts[1].Percentage)
	assert.Equal(t, 20.0, amounts[2].Percentage)

	// 百分比相同时保持原有顺序
	e = buildExpense(100.00, 50, 50)
	amounts = ComputeIndividualAmounts(e)
	assert.Equal(t, uint(1), amounts[0].User.ID)
	assert.Equal(t, uint(2), amounts[1].User.ID)
}

func TestComputeIndividualAmounts_Pure(t *testing.T) {
	e := buildExpense(100.00, 60, 40)
	first := ComputeIndividualAmounts(e)
	second := ComputeIndividualAmounts(e)
	assert.Equal(t, first, second)
	// 原始分摊记录顺序不被修改
	assert.Equal(t, 60.0, e.Owners[0].Percentage)
	assert.Equal(t, 40.0, e.Owners[1].Percentage)
}
