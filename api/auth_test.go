package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"kontas/config"
	"kontas/database"
	"kontas/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			ExpireTime:        time.Hour,
			RefreshExpireTime: 24 * time.Hour,
		},
	}
}

func setupAuth(t *testing.T) (*config.Config, func()) {
	cfg := testConfig()
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	return cfg, func() { config.GlobalConfig = nil }
}

func userSelectRows(id uint, username, passwordHash, role string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password", "full_name", "email", "phone", "role", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, username, passwordHash, "测试用户", "t@example.com", "11987654321", role, time.Now(), time.Now(), nil)
}

func TestAuthHandler_Register(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg, restore := setupAuth(t)
	defer restore()

	// 用户名不存在：SELECT 返回无记录
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("joao").
		WillReturnRows(sqlmock.NewRows([]string{}))

	// GORM Create 使用事务
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(cfg)
	router.POST("/register", h.Register)

	body := `{"username":"joao","password":"password123","full_name":"João Silva","email":"joao@example.com","phone":"11987654321"}`
	req := httptest.NewRequest("POST", "/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 201, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(201), resp["code"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "joao", data["username"])
	assert.Equal(t, "member", data["role"])
	// 密码不出现在响应中
	_, hasPassword := data["password"]
	assert.False(t, hasPassword)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Register_UsernameExists(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg, restore := setupAuth(t)
	defer restore()

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("existing").
		WillReturnRows(userSelectRows(1, "existing", "hash", "member"))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(cfg)
	router.POST("/register", h.Register)

	body := `{"username":"existing","password":"password123","full_name":"Someone Else","email":"e@example.com","phone":"11987654321"}`
	req := httptest.NewRequest("POST", "/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 409, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "用户名已存在", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthHandler_Login(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg, restore := setupAuth(t)
	defer restore()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs("joao").
		WillReturnRows(userSelectRows(1, "joao", string(hash), "member"))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(cfg)
	router.POST("/login", h.Login)

	body := `{"username":"joao","password":"password123"}`
	req := httptest.NewRequest("POST", "/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["refresh_token"])

	// 访问令牌可被解析且类型正确
	claims, err := middleware.ParseToken(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, middleware.TokenTypeAccess, claims.TokenType)

	claims, err = middleware.ParseToken(data["refresh_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, middleware.TokenTypeRefresh, claims.TokenType)
	require.NoError(t, mock.ExpectationsWereMet())
}

// 用户名不存在和密码错误必须返回相同的提示，避免枚举用户名
func TestAuthHandler_Login_UniformFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var messages []string
	for _, tc := range []struct {
		name     string
		rows     *sqlmock.Rows
		password string
	}{
		{"用户不存在", sqlmock.NewRows([]string{}), "password123"},
		{"密码错误", userSelectRows(1, "joao", "$2a$04$invalidhashinvalidhashinvalidhashinvalidhashinvalid", "member"), "wrongpassword"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mock, cleanup := setupMockDB(t)
			defer cleanup()
			cfg, restore := setupAuth(t)
			defer restore()

			mock.ExpectQuery("SELECT .* FROM `users`").
				WillReturnRows(tc.rows)

			router := gin.New()
			h := NewAuthHandler(cfg)
			router.POST("/login", h.Login)

			body := `{"username":"joao","password":"` + tc.password + `"}`
			req := httptest.NewRequest("POST", "/login", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, 401, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			messages = append(messages, resp["message"].(string))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
	require.Len(t, messages, 2)
	assert.Equal(t, messages[0], messages[1])
}

func TestAuthHandler_Refresh(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	cfg, restore := setupAuth(t)
	defer restore()

	refreshToken, err := middleware.GenerateRefreshToken(1, "joao", "member", cfg.JWT.RefreshExpireTime)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(userSelectRows(1, "joao", "hash", "member"))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(cfg)
	router.POST("/refresh", h.Refresh)

	body, _ := json.Marshal(gin.H{"refresh_token": refreshToken})
	req := httptest.NewRequest("POST", "/refresh", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	require.NoError(t, mock.ExpectationsWereMet())
}

// 访问令牌不能当作刷新令牌使用
func TestAuthHandler_Refresh_RejectsAccessToken(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	cfg, restore := setupAuth(t)
	defer restore()

	accessToken, err := middleware.GenerateToken(1, "joao", "member", cfg.JWT.ExpireTime)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAuthHandler(cfg)
	router.POST("/refresh", h.Refresh)

	body, _ := json.Marshal(gin.H{"refresh_token": accessToken})
	req := httptest.NewRequest("POST", "/refresh", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code)
}
