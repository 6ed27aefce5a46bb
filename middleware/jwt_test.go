package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"kontas/config"
	"kontas/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestJWT() {
	InitJWT(&config.Config{JWT: config.JWTConfig{Secret: "test-secret"}})
}

func TestGenerateAndParseToken(t *testing.T) {
	initTestJWT()

	token, err := GenerateToken(42, "joao", models.RoleMember, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "joao", claims.Username)
	assert.Equal(t, models.RoleMember, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "kontas", claims.Issuer)
}

func TestParseToken_Expired(t *testing.T) {
	initTestJWT()

	token, err := GenerateToken(1, "joao", models.RoleMember, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_WrongSecret(t *testing.T) {
	initTestJWT()
	token, err := GenerateToken(1, "joao", models.RoleMember, time.Hour)
	require.NoError(t, err)

	InitJWT(&config.Config{JWT: config.JWTConfig{Secret: "other-secret"}})
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestJWTAuth_Valid(t *testing.T) {
	initTestJWT()
	gin.SetMode(gin.TestMode)

	token, err := GenerateToken(7, "joao", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"user_id":  GetCurrentUserID(c),
			"username": GetCurrentUsername(c),
			"role":     GetCurrentUserRole(c),
		})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	initTestJWT()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) { c.Status(200) })

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code)
}

func TestJWTAuth_BadFormat(t *testing.T) {
	initTestJWT()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) { c.Status(200) })

	for _, header := range []string{"Basic abc", "Bearer", "Bearer "} {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, 401, w.Code, "header %q", header)
	}
}

// 刷新令牌不能用于访问受保护接口
func TestJWTAuth_RejectsRefreshToken(t *testing.T) {
	initTestJWT()
	gin.SetMode(gin.TestMode)

	refreshToken, err := GenerateRefreshToken(1, "joao", models.RoleMember, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) { c.Status(200) })

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code)
}

func TestRequireRole(t *testing.T) {
	initTestJWT()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth(), RequireRole(models.RoleAdmin))
	router.GET("/admin", func(c *gin.Context) { c.Status(200) })

	adminToken, err := GenerateToken(1, "admin", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	memberToken, err := GenerateToken(2, "joao", models.RoleMember, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 403, w.Code)
}
