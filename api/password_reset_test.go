package api

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSendTestEmail_ServiceDisabled(t *testing.T) {
	cfg, cleanup := setupAuth(t)
	defer cleanup()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewPasswordResetHandler(cfg)
	router.POST("/system/email/test", h.SendTestEmail)

	req := httptest.NewRequest("POST", "/system/email/test",
		bytes.NewBufferString(`{"email":"admin@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// 邮件服务未启用时返回 503，不发送任何邮件
	assert.Equal(t, 503, w.Code)
	assert.Contains(t, w.Body.String(), "未启用")
}

func TestSendTestEmail_BadEmail(t *testing.T) {
	cfg, cleanup := setupAuth(t)
	defer cleanup()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewPasswordResetHandler(cfg)
	router.POST("/system/email/test", h.SendTestEmail)

	req := httptest.NewRequest("POST", "/system/email/test",
		bytes.NewBufferString(`{"email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}
