package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Database.Host)
	assert.NotEmpty(t, cfg.JWT.Secret)
	// 访问令牌短期，刷新令牌长期
	assert.Greater(t, cfg.JWT.RefreshExpireTime, cfg.JWT.ExpireTime)
	assert.Equal(t, time.Duration(cfg.JWT.ExpireHours)*time.Hour, cfg.JWT.ExpireTime)
	assert.Greater(t, cfg.RateLimit.RequestsPerMinute, 0)
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadConfig_ExternalOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	content := `
server:
  port: ":9999"
jwt:
  expire_hours: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	// 未覆盖的字段保留内置默认值
	assert.NotEmpty(t, cfg.Database.Host)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("KONTAS_SERVER_PORT", ":7777")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Port)
}

func TestLoadConfig_MissingExternalFileFallsBack(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Server.Port)
}

func TestGetConfig_PanicsWhenUninitialized(t *testing.T) {
	old := GlobalConfig
	GlobalConfig = nil
	defer func() { GlobalConfig = old }()

	assert.Panics(t, func() { GetConfig() })
}
