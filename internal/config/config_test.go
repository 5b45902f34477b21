package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "c2VjcmV0LXNpZ25pbmcta2V5LWZvci10ZXN0cy1vbmx5LTMyYnl0ZXM="

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "auth-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 5, cfg.Auth.LoginMaxAttempts)
	assert.False(t, cfg.Auth.RotateRefreshTokens)
	assert.Equal(t, DefaultPublicPaths, cfg.Auth.PublicPaths)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL", "48h")
	t.Setenv("AUTH_PUBLIC_PATHS", "/api/v1/auth/**,/status")
	t.Setenv("AUTH_ROTATE_REFRESH_TOKENS", "true")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, []string{"/api/v1/auth/**", "/status"}, cfg.Auth.PublicPaths)
	assert.True(t, cfg.Auth.RotateRefreshTokens)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Auth: AuthConfig{
			JWTSecret:          testSecret,
			AccessTokenTTL:     time.Hour,
			RefreshTokenTTL:    24 * time.Hour,
			LoginMaxAttempts:   5,
			LoginAttemptWindow: time.Minute,
		}}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "zero access ttl", mutate: func(c *Config) { c.Auth.AccessTokenTTL = 0 }, wantErr: true},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.Auth.RefreshTokenTTL = time.Minute }, wantErr: true},
		{name: "negative attempts", mutate: func(c *Config) { c.Auth.LoginMaxAttempts = -1 }, wantErr: true},
		{name: "missing window", mutate: func(c *Config) { c.Auth.LoginAttemptWindow = 0 }, wantErr: true},
		{name: "limiter disabled ignores window", mutate: func(c *Config) {
			c.Auth.LoginMaxAttempts = 0
			c.Auth.LoginAttemptWindow = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}
