package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "postgres://memorybox@localhost:5432/memorybox?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, "async", cfg.Badges.EvaluationMode)
	assert.Equal(t, "@every 15m", cfg.Badges.SweepSchedule)
	assert.Equal(t, 7, cfg.Badges.LookbackDays)
	assert.Equal(t, "/uploads", cfg.Uploads.PublicPath)
	assert.Equal(t, []string{"*"}, cfg.Security.CORSAllowedOrigins)
	assert.Empty(t, cfg.Security.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "postgres://localhost/memorybox")
	t.Setenv("BADGE_EVALUATION_MODE", "SYNC")
	t.Setenv("BADGE_SWEEP_SCHEDULE", "0 */5 * * * *")
	t.Setenv("CACHE_DEFAULT_TTL", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sync", cfg.Badges.EvaluationMode)
	assert.Equal(t, "0 */5 * * * *", cfg.Badges.SweepSchedule)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Security.TrustedProxies)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"DATABASE_URL": ""}},
		{"unknown cache", map[string]string{"CACHE_TYPE": "memcached"}},
		{"bad evaluation mode", map[string]string{"BADGE_EVALUATION_MODE": "later"}},
		{"short lookback", map[string]string{"BADGE_ACTIVITY_LOOKBACK_DAYS": "3"}},
		{"cloudinary without credentials", map[string]string{"UPLOAD_PROVIDER": "cloudinary"}},
		{"bcrypt cost", map[string]string{"BCRYPT_COST": "2"}},
		{"trusted proxy hostname", map[string]string{"TRUSTED_PROXIES": "lb.internal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", "test")
			t.Setenv("DATABASE_URL", "postgres://localhost/memorybox")
			t.Setenv("CLOUDINARY_CLOUD_NAME", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
