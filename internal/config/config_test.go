// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.AccessTokenExpire)
	assert.Equal(t, 5*time.Second, cfg.Otel.BatchTimeout)
	assert.Equal(t, 512, cfg.Otel.MaxExportBatchSize)
	assert.Equal(t, "storefront-api", cfg.JWT.Issuer)
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Address())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("JWT_EXPIRE", "15m")
	t.Setenv("APP_NAME", "shop")
	t.Setenv("NODE_ENV", "test")
	t.Setenv("API_PREFIX", "v2/")
	t.Setenv("FRONTEND_URL", "https://shop.example.com/,https://admin.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpire)
	assert.Equal(t, "shop", cfg.JWT.Issuer)
	assert.Equal(t, "test", cfg.App.Environment)
	assert.Equal(t, "/v2", cfg.Server.APIPrefix)
	assert.Equal(t,
		[]string{"https://shop.example.com", "https://admin.example.com"},
		cfg.CORS.AllowedOrigins,
	)
}

func TestLoad_RefreshExpiryIsNotConfigurable(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_REFRESH_EXPIRE", "not-a-duration")

	_, err := Load("")
	assert.NoError(t, err, "JWT_REFRESH_EXPIRE is not read")
}

func TestLoad_OtelBatchSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OTEL_BATCH_TIMEOUT", "2s")
	t.Setenv("OTEL_EXPORT_TIMEOUT", "10s")
	t.Setenv("OTEL_MAX_EXPORT_BATCH_SIZE", "128")
	t.Setenv("OTEL_MAX_QUEUE_SIZE", "1024")
	t.Setenv("OTEL_SAMPLE_RATE", "0.5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Otel.BatchTimeout)
	assert.Equal(t, 10*time.Second, cfg.Otel.ExportTimeout)
	assert.Equal(t, 128, cfg.Otel.MaxExportBatchSize)
	assert.Equal(t, 1024, cfg.Otel.MaxQueueSize)
	assert.InDelta(t, 0.5, cfg.Otel.SampleRate, 1e-9)

	t.Setenv("OTEL_SAMPLE_RATE", "1.5")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample_rate")
}

func TestLoad_MissingSecretIsFatal(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_MissingMongoURI(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MONGODB_URI", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_URI")
}

func TestLoad_PostgresDriverNeedsDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_DRIVER", "postgres")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 9090\njwt:\n  audience: shop-web\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "shop-web", cfg.JWT.Audience)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
}

func TestLoad_ShortSecretRejectedInProduction(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NODE_ENV", "production")

	_, err := Load("")
	require.Error(t, err)
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: "30d", want: 30 * 24 * time.Hour},
		{in: "15m", want: 15 * time.Minute},
		{in: "3600", want: time.Hour},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "-5m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpiry(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
