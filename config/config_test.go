package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET_KEY", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "mock", cfg.Email.Provider)
	assert.Equal(t, 7*24*time.Hour, cfg.App.SignatureTTL)
	assert.Equal(t, 20, cfg.App.RecentViewsLimit)
	assert.Equal(t, "docflow:", cfg.Cache.RedisPrefix)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "host=localhost port=5432 user=postgres password= dbname=docflow sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "JWT_SECRET_KEY=" + testSecret + "\nPUBLIC_BASE_URL=https://docs.example.com/\nSIGNATURE_TTL=48h\nCORS_ALLOWED_ORIGINS=https://a.example.com, https://b.example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	// variables already present win over the file
	t.Setenv("SIGNATURE_TTL", "24h")
	t.Cleanup(func() {
		for _, key := range []string{"JWT_SECRET_KEY", "PUBLIC_BASE_URL", "CORS_ALLOWED_ORIGINS"} {
			_ = os.Unsetenv(key)
		}
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com", cfg.App.PublicBaseURL)
	assert.Equal(t, 24*time.Hour, cfg.App.SignatureTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, testSecret, cfg.JWT.SecretKey)
}

func TestValidateConfig(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Chdir(t.TempDir())
		t.Setenv("JWT_SECRET_KEY", testSecret)
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		message string
	}{
		{"ShortSecret", func(cfg *Config) { cfg.JWT.SecretKey = "short" }, "JWT_SECRET_KEY"},
		{"RSAWithoutKeys", func(cfg *Config) { cfg.JWT.UseRSAKeys = true }, "JWT_PRIVATE_KEY"},
		{"BadPort", func(cfg *Config) { cfg.Server.Port = 70000 }, "SERVER_PORT"},
		{"SMTPWithoutHost", func(cfg *Config) { cfg.Email.Provider = "smtp" }, "EMAIL_HOST"},
		{"UnknownEmailProvider", func(cfg *Config) { cfg.Email.Provider = "pigeon" }, "EMAIL_PROVIDER"},
		{"RelativeBaseURL", func(cfg *Config) { cfg.App.PublicBaseURL = "/docs" }, "PUBLIC_BASE_URL"},
		{"BadOwnerEmail", func(cfg *Config) { cfg.App.OwnerEmail = "owner" }, "OWNER_EMAIL"},
		{"ZeroSignatureTTL", func(cfg *Config) { cfg.App.SignatureTTL = 0 }, "SIGNATURE_TTL"},
		{"CacheWithoutURL", func(cfg *Config) { cfg.Cache.Enabled = true; cfg.Cache.RedisURL = "" }, "CACHE_REDIS_URL"},
		{"FileLogWithoutPath", func(cfg *Config) { cfg.Logging.Output = "file"; cfg.Logging.FilePath = "" }, "LOG_FILE_PATH"},
		{"BadLogLevel", func(cfg *Config) { cfg.Logging.Level = "trace" }, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	t.Run("AggregatesProblems", func(t *testing.T) {
		cfg := valid(t)
		cfg.Server.Port = 0
		cfg.App.SignatureTTL = 0
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SERVER_PORT")
		assert.Contains(t, err.Error(), "SIGNATURE_TTL")
	})
}

func TestLogWriter(t *testing.T) {
	assert.Equal(t, os.Stdout, LoggingConfig{Output: "stdout"}.LogWriter())

	path := filepath.Join(t.TempDir(), "app.log")
	w := LoggingConfig{Output: "file", FilePath: path, MaxSize: 1}.LogWriter()
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}
