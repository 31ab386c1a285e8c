package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultUploadDir, cfg.UploadDir)
	assert.Equal(t, DefaultDownloadDir, cfg.DownloadDir)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, DefaultSessionMaxAge, cfg.SessionMaxAge)
	assert.Equal(t, DefaultAllowedOrigins, cfg.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mlviz.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
port: 9000
upload_dir: /data/uploads
log_level: debug
allowed_origins:
  - https://viz.example.com
`), 0o644))

	t.Setenv("MLVIZ_UPLOAD_DIR", "/env/uploads")
	t.Setenv("MLVIZ_DB_PREVIEW_LIMIT", "25")
	t.Setenv("MLVIZ_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", DefaultPort, "")
	flags.String("download-dir", DefaultDownloadDir, "")
	flags.String("log-format", DefaultLogFormat, "")
	require.NoError(t, flags.Parse([]string{"--port", "9100", "--download-dir", "/flag/downloads"}))

	cfg, err := Load(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, cfgPath, cfg.ConfigFile)
	assert.Equal(t, 9100, cfg.Port, "flag beats file")
	assert.Equal(t, "/env/uploads", cfg.UploadDir, "env beats file")
	assert.Equal(t, "/flag/downloads", cfg.DownloadDir)
	assert.Equal(t, 25, cfg.DBPreviewLimit)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel, "file beats default")
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat, "unset flag does not override")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port 70000 out of range"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"no upload dir", func(c *Config) { c.UploadDir = "" }, "upload_dir"},
		{"zero preview", func(c *Config) { c.DBPreviewLimit = 0 }, "db_preview_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:           DefaultPort,
				UploadDir:      DefaultUploadDir,
				DownloadDir:    DefaultDownloadDir,
				MaxUploadBytes: DefaultMaxUploadBytes,
				SessionMaxAge:  DefaultSessionMaxAge,
				LogLevel:       DefaultLogLevel,
				LogFormat:      DefaultLogFormat,
				DBPreviewLimit: DefaultDBPreviewLimit,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestEnsureSessionSecret(t *testing.T) {
	cfg := &Config{}
	generated, err := cfg.EnsureSessionSecret()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, cfg.SessionSecret, 64)

	generated, err = cfg.EnsureSessionSecret()
	require.NoError(t, err)
	assert.False(t, generated)
}
