// Package config loads server and CLI settings.
//
// Precedence (highest to lowest): flags > MLVIZ_ env vars > config file >
// defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override, e.g. MLVIZ_PORT.
const EnvPrefix = "MLVIZ_"

// Defaults
const (
	DefaultPort           = 8001
	DefaultUploadDir      = "./uploads"
	DefaultDownloadDir    = "./downloads"
	DefaultMaxUploadBytes = 100 * 1024 * 1024
	DefaultSessionMaxAge  = 86400
	DefaultDBPreviewLimit = 1000
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:3002",
	"http://127.0.0.1:3000",
}

// Config holds all settings.
type Config struct {
	Port           int      `koanf:"port"`
	UploadDir      string   `koanf:"upload_dir"`
	DownloadDir    string   `koanf:"download_dir"`
	MaxUploadBytes int64    `koanf:"max_upload_bytes"`
	SessionSecret  string   `koanf:"session_secret"`
	SessionMaxAge  int      `koanf:"session_max_age"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	LogLevel       string   `koanf:"log_level"`
	LogFormat      string   `koanf:"log_format"`
	DBPreviewLimit int      `koanf:"db_preview_limit"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `koanf:"-"`
}

// findConfigFile finds the config file to use.
// Priority: explicit path > mlviz.yaml > mlviz.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"mlviz.yaml", "mlviz.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration from defaults, cfgFile (or mlviz.yaml in the
// working directory), the environment and any flags that were set.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"port":             DefaultPort,
		"upload_dir":       DefaultUploadDir,
		"download_dir":     DefaultDownloadDir,
		"max_upload_bytes": DefaultMaxUploadBytes,
		"session_secret":   "",
		"session_max_age":  DefaultSessionMaxAge,
		"allowed_origins":  DefaultAllowedOrigins,
		"log_level":        DefaultLogLevel,
		"log_format":       DefaultLogFormat,
		"db_preview_limit": DefaultDBPreviewLimit,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: MLVIZ_UPLOAD_DIR -> upload_dir
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if key == "allowed_origins" {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.UploadDir == "" {
		errs = append(errs, errors.New("upload_dir must be set"))
	}
	if c.DownloadDir == "" {
		errs = append(errs, errors.New("download_dir must be set"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be positive"))
	}
	if c.SessionMaxAge < 0 {
		errs = append(errs, errors.New("session_max_age must not be negative"))
	}
	if c.DBPreviewLimit <= 0 {
		errs = append(errs, errors.New("db_preview_limit must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

// EnsureSessionSecret fills in a random secret when none is configured.
// Sessions then last only as long as the process.
func (c *Config) EnsureSessionSecret() (generated bool, err error) {
	if c.SessionSecret != "" {
		return false, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return false, fmt.Errorf("generate session secret: %w", err)
	}
	c.SessionSecret = hex.EncodeToString(b)
	return true, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return l, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
