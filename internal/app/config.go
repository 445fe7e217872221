package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const autoAuditDB = "auto"

// RateConfig bounds how many frames one connection may send per window.
// A negative limit disables throttling.
type RateConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// ServerConfig defines how the HTTP/WebSocket backend should run.
type ServerConfig struct {
	Addr       string     `mapstructure:"addr"`
	Path       string     `mapstructure:"path"`
	AuditDB    string     `mapstructure:"audit_db"`
	Announce   bool       `mapstructure:"announce"`
	Rate       RateConfig `mapstructure:"rate"`
	SendBuffer int        `mapstructure:"send_buffer"`
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL string
	Name      string
	RoomID    string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("path", "/ws")
	v.SetDefault("audit_db", "")
	v.SetDefault("announce", false)
	v.SetDefault("rate.limit", 60)
	v.SetDefault("rate.window", "1s")
	v.SetDefault("send_buffer", 256)

	v.SetEnvPrefix("SKETCHROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadServerConfig merges defaults, an optional sketchroom.yaml and
// SKETCHROOM_* environment variables. An explicit configFile must exist.
func LoadServerConfig(configFile string) (ServerConfig, error) {
	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sketchroom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "sketchroom"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return ServerConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Path = NormalizeJoinPath(cfg.Path)
	if cfg.AuditDB == autoAuditDB {
		cfg.AuditDB = DefaultAuditDBPath()
	}
	return cfg, nil
}

// DefaultAuditDBPath returns a per-user data path for the audit journal.
func DefaultAuditDBPath() string {
	if env := os.Getenv("SKETCHROOM_DATA_DIR"); env != "" {
		return filepath.Join(env, "audit.db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sketchroom", "audit.db")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "SketchRoom", "audit.db")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "SketchRoom", "audit.db")
		}
		return filepath.Join(home, ".local", "share", "sketchroom", "audit.db")
	}
	return filepath.Join(".", ".sketchroom", "audit.db")
}

// NormalizeJoinPath guarantees the websocket path starts with '/' and
// falls back to /ws when empty.
func NormalizeJoinPath(path string) string {
	if path == "" {
		return "/ws"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
