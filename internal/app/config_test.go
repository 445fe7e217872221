package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadServerConfig("")
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	assert.Equal(t, cfg.Addr, ":8080")
	assert.Equal(t, cfg.Path, "/ws")
	assert.Equal(t, cfg.AuditDB, "")
	assert.Equal(t, cfg.Announce, false)
	assert.Equal(t, cfg.Rate.Limit, 60)
	assert.Equal(t, cfg.Rate.Window, time.Second)
	assert.Equal(t, cfg.SendBuffer, 256)
}

func TestLoadServerConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "board.yaml")
	contents := "addr: 127.0.0.1:9000\npath: draw\nannounce: true\nrate:\n  limit: 10\n  window: 2s\n"
	if err := os.WriteFile(file, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SKETCHROOM_ADDR", "127.0.0.1:9100")
	t.Setenv("SKETCHROOM_RATE_LIMIT", "-1")

	cfg, err := LoadServerConfig(file)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	assert.Equal(t, cfg.Addr, "127.0.0.1:9100")
	assert.Equal(t, cfg.Path, "/draw")
	assert.Equal(t, cfg.Announce, true)
	assert.Equal(t, cfg.Rate.Limit, -1)
	assert.Equal(t, cfg.Rate.Window, 2*time.Second)
}

func TestLoadServerConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestAutoAuditDB(t *testing.T) {
	data := t.TempDir()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SKETCHROOM_DATA_DIR", data)
	t.Setenv("SKETCHROOM_AUDIT_DB", "auto")

	cfg, err := LoadServerConfig("")
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	assert.Equal(t, cfg.AuditDB, filepath.Join(data, "audit.db"))
}

func TestNormalizeJoinPath(t *testing.T) {
	assert.Equal(t, NormalizeJoinPath(""), "/ws")
	assert.Equal(t, NormalizeJoinPath("board"), "/board")
	assert.Equal(t, NormalizeJoinPath("/ws"), "/ws")
}
