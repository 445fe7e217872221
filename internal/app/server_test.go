package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func startServer(t *testing.T, cfg ServerConfig) *ServerHandle {
	t.Helper()
	handle, err := RunServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("RunServer: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = handle.Stop(ctx)
		_ = handle.Wait()
	})
	return handle
}

func get(t *testing.T, handle *ServerHandle, path string, out any) int {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://%s%s", handle.Addr(), path))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestRunServerServesHealth(t *testing.T) {
	handle := startServer(t, ServerConfig{Addr: "127.0.0.1:0"})

	var health map[string]string
	assert.Equal(t, get(t, handle, "/healthz", &health), http.StatusOK)
	assert.Equal(t, health["status"], "ok")
	assert.Equal(t, get(t, handle, "/rooms/none/audit", nil), http.StatusNotFound)

	if err := handle.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := handle.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestRunServerWithAuditJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "audit.db")
	handle := startServer(t, ServerConfig{Addr: "127.0.0.1:0", AuditDB: dbPath})

	var body struct {
		Actions []json.RawMessage `json:"actions"`
	}
	assert.Equal(t, get(t, handle, "/rooms/board/audit", &body), http.StatusOK)
	assert.Equal(t, len(body.Actions), 0)
	assert.Equal(t, get(t, handle, "/rooms/board/audit?limit=x", nil), http.StatusBadRequest)
}

func TestRunServerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handle, err := RunServer(ctx, ServerConfig{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("RunServer: %v", err)
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- handle.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop after cancel")
	}
}
