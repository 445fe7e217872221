package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	intrnl "sketchroom/internal"
	"sketchroom/internal/storage"
)

// ServerHandle represents a running HTTP/WebSocket server instance.
type ServerHandle struct {
	addr      string
	server    *http.Server
	board     *intrnl.Server
	store     *storage.Store
	announcer *Announcer
	done      chan struct{}
	err       error
}

// Addr returns the actual listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Stop triggers a graceful shutdown with the provided context deadline.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil || h.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return h.server.Shutdown(ctx)
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer opens the optional audit journal, builds the router and starts
// serving in the background. Call Stop/Wait to manage its lifecycle.
func RunServer(ctx context.Context, cfg ServerConfig) (*ServerHandle, error) {
	cfg.Path = NormalizeJoinPath(cfg.Path)

	var store *storage.Store
	if cfg.AuditDB != "" {
		var err error
		if store, err = openAuditStore(cfg.AuditDB); err != nil {
			return nil, err
		}
	}

	opts := intrnl.Options{
		RateLimit:  cfg.Rate.Limit,
		RateWindow: cfg.Rate.Window,
		SendBuffer: cfg.SendBuffer,
	}
	if store != nil {
		opts.Journal = store
	}
	board := intrnl.NewServer(opts)

	if !glog.V(1) {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           board.Router(cfg.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		board.Close()
		closeStore(store)
		return nil, fmt.Errorf("listen: %w", err)
	}

	handle := &ServerHandle{
		addr:   listener.Addr().String(),
		server: httpServer,
		board:  board,
		store:  store,
		done:   make(chan struct{}),
	}

	if cfg.Announce {
		port := listener.Addr().(*net.TCPAddr).Port
		announcer, err := Announce(port, cfg.Path)
		if err != nil {
			glog.Warningf("[app] lan announce: %v", err)
		} else {
			handle.announcer = announcer
			glog.Infof("[app] announcing %s on port %d", ServiceType, port)
		}
	}

	go func() {
		if ctx == nil {
			return
		}
		select {
		case <-ctx.Done():
		case <-handle.done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Warningf("[app] server shutdown error: %v", err)
		}
	}()

	go handle.serve(listener)

	return handle, nil
}

func openAuditStore(path string) (*storage.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	store, err := storage.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func closeStore(store *storage.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		glog.Warningf("[app] store close error: %v", err)
	}
}

// serve runs until the HTTP server stops, then releases the announcer, the
// audit writer and the store in that order.
func (h *ServerHandle) serve(listener net.Listener) {
	defer close(h.done)
	err := h.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if shutdownErr := h.announcer.Shutdown(); shutdownErr != nil {
		glog.Warningf("[app] announcer shutdown error: %v", shutdownErr)
	}
	h.board.Close()
	closeStore(h.store)
	h.err = err
}
