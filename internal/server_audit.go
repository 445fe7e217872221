package internal

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"sketchroom/internal/storage"
)

// AdminJournal persists admin actions. *storage.Store satisfies it.
type AdminJournal interface {
	RecordAdminAction(ctx context.Context, action storage.AdminAction) (int64, error)
}

const (
	auditQueueSize    = 128
	auditWriteTimeout = 5 * time.Second
)

// auditWriter moves journal writes off the room actors onto one goroutine.
// A nil journal turns every call into a no-op.
type auditWriter struct {
	journal AdminJournal
	queue   chan storage.AdminAction
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	now     func() time.Time
}

func newAuditWriter(journal AdminJournal) *auditWriter {
	writer := &auditWriter{
		journal: journal,
		queue:   make(chan storage.AdminAction, auditQueueSize),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	if journal == nil {
		close(writer.done)
		return writer
	}
	go writer.run()
	return writer
}

func (w *auditWriter) run() {
	defer close(w.done)
	for action := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if _, err := w.journal.RecordAdminAction(ctx, action); err != nil {
			glog.Warningf("[audit] record %s in %s: %v", action.Action, action.RoomID, err)
		}
		cancel()
	}
}

// record queues an action without blocking. When the queue is full the
// action is dropped and logged.
func (w *auditWriter) record(roomID, actorID, action, target string) {
	if w.journal == nil {
		return
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	entry := storage.AdminAction{
		RoomID:    roomID,
		ActorID:   actorID,
		Action:    action,
		Target:    target,
		CreatedAt: w.now(),
	}
	select {
	case w.queue <- entry:
	default:
		glog.Warningf("[audit] queue full, dropped %s in %s", action, roomID)
	}
}

// close flushes pending writes and stops the writer. Later records are
// ignored.
func (w *auditWriter) close() {
	w.mu.Lock()
	if !w.closed && w.journal != nil {
		close(w.queue)
	}
	w.closed = true
	w.mu.Unlock()
	<-w.done
}
