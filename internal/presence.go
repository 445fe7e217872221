package internal

import "sketchroom/internal/protocol"

// previewTracker remembers which transient previews each user has open so
// they can be withdrawn when the user goes away. It belongs to a single room
// actor and is not locked.
type previewTracker struct {
	open map[string]map[string]bool
}

func newPreviewTracker() *previewTracker {
	return &previewTracker{open: make(map[string]map[string]bool)}
}

// Observe records a relayed preview event. A phase of "end" closes it.
func (p *previewTracker) Observe(userID, eventType, phase string) {
	if phase == protocol.PhaseEnd {
		kinds := p.open[userID]
		delete(kinds, eventType)
		if len(kinds) == 0 {
			delete(p.open, userID)
		}
		return
	}
	kinds, ok := p.open[userID]
	if !ok {
		kinds = make(map[string]bool)
		p.open[userID] = kinds
	}
	kinds[eventType] = true
}

// Withdraw forgets userID and returns the preview types still open for them,
// in a stable order.
func (p *previewTracker) Withdraw(userID string) []string {
	kinds := p.open[userID]
	delete(p.open, userID)
	var out []string
	for _, eventType := range []string{protocol.TypeShapePreview, protocol.TypeTextPreview, protocol.TypeMovePreview} {
		if kinds[eventType] {
			out = append(out, eventType)
		}
	}
	return out
}

func (p *previewTracker) Open(userID string) int {
	return len(p.open[userID])
}
