package internal

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, time.Second)
	limiter.now = func() time.Time { return now }

	assert.Equal(t, limiter.Allow("c1"), true)
	assert.Equal(t, limiter.Allow("c1"), true)
	assert.Equal(t, limiter.Allow("c1"), false)
	assert.Equal(t, limiter.Allow("c2"), true)

	now = now.Add(1500 * time.Millisecond)
	assert.Equal(t, limiter.Allow("c1"), true)

	limiter.Forget("c1")
	assert.Equal(t, limiter.Allow("c1"), true)
	assert.Equal(t, limiter.Allow("c1"), true)
	assert.Equal(t, limiter.Allow("c1"), false)
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(-1, time.Second)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("c1") {
			t.Fatalf("hit %d throttled with limiting disabled", i)
		}
	}
}

func TestPreviewTracker(t *testing.T) {
	tracker := newPreviewTracker()
	tracker.Observe("u1", "text-preview", "")
	tracker.Observe("u1", "shape-preview", "start")
	tracker.Observe("u1", "move-preview", "")
	tracker.Observe("u1", "move-preview", "end")
	assert.Equal(t, tracker.Open("u1"), 2)

	assert.Equal(t, tracker.Withdraw("u1"), []string{"shape-preview", "text-preview"})
	assert.Equal(t, tracker.Open("u1"), 0)
	assert.Equal(t, len(tracker.Withdraw("u1")), 0)
}
