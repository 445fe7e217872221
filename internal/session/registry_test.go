package session

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func newTestRegistry() *Registry {
	reg := NewRegistry(nil)
	n := 0
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.newID = func() string {
		n += 1
		return fmt.Sprintf("user-%d", n)
	}
	reg.now = func() time.Time {
		return base.Add(time.Duration(n) * time.Second)
	}
	return reg
}

func names(users []*User) []string {
	out := []string{}
	for _, user := range users {
		out = append(out, user.Name)
	}
	return out
}

func TestFirstJoinerIsAdmin(t *testing.T) {
	reg := newTestRegistry()
	x := reg.Join("r1", "x")
	y := reg.Join("r1", "y")

	assert.Equal(t, x.IsAdmin, true)
	assert.Equal(t, y.IsAdmin, false)
	assert.Equal(t, reg.Room("r1").Admin().ID, x.ID)
	assert.Equal(t, names(reg.ListUsers("r1")), []string{"x", "y"})
	assert.NotEqual(t, y.Color, x.Color)

	// rooms are isolated
	z := reg.Join("r2", "z")
	assert.Equal(t, z.IsAdmin, true)
	assert.Equal(t, reg.Len(), 2)
}

func TestJoinValidation(t *testing.T) {
	reg := newTestRegistry()
	if reg.Join("", "x") != nil {
		t.Fatalf("expected nil user for empty room id")
	}
	anon := reg.Join("r1", "   ")
	assert.Equal(t, anon.Name, "anonymous")

	long := reg.Join("r1", strings.Repeat("é", 50))
	assert.Equal(t, len([]rune(long.Name)), maxNameRunes)
}

func TestAdminSuccessionPicksEarliestJoiner(t *testing.T) {
	reg := newTestRegistry()
	a := reg.Join("r1", "a")
	b := reg.Join("r1", "b")
	c := reg.Join("r1", "c")

	removed, promoted := reg.Leave("r1", a.ID)
	assert.Equal(t, removed.ID, a.ID)
	if promoted == nil {
		t.Fatalf("expected a promoted admin")
	}
	assert.Equal(t, promoted.ID, b.ID)
	assert.Equal(t, b.IsAdmin, true)
	assert.Equal(t, c.IsAdmin, false)
	assert.Equal(t, removed.IsAdmin, false)

	// a non-admin leaving does not move admin
	_, promoted = reg.Leave("r1", c.ID)
	if promoted != nil {
		t.Fatalf("unexpected promotion: %+v", promoted)
	}
	assert.Equal(t, reg.Room("r1").Admin().ID, b.ID)
}

func TestLastLeaveDiscardsRoom(t *testing.T) {
	reg := newTestRegistry()
	a := reg.Join("r1", "a")
	reg.Room("r1").Theme = "dark"

	reg.Leave("r1", a.ID)
	if reg.Room("r1") != nil {
		t.Fatalf("expected room to be discarded")
	}
	assert.Equal(t, len(reg.ListUsers("r1")), 0)

	again := reg.Join("r1", "b")
	assert.Equal(t, again.IsAdmin, true)
	assert.Equal(t, reg.Room("r1").Theme, "")
}

func TestLeaveUnknown(t *testing.T) {
	reg := newTestRegistry()
	removed, promoted := reg.Leave("nope", "nobody")
	if removed != nil || promoted != nil {
		t.Fatalf("expected no-op")
	}
	reg.Join("r1", "a")
	removed, _ = reg.Leave("r1", "nobody")
	if removed != nil {
		t.Fatalf("expected nil for unknown user")
	}
}

func TestTransferAdmin(t *testing.T) {
	reg := newTestRegistry()
	a := reg.Join("r1", "a")
	b := reg.Join("r1", "b")

	if reg.TransferAdmin("r1", b.ID, a.ID) != nil {
		t.Fatalf("non-admin transfer should fail")
	}
	if reg.TransferAdmin("r1", a.ID, "ghost") != nil {
		t.Fatalf("transfer to a missing user should fail")
	}
	if reg.TransferAdmin("r1", a.ID, a.ID) != nil {
		t.Fatalf("transfer to self should fail")
	}

	transfer := reg.TransferAdmin("r1", a.ID, b.ID)
	if transfer == nil {
		t.Fatalf("expected transfer")
	}
	assert.Equal(t, transfer.Old.ID, a.ID)
	assert.Equal(t, transfer.New.ID, b.ID)
	assert.Equal(t, a.IsAdmin, false)
	assert.Equal(t, b.IsAdmin, true)
	assert.Equal(t, reg.Room("r1").Admin().ID, b.ID)

	admins := 0
	for _, user := range reg.ListUsers("r1") {
		if user.IsAdmin {
			admins += 1
		}
	}
	assert.Equal(t, admins, 1)
}

func TestPaletteAssignsInOrder(t *testing.T) {
	reg := newTestRegistry()
	for i := 0; i < len(DefaultColors); i += 1 {
		user := reg.Join("r1", fmt.Sprintf("u%d", i))
		assert.Equal(t, user.Color, DefaultColors[i])
	}

	// a freed color is handed out again before any repeats
	second := reg.ListUsers("r1")[1]
	reg.Leave("r1", second.ID)
	next := reg.Join("r1", "late")
	assert.Equal(t, next.Color, DefaultColors[1])
}

func TestPaletteExhaustionFallsBackToRandom(t *testing.T) {
	palette := NewPalette([]string{"#000", "#111"})
	palette.intn = func(n int) int { return n - 1 }
	room := &Room{users: []*User{{Color: "#000"}, {Color: "#111"}}}

	assert.Equal(t, palette.Assign(room), "#111")
	assert.Equal(t, NewPalette([]string{"#000"}).Assign(nil), "#000")
}
