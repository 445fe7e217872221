package protocol

import "sketchroom/internal/oplog"

// State is the lifecycle of a locally known entry.
type State int

const (
	// Pending entries exist only locally under a client-chosen tempId.
	Pending State = iota
	// Confirmed entries carry the server-assigned id.
	Confirmed
)

func (s State) String() string {
	if s == Pending {
		return "pending"
	}
	return "committed"
}

// Entry is one operation in a client's local view.
type Entry struct {
	State     State
	TempID    string
	Operation oplog.Operation
}

// Key is the id the entry is currently addressable by.
func (e *Entry) Key() string {
	if e.State == Pending {
		return e.TempID
	}
	return e.Operation.ID
}

// Outcome reports what Confirm did with an incoming operation.
type Outcome int

const (
	Appended Outcome = iota
	Replaced
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Replaced:
		return "replaced"
	case Duplicate:
		return "duplicate"
	}
	return "appended"
}

// Reconciler keeps the ordered local view of a room's history and turns
// optimistic placeholders into confirmed entries. It is not safe for
// concurrent use.
type Reconciler struct {
	entries   []*Entry
	pending   map[string]*Entry
	committed map[string]*Entry
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		pending:   make(map[string]*Entry),
		committed: make(map[string]*Entry),
	}
}

// Load replaces the local view with a server snapshot. Outstanding
// placeholders are dropped; a fresh snapshot supersedes them.
func (r *Reconciler) Load(ops []oplog.Operation) {
	r.entries = make([]*Entry, 0, len(ops))
	r.pending = make(map[string]*Entry)
	r.committed = make(map[string]*Entry, len(ops))
	for _, op := range ops {
		if _, dup := r.committed[op.ID]; dup {
			continue
		}
		entry := &Entry{State: Confirmed, Operation: op.Clone()}
		r.entries = append(r.entries, entry)
		r.committed[op.ID] = entry
	}
}

// AddPending records an optimistic placeholder under tempID. A second call
// with the same tempID returns the existing placeholder.
func (r *Reconciler) AddPending(tempID string, draft oplog.Operation) *Entry {
	if entry, ok := r.pending[tempID]; ok {
		return entry
	}
	draft = draft.Clone()
	draft.ID = ""
	entry := &Entry{State: Pending, TempID: tempID, Operation: draft}
	r.entries = append(r.entries, entry)
	r.pending[tempID] = entry
	return entry
}

// Confirm folds a server broadcast into the view. A server id already seen
// is a duplicate; a tempID matching a placeholder replaces that placeholder's
// identity in place; anything else is appended.
func (r *Reconciler) Confirm(op oplog.Operation, tempID string) (*Entry, Outcome) {
	if entry, ok := r.committed[op.ID]; ok {
		return entry, Duplicate
	}
	if tempID != "" {
		if entry, ok := r.pending[tempID]; ok {
			delete(r.pending, tempID)
			entry.State = Confirmed
			entry.Operation = op.Clone()
			r.committed[op.ID] = entry
			return entry, Replaced
		}
	}
	entry := &Entry{State: Confirmed, TempID: tempID, Operation: op.Clone()}
	r.entries = append(r.entries, entry)
	r.committed[op.ID] = entry
	return entry, Appended
}

// Lookup finds an entry by server id or, failing that, by pending tempID.
func (r *Reconciler) Lookup(key string) *Entry {
	if entry, ok := r.committed[key]; ok {
		return entry
	}
	return r.pending[key]
}

// SetUndone mirrors an undo/redo broadcast.
func (r *Reconciler) SetUndone(id string, undone bool) bool {
	entry, ok := r.committed[id]
	if !ok {
		return false
	}
	entry.Operation.Undone = undone
	return true
}

// ApplyPositional mirrors a move/resize broadcast onto the target entry.
func (r *Reconciler) ApplyPositional(key string, kind oplog.Type, fields map[string]any) bool {
	entry := r.Lookup(key)
	if entry == nil {
		return false
	}
	if entry.Operation.Payload == nil {
		entry.Operation.Payload = map[string]any{}
	}
	return oplog.ApplyFields(entry.Operation.Payload, kind, fields)
}

// ClearAll empties the committed history. Placeholders that have not been
// confirmed yet survive; their confirmation will arrive after the clear.
func (r *Reconciler) ClearAll() {
	kept := r.entries[:0]
	for _, entry := range r.entries {
		if entry.State == Pending {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
	r.committed = make(map[string]*Entry)
}

// Entries returns every local entry in order.
func (r *Reconciler) Entries() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Visible returns the entries a renderer should draw, in order.
func (r *Reconciler) Visible() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		if !entry.Operation.Undone {
			out = append(out, entry)
		}
	}
	return out
}

func (r *Reconciler) PendingCount() int {
	return len(r.pending)
}

func (r *Reconciler) Len() int {
	return len(r.entries)
}
