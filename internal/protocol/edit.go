package protocol

import "sketchroom/internal/oplog"

// Disposition says what the server does with an incoming edit.
type Disposition int

const (
	// Drop ignores the edit.
	Drop Disposition = iota
	// Commit appends the edit to the room's history.
	Commit
	// Relay broadcasts an in-progress stroke segment without storing it.
	Relay
	// Mutate applies a move or resize to an existing entry.
	Mutate
	// ClearOwn flags all of the sender's entries as undone.
	ClearOwn
)

// Classify applies the commit rule to an edit.
func Classify(req EditRequest) Disposition {
	switch {
	case req.Kind.Durable():
		return Commit
	case req.Kind == oplog.TypeDrawIncremental:
		if IsFinal(req.Data) {
			return Commit
		}
		return Relay
	case req.Kind.Positional():
		if TargetID(req.Data) == "" {
			return Drop
		}
		return Mutate
	case req.Kind == oplog.TypeClear:
		return ClearOwn
	}
	return Drop
}

// CommitType is the type an edit is stored under. A final incremental segment
// carries the whole stroke and is stored as a plain draw.
func CommitType(kind oplog.Type) oplog.Type {
	if kind == oplog.TypeDrawIncremental {
		return oplog.TypeDraw
	}
	return kind
}

// IsFinal reports whether an incremental segment completes its stroke.
func IsFinal(data map[string]any) bool {
	final, _ := data["final"].(bool)
	return final
}

// TempID returns the client correlation token carried in data, if any.
func TempID(data map[string]any) string {
	tempID, _ := data["tempId"].(string)
	return tempID
}

// TargetID returns the id a positional edit targets.
func TargetID(data map[string]any) string {
	targetID, _ := data["targetId"].(string)
	return targetID
}

// SplitTempID returns the correlation token and a copy of data without it.
func SplitTempID(data map[string]any) (string, map[string]any) {
	out := make(map[string]any, len(data))
	for key, value := range data {
		if key == "tempId" {
			continue
		}
		out[key] = value
	}
	return TempID(data), out
}
