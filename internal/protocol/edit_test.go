package protocol

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"sketchroom/internal/oplog"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		req  EditRequest
		want Disposition
	}{
		{"draw", EditRequest{Kind: oplog.TypeDraw}, Commit},
		{"shape", EditRequest{Kind: oplog.TypeShape}, Commit},
		{"text", EditRequest{Kind: oplog.TypeText}, Commit},
		{"image", EditRequest{Kind: oplog.TypeImage}, Commit},
		{"segment", EditRequest{Kind: oplog.TypeDrawIncremental, Data: map[string]any{"final": false}}, Relay},
		{"segment without flag", EditRequest{Kind: oplog.TypeDrawIncremental}, Relay},
		{"final segment", EditRequest{Kind: oplog.TypeDrawIncremental, Data: map[string]any{"final": true}}, Commit},
		{"move", EditRequest{Kind: oplog.TypeMove, Data: map[string]any{"targetId": "a"}}, Mutate},
		{"resize without target", EditRequest{Kind: oplog.TypeResize}, Drop},
		{"clear", EditRequest{Kind: oplog.TypeClear}, ClearOwn},
		{"preview", EditRequest{Kind: oplog.TypeShapePreview}, Drop},
		{"unknown", EditRequest{Kind: "laser"}, Drop},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Classify(tc.req), tc.want)
		})
	}
}

func TestCommitType(t *testing.T) {
	assert.Equal(t, CommitType(oplog.TypeDrawIncremental), oplog.TypeDraw)
	assert.Equal(t, CommitType(oplog.TypeText), oplog.TypeText)
}

func TestSplitTempID(t *testing.T) {
	data := map[string]any{"tempId": "tmp-1", "x": 1.0}
	tempID, rest := SplitTempID(data)
	assert.Equal(t, tempID, "tmp-1")
	_, has := rest["tempId"]
	assert.Equal(t, has, false)
	assert.Equal(t, rest["x"], 1.0)
	// the input is left alone
	assert.Equal(t, data["tempId"], "tmp-1")
}

func TestEnvelopeRoundTrip(t *testing.T) {
	frame, err := Encode(TypeUndoUpdate, UndoUpdate{OperationID: "a", Undone: true, By: "u1"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	env, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	assert.Equal(t, env.Type, TypeUndoUpdate)
	var update UndoUpdate
	if err := env.Bind(&update); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	assert.Equal(t, update, UndoUpdate{OperationID: "a", Undone: true, By: "u1"})
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	for _, frame := range []string{`not json`, `{}`, `{"payload":{}}`} {
		_, err := Decode([]byte(frame))
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", frame, err)
		}
	}

	env, err := Decode([]byte(`{"type":"edit","payload":"oops"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var req EditRequest
	if err := env.Bind(&req); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed from Bind, got %v", err)
	}
}

func TestBindWithoutPayload(t *testing.T) {
	env, err := Decode([]byte(`{"type":"undo-request"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var target TargetRequest
	if err := env.Bind(&target); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	assert.Equal(t, target.UserID, "")
}
