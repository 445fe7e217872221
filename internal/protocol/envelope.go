package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned for frames that cannot be understood. Callers drop
// such frames instead of failing the connection.
var ErrMalformed = errors.New("malformed event")

// Envelope is the outer shape of every frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals payload under eventType into a single frame.
func Encode(eventType string, payload any) ([]byte, error) {
	env := Envelope{Type: eventType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", eventType, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode parses a frame. A frame without a type is malformed.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env, nil
}

// Bind unmarshals the payload into out. An absent payload leaves out untouched.
func (env Envelope) Bind(out any) error {
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
	}
	return nil
}
