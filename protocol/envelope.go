// Package protocol defines the messages exchanged between groups and TAs and
// the topics they are published on.
//
// Every message is an Envelope:
//
//	{"command": "request_help", "header": "team_1", "body": {...}}
//
// The header is the sender's slug. Receivers drop envelopes carrying their
// own slug, since broadcasts are delivered to the sender as well.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed      = errors.New("malformed envelope")
	ErrUnknownCommand = errors.New("unknown command")
)

// Envelope is the unit exchanged over the bus.
type Envelope struct {
	Command Command         `json:"command"`
	Header  string          `json:"header"`
	Body    json.RawMessage `json:"body"`
}

// Encode wraps body in an envelope and marshals it.
func Encode(cmd Command, header string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", cmd, err)
	}
	return json.Marshal(&Envelope{Command: cmd, Header: header, Body: raw})
}

// Decode parses payload into an envelope. Payloads that are not JSON objects
// yield ErrMalformed and commands outside the protocol yield ErrUnknownCommand;
// in the latter case the decoded envelope is still returned.
func Decode(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !env.Command.Valid() {
		return &env, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Command)
	}
	return &env, nil
}

// Bind unmarshals the envelope body into v.
func (e *Envelope) Bind(v any) error {
	if len(e.Body) == 0 {
		return fmt.Errorf("%w: %s has no body", ErrMalformed, e.Command)
	}
	if err := json.Unmarshal(e.Body, v); err != nil {
		return fmt.Errorf("%w: %s body: %v", ErrMalformed, e.Command, err)
	}
	return nil
}
