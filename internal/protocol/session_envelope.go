package protocol

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrMissingSessionID = errors.New("missing session_id")

// SessionEnvelope multiplexes several backend sessions over one upstream stream.
type SessionEnvelope struct {
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

func WrapSessionEnvelope(sessionID string, raw []byte) ([]byte, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	return json.Marshal(SessionEnvelope{SessionID: sessionID, Data: raw})
}

func UnwrapSessionEnvelope(raw []byte) (string, []byte, error) {
	var env SessionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}
	sessionID := strings.TrimSpace(env.SessionID)
	if sessionID == "" {
		return "", nil, ErrMissingSessionID
	}
	return sessionID, env.Data, nil
}
