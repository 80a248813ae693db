// Package correlation links permission requests, which carry no tool-use id,
// back to the tool invocation that triggered them.
package correlation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// UnknownSignature is returned when the tool name is missing.
const UnknownSignature = "unknown:{}"

var ErrMissingToolName = errors.New("tool name is required for signature")

// ToolSignature builds "<toolName>:<params>" where params is the input encoded
// as JSON with object keys sorted at every level. A nil input encodes as {}.
// A blank tool name yields UnknownSignature together with ErrMissingToolName so
// the caller can report it; the returned signature is always usable.
func ToolSignature(toolName string, input map[string]any) (string, error) {
	name := strings.TrimSpace(toolName)
	if name == "" {
		return UnknownSignature, ErrMissingToolName
	}
	return name + ":" + encodeParams(input), nil
}

func encodeParams(input map[string]any) string {
	if len(input) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding/json writes map keys in sorted order.
	if err := enc.Encode(input); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
