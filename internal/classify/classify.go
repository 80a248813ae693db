// Package classify decides which backend messages are shown as chat entries.
package classify

import (
	"strings"

	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
)

const (
	InterruptMarker        = "[Request interrupted by user]"
	InterruptToolUseMarker = "[Request interrupted by user for tool use]"
)

// ShouldDisplayMessage reports whether msg is rendered as its own chat entry.
// Tool uses, tool results and permission traffic are folded into tool-call
// cards; handshake and completion markers are internal.
func ShouldDisplayMessage(msg protocol.BackendMessage) bool {
	subtype := msg.EffectiveSubtype()
	switch msg.Type {
	case protocol.TypeSystem:
		return subtype != protocol.SubtypeInit
	case protocol.TypeResult:
		return false
	case protocol.TypePermissionRequest, protocol.TypePermissionResponse:
		return false
	case protocol.TypeAssistant:
		return !msg.HasToolUses()
	case protocol.TypeUser:
		if msg.Metadata.IsLocalCommandResponse {
			return true
		}
		if msg.HasToolResults() {
			return false
		}
		if subtype == protocol.SubtypeInterrupt || IsInterruptMarker(msg.ContentText()) {
			return false
		}
		return true
	default:
		return true
	}
}

func IsInterruptMarker(content string) bool {
	c := strings.TrimSpace(content)
	return c == InterruptMarker || c == InterruptToolUseMarker
}
