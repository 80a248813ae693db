package correlation

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	StrategySignature = "signature"
	StrategyToolUseID = "tool_use_id"
)

// Signature fields carry a precomputed ToolSignature; empty means compute it.
type ToolUse struct {
	ID        string
	Name      string
	Input     map[string]any
	Signature string
}

type PermissionRequest struct {
	RequestID string
	ToolName  string
	Input     map[string]any
	// ToolUseID is only populated by backends that pass the originating id through.
	ToolUseID string
	Signature string
}

// Strategy resolves a permission request to the tool-use id it gates.
type Strategy interface {
	ObserveToolUse(use ToolUse)
	// Resolve returns the tool-use id for req. A successful resolution consumes
	// the correlation so it cannot be handed to a later request.
	Resolve(req PermissionRequest) (string, bool)
	// Bind registers toolUseID as the target for requests shaped like req.
	Bind(req PermissionRequest, toolUseID string)
	Reset()
}

func NewStrategy(name string, logger *slog.Logger) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategySignature:
		return NewSignatureStrategy(logger), nil
	case StrategyToolUseID:
		return NewToolUseIDStrategy(NewSignatureStrategy(logger)), nil
	default:
		return nil, fmt.Errorf("unknown correlation strategy %q", name)
	}
}

// SignatureStrategy correlates by tool name plus parameters. Two in-flight
// calls with identical parameters collide; the most recent registration wins.
type SignatureStrategy struct {
	logger      *slog.Logger
	bySignature map[string]string
}

func NewSignatureStrategy(logger *slog.Logger) *SignatureStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignatureStrategy{
		logger:      logger.With("module", "correlation"),
		bySignature: map[string]string{},
	}
}

func (s *SignatureStrategy) ObserveToolUse(use ToolUse) {
	sig := s.signature(use.Signature, use.Name, use.Input)
	s.bySignature[sig] = use.ID
}

func (s *SignatureStrategy) Resolve(req PermissionRequest) (string, bool) {
	sig := s.signature(req.Signature, req.ToolName, req.Input)
	id, ok := s.bySignature[sig]
	if !ok {
		return "", false
	}
	delete(s.bySignature, sig)
	return id, true
}

func (s *SignatureStrategy) Bind(req PermissionRequest, toolUseID string) {
	s.bySignature[s.signature(req.Signature, req.ToolName, req.Input)] = toolUseID
}

func (s *SignatureStrategy) Reset() {
	s.bySignature = map[string]string{}
}

func (s *SignatureStrategy) signature(precomputed, name string, input map[string]any) string {
	if precomputed != "" {
		return precomputed
	}
	sig, err := ToolSignature(name, input)
	if err != nil {
		s.logger.Warn("tool signature degraded", "err", err, "signature", sig)
	}
	return sig
}

// ToolUseIDStrategy trusts an explicit tool_use_id on the permission request
// and falls back to another strategy when the id is absent or unknown.
type ToolUseIDStrategy struct {
	fallback Strategy
	known    map[string]struct{}
}

func NewToolUseIDStrategy(fallback Strategy) *ToolUseIDStrategy {
	return &ToolUseIDStrategy{fallback: fallback, known: map[string]struct{}{}}
}

func (s *ToolUseIDStrategy) ObserveToolUse(use ToolUse) {
	s.known[use.ID] = struct{}{}
	if s.fallback != nil {
		s.fallback.ObserveToolUse(use)
	}
}

func (s *ToolUseIDStrategy) Resolve(req PermissionRequest) (string, bool) {
	id := strings.TrimSpace(req.ToolUseID)
	if _, ok := s.known[id]; ok && id != "" {
		if s.fallback != nil {
			// drop the signature entry so a later request cannot reuse it
			_, _ = s.fallback.Resolve(req)
		}
		return id, true
	}
	if s.fallback == nil {
		return "", false
	}
	return s.fallback.Resolve(req)
}

func (s *ToolUseIDStrategy) Bind(req PermissionRequest, toolUseID string) {
	s.known[toolUseID] = struct{}{}
	if s.fallback != nil {
		s.fallback.Bind(req, toolUseID)
	}
}

func (s *ToolUseIDStrategy) Reset() {
	s.known = map[string]struct{}{}
	if s.fallback != nil {
		s.fallback.Reset()
	}
}
