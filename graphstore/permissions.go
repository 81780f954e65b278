package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Known capabilities.
const (
	CapabilityRemoteOCR = "remote_ocr"
	CapabilityRemoteLLM = "remote_llm"
	CapabilityReprocess = "reprocess"
)

// PermissionDecision is the outcome of a capability check.
type PermissionDecision struct {
	OK      bool   `json:"ok"`
	Role    string `json:"role"`
	Message string `json:"message,omitempty"`
}

// defaultGrants seeds the permission table on first Init. Admins hold every
// capability; members may use remote services; viewers may not trigger
// anything that leaves the workspace.
var defaultGrants = []struct {
	role       string
	capability string
	allowed    bool
}{
	{"admin", CapabilityRemoteOCR, true},
	{"admin", CapabilityRemoteLLM, true},
	{"admin", CapabilityReprocess, true},
	{"member", CapabilityRemoteOCR, true},
	{"member", CapabilityRemoteLLM, true},
	{"member", CapabilityReprocess, true},
	{"viewer", CapabilityRemoteOCR, false},
	{"viewer", CapabilityRemoteLLM, false},
	{"viewer", CapabilityReprocess, false},
}

func (s *Store) seedPermissions(ctx context.Context) error {
	for _, g := range defaultGrants {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO permissions (role, capability, allowed)
			VALUES (?,?,?)
			ON CONFLICT(role, capability) DO NOTHING`,
			g.role, g.capability, boolInt(g.allowed),
		); err != nil {
			return fmt.Errorf("graphstore: seed permission %s/%s: %w", g.role, g.capability, err)
		}
	}
	return nil
}

// EvaluatePermission checks whether the store's configured role holds a
// capability. Unknown role/capability pairs deny.
func (s *Store) EvaluatePermission(ctx context.Context, capability string) (PermissionDecision, error) {
	var allowed int
	err := s.db.QueryRowContext(ctx,
		`SELECT allowed FROM permissions WHERE role = ? AND capability = ?`,
		s.opts.Role, capability,
	).Scan(&allowed)
	if errors.Is(err, sql.ErrNoRows) {
		return PermissionDecision{
			OK:      false,
			Role:    s.opts.Role,
			Message: fmt.Sprintf("no grant for capability %q", capability),
		}, nil
	}
	if err != nil {
		return PermissionDecision{}, fmt.Errorf("graphstore: evaluate permission: %w", err)
	}
	if allowed == 0 {
		return PermissionDecision{
			OK:      false,
			Role:    s.opts.Role,
			Message: fmt.Sprintf("role %q is not allowed to use %q", s.opts.Role, capability),
		}, nil
	}
	return PermissionDecision{OK: true, Role: s.opts.Role}, nil
}

// GrantPermission sets one role/capability pair, overriding the default.
func (s *Store) GrantPermission(ctx context.Context, role, capability string, allowed bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permissions (role, capability, allowed)
		VALUES (?,?,?)
		ON CONFLICT(role, capability) DO UPDATE SET allowed = excluded.allowed`,
		role, capability, boolInt(allowed),
	)
	if err != nil {
		return fmt.Errorf("graphstore: grant permission %s/%s: %w", role, capability, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
