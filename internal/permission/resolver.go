// Package permission answers whether a principal may perform a capability.
//
// The structural capability table is a Rego policy evaluated in-process by OPA. Settings
// overrides are read from an injected snapshot source and can only grant capabilities to
// AUTHOR and MODERATOR tiers. Any evaluation failure resolves to false.
package permission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	settingsdomain "community-cms/backend/internal/settings/domain"
	userdomain "community-cms/backend/internal/user/domain"
)

// OverridesSource supplies the current permission override snapshot. Implementations must not
// fail; an unreadable store yields the conservative snapshot.
type OverridesSource interface {
	PermissionOverrides(ctx context.Context) settingsdomain.PermissionOverrides
}

// Resolver evaluates capabilities for principals.
type Resolver struct {
	overrides OverridesSource
	query     rego.PreparedEvalQuery
	logger    *slog.Logger
}

// NewResolver compiles the capability policy once and returns a Resolver.
// overrides may be nil, in which case every override is treated as disabled.
func NewResolver(ctx context.Context, overrides OverridesSource, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": capabilityPolicy})
	if err != nil {
		return nil, fmt.Errorf("compile %s policy: %w", policyPackage, err)
	}
	q, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare %s policy: %w", policyPackage, err)
	}
	return &Resolver{overrides: overrides, query: q, logger: logger}, nil
}

// HasPermission reports whether principal may perform capability. Unknown capabilities and
// nil principals are always denied.
func (r *Resolver) HasPermission(ctx context.Context, principal *userdomain.Principal, capability Capability) bool {
	if principal == nil || principal.User == nil || !capability.Known() {
		return false
	}
	return r.eval(ctx, r.input(principal, capability, r.snapshot(ctx)))
}

// Capabilities returns every capability principal holds, in definition order.
func (r *Resolver) Capabilities(ctx context.Context, principal *userdomain.Principal) []Capability {
	if principal == nil || principal.User == nil {
		return nil
	}
	overrides := r.snapshot(ctx)
	var out []Capability
	for _, c := range allCapabilities {
		if r.eval(ctx, r.input(principal, c, overrides)) {
			out = append(out, c)
		}
	}
	return out
}

// HealthCheck evaluates the prepared policy against a fixed input.
// It does not read settings. Returns nil on success.
func (r *Resolver) HealthCheck(ctx context.Context) error {
	input := map[string]interface{}{
		"role":             string(userdomain.RoleAdmin),
		"board_authorized": false,
		"capability":       string(ManageUsers),
		"overrides":        map[string]interface{}{},
	}
	rs, err := r.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("eval %s policy: %w", policyPackage, err)
	}
	if !rs.Allowed() {
		return fmt.Errorf("%s policy denied admin", policyPackage)
	}
	return nil
}

func (r *Resolver) snapshot(ctx context.Context) settingsdomain.PermissionOverrides {
	if r.overrides == nil {
		return settingsdomain.Conservative()
	}
	return r.overrides.PermissionOverrides(ctx)
}

func (r *Resolver) input(principal *userdomain.Principal, capability Capability, overrides settingsdomain.PermissionOverrides) map[string]interface{} {
	o := make(map[string]interface{}, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	return map[string]interface{}{
		"role":             string(principal.User.Role),
		"board_authorized": principal.IsBoardAuthorized(),
		"capability":       string(capability),
		"overrides":        o,
	}
}

func (r *Resolver) eval(ctx context.Context, input map[string]interface{}) bool {
	rs, err := r.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		r.logger.ErrorContext(ctx, "permission policy evaluation failed", "capability", input["capability"], "error", err)
		return false
	}
	return rs.Allowed()
}
