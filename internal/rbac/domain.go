// Package rbac decides whether an authenticated principal may perform a
// statically declared (action, module, submodule) operation. Roles expand into
// permission triples through the role_permissions join; the resolver is a pure
// read-only check over that graph.
package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPrincipalNotFound indicates an external identity with no local mapping.
// The resolver folds it into a deny; it is not an infrastructure fault.
var ErrPrincipalNotFound = errors.New("rbac: principal not found")

// PrincipalRef identifies the actor being authorized, either by local account
// id or by the identity provider's external id.
type PrincipalRef struct {
	localID    int64
	externalID string
}

// LocalPrincipal references a principal by local account id.
func LocalPrincipal(id int64) PrincipalRef {
	return PrincipalRef{localID: id}
}

// ExternalPrincipal references a principal by external identity string.
func ExternalPrincipal(id string) PrincipalRef {
	return PrincipalRef{externalID: id}
}

// IsZero reports whether the reference carries no identity at all.
func (p PrincipalRef) IsZero() bool {
	return p.localID <= 0 && p.externalID == ""
}

// Requirement declares what a protected operation demands: an allow-list of
// role names plus a permission triple. It is route configuration, not user
// input; Action and Module must be non-empty. An empty SubModule means the
// operation has no submodule and only matches permissions stored without one.
type Requirement struct {
	AllowedRoles []string
	Action       string
	Module       string
	SubModule    string
}

// Validate rejects malformed route declarations early.
func (r Requirement) Validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return fmt.Errorf("rbac: requirement action required")
	}
	if strings.TrimSpace(r.Module) == "" {
		return fmt.Errorf("rbac: requirement module required")
	}
	if len(r.AllowedRoles) == 0 {
		return fmt.Errorf("rbac: requirement allowed roles required")
	}
	return nil
}

// DenyReason explains a negative decision. Callers log it; the external
// response stays a uniform forbidden regardless of reason.
type DenyReason string

const (
	ReasonNoPrincipal          DenyReason = "no_principal"
	ReasonNoRoles              DenyReason = "no_roles_assigned"
	ReasonRoleNotAllowed       DenyReason = "role_not_allowed"
	ReasonPermissionNotGranted DenyReason = "permission_not_granted"
)

// Decision is the resolver outcome. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// PermissionTriple projects a stored permission to its comparable names.
// SubModule is empty when the permission has no submodule.
type PermissionTriple struct {
	Action    string `json:"action"`
	Module    string `json:"module"`
	SubModule string `json:"sub_module"`
}
