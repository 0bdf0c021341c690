package rbac

import "strings"

// normRole lowercases a role name for the allow-list gate. Role matching is
// case-insensitive only.
func normRole(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normPart canonicalizes one component of a permission triple: lowercase,
// underscores to spaces, trimmed. Administrative data mixes snake_case
// identifiers with human-readable names; comparison must not care.
//
// Note the asymmetry with normRole (roles keep their underscores). This
// mirrors the reference behavior exactly; changing either rule silently
// changes authorization outcomes. Flagged for product review.
func normPart(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.TrimSpace(s)
}

// normTriple canonicalizes a whole triple. An empty submodule stays empty,
// remaining its own comparable value rather than a wildcard.
func normTriple(t PermissionTriple) PermissionTriple {
	return PermissionTriple{
		Action:    normPart(t.Action),
		Module:    normPart(t.Module),
		SubModule: normPart(t.SubModule),
	}
}
