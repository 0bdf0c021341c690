package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	externalIDs map[string]int64
	userRoles   map[int64][]int64
	roleNames   map[int64]string
	roleTriples map[int64][]PermissionTriple

	resolveErr error
	rolesErr   error
	namesErr   error
	triplesErr error

	tripleCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		externalIDs: make(map[string]int64),
		userRoles:   make(map[int64][]int64),
		roleNames:   make(map[int64]string),
		roleTriples: make(map[int64][]PermissionTriple),
	}
}

func (m *mockStore) ResolveLocalID(_ context.Context, externalID string) (int64, error) {
	if m.resolveErr != nil {
		return 0, m.resolveErr
	}
	id, ok := m.externalIDs[externalID]
	if !ok {
		return 0, ErrPrincipalNotFound
	}
	return id, nil
}

func (m *mockStore) RolesForPrincipal(_ context.Context, principalID int64) ([]int64, error) {
	if m.rolesErr != nil {
		return nil, m.rolesErr
	}
	return m.userRoles[principalID], nil
}

func (m *mockStore) RoleNames(_ context.Context, roleIDs []int64) ([]string, error) {
	if m.namesErr != nil {
		return nil, m.namesErr
	}
	var names []string
	for _, id := range roleIDs {
		if name, ok := m.roleNames[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (m *mockStore) PermissionTriples(_ context.Context, roleIDs []int64) ([]PermissionTriple, error) {
	m.tripleCalls++
	if m.triplesErr != nil {
		return nil, m.triplesErr
	}
	var triples []PermissionTriple
	for _, id := range roleIDs {
		triples = append(triples, m.roleTriples[id]...)
	}
	return triples, nil
}

func adminRequirement() Requirement {
	return Requirement{
		AllowedRoles: []string{"Admin"},
		Action:       "view",
		Module:       "user_management",
		SubModule:    "user",
	}
}

func TestAuthorizeAllow(t *testing.T) {
	store := newMockStore()
	store.userRoles[7] = []int64{1}
	store.roleNames[1] = "Admin"
	store.roleTriples[1] = []PermissionTriple{
		{Action: "view", Module: "user_management", SubModule: "user"},
	}
	resolver := NewResolver(store, nil)

	decision, err := resolver.Authorize(context.Background(), LocalPrincipal(7), adminRequirement())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestAuthorizePermissionNotGranted(t *testing.T) {
	store := newMockStore()
	store.userRoles[7] = []int64{1}
	store.roleNames[1] = "Admin"
	store.roleTriples[1] = []PermissionTriple{
		{Action: "view", Module: "user_management", SubModule: "user"},
	}
	resolver := NewResolver(store, nil)

	req := adminRequirement()
	req.Action = "delete"
	decision, err := resolver.Authorize(context.Background(), LocalPrincipal(7), req)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonPermissionNotGranted, decision.Reason)
}

func TestAuthorizeRoleGatePrecedesPermissionGate(t *testing.T) {
	// The role carries the exact permission, but it is outside the
	// allow-list; the role gate must deny first.
	store := newMockStore()
	store.userRoles[9] = []int64{2}
	store.roleNames[2] = "User"
	store.roleTriples[2] = []PermissionTriple{
		{Action: "view", Module: "user_management", SubModule: "user"},
	}
	resolver := NewResolver(store, nil)

	decision, err := resolver.Authorize(context.Background(), LocalPrincipal(9), adminRequirement())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRoleNotAllowed, decision.Reason)
}

func TestAuthorizeNoRoles(t *testing.T) {
	store := newMockStore()
	resolver := NewResolver(store, nil)

	decision, err := resolver.Authorize(context.Background(), LocalPrincipal(3), adminRequirement())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoRoles, decision.Reason)
}

func TestAuthorizeUnmappedExternalID(t *testing.T) {
	store := newMockStore()
	resolver := NewResolver(store, nil)

	decision, err := resolver.Authorize(context.Background(), ExternalPrincipal("user_doesnotexist"), adminRequirement())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNoPrincipal, decision.Reason)
}

func TestAuthorizeExternalIDResolved(t *testing.T) {
	store := newMockStore()
	store.externalIDs["user_abc123"] = 7
	store.userRoles[7] = []int64{1}
	store.roleNames[1] = "Admin"
	store.roleTriples[1] = []PermissionTriple{
		{Action: "view", Module: "user_management", SubModule: "user"},
	}
	resolver := NewResolver(store, nil)

	decision, err := resolver.Authorize(context.Background(), ExternalPrincipal("user_abc123"), adminRequirement())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestAuthorizeUnionOfRoles(t *testing.T) {
	// Permissions are the union across assigned roles: a requirement
	// satisfied by either role alone must allow.
	store := newMockStore()
	store.userRoles[7] = []int64{1, 2}
	store.roleNames[1] = "Support"
	store.roleNames[2] = "Editor"
	store.roleTriples[1] = []PermissionTriple{
		{Action: "view", Module: "catalog", SubModule: "product"},
	}
	store.roleTriples[2] = []PermissionTriple{
		{Action: "update", Module: "catalog", SubModule: "product"},
	}
	resolver := NewResolver(store, nil)

	for _, action := range []string{"view", "update"} {
		decision, err := resolver.Authorize(context.Background(), LocalPrincipal(7), Requirement{
			AllowedRoles: []string{"Support", "Editor"},
			Action:       action,
			Module:       "catalog",
			SubModule:    "product",
		})
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "action %s", action)
	}
}

func TestAuthorizeNormalizationInsensitive(t *testing.T) {
	store := newMockStore()
	store.userRoles[7] = []int64{1}
	store.roleNames[1] = "ADMIN"
	store.roleTriples[1] = []PermissionTriple{
		{Action: "VIEW", Module: "USER_MANAGEMENT", SubModule: "USER_ROLE_ASSIGN"},
	}
	resolver := NewResolver(store, nil)

	decision, err := resolver.Authorize(context.Background(), LocalPrincipal(7), Requirement{
		AllowedRoles: []string{"admin"},
		Action:       "view",
		Module:       "user management",
		SubModule:    "user role assign",
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestAuthorizeEmptySubModuleIsExact(t *testing.T) {
	store := newMockStore()
	store.userRoles[7] = []int64{1}
	store.roleNames[1] = "Admin"
	store.roleTriples[1] = []PermissionTriple{
		{Action: "view", Module: "reports"},
	}
	resolver := NewResolver(store, nil)

	// Stored permission has no submodule: a requirement naming one must
	// not match it.
	decision, err := resolver.Authorize(context.Background(), LocalPrincipal(7), Requirement{
		AllowedRoles: []string{"Admin"},
		Action:       "view",
		Module:       "reports",
		SubModule:    "monthly",
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonPermissionNotGranted, decision.Reason)

	// And the empty-submodule requirement matches exactly.
	decision, err = resolver.Authorize(context.Background(), LocalPrincipal(7), Requirement{
		AllowedRoles: []string{"Admin"},
		Action:       "view",
		Module:       "reports",
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestAuthorizeRoleNamesKeepUnderscores(t *testing.T) {
	// Role matching lowercases only; "content_editor" and "content editor"
	// are different roles, unlike permission triple parts.
	store := newMockStore()
	store.userRoles[7] = []int64{1}
	store.roleNames[1] = "Content_Editor"
	store.roleTriples[1] = []PermissionTriple{
		{Action: "update", Module: "catalog", SubModule: "product"},
	}
	resolver := NewResolver(store, nil)

	decision, err := resolver.Authorize(context.Background(), LocalPrincipal(7), Requirement{
		AllowedRoles: []string{"content editor"},
		Action:       "update",
		Module:       "catalog",
		SubModule:    "product",
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonRoleNotAllowed, decision.Reason)

	decision, err = resolver.Authorize(context.Background(), LocalPrincipal(7), Requirement{
		AllowedRoles: []string{"CONTENT_EDITOR"},
		Action:       "update",
		Module:       "catalog",
		SubModule:    "product",
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestAuthorizeStoreErrorPropagates(t *testing.T) {
	store := newMockStore()
	store.userRoles[7] = []int64{1}
	store.roleNames[1] = "Admin"
	store.triplesErr = errors.New("connection refused")
	resolver := NewResolver(store, nil)

	decision, err := resolver.Authorize(context.Background(), LocalPrincipal(7), adminRequirement())
	require.Error(t, err)
	assert.False(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestAuthorizeInvalidRequirement(t *testing.T) {
	resolver := NewResolver(newMockStore(), nil)
	_, err := resolver.Authorize(context.Background(), LocalPrincipal(7), Requirement{
		AllowedRoles: []string{"Admin"},
		Module:       "catalog",
	})
	require.Error(t, err)
}

func TestNormIdempotence(t *testing.T) {
	inputs := []string{"User_Role_Assign", "user role assign", " USER ROLE ASSIGN ", ""}
	want := normPart(inputs[0])
	for _, in := range inputs[:3] {
		assert.Equal(t, want, normPart(in))
		assert.Equal(t, normPart(in), normPart(normPart(in)))
	}
	assert.Equal(t, "", normPart(""))
}
