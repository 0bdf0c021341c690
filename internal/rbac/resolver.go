package rbac

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Resolver answers authorization questions. It owns no mutable state; every
// call re-reads the store (through the optional triple cache) and returns
// exactly one of: allow, deny with reason, or a store error.
type Resolver struct {
	store Store
	cache *TripleCache
}

// NewResolver constructs a Resolver. cache may be nil to disable memoization.
func NewResolver(store Store, cache *TripleCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Authorize decides whether the principal may perform the required operation.
//
// The checks run in order: principal resolution, role assignment, the role
// allow-list gate, then the permission-triple comparison. The role gate is
// deliberately first and independent: a principal whose roles are all outside
// the allow-list is denied even if one of those roles carries the exact
// permission. Permissions are the union across all assigned roles.
func (r *Resolver) Authorize(ctx context.Context, principal PrincipalRef, req Requirement) (Decision, error) {
	if err := req.Validate(); err != nil {
		return Decision{}, err
	}

	principalID, err := r.resolvePrincipal(ctx, principal)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return deny(ReasonNoPrincipal), nil
		}
		return Decision{}, err
	}

	roleIDs, err := r.store.RolesForPrincipal(ctx, principalID)
	if err != nil {
		return Decision{}, err
	}
	if len(roleIDs) == 0 {
		return deny(ReasonNoRoles), nil
	}

	// Role names and triples share no data dependency once role ids are
	// known; fetch both concurrently. The role gate below still decides
	// before any triple is compared, so ordering is not observable.
	var (
		roleNames []string
		triples   []PermissionTriple
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roleNames, err = r.store.RoleNames(gctx, roleIDs)
		return err
	})
	g.Go(func() error {
		var err error
		triples, err = r.fetchTriples(gctx, principalID, roleIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return Decision{}, err
	}

	allowed := make(map[string]struct{}, len(req.AllowedRoles))
	for _, name := range req.AllowedRoles {
		allowed[normRole(name)] = struct{}{}
	}
	roleMatch := false
	for _, name := range roleNames {
		if _, ok := allowed[normRole(name)]; ok {
			roleMatch = true
			break
		}
	}
	if !roleMatch {
		return deny(ReasonRoleNotAllowed), nil
	}

	want := normTriple(PermissionTriple{Action: req.Action, Module: req.Module, SubModule: req.SubModule})
	for _, t := range triples {
		if normTriple(t) == want {
			return allow(), nil
		}
	}
	return deny(ReasonPermissionNotGranted), nil
}

func (r *Resolver) resolvePrincipal(ctx context.Context, principal PrincipalRef) (int64, error) {
	if principal.localID > 0 {
		return principal.localID, nil
	}
	if principal.externalID == "" {
		return 0, ErrPrincipalNotFound
	}
	return r.store.ResolveLocalID(ctx, principal.externalID)
}

func (r *Resolver) fetchTriples(ctx context.Context, principalID int64, roleIDs []int64) ([]PermissionTriple, error) {
	if cached, ok := r.cache.Get(ctx, principalID); ok {
		return cached, nil
	}
	triples, err := r.store.PermissionTriples(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, principalID, triples)
	return triples, nil
}
