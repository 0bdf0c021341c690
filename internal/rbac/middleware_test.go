package rbac

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prismhq/prism/internal/shared"
)

func newGuardedServer(store Store) http.Handler {
	mw := Middleware{
		Resolver: NewResolver(store, nil),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mw.Require(adminRequirement())(handler)
}

func doRequest(t *testing.T, handler http.Handler, principal *shared.Principal) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if principal != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), *principal))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAllows(t *testing.T) {
	store := newMockStore()
	store.userRoles[7] = []int64{1}
	store.roleNames[1] = "Admin"
	store.roleTriples[1] = []PermissionTriple{
		{Action: "view", Module: "user_management", SubModule: "user"},
	}

	rec := doRequest(t, newGuardedServer(store), &shared.Principal{LocalID: 7})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddlewareUniformForbidden(t *testing.T) {
	store := newMockStore()
	store.userRoles[9] = []int64{2}
	store.roleNames[2] = "User"
	handler := newGuardedServer(store)

	// Different deny reasons, identical external response.
	noPrincipal := doRequest(t, handler, nil)
	roleNotAllowed := doRequest(t, handler, &shared.Principal{LocalID: 9})
	noRoles := doRequest(t, handler, &shared.Principal{LocalID: 3})
	unmapped := doRequest(t, handler, &shared.Principal{ExternalID: "user_ghost"})

	for _, rec := range []*httptest.ResponseRecorder{noPrincipal, roleNotAllowed, noRoles, unmapped} {
		assert.Equal(t, http.StatusForbidden, rec.Code)
	}
	assert.Equal(t, roleNotAllowed.Body.String(), noRoles.Body.String())
	assert.Equal(t, roleNotAllowed.Body.String(), unmapped.Body.String())
}

func TestMiddlewareStoreFailureIsServerError(t *testing.T) {
	store := newMockStore()
	store.rolesErr = errors.New("store unavailable")

	rec := doRequest(t, newGuardedServer(store), &shared.Principal{LocalID: 7})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
