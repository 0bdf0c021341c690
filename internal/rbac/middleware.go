package rbac

import (
	"net/http"

	"log/slog"

	"github.com/prismhq/prism/internal/platform/httpx"
	"github.com/prismhq/prism/internal/shared"
)

// Middleware adapts the Resolver to the HTTP boundary. It reads the
// authenticated principal from the request context and translates decisions:
// deny becomes a uniform 403 (the detailed reason is only logged, never
// leaked), a store failure becomes a 500 and is never coerced into allow.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
	Metrics  DecisionRecorder
}

// DecisionRecorder counts authorization outcomes. Satisfied by
// observability.Metrics; nil disables recording.
type DecisionRecorder interface {
	RecordAuthzDecision(outcome string)
}

// Require guards a route with the given requirement. The requirement is route
// configuration declared at registration time; a malformed one fails closed.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.forbid(w, r, ReasonNoPrincipal)
				return
			}

			ref := ExternalPrincipal(principal.ExternalID)
			if principal.HasLocalID() {
				ref = LocalPrincipal(principal.LocalID)
			}

			decision, err := m.Resolver.Authorize(r.Context(), ref, req)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac authorize", slog.Any("error", err), slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !decision.Allowed {
				m.forbid(w, r, decision.Reason)
				return
			}
			if m.Metrics != nil {
				m.Metrics.RecordAuthzDecision("allow")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) forbid(w http.ResponseWriter, r *http.Request, reason DenyReason) {
	if m.Metrics != nil {
		m.Metrics.RecordAuthzDecision(string(reason))
	}
	if m.Logger != nil {
		m.Logger.Warn("rbac deny",
			slog.String("reason", string(reason)),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
		)
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
}
