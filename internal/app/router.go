package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/prismhq/prism/internal/authn"
	"github.com/prismhq/prism/internal/catalog/categories"
	"github.com/prismhq/prism/internal/catalog/products"
	"github.com/prismhq/prism/internal/embeddings"
	"github.com/prismhq/prism/internal/observability"
	"github.com/prismhq/prism/internal/projects"
	"github.com/prismhq/prism/internal/roles"
	"github.com/prismhq/prism/internal/uploads"
	"github.com/prismhq/prism/internal/users"
	"github.com/prismhq/prism/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Authn authn.Middleware

	UsersHandler      *users.Handler
	RolesHandler      *roles.Handler
	ProductsHandler   *products.Handler
	CategoriesHandler *categories.Handler
	ProjectsHandler   *projects.Handler
	EmbeddingsHandler *embeddings.Handler
	UploadsHandler    *uploads.Handler

	WebhookHandler *embeddings.WebhookHandler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router. Everything under the authenticated
// group requires a verified bearer token; per-route authorization lives with
// the handlers themselves.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// callbacks authenticate with an HMAC signature, not a bearer token
	if params.WebhookHandler != nil {
		r.Route("/webhooks", params.WebhookHandler.MountRoutes)
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(params.Authn.Authenticate)

		if params.UsersHandler != nil {
			r.Route("/users", func(r chi.Router) {
				params.UsersHandler.MountRoutes(r)
				if params.RolesHandler != nil {
					params.RolesHandler.MountAssignmentRoutes(r)
				}
			})
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
			r.Route("/permissions", params.RolesHandler.MountPermissionRoutes)
		}
		if params.ProductsHandler != nil {
			r.Route("/catalog/products", params.ProductsHandler.MountRoutes)
		}
		if params.CategoriesHandler != nil {
			r.Route("/catalog/categories", params.CategoriesHandler.MountRoutes)
		}
		if params.ProjectsHandler != nil {
			r.Route("/projects", params.ProjectsHandler.MountRoutes)
		}
		if params.EmbeddingsHandler != nil {
			r.Route("/embeddings", params.EmbeddingsHandler.MountRoutes)
		}
		if params.UploadsHandler != nil {
			r.Route("/uploads", params.UploadsHandler.MountRoutes)
		}
	})

	return r
}
