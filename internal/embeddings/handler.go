package embeddings

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/prismhq/prism/internal/platform/httpx"
	"github.com/prismhq/prism/internal/rbac"
	"github.com/prismhq/prism/internal/shared"
)

// Handler wires authenticated embedding-task endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), rbac: rbacMW}
}

// MountRoutes registers embedding-task routes.
func (h *Handler) MountRoutes(r chi.Router) {
	req := func(action string) rbac.Requirement {
		return rbac.Requirement{
			AllowedRoles: shared.RolesEmbeddings,
			Action:       action,
			Module:       shared.ModuleEmbeddings,
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(req(shared.ActionView)))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(req(shared.ActionCreate)))
		r.Post("/", h.create)
	})
}

type taskForm struct {
	Subject string `json:"subject" validate:"required,min=1,max=8192"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	status := Status(r.URL.Query().Get("status"))

	tasks, pagination, err := h.service.List(r.Context(), status, page, limit)
	if err != nil {
		h.logger.Error("list embedding tasks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if tasks == nil {
		tasks = []Task{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tasks": tasks, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid task id")
		return
	}
	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form taskForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	task, err := h.service.Create(r.Context(), form.Subject)
	if err != nil {
		h.logger.Error("create embedding task", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, task)
}
