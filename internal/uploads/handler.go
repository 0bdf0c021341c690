package uploads

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prismhq/prism/internal/platform/httpx"
	"github.com/prismhq/prism/internal/rbac"
	"github.com/prismhq/prism/internal/shared"
)

// maxUploadBytes caps a single multipart upload.
const maxUploadBytes = 64 << 20

// Handler wires upload endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers upload routes.
func (h *Handler) MountRoutes(r chi.Router) {
	req := func(action string) rbac.Requirement {
		return rbac.Requirement{
			AllowedRoles: shared.RolesUploads,
			Action:       action,
			Module:       shared.ModuleUploads,
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(req(shared.ActionView)))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/content", h.download)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(req(shared.ActionCreate)))
		r.Post("/", h.upload)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(req(shared.ActionDelete)))
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok || !principal.HasLocalID() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	part, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", `multipart field "file" required`)
		return
	}
	defer part.Close()

	contentType := header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	} else {
		contentType = ""
	}

	file, err := h.service.Upload(r.Context(), header.Filename, contentType, principal.LocalID, part)
	if err != nil {
		h.logger.Error("upload file", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, file)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ListFilters{Search: r.URL.Query().Get("search")}
	filters.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filters.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 20
	}
	if v := r.URL.Query().Get("owner_id"); v != "" {
		owner, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid owner_id")
			return
		}
		filters.OwnerID = &owner
	}

	files, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list uploads", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if files == nil {
		files = []File{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"files": files, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid file id")
		return
	}
	file, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, file)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid file id")
		return
	}
	file, rc, err := h.service.Open(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream file", slog.String("id", id.String()), slog.Any("error", err))
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid file id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
