package roles

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/prismhq/prism/internal/platform/httpx"
	"github.com/prismhq/prism/internal/rbac"
	"github.com/prismhq/prism/internal/shared"
)

// Handler wires role and permission management endpoints.
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

func (h *Handler) requirement(action, subModule string) rbac.Requirement {
	return rbac.Requirement{
		AllowedRoles: shared.RolesAdmin,
		Action:       action,
		Module:       shared.ModuleUserManagement,
		SubModule:    subModule,
	}
}

// MountRoutes registers role management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.requirement(shared.ActionView, shared.SubModuleRole)))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.requirement(shared.ActionCreate, shared.SubModuleRole)))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.requirement(shared.ActionUpdate, shared.SubModuleRole)))
		r.Put("/{id}", h.updateRole)
		r.Put("/{id}/permissions", h.setRolePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.requirement(shared.ActionDelete, shared.SubModuleRole)))
		r.Delete("/{id}", h.deleteRole)
	})
}

// MountPermissionRoutes registers the permission catalog routes.
func (h *Handler) MountPermissionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.requirement(shared.ActionView, shared.SubModuleRole)))
		r.Get("/", h.listPermissions)
		r.Get("/catalog", h.catalog)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.requirement(shared.ActionCreate, shared.SubModuleRole)))
		r.Post("/", h.createPermission)
	})
}

// MountAssignmentRoutes registers user-role assignment routes. Mounted under
// /users, so the path parameter name must match the user routes.
func (h *Handler) MountAssignmentRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.requirement(shared.ActionView, shared.SubModuleUserRoleAssign)))
		r.Get("/{id}/roles", h.userRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(h.requirement(shared.ActionUpdate, shared.SubModuleUserRoleAssign)))
		r.Post("/{id}/roles", h.grantRole)
		r.Delete("/{id}/roles/{roleID}", h.revokeRole)
	})
}

type roleForm struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"is_active"`
}

type permissionForm struct {
	ActionID    int64  `json:"action_id" validate:"required,gt=0"`
	ModuleID    int64  `json:"module_id" validate:"required,gt=0"`
	SubModuleID *int64 `json:"sub_module_id"`
}

type setPermissionsForm struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,dive,gt=0"`
}

type grantForm struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var form roleForm
	if !h.decode(w, r, &form) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), form.Name, form.Description)
	if err != nil {
		h.logger.Error("create role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var form roleForm
	if !h.decode(w, r, &form) {
		return
	}
	isActive := true
	if form.IsActive != nil {
		isActive = *form.IsActive
	}
	if err := h.service.UpdateRole(r.Context(), id, form.Name, form.Description, isActive); err != nil {
		h.logger.Error("update role", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var form setPermissionsForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), id, form.PermissionIDs); err != nil {
		h.logger.Error("set role permissions", slog.Any("error", err), slog.Int64("role_id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	actions, err := h.service.ListActions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	modules, err := h.service.ListModules(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	subModules, err := h.service.ListSubModules(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"actions":     actions,
		"modules":     modules,
		"sub_modules": subModules,
	})
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var form permissionForm
	if !h.decode(w, r, &form) {
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), form.ActionID, form.ModuleID, form.SubModuleID)
	if err != nil {
		h.logger.Error("create permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *Handler) userRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	ids, err := h.service.UserRoles(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role_ids": ids})
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var form grantForm
	if !h.decode(w, r, &form) {
		return
	}
	if err := h.service.GrantRole(r.Context(), userID, form.RoleID); err != nil {
		h.logger.Error("grant role", slog.Any("error", err), slog.Int64("user_id", userID))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.RevokeRole(r.Context(), userID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, form any) bool {
	if err := httpx.DecodeJSON(r, form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
