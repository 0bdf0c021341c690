// Package roles owns the administrative side of the authorization graph:
// role CRUD, the permission catalog and the assignment joins. The read side
// lives in internal/rbac.
package roles

import "time"

// Role is a named authorization group assignable to users.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Action is a named verb, globally unique by name.
type Action struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Module is the top level of the protected-surface namespace.
type Module struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SubModule optionally nests under a Module.
type SubModule struct {
	ID       int64  `json:"id"`
	ModuleID *int64 `json:"module_id,omitempty"`
	Name     string `json:"name"`
}

// Permission is the atomic grant unit: an (action, module, submodule) triple
// with a generated display name. The triple is unique.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ActionID    int64  `json:"action_id"`
	ModuleID    int64  `json:"module_id"`
	SubModuleID *int64 `json:"sub_module_id,omitempty"`
}
