package shared

// Canonical action names seeded by the administrative flows. Permission rows
// reference these by name; route requirements use the same spellings.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Canonical module names for the protected surface.
const (
	ModuleUserManagement = "user_management"
	ModuleCatalog        = "catalog"
	ModuleProjects       = "projects"
	ModuleEmbeddings     = "embeddings"
	ModuleUploads        = "uploads"
)

// Submodules under user_management.
const (
	SubModuleUser           = "user"
	SubModuleRole           = "role"
	SubModuleUserRoleAssign = "user_role_assign"
)

// Submodules under catalog.
const (
	SubModuleProduct  = "product"
	SubModuleCategory = "category"
)

// Role allow-lists declared by routes. Role names originate from
// administrative data; matching is case-insensitive.
var (
	RolesAdmin    = []string{"Admin"}
	RolesCatalog  = []string{"Admin", "Catalog Manager"}
	RolesProjects   = []string{"Admin", "Project Manager", "Member"}
	RolesEmbeddings = []string{"Admin", "Member"}
	RolesUploads    = []string{"Admin", "Member"}
)
