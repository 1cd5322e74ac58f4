package rbac

const (
	PermClassView    = "class:view"
	PermClassEdit    = "class:edit"
	PermClassAnalyze = "class:analyze"
	PermClassExport  = "class:export"
	PermClassCreate  = "class:create"
)

var ClassPermissions = []string{
	PermClassCreate, PermClassView, PermClassEdit, PermClassAnalyze, PermClassExport,
}

var RolePermissions = map[string][]string{
	"teacher": {
		"class:*",
	},
	// read-only access for co-teachers and moderators
	"viewer": {
		PermClassView,
		PermClassAnalyze,
		PermClassExport,
	},
	"admin": {
		"*", // everything
	},
}
