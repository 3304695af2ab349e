package seed

import "net/http"

// RoleSeed is a role created under a fixed id.
type RoleSeed struct {
	ID   int64
	Name string
}

// GrantSeed is one {role, path, permission} triple.
type GrantSeed struct {
	Role       string
	Path       string
	Permission string
}

const (
	RoleUser     = "User"
	RoleAdmin    = "Admin"
	RoleOperator = "Operator"
	RoleSupport  = "Support"
	RoleAuditor  = "Auditor"
	RoleBusiness = "Business"
)

// DefaultRoles keeps the ids the account lifecycle relies on: 1 for
// registered users, 6 for business accounts.
var DefaultRoles = []RoleSeed{
	{ID: 1, Name: RoleUser},
	{ID: 2, Name: RoleAdmin},
	{ID: 3, Name: RoleOperator},
	{ID: 4, Name: RoleSupport},
	{ID: 5, Name: RoleAuditor},
	{ID: 6, Name: RoleBusiness},
}

type route struct {
	method string
	path   string
}

var (
	selfRoutes = []route{
		{http.MethodGet, "/user/me"},
		{http.MethodPut, "/user/me"},
	}
	userReadRoutes = []route{
		{http.MethodGet, "/user/all"},
		{http.MethodGet, "/user"},
		{http.MethodGet, "/user/by-id"},
		{http.MethodGet, "/user/by-numeric-id"},
	}
	userWriteRoutes = []route{
		{http.MethodPost, "/user/check-permission"},
		{http.MethodPost, "/user"},
		{http.MethodPost, "/user/business"},
		{http.MethodPut, "/user"},
		{http.MethodDelete, "/user"},
		{http.MethodPatch, "/user"},
	}
	monitoringRoutes = []route{
		{http.MethodGet, "/monitoring/all"},
	}
)

// crudRoutes is the seven-verb set every CRUD module exposes under base.
func crudRoutes(base string) []route {
	return []route{
		{http.MethodPost, base},
		{http.MethodGet, base + "/all"},
		{http.MethodGet, base},
		{http.MethodGet, base + "/by-id"},
		{http.MethodPut, base},
		{http.MethodDelete, base},
		{http.MethodPatch, base},
	}
}

func grantsFor(role string, groups ...[]route) []GrantSeed {
	var out []GrantSeed
	for _, g := range groups {
		for _, rt := range g {
			out = append(out, GrantSeed{Role: role, Path: rt.path, Permission: rt.method})
		}
	}
	return out
}

// DefaultGrants returns the static grant table.
func DefaultGrants() []GrantSeed {
	var out []GrantSeed
	out = append(out, grantsFor(RoleUser, selfRoutes)...)
	out = append(out, grantsFor(RoleBusiness, selfRoutes)...)
	out = append(out, grantsFor(RoleAdmin,
		selfRoutes, userReadRoutes, userWriteRoutes,
		crudRoutes("/role"), crudRoutes("/role-permission"), monitoringRoutes)...)
	out = append(out, grantsFor(RoleOperator,
		selfRoutes, userReadRoutes, monitoringRoutes,
		[]route{{http.MethodPost, "/user/check-permission"}})...)
	out = append(out, grantsFor(RoleSupport, selfRoutes, userReadRoutes)...)
	out = append(out, grantsFor(RoleAuditor,
		selfRoutes, monitoringRoutes,
		[]route{{http.MethodGet, "/role/all"}, {http.MethodGet, "/role-permission/all"}})...)
	return out
}
