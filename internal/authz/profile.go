package authz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Scope is a set of location ids, or the unrestricted "ALL" sentinel. The
// zero value is an empty enumerated scope, which grants nothing.
type Scope struct {
	all bool
	ids map[string]struct{}
}

// ScopeAll returns the unrestricted sentinel scope.
func ScopeAll() Scope {
	return Scope{all: true}
}

// ScopeOf returns an enumerated scope over the given ids. The sentinel
// values "*" and "all" anywhere in the list collapse the whole scope to ALL.
func ScopeOf(ids ...string) Scope {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == Wildcard || id == "all" || id == "ALL" {
			return ScopeAll()
		}
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return Scope{ids: set}
}

// IsAll reports whether the scope is the unrestricted sentinel.
func (s Scope) IsAll() bool { return s.all }

// Contains reports whether the id falls inside the scope. The empty id is
// never contained, even in the ALL scope.
func (s Scope) Contains(id string) bool {
	if id == "" {
		return false
	}
	if s.all {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the enumeration size, zero for the ALL sentinel.
func (s Scope) Len() int {
	if s.all {
		return 0
	}
	return len(s.ids)
}

// Single returns the only id in the scope when the enumeration has exactly
// one element.
func (s Scope) Single() (string, bool) {
	if s.all || len(s.ids) != 1 {
		return "", false
	}
	for id := range s.ids {
		return id, true
	}
	return "", false
}

// IDs returns a copy of the enumerated ids, nil for the ALL sentinel.
func (s Scope) IDs() []string {
	if s.all {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// UserAccessProfile is the immutable snapshot of one user's authorization
// facts. A role or geography change never mutates a live profile; it
// produces a replacement with a fresh Version, and caches keyed on the old
// version must be dropped wholesale.
type UserAccessProfile struct {
	UserID  int64
	Version uuid.UUID

	Authority   AuthorityRank
	Departments map[Department]struct{}
	Permissions map[string]struct{}

	AllowedProvinces Scope
	AllowedBranches  Scope
	// MultiProvince marks a PROVINCE-rank user whose remit spans every
	// province, which widens the accessible set to ALL.
	MultiProvince bool

	HomeProvince string
	HomeBranch   string

	IsActive bool
	IsDev    bool
}

// InDepartment reports membership in the given department.
func (p *UserAccessProfile) InDepartment(dept Department) bool {
	if p == nil {
		return false
	}
	_, ok := p.Departments[dept]
	return ok
}

// RawUserRecord is the wire shape of a user's grants before normalization.
// Legacy records carry a flat Role name; orthogonal records carry Authority,
// Departments and Permissions directly. BuildProfile accepts both, and is
// the only place in the engine aware of the distinction.
type RawUserRecord struct {
	UserID int64 `json:"userId"`

	// Legacy flat role, e.g. "PROVINCE_MANAGER". Ignored when Authority is
	// set.
	Role string `json:"role,omitempty"`

	Authority   string   `json:"authority,omitempty"`
	Departments []string `json:"departments,omitempty"`
	Permissions []string `json:"permissions,omitempty"`

	// Province/branch grants. The sentinel "*" (or "all") in either list
	// collapses that scope to unrestricted.
	AllowedProvinces []string `json:"allowedProvinces,omitempty"`
	AllowedBranches  []string `json:"allowedBranches,omitempty"`
	MultiProvince    bool     `json:"multiProvince,omitempty"`

	HomeProvince string `json:"homeProvince,omitempty"`
	HomeBranch   string `json:"homeBranch,omitempty"`

	IsActive bool `json:"isActive"`
	IsDev    bool `json:"isDev,omitempty"`
}

// legacyGrant is one row of the legacy role mapping table.
type legacyGrant struct {
	authority   AuthorityRank
	departments []Department
	permissions []string
	allGeo      bool
}

// legacyRoles translates the flat role names of the previous permission
// scheme into canonical grants. New roles must not be added here; they
// belong in the orthogonal scheme.
var legacyRoles = map[string]legacyGrant{
	"SUPER_ADMIN": {
		authority:   RankAdmin,
		departments: Departments(),
		permissions: []string{Wildcard},
		allGeo:      true,
	},
	"ADMIN": {
		authority:   RankAdmin,
		departments: Departments(),
		permissions: []string{Wildcard},
		allGeo:      true,
	},
	"EXECUTIVE": {
		authority:   RankProvince,
		departments: Departments(),
		permissions: []string{Wildcard},
		allGeo:      true,
	},
	"PROVINCE_MANAGER": {
		authority:   RankProvince,
		departments: []Department{DeptSales, DeptService, DeptAccounting, DeptInventory, DeptWarehouse, DeptCredit, DeptHR},
		permissions: []string{"sales.*", "service.*", "accounting.*", "inventory.*", "warehouse.*", "credit.*", "hr.*"},
	},
	"BRANCH_MANAGER": {
		authority:   RankBranch,
		departments: []Department{DeptSales, DeptService, DeptInventory, DeptWarehouse},
		permissions: []string{"sales.*", "service.*", "inventory.*", "warehouse.*"},
	},
	"ACCOUNT_STAFF": {
		authority:   RankDepartment,
		departments: []Department{DeptAccounting},
		permissions: []string{PermAccountingView, PermAccountingEdit},
	},
	"SALES_STAFF": {
		authority:   RankDepartment,
		departments: []Department{DeptSales},
		permissions: []string{PermSalesView, PermSalesCreate, PermSalesEdit},
	},
	"SERVICE_STAFF": {
		authority:   RankDepartment,
		departments: []Department{DeptService},
		permissions: []string{PermServiceView, PermServiceEdit},
	},
	"WAREHOUSE_STAFF": {
		authority:   RankDepartment,
		departments: []Department{DeptWarehouse, DeptInventory},
		permissions: []string{PermWarehouseView, PermWarehouseEdit, PermInventoryView},
	},
	"CREDIT_STAFF": {
		authority:   RankDepartment,
		departments: []Department{DeptCredit},
		permissions: []string{PermCreditView, PermCreditEdit},
	},
	"HR_STAFF": {
		authority:   RankDepartment,
		departments: []Department{DeptHR},
		permissions: []string{PermHRView, PermHREdit},
	},
}

// ErrInvalidRecord indicates a raw record that cannot be normalized. This is
// the one programmer-error boundary of the engine; everything past
// BuildProfile is total and error-free.
var ErrInvalidRecord = errors.New("authz: invalid user record")

// BuildProfile normalizes a raw user record into a canonical immutable
// profile with a fresh version. Both the legacy flat-role scheme and the
// orthogonal scheme are accepted; downstream code never sees raw role names.
func BuildProfile(raw RawUserRecord) (*UserAccessProfile, error) {
	if raw.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidRecord)
	}

	p := &UserAccessProfile{
		UserID:        raw.UserID,
		Version:       uuid.New(),
		Departments:   make(map[Department]struct{}),
		Permissions:   make(map[string]struct{}),
		MultiProvince: raw.MultiProvince,
		HomeProvince:  raw.HomeProvince,
		HomeBranch:    raw.HomeBranch,
		IsActive:      raw.IsActive,
		IsDev:         raw.IsDev,
	}

	switch {
	case raw.Authority != "":
		p.Authority = AuthorityRank(raw.Authority)
		if !p.Authority.Known() {
			return nil, fmt.Errorf("%w: unknown authority %q", ErrInvalidRecord, raw.Authority)
		}
		for _, d := range raw.Departments {
			p.Departments[Department(d)] = struct{}{}
		}
		for _, perm := range raw.Permissions {
			if _, ok := ParsePermission(perm); ok {
				p.Permissions[perm] = struct{}{}
			}
		}
	case raw.Role != "":
		grant, ok := legacyRoles[raw.Role]
		if !ok {
			return nil, fmt.Errorf("%w: unknown legacy role %q", ErrInvalidRecord, raw.Role)
		}
		p.Authority = grant.authority
		for _, d := range grant.departments {
			p.Departments[d] = struct{}{}
		}
		for _, perm := range grant.permissions {
			p.Permissions[perm] = struct{}{}
		}
		if grant.allGeo {
			p.AllowedProvinces = ScopeAll()
			p.AllowedBranches = ScopeAll()
		}
	default:
		return nil, fmt.Errorf("%w: neither role nor authority set", ErrInvalidRecord)
	}

	if !p.AllowedProvinces.IsAll() {
		p.AllowedProvinces = ScopeOf(raw.AllowedProvinces...)
	}
	if !p.AllowedBranches.IsAll() {
		p.AllowedBranches = ScopeOf(raw.AllowedBranches...)
	}

	return p, nil
}
