// Package authz implements the role/geography permission engine.
//
// Every function that produces an access decision is pure and fail-closed:
// malformed permission strings, unknown authority ranks and missing
// geographic lookups all resolve to a denial, never to an error or panic.
// Callers may memoize any result keyed on the profile version.
package authz

import "strings"

// Department identifies a business domain that owns a permission namespace.
type Department string

const (
	DeptAccounting Department = "accounting"
	DeptSales      Department = "sales"
	DeptService    Department = "service"
	DeptInventory  Department = "inventory"
	DeptWarehouse  Department = "warehouse"
	DeptCredit     Department = "credit"
	DeptHR         Department = "hr"
	DeptAdmin      Department = "admin"
)

// Departments lists every known department.
func Departments() []Department {
	return []Department{
		DeptAccounting,
		DeptSales,
		DeptService,
		DeptInventory,
		DeptWarehouse,
		DeptCredit,
		DeptHR,
		DeptAdmin,
	}
}

// Wildcard grants every permission in the system.
const Wildcard = "*"

// Accounting permissions.
const (
	PermAccountingView    = "accounting.view"
	PermAccountingEdit    = "accounting.edit"
	PermAccountingApprove = "accounting.approve"
	PermAccountingClose   = "accounting.close"
)

// Sales permissions.
const (
	PermSalesView    = "sales.view"
	PermSalesCreate  = "sales.create"
	PermSalesEdit    = "sales.edit"
	PermSalesDelete  = "sales.delete"
	PermSalesApprove = "sales.approve"
)

// Service (after-sales) permissions.
const (
	PermServiceView  = "service.view"
	PermServiceEdit  = "service.edit"
	PermServiceClose = "service.close"
)

// Inventory and warehouse permissions.
const (
	PermInventoryView     = "inventory.view"
	PermInventoryEdit     = "inventory.edit"
	PermInventoryTransfer = "inventory.transfer"
	PermWarehouseView     = "warehouse.view"
	PermWarehouseEdit     = "warehouse.edit"
)

// Credit permissions.
const (
	PermCreditView    = "credit.view"
	PermCreditEdit    = "credit.edit"
	PermCreditApprove = "credit.approve"
)

// HR permissions.
const (
	PermHRView = "hr.view"
	PermHREdit = "hr.edit"
)

// Admin permissions.
const (
	PermAdminUsersView = "admin.users.view"
	PermAdminUsersEdit = "admin.users.edit"
	PermAdminRolesEdit = "admin.roles.edit"
)

// DepartmentScopes lists the permissions declared for one department.
func DepartmentScopes(dept Department) []string {
	switch dept {
	case DeptAccounting:
		return []string{PermAccountingView, PermAccountingEdit, PermAccountingApprove, PermAccountingClose}
	case DeptSales:
		return []string{PermSalesView, PermSalesCreate, PermSalesEdit, PermSalesDelete, PermSalesApprove}
	case DeptService:
		return []string{PermServiceView, PermServiceEdit, PermServiceClose}
	case DeptInventory:
		return []string{PermInventoryView, PermInventoryEdit, PermInventoryTransfer}
	case DeptWarehouse:
		return []string{PermWarehouseView, PermWarehouseEdit}
	case DeptCredit:
		return []string{PermCreditView, PermCreditEdit, PermCreditApprove}
	case DeptHR:
		return []string{PermHRView, PermHREdit}
	case DeptAdmin:
		return []string{PermAdminUsersView, PermAdminUsersEdit, PermAdminRolesEdit}
	}
	return nil
}

// AllScopes lists every declared permission across departments.
func AllScopes() []string {
	var all []string
	for _, dept := range Departments() {
		all = append(all, DepartmentScopes(dept)...)
	}
	return all
}

// ParsedPermission is the normalized form of a permission string.
type ParsedPermission struct {
	Department Department
	Action     string
	// Universal marks the bare "*" grant.
	Universal bool
	// DeptWide marks a "<department>.*" grant.
	DeptWide bool
}

// ParsePermission splits a permission string into department and action.
// It reports false for anything outside the grammar: empty strings,
// strings without a dot, empty segments, or embedded mid-string wildcards.
// No permission string ever causes an error; unparseable input simply
// matches nothing.
func ParsePermission(s string) (ParsedPermission, bool) {
	if s == Wildcard {
		return ParsedPermission{Universal: true}, true
	}
	dept, action, found := strings.Cut(s, ".")
	if !found || dept == "" || action == "" {
		return ParsedPermission{}, false
	}
	if strings.Contains(dept, "*") {
		return ParsedPermission{}, false
	}
	if action == Wildcard {
		return ParsedPermission{Department: Department(dept), DeptWide: true}, true
	}
	if strings.Contains(action, "*") {
		return ParsedPermission{}, false
	}
	return ParsedPermission{Department: Department(dept), Action: action}, true
}

// Matches reports whether a granted permission string satisfies a requested
// one. Wildcards are only honoured on the granted side; a malformed string on
// either side matches nothing. This is the single matching routine in the
// engine, no other component inspects permission strings directly.
func Matches(granted, requested string) bool {
	g, ok := ParsePermission(granted)
	if !ok {
		return false
	}
	if g.Universal {
		return true
	}
	r, ok := ParsePermission(requested)
	if !ok || r.Universal || r.DeptWide {
		return false
	}
	if g.DeptWide {
		return g.Department == r.Department
	}
	return g.Department == r.Department && g.Action == r.Action
}
