package authz

import "github.com/altay/vendorstore/internal/models"

// Scope is the visible-record predicate for one resource type and one
// request. Exactly one of the narrowing fields is set unless All or
// Empty is; the store layer translates it into a WHERE clause. It is
// applied to every list and lookup path independently of the
// object-level checks.
type Scope struct {
	// All disables filtering (admin without an explicit tenant).
	All bool
	// Empty matches nothing (customer with no linked customer row).
	Empty bool
	// TenantID narrows to one tenant when non-zero.
	TenantID int64
	// AssignedTo narrows to objects assigned to a staff principal.
	AssignedTo int64
	// CustomerID narrows to one customer's orders.
	CustomerID int64
}

// ProductScope builds the list predicate for products.
//
// Admin with no resolved tenant sees everything; an admin who sent an
// explicit tenant header is scoped to it. Staff see their assignments
// only, regardless of tenant. Everyone else is scoped to the effective
// tenant.
func ProductScope(a Access) Scope {
	switch a.Role() {
	case models.RoleAdmin:
		if a.Tenant != nil {
			return Scope{TenantID: a.Tenant.ID}
		}
		return Scope{All: true}
	case models.RoleStaff:
		return Scope{AssignedTo: a.Principal.ID}
	}
	if id, ok := a.TenantID(); ok {
		return Scope{TenantID: id}
	}
	return Scope{Empty: true}
}

// OrderScope builds the list predicate for orders. linkedCustomer is
// the customer row linked to a customer-role principal, nil when none
// exists — that yields the empty set, not an error.
func OrderScope(a Access, linkedCustomer *models.Customer) Scope {
	switch a.Role() {
	case models.RoleAdmin:
		return Scope{All: true}
	case models.RoleCustomer:
		if linkedCustomer == nil {
			return Scope{Empty: true}
		}
		return Scope{CustomerID: linkedCustomer.ID}
	case models.RoleStaff:
		return Scope{AssignedTo: a.Principal.ID}
	}
	if id, ok := a.TenantID(); ok {
		return Scope{TenantID: id}
	}
	return Scope{Empty: true}
}

// LookupScope is the predicate for direct object lookups. It narrows by
// tenant membership (or customer link) but leaves staff assignment to
// the object-level check, so a staff member probing a colleague's
// record inside their own tenant gets Forbidden rather than NotFound,
// while anything outside the request tenant stays absent.
func LookupScope(a Access, linkedCustomer *models.Customer) Scope {
	if a.Role() == models.RoleCustomer {
		if linkedCustomer == nil {
			return Scope{Empty: true}
		}
		return Scope{CustomerID: linkedCustomer.ID}
	}
	if a.Role() == models.RoleAdmin && a.Tenant == nil {
		return Scope{All: true}
	}
	if id, ok := a.TenantID(); ok {
		return Scope{TenantID: id}
	}
	return Scope{Empty: true}
}
