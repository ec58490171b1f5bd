package authz

import "github.com/altay/vendorstore/internal/models"

// Access is the request-scoped authorization input: the authenticated
// principal (nil for anonymous) and the tenant resolved for this
// request (nil when unresolved). It is passed explicitly through every
// call in the request path rather than hidden in context values.
type Access struct {
	Principal *models.Principal
	Tenant    *models.Tenant
}

// Role returns the principal's role, or "" for anonymous access.
func (a Access) Role() string {
	if a.Principal == nil {
		return ""
	}
	return a.Principal.Role
}

// TenantID is the effective tenant for the request: the resolver output
// when present, else the principal's home tenant. ok is false when
// neither exists (anonymous, or an admin acting across tenants).
func (a Access) TenantID() (int64, bool) {
	if a.Tenant != nil {
		return a.Tenant.ID, true
	}
	if a.Principal != nil && a.Principal.HomeTenantID != nil {
		return *a.Principal.HomeTenantID, true
	}
	return 0, false
}
