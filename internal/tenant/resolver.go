// Package tenant derives the active tenant for a request. Resolution
// never fails in a business sense: an unresolved tenant is a valid
// state meaning "possibly admin, possibly anonymous" and is consumed
// downstream by the authorization checks.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/altay/vendorstore/internal/database"
	"github.com/altay/vendorstore/internal/models"
	"github.com/altay/vendorstore/internal/store"
)

// HeaderTenantID parses an explicit tenant header value. ok is false
// for an empty or malformed value.
func HeaderTenantID(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Resolve computes the request tenant in strict priority order: the
// principal's home tenant, then the explicit header, then nil. A header
// naming a nonexistent tenant resolves to nil rather than an error;
// only storage failures are returned.
func Resolve(ctx context.Context, db *sql.DB, p *models.Principal, headerValue string) (*models.Tenant, error) {
	if p != nil && p.HomeTenantID != nil {
		t, err := store.GetTenant(ctx, db, *p.HomeTenantID)
		if err != nil {
			if errors.Is(err, database.ErrTenantNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return t, nil
	}

	if id, ok := HeaderTenantID(headerValue); ok {
		t, err := store.GetTenant(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrTenantNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return t, nil
	}

	return nil, nil
}
