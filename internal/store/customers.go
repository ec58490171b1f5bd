package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/altay/vendorstore/internal/database"
	"github.com/altay/vendorstore/internal/models"
)

// GetCustomerByPrincipal finds the customer row linked to a principal.
// Callers treat ErrCustomerNotFound as "no linked customer", which for
// scoping means the empty set rather than a failure.
func GetCustomerByPrincipal(ctx context.Context, db *sql.DB, principalID int64) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		SELECT id, tenant_id, principal_id, name, email, created_at
		FROM customers
		WHERE principal_id = $1`

	err := db.QueryRowContext(ctx, query, principalID).Scan(
		&customer.ID,
		&customer.TenantID,
		&customer.PrincipalID,
		&customer.Name,
		&customer.Email,
		&customer.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer by principal: %w", err)
	}

	return customer, nil
}

// resolveCustomerTx returns the customer linked to the principal within
// tenantID, creating it when missing. This is the lazy path for
// principals that predate eager registration; the caller has already
// confirmed the customer role.
func resolveCustomerTx(ctx context.Context, tx *sql.Tx, p *models.Principal, tenantID int64) (*models.Customer, error) {
	customer := &models.Customer{}

	err := tx.QueryRowContext(ctx,
		`SELECT id, tenant_id, principal_id, name, email, created_at
		 FROM customers
		 WHERE principal_id = $1 AND tenant_id = $2`,
		p.ID, tenantID).Scan(
		&customer.ID,
		&customer.TenantID,
		&customer.PrincipalID,
		&customer.Name,
		&customer.Email,
		&customer.CreatedAt,
	)
	if err == nil {
		return customer, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO customers (tenant_id, principal_id, name, email, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, tenant_id, principal_id, name, email, created_at`,
		tenantID, p.ID, p.Handle, p.Email).Scan(
		&customer.ID,
		&customer.TenantID,
		&customer.PrincipalID,
		&customer.Name,
		&customer.Email,
		&customer.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return customer, nil
}
