package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/altay/vendorstore/internal/database"
	"github.com/altay/vendorstore/internal/models"
)

func CreateTenant(ctx context.Context, db *sql.DB, name, contactEmail string, domain *string) (*models.Tenant, error) {
	tenant := &models.Tenant{}

	query := `
		INSERT INTO tenants (name, contact_email, domain, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		RETURNING id, name, contact_email, domain, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, name, contactEmail, domain).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.ContactEmail,
		&tenant.Domain,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	return tenant, nil
}

func GetTenant(ctx context.Context, db *sql.DB, id int64) (*models.Tenant, error) {
	tenant := &models.Tenant{}

	query := `
		SELECT id, name, contact_email, domain, created_at, updated_at, version
		FROM tenants
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.ContactEmail,
		&tenant.Domain,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	return tenant, nil
}

func ListTenants(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count tenants: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, name, contact_email, domain, created_at, updated_at, version
		FROM tenants
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var tenant models.Tenant
		err := rows.Scan(
			&tenant.ID,
			&tenant.Name,
			&tenant.ContactEmail,
			&tenant.Domain,
			&tenant.CreatedAt,
			&tenant.UpdatedAt,
			&tenant.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      tenants,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// DeleteTenant hard-deletes a tenant. Products and customers cascade;
// any existing order makes the tenant permanent and the delete comes
// back as ErrRowReferenced.
func DeleteTenant(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		if database.IsRestrictViolation(err) {
			return database.ErrRowReferenced
		}
		return fmt.Errorf("delete tenant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrTenantNotFound
	}

	return nil
}
