package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/altay/vendorstore/internal/authz"
	"github.com/altay/vendorstore/internal/database"
	"github.com/altay/vendorstore/internal/models"
)

type RegisterRequest struct {
	Handle       string
	Email        string
	Credential   string
	Role         string
	HomeTenantID *int64
}

// Register creates a principal. The role defaults to customer, and a
// customer must name a home tenant — their Customer row is created
// eagerly in the same transaction so the order path finds it linked.
func Register(ctx context.Context, db *sql.DB, req RegisterRequest) (*models.Principal, error) {
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}
	if !models.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", authz.ErrInvalid, req.Role)
	}
	if req.Handle == "" {
		return nil, fmt.Errorf("%w: handle is required", authz.ErrInvalid)
	}
	if req.Role == models.RoleCustomer && req.HomeTenantID == nil {
		return nil, fmt.Errorf("%w: customer registration requires a home tenant", authz.ErrInvalid)
	}

	principal := &models.Principal{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if req.HomeTenantID != nil {
			var exists bool
			err := tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM tenants WHERE id = $1)",
				*req.HomeTenantID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check tenant exists: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: home tenant %d does not exist", authz.ErrInvalid, *req.HomeTenantID)
			}
		}

		query := `
			INSERT INTO principals (handle, email, credential, role, home_tenant_id, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
			RETURNING id, handle, email, credential, role, home_tenant_id, created_at, updated_at, version`

		err := tx.QueryRowContext(ctx, query,
			req.Handle, req.Email, req.Credential, req.Role, req.HomeTenantID).Scan(
			&principal.ID,
			&principal.Handle,
			&principal.Email,
			&principal.Credential,
			&principal.Role,
			&principal.HomeTenantID,
			&principal.CreatedAt,
			&principal.UpdatedAt,
			&principal.Version,
		)
		if err != nil {
			if database.IsUniqueViolation(err, "") {
				return database.ErrHandleTaken
			}
			return fmt.Errorf("create principal: %w", err)
		}

		if req.Role == models.RoleCustomer {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO customers (tenant_id, principal_id, name, email, created_at)
				 VALUES ($1, $2, $3, $4, NOW())`,
				*req.HomeTenantID, principal.ID, req.Handle, req.Email)
			if err != nil {
				return fmt.Errorf("create linked customer: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return principal, nil
}

func GetPrincipal(ctx context.Context, db *sql.DB, id int64) (*models.Principal, error) {
	principal := &models.Principal{}

	query := `
		SELECT id, handle, email, credential, role, home_tenant_id, created_at, updated_at, version
		FROM principals
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&principal.ID,
		&principal.Handle,
		&principal.Email,
		&principal.Credential,
		&principal.Role,
		&principal.HomeTenantID,
		&principal.CreatedAt,
		&principal.UpdatedAt,
		&principal.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}

	return principal, nil
}

func GetPrincipalByHandle(ctx context.Context, db *sql.DB, handle string) (*models.Principal, error) {
	principal := &models.Principal{}

	query := `
		SELECT id, handle, email, credential, role, home_tenant_id, created_at, updated_at, version
		FROM principals
		WHERE handle = $1`

	err := db.QueryRowContext(ctx, query, handle).Scan(
		&principal.ID,
		&principal.Handle,
		&principal.Email,
		&principal.Credential,
		&principal.Role,
		&principal.HomeTenantID,
		&principal.CreatedAt,
		&principal.UpdatedAt,
		&principal.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("get principal by handle: %w", err)
	}

	return principal, nil
}
