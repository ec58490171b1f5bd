package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/altay/vendorstore/internal/authz"
	"github.com/altay/vendorstore/internal/database"
	"github.com/altay/vendorstore/internal/models"
)

const productColumns = `id, tenant_id, sku, name, description, price, stock_quantity, assigned_staff_id, created_at, updated_at, version`

func scanProduct(row interface{ Scan(...interface{}) error }, p *models.Product) error {
	return row.Scan(
		&p.ID,
		&p.TenantID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.AssignedStaffID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
}

func CreateProduct(ctx context.Context, db *sql.DB, tenantID int64, sku, name, description string, price decimal.Decimal, stock int) (*models.Product, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", authz.ErrInvalid)
	}
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", authz.ErrInvalid)
	}

	product := &models.Product{}

	query := `
		INSERT INTO products (tenant_id, sku, name, description, price, stock_quantity, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	if err := scanProduct(db.QueryRowContext(ctx, query, tenantID, sku, name, description, price, stock), product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// GetProduct loads one product through the caller's visibility scope.
// Records outside the scope are reported absent, not forbidden.
func GetProduct(ctx context.Context, db *sql.DB, scope authz.Scope, id int64) (*models.Product, error) {
	product := &models.Product{}

	pred, args := scopePredicate(scope, 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = $1 AND %s`, productColumns, pred)

	args = append([]interface{}{id}, args...)
	err := scanProduct(db.QueryRowContext(ctx, query, args...), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func ListProducts(ctx context.Context, db *sql.DB, scope authz.Scope, page, pageSize int) (*OffsetPage, error) {
	pred, args := scopePredicate(scope, 1)

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE `+pred, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, productColumns, pred, len(args)+1, len(args)+2)

	rows, err := db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateProduct rewrites the catalog fields guarded by the row version.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, name, description string, price decimal.Decimal, stock, version int) (*models.Product, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", authz.ErrInvalid)
	}
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", authz.ErrInvalid)
	}

	product := &models.Product{}

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock_quantity = $4,
		    version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
		RETURNING ` + productColumns

	err := scanProduct(db.QueryRowContext(ctx, query, name, description, price, stock, id, version), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeleteProduct is rejected while any order item still references the
// product; historical orders keep their lines.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsRestrictViolation(err) {
			return database.ErrRowReferenced
		}
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// AssignProductStaff sets or clears the staff member responsible for a
// product. The assignee must hold the staff role in the product's own
// tenant; a cross-tenant assignment is invalid, not forbidden.
func AssignProductStaff(ctx context.Context, db *sql.DB, productID int64, staffID *int64) (*models.Product, error) {
	product := &models.Product{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var tenantID int64
		err := tx.QueryRowContext(ctx,
			`SELECT tenant_id FROM products WHERE id = $1 FOR UPDATE`,
			productID).Scan(&tenantID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}

		if staffID != nil {
			if err := checkStaffInTenant(ctx, tx, *staffID, tenantID); err != nil {
				return err
			}
		}

		query := `
			UPDATE products
			SET assigned_staff_id = $1, version = version + 1, updated_at = NOW()
			WHERE id = $2
			RETURNING ` + productColumns

		if err := scanProduct(tx.QueryRowContext(ctx, query, staffID, productID), product); err != nil {
			return fmt.Errorf("assign product staff: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

// checkStaffInTenant verifies the assignee is a staff principal living
// in the same tenant as the object being assigned.
func checkStaffInTenant(ctx context.Context, tx *sql.Tx, staffID, tenantID int64) error {
	var role string
	var homeTenantID *int64

	err := tx.QueryRowContext(ctx,
		`SELECT role, home_tenant_id FROM principals WHERE id = $1`,
		staffID).Scan(&role, &homeTenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: assignee %d does not exist", authz.ErrInvalid, staffID)
		}
		return fmt.Errorf("lookup assignee: %w", err)
	}

	if role != models.RoleStaff {
		return fmt.Errorf("%w: assignee %d is not staff", authz.ErrInvalid, staffID)
	}
	if homeTenantID == nil || *homeTenantID != tenantID {
		return fmt.Errorf("%w: assignee %d belongs to a different tenant", authz.ErrInvalid, staffID)
	}

	return nil
}

// lockProductTx loads a product row under FOR UPDATE for the order
// transaction. The price read here is the snapshot price.
func lockProductTx(ctx context.Context, tx *sql.Tx, productID int64) (*models.Product, error) {
	product := &models.Product{}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = $1
		FOR UPDATE`, productColumns)

	err := scanProduct(tx.QueryRowContext(ctx, query, productID), product)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	return product, nil
}

// decrementStockTx reduces stock inside the order transaction, failing
// when the remaining quantity is short.
func decrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}
