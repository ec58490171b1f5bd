package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/altay/vendorstore/internal/authz"
	"github.com/altay/vendorstore/internal/database"
	"github.com/altay/vendorstore/internal/models"
)

type OrderLineRequest struct {
	ProductID int64
	Quantity  int
}

func generateOrderNumber() string {
	return "ORD-" + uuid.NewString()
}

const orderColumns = `id, tenant_id, customer_id, order_number, status, total_amount, assigned_staff_id, created_at, updated_at, version`

func scanOrder(row interface{ Scan(...interface{}) error }, o *models.Order) error {
	return row.Scan(
		&o.ID,
		&o.TenantID,
		&o.CustomerID,
		&o.OrderNumber,
		&o.Status,
		&o.TotalAmount,
		&o.AssignedStaffID,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Version,
	)
}

// PlaceOrder atomically creates an order with its line items for the
// acting customer. Every line's unit price is snapshotted from the
// product row locked inside the transaction; the computed total always
// equals the sum of line subtotals. Any validation failure rolls the
// whole transaction back so no partial order is ever visible.
func PlaceOrder(ctx context.Context, db *sql.DB, access authz.Access, lines []OrderLineRequest) (*models.Order, error) {
	if !authz.CanPlaceOrder(access) {
		return nil, fmt.Errorf("%w: only customers place orders", authz.ErrForbidden)
	}

	tenantID, ok := access.TenantID()
	if !ok {
		return nil, fmt.Errorf("%w: cannot place an order with no tenant", authz.ErrInvalid)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order has no items", authz.ErrInvalid)
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product %d must be positive", authz.ErrInvalid, line.ProductID)
		}
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		customer, err := resolveCustomerTx(ctx, tx, access.Principal, tenantID)
		if err != nil {
			return err
		}

		// Lock and validate every product before the order row exists,
		// so an invalid line leaves nothing behind.
		prices := make(map[int64]decimal.Decimal, len(lines))
		for _, line := range lines {
			product, err := lockProductTx(ctx, tx, line.ProductID)
			if err != nil {
				if err == database.ErrProductNotFound {
					return fmt.Errorf("%w: product %d does not exist", authz.ErrInvalid, line.ProductID)
				}
				return err
			}
			if product.TenantID != tenantID {
				return fmt.Errorf("%w: product %d belongs to another tenant", authz.ErrInvalid, line.ProductID)
			}
			if product.StockQuantity < line.Quantity {
				return database.ErrInsufficientStock
			}
			prices[line.ProductID] = product.Price
		}

		var orderID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (tenant_id, customer_id, order_number, status, total_amount, created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, 0, NOW(), NOW(), 1)
			 RETURNING id`,
			tenantID, customer.ID, generateOrderNumber(), models.OrderStatusPending).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		var total decimal.Decimal
		for _, line := range lines {
			unitPrice := prices[line.ProductID]
			subtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			total = total.Add(subtotal)

			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())`,
				orderID, line.ProductID, line.Quantity, unitPrice, subtotal)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}

			if err := decrementStockTx(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET total_amount = $1, updated_at = NOW() WHERE id = $2`,
			total, orderID)
		if err != nil {
			return fmt.Errorf("set order total: %w", err)
		}

		order = &models.Order{}
		query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
		if err := scanOrder(tx.QueryRowContext(ctx, query, orderID), order); err != nil {
			return fmt.Errorf("fetch created order: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	items, err := getOrderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// GetOrder loads one order with its items through the caller's
// visibility scope. Out-of-scope orders are reported absent.
func GetOrder(ctx context.Context, db *sql.DB, scope authz.Scope, id int64) (*models.Order, error) {
	order := &models.Order{}

	pred, args := scopePredicate(scope, 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE id = $1 AND %s`, orderColumns, pred)

	args = append([]interface{}{id}, args...)
	err := scanOrder(db.QueryRowContext(ctx, query, args...), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func getOrderItems(ctx context.Context, db *sql.DB, orderID int64) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, subtotal, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// ListOrdersCursor pages through the orders visible under scope, newest
// first.
func ListOrdersCursor(ctx context.Context, db *sql.DB, scope authz.Scope, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	pred, args := scopePredicate(scope, 3)
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE (created_at, id) < ($1, $2)
		  AND %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`, orderColumns, pred, len(args)+3)

	queryArgs := append([]interface{}{cursorData.CreatedAt, cursorData.ID}, args...)
	queryArgs = append(queryArgs, limit+1)

	rows, err := db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// AssignOrderStaff sets or clears the staff member handling an order,
// with the same same-tenant staff validation as product assignment.
func AssignOrderStaff(ctx context.Context, db *sql.DB, orderID int64, staffID *int64) (*models.Order, error) {
	order := &models.Order{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var tenantID int64
		err := tx.QueryRowContext(ctx,
			`SELECT tenant_id FROM orders WHERE id = $1 FOR UPDATE`,
			orderID).Scan(&tenantID)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if staffID != nil {
			if err := checkStaffInTenant(ctx, tx, *staffID, tenantID); err != nil {
				return err
			}
		}

		query := `
			UPDATE orders
			SET assigned_staff_id = $1, version = version + 1, updated_at = NOW()
			WHERE id = $2
			RETURNING ` + orderColumns

		if err := scanOrder(tx.QueryRowContext(ctx, query, staffID, orderID), order); err != nil {
			return fmt.Errorf("assign order staff: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// UpdateOrderStatus moves an order to a new status label. The total and
// items are immutable; status is the only mutable business field.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, orderID int64, status string) (*models.Order, error) {
	if status == "" {
		return nil, fmt.Errorf("%w: status must not be empty", authz.ErrInvalid)
	}

	order := &models.Order{}

	query := `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + orderColumns

	err := scanOrder(db.QueryRowContext(ctx, query, status, orderID), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}
