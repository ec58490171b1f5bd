package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles carried by a Principal. Every role except admin acts within
// exactly one tenant per request.
const (
	RoleAdmin    = "admin"
	RoleOwner    = "owner"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOwner, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// Tenant is one vendor's isolated data partition.
type Tenant struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Domain       *string   `json:"domain,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// Principal is an authenticated actor. HomeTenantID is nil for admins
// and for principals not yet bound to a tenant.
type Principal struct {
	ID           int64     `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	Credential   string    `json:"-"`
	Role         string    `json:"role"`
	HomeTenantID *int64    `json:"home_tenant_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// Customer is the buyer record inside a tenant, optionally linked 1:1
// to a customer-role principal.
type Customer struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	PrincipalID *int64    `json:"principal_id,omitempty"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID              int64           `json:"id"`
	TenantID        int64           `json:"tenant_id"`
	SKU             string          `json:"sku,omitempty"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	StockQuantity   int             `json:"stock_quantity"`
	AssignedStaffID *int64          `json:"assigned_staff_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

type Order struct {
	ID              int64           `json:"id"`
	TenantID        int64           `json:"tenant_id"`
	CustomerID      int64           `json:"customer_id"`
	OrderNumber     string          `json:"order_number"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AssignedStaffID *int64          `json:"assigned_staff_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// OrderItem records the unit price visible at placement time; later
// catalog price changes never touch it.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)
