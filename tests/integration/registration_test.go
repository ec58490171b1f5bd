package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/altay/vendorstore/internal/authz"
	"github.com/altay/vendorstore/internal/database"
	"github.com/altay/vendorstore/internal/models"
	"github.com/altay/vendorstore/internal/store"
)

func TestRegisterCustomerCreatesLinkedRow(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t1 := seedTenant(t, db, "acme")

	principal, err := store.Register(ctx, db, store.RegisterRequest{
		Handle:       "carol",
		Email:        "carol@example.com",
		Credential:   "secret",
		HomeTenantID: &t1.ID,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if principal.Role != models.RoleCustomer {
		t.Errorf("Role should default to customer, got %s", principal.Role)
	}

	customer, err := store.GetCustomerByPrincipal(ctx, db, principal.ID)
	if err != nil {
		t.Fatalf("Customer row should exist immediately: %v", err)
	}
	if customer.TenantID != t1.ID {
		t.Errorf("Expected customer in tenant %d, got %d", t1.ID, customer.TenantID)
	}
	if customer.Name != "carol" || customer.Email != "carol@example.com" {
		t.Errorf("Customer defaults from principal, got %q / %q", customer.Name, customer.Email)
	}
}

func TestRegisterCustomerRequiresTenant(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.Register(context.Background(), db, store.RegisterRequest{
		Handle: "carol",
		Role:   models.RoleCustomer,
	})
	if !errors.Is(err, authz.ErrInvalid) {
		t.Fatalf("Expected invalid error, got: %v", err)
	}
}

func TestRegisterAdminWithoutTenant(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	principal, err := store.Register(context.Background(), db, store.RegisterRequest{
		Handle: "root",
		Role:   models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Register admin: %v", err)
	}
	if principal.HomeTenantID != nil {
		t.Errorf("Admin should have no home tenant, got %d", *principal.HomeTenantID)
	}
}

func TestRegisterDuplicateHandle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	t1 := seedTenant(t, db, "acme")
	seedPrincipal(t, db, "carol", models.RoleCustomer, &t1.ID)

	_, err := store.Register(ctx, db, store.RegisterRequest{
		Handle:       "carol",
		Role:         models.RoleCustomer,
		HomeTenantID: &t1.ID,
	})
	if !errors.Is(err, database.ErrHandleTaken) {
		t.Fatalf("Expected handle taken error, got: %v", err)
	}
}

func TestRegisterUnknownTenant(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	missing := int64(12345)
	_, err := store.Register(context.Background(), db, store.RegisterRequest{
		Handle:       "carol",
		Role:         models.RoleCustomer,
		HomeTenantID: &missing,
	})
	if !errors.Is(err, authz.ErrInvalid) {
		t.Fatalf("Expected invalid error, got: %v", err)
	}
}

func TestDeleteTenantRestrictedByOrders(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	emptyTenant := seedTenant(t, db, "empty")
	busyTenant := seedTenant(t, db, "busy")
	customer := seedPrincipal(t, db, "carol", models.RoleCustomer, &busyTenant.ID)
	widget := seedProduct(t, db, busyTenant.ID, "WID-001", "Widget", "9.99", 10)

	if _, err := store.PlaceOrder(ctx, db, authz.Access{Principal: customer}, []store.OrderLineRequest{
		{ProductID: widget.ID, Quantity: 1},
	}); err != nil {
		t.Fatalf("Place order: %v", err)
	}

	if err := store.DeleteTenant(ctx, db, busyTenant.ID); !errors.Is(err, database.ErrRowReferenced) {
		t.Fatalf("Tenant with orders must not delete, got: %v", err)
	}

	if err := store.DeleteTenant(ctx, db, emptyTenant.ID); err != nil {
		t.Fatalf("Empty tenant should delete: %v", err)
	}
}
