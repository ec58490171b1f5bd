package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/altay/vendorstore/internal/models"
	"github.com/altay/vendorstore/internal/store"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

func seedTenant(t *testing.T, db *sql.DB, name string) *models.Tenant {
	t.Helper()

	tenant, err := store.CreateTenant(context.Background(), db, name, name+"@example.com", nil)
	if err != nil {
		t.Fatalf("Create tenant %s: %v", name, err)
	}
	return tenant
}

func seedPrincipal(t *testing.T, db *sql.DB, handle, role string, homeTenantID *int64) *models.Principal {
	t.Helper()

	principal, err := store.Register(context.Background(), db, store.RegisterRequest{
		Handle:       handle,
		Email:        handle + "@example.com",
		Credential:   "secret",
		Role:         role,
		HomeTenantID: homeTenantID,
	})
	if err != nil {
		t.Fatalf("Register %s: %v", handle, err)
	}
	return principal
}

// seedBarePrincipal inserts a principal without the eager customer row,
// standing in for accounts that predate registration-time linking.
func seedBarePrincipal(t *testing.T, db *sql.DB, handle, role string, homeTenantID *int64) *models.Principal {
	t.Helper()

	principal := &models.Principal{}
	err := db.QueryRow(
		`INSERT INTO principals (handle, email, credential, role, home_tenant_id, created_at, updated_at, version)
		 VALUES ($1, $2, 'secret', $3, $4, NOW(), NOW(), 1)
		 RETURNING id, handle, email, credential, role, home_tenant_id, created_at, updated_at, version`,
		handle, handle+"@example.com", role, homeTenantID).Scan(
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
		t.Fatalf("Insert bare principal %s: %v", handle, err)
	}
	return principal
}

func seedProduct(t *testing.T, db *sql.DB, tenantID int64, sku, name, price string, stock int) *models.Product {
	t.Helper()

	p, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatalf("Parse price %s: %v", price, err)
	}

	product, err := store.CreateProduct(context.Background(), db, tenantID, sku, name, "", p, stock)
	if err != nil {
		t.Fatalf("Create product %s: %v", name, err)
	}
	return product
}

func idString(id int64) string {
	return fmt.Sprintf("%d", id)
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Count %s: %v", table, err)
	}
	return n
}
