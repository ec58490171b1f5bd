package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/altay/vendorstore/internal/auth"
	"github.com/altay/vendorstore/internal/authz"
	"github.com/altay/vendorstore/internal/config"
	"github.com/altay/vendorstore/internal/database"
	"github.com/altay/vendorstore/internal/models"
	"github.com/altay/vendorstore/internal/store"
	"github.com/altay/vendorstore/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	mux := http.NewServeMux()

	mux.HandleFunc("/register", handleRegister(db))
	mux.HandleFunc("/login", handleLogin(db, cfg))
	mux.HandleFunc("/tenants", handleTenants(db, cfg))
	mux.HandleFunc("/tenants/", handleTenantByID(db, cfg))
	mux.HandleFunc("/products", handleProducts(db, cfg))
	mux.HandleFunc("/products/", handleProductByID(db, cfg))
	mux.HandleFunc("/orders", handleOrders(db, cfg))
	mux.HandleFunc("/orders/", handleOrderByID(db, cfg))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

var errInvalidToken = errors.New("invalid token")

// requestAccess authenticates the caller (anonymous is allowed) and
// resolves the request tenant from the home tenant or the explicit
// tenant header. The result is threaded through every store call.
func requestAccess(ctx context.Context, db *sql.DB, cfg *config.Config, r *http.Request) (authz.Access, error) {
	var principal *models.Principal

	if header := r.Header.Get("Authorization"); header != "" {
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return authz.Access{}, errInvalidToken
		}

		claims, err := auth.VerifyToken([]byte(cfg.Auth.JWTSecret), tokenString)
		if err != nil {
			return authz.Access{}, errInvalidToken
		}

		id, err := claims.PrincipalID()
		if err != nil {
			return authz.Access{}, errInvalidToken
		}

		principal, err = store.GetPrincipal(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrPrincipalNotFound) {
				return authz.Access{}, errInvalidToken
			}
			return authz.Access{}, err
		}
	}

	resolved, err := tenant.Resolve(ctx, db, principal, r.Header.Get(cfg.Server.TenantHeader))
	if err != nil {
		return authz.Access{}, err
	}

	return authz.Access{Principal: principal, Tenant: resolved}, nil
}

// linkedCustomer loads the customer row linked to a customer-role
// principal; nil means no linked row, which scopes to the empty set.
func linkedCustomer(ctx context.Context, db *sql.DB, access authz.Access) (*models.Customer, error) {
	if access.Role() != models.RoleCustomer {
		return nil, nil
	}

	customer, err := store.GetCustomerByPrincipal(ctx, db, access.Principal.ID)
	if err != nil {
		if errors.Is(err, database.ErrCustomerNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return customer, nil
}

func handleRegister(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			Handle       string `json:"handle"`
			Email        string `json:"email"`
			Credential   string `json:"credential"`
			Role         string `json:"role"`
			HomeTenantID *int64 `json:"home_tenant_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		principal, err := store.Register(r.Context(), db, store.RegisterRequest{
			Handle:       req.Handle,
			Email:        req.Email,
			Credential:   req.Credential,
			Role:         req.Role,
			HomeTenantID: req.HomeTenantID,
		})
		if err != nil {
			respondOpError(w, err)
			return
		}

		respondJSON(w, http.StatusCreated, principal)
	}
}

func handleLogin(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			Handle     string `json:"handle"`
			Credential string `json:"credential"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		principal, err := store.GetPrincipalByHandle(r.Context(), db, req.Handle)
		if err != nil || principal.Credential != req.Credential {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), principal, cfg.Auth.TokenTTL)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Could not issue token")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func handleTenants(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		access, err := requestAccess(ctx, db, cfg, r)
		if err != nil {
			respondAccessError(w, err)
			return
		}

		if !authz.CanManageTenants(access) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name         string  `json:"name"`
				ContactEmail string  `json:"contact_email"`
				Domain       *string `json:"domain"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			created, err := store.CreateTenant(ctx, db, req.Name, req.ContactEmail, req.Domain)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, created)

		case http.MethodGet:
			page, pageSize := pageParams(r)
			result, err := store.ListTenants(ctx, db, page, pageSize)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleTenantByID(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		access, err := requestAccess(ctx, db, cfg, r)
		if err != nil {
			respondAccessError(w, err)
			return
		}

		if !authz.CanManageTenants(access) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		id, rest, ok := pathID(r.URL.Path, "/tenants/")
		if !ok || rest != "" {
			respondError(w, http.StatusBadRequest, "Invalid tenant ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			found, err := store.GetTenant(ctx, db, id)
			if err != nil {
				respondOpError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, found)

		case http.MethodDelete:
			if err := store.DeleteTenant(ctx, db, id); err != nil {
				respondOpError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleProducts(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		access, err := requestAccess(ctx, db, cfg, r)
		if err != nil {
			respondAccessError(w, err)
			return
		}

		if !authz.CanManageCatalog(access) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		switch r.Method {
		case http.MethodPost:
			if access.Role() == models.RoleStaff {
				respondError(w, http.StatusForbidden, "Forbidden")
				return
			}

			tenantID, ok := access.TenantID()
			if !ok {
				respondError(w, http.StatusBadRequest, "No tenant for product creation")
				return
			}

			var req struct {
				SKU         string `json:"sku"`
				Name        string `json:"name"`
				Description string `json:"description"`
				Price       string `json:"price"`
				Stock       int    `json:"stock"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			price, err := decimal.NewFromString(req.Price)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid price")
				return
			}

			product, err := store.CreateProduct(ctx, db, tenantID, req.SKU, req.Name, req.Description, price, req.Stock)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, product)

		case http.MethodGet:
			page, pageSize := pageParams(r)
			result, err := store.ListProducts(ctx, db, authz.ProductScope(access), page, pageSize)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleProductByID(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		access, err := requestAccess(ctx, db, cfg, r)
		if err != nil {
			respondAccessError(w, err)
			return
		}

		if !authz.CanManageCatalog(access) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		id, rest, ok := pathID(r.URL.Path, "/products/")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		// Scoped lookup first: out-of-tenant records stay absent. The
		// object-level chain is the second, independent barrier.
		product, err := store.GetProduct(ctx, db, authz.LookupScope(access, nil), id)
		if err != nil {
			respondOpError(w, err)
			return
		}

		if rest == "assign" && r.Method == http.MethodPost {
			switch access.Role() {
			case models.RoleAdmin, models.RoleOwner:
			default:
				respondError(w, http.StatusForbidden, "Forbidden")
				return
			}

			if err := authz.AuthorizeProduct(access, product); err != nil {
				respondOpError(w, err)
				return
			}

			var req struct {
				StaffID *int64 `json:"staff_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			updated, err := store.AssignProductStaff(ctx, db, id, req.StaffID)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, updated)
			return
		}

		if rest != "" {
			respondError(w, http.StatusNotFound, "Not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			if err := authz.AuthorizeProduct(access, product); err != nil {
				respondOpError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, product)

		case http.MethodPut:
			if err := authz.AuthorizeProduct(access, product); err != nil {
				respondOpError(w, err)
				return
			}

			var req struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Price       string `json:"price"`
				Stock       int    `json:"stock"`
				Version     int    `json:"version"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			price, err := decimal.NewFromString(req.Price)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid price")
				return
			}

			updated, err := store.UpdateProduct(ctx, db, id, req.Name, req.Description, price, req.Stock, req.Version)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, updated)

		case http.MethodDelete:
			switch access.Role() {
			case models.RoleAdmin, models.RoleOwner:
			default:
				respondError(w, http.StatusForbidden, "Forbidden")
				return
			}

			if err := authz.AuthorizeProduct(access, product); err != nil {
				respondOpError(w, err)
				return
			}

			if err := store.DeleteProduct(ctx, db, id); err != nil {
				respondOpError(w, err)
				return
			}

			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleOrders(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		access, err := requestAccess(ctx, db, cfg, r)
		if err != nil {
			respondAccessError(w, err)
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Items []struct {
					ProductID int64 `json:"product_id"`
					Qty       int   `json:"qty"`
				} `json:"items"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			var lines []store.OrderLineRequest
			for _, item := range req.Items {
				lines = append(lines, store.OrderLineRequest{
					ProductID: item.ProductID,
					Quantity:  item.Qty,
				})
			}

			order, err := store.PlaceOrder(ctx, db, access, lines)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, order)

		case http.MethodGet:
			if !authz.CanViewOrders(access) {
				respondError(w, http.StatusForbidden, "Forbidden")
				return
			}

			customer, err := linkedCustomer(ctx, db, access)
			if err != nil {
				respondOpError(w, err)
				return
			}

			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			if limit < 1 || limit > 100 {
				limit = 20
			}

			result, err := store.ListOrdersCursor(ctx, db, authz.OrderScope(access, customer), r.URL.Query().Get("cursor"), limit)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleOrderByID(db *sql.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		access, err := requestAccess(ctx, db, cfg, r)
		if err != nil {
			respondAccessError(w, err)
			return
		}

		if !authz.CanViewOrders(access) {
			respondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		id, rest, ok := pathID(r.URL.Path, "/orders/")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		customer, err := linkedCustomer(ctx, db, access)
		if err != nil {
			respondOpError(w, err)
			return
		}

		var customerID *int64
		if customer != nil {
			customerID = &customer.ID
		}

		order, err := store.GetOrder(ctx, db, authz.LookupScope(access, customer), id)
		if err != nil {
			respondOpError(w, err)
			return
		}

		if err := authz.AuthorizeOrder(access, order, customerID); err != nil {
			respondOpError(w, err)
			return
		}

		switch {
		case rest == "" && r.Method == http.MethodGet:
			respondJSON(w, http.StatusOK, order)

		case rest == "assign" && r.Method == http.MethodPost:
			switch access.Role() {
			case models.RoleAdmin, models.RoleOwner:
			default:
				respondError(w, http.StatusForbidden, "Forbidden")
				return
			}

			var req struct {
				StaffID *int64 `json:"staff_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			updated, err := store.AssignOrderStaff(ctx, db, id, req.StaffID)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, updated)

		case rest == "status" && r.Method == http.MethodPost:
			if access.Role() == models.RoleCustomer {
				respondError(w, http.StatusForbidden, "Forbidden")
				return
			}

			var req struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			updated, err := store.UpdateOrderStatus(ctx, db, id, req.Status)
			if err != nil {
				respondOpError(w, err)
				return
			}

			respondJSON(w, http.StatusOK, updated)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

// pathID parses "/prefix/{id}" or "/prefix/{id}/{rest}".
func pathID(path, prefix string) (int64, string, bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	idStr, rest, _ := strings.Cut(trimmed, "/")

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, rest, true
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func respondAccessError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidToken) {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	respondError(w, http.StatusInternalServerError, "Internal error")
}

// respondOpError maps the error taxonomy onto HTTP statuses. Forbidden
// and NotFound stay distinct on purpose; storage failures are opaque.
func respondOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, authz.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrTenantNotFound),
		errors.Is(err, database.ErrPrincipalNotFound),
		errors.Is(err, database.ErrCustomerNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrHandleTaken),
		errors.Is(err, database.ErrRowReferenced),
		errors.Is(err, database.ErrOptimisticLockFailed):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
