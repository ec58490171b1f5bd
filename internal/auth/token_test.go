package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altay/vendorstore/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	homeTenant := int64(10)

	p := &models.Principal{
		ID:           42,
		Handle:       "alice",
		Email:        "alice@example.com",
		Role:         models.RoleCustomer,
		HomeTenantID: &homeTenant,
	}

	token, err := IssueToken(secret, p, time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(secret, token)
	require.NoError(t, err)

	id, err := claims.PrincipalID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "alice", claims.Handle)
	assert.Equal(t, models.RoleCustomer, claims.Role)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, int64(10), *claims.TenantID)
}

func TestTokenNilTenant(t *testing.T) {
	secret := []byte("test-secret")

	p := &models.Principal{ID: 1, Handle: "root", Role: models.RoleAdmin}

	token, err := IssueToken(secret, p, time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(secret, token)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID, "admin tokens carry a null tenant claim")
}

func TestTokenWrongSecret(t *testing.T) {
	p := &models.Principal{ID: 1, Handle: "alice", Role: models.RoleCustomer}

	token, err := IssueToken([]byte("secret-a"), p, time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken([]byte("secret-b"), token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	p := &models.Principal{ID: 1, Handle: "alice", Role: models.RoleCustomer}

	token, err := IssueToken(secret, p, -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(secret, token)
	assert.Error(t, err)
}
