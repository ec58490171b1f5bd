package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altay/vendorstore/internal/authz"
)

func TestScopePredicate(t *testing.T) {
	pred, args := scopePredicate(authz.Scope{All: true}, 1)
	assert.Equal(t, "TRUE", pred)
	assert.Empty(t, args)

	pred, args = scopePredicate(authz.Scope{Empty: true}, 1)
	assert.Equal(t, "FALSE", pred)
	assert.Empty(t, args)

	pred, args = scopePredicate(authz.Scope{TenantID: 10}, 3)
	assert.Equal(t, "tenant_id = $3", pred)
	assert.Equal(t, []interface{}{int64(10)}, args)

	pred, args = scopePredicate(authz.Scope{AssignedTo: 5}, 2)
	assert.Equal(t, "assigned_staff_id = $2", pred)
	assert.Equal(t, []interface{}{int64(5)}, args)

	pred, args = scopePredicate(authz.Scope{CustomerID: 7}, 1)
	assert.Equal(t, "customer_id = $1", pred)
	assert.Equal(t, []interface{}{int64(7)}, args)
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := OrderCursor{
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ID:        99,
	}

	decoded, err := DecodeCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	assert.Equal(t, cursor.ID, decoded.ID)
	assert.True(t, cursor.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecodeEmptyCursor(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, int64(1<<63-1), decoded.ID, "empty cursor starts from the newest row")
}
