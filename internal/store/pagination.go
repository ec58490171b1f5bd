package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/altay/vendorstore/internal/authz"
)

type CursorPage struct {
	Items      interface{} `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

type OffsetPage struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

type OrderCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

func EncodeCursor(cursor OrderCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

func DecodeCursor(encoded string) (OrderCursor, error) {
	var cursor OrderCursor
	if encoded == "" {
		return OrderCursor{
			CreatedAt: time.Now(),
			ID:        int64(1<<63 - 1),
		}, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, err
	}

	err = json.Unmarshal(data, &cursor)
	return cursor, err
}

// scopePredicate renders a visibility scope as a SQL predicate whose
// placeholders start at position pos. All and Empty render as constant
// predicates so callers never branch around the scope.
func scopePredicate(s authz.Scope, pos int) (string, []interface{}) {
	switch {
	case s.Empty:
		return "FALSE", nil
	case s.All:
		return "TRUE", nil
	case s.AssignedTo != 0:
		return fmt.Sprintf("assigned_staff_id = $%d", pos), []interface{}{s.AssignedTo}
	case s.CustomerID != 0:
		return fmt.Sprintf("customer_id = $%d", pos), []interface{}{s.CustomerID}
	default:
		return fmt.Sprintf("tenant_id = $%d", pos), []interface{}{s.TenantID}
	}
}
