package authz

import "errors"

var (
	// ErrForbidden means the principal is known but a role, ownership, or
	// assignment check failed. It never implies the target is absent.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalid means the request is malformed or semantically
	// inconsistent (missing tenant, cross-tenant reference, bad quantity).
	// Wrap with detail: fmt.Errorf("%w: product 42 not in tenant", ErrInvalid).
	ErrInvalid = errors.New("invalid request")
)
