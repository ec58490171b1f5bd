package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/altay/vendorstore/internal/models"
)

// Claims is the verified identity carried by a token: who the principal
// is, their role, and their home tenant (nil when unbound).
type Claims struct {
	Handle   string `json:"handle"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	TenantID *int64 `json:"tenant_id"`
	jwt.RegisteredClaims
}

// PrincipalID parses the token subject back into the principal's row id.
func (c *Claims) PrincipalID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token subject: %w", err)
	}
	return id, nil
}

// IssueToken signs an HMAC token for the given principal.
func IssueToken(secret []byte, p *models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Handle:   p.Handle,
		Email:    p.Email,
		Role:     p.Role,
		TenantID: p.HomeTenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// VerifyToken parses and validates a signed token, rejecting anything
// not HMAC-signed with our secret.
func VerifyToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
