// Package auth models the API keys that guard the admin surface (order
// management, dashboard, coupon administration).
package auth

import "context"

// APIKeyInfo describes an admin key that matched a hash lookup. Scopes are
// recorded for future per-route checks; today any active key unlocks the
// whole admin surface.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository resolves the peppered HMAC-SHA256 hash computed at the HTTP
// boundary to a stored key. Plaintext keys are never stored.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
