package utils

import (
	"context"
	"sync"
	"time"
)

const revokedTokenPrefix = "admin:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

// RevokeToken blocks an admin token until its natural expiry. Redis is used
// when enabled so every instance sees the logout.
func RevokeToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedTokenPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	revokedMu.Lock()
	revoked[token] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked reports whether a token was logged out before it expired.
func IsTokenRevoked(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, revokedTokenPrefix+token).Result(); err == nil && n > 0 {
			return true
		}
	}

	revokedMu.Lock()
	defer revokedMu.Unlock()
	now := time.Now()
	for t, exp := range revoked {
		if now.After(exp) {
			delete(revoked, t)
		}
	}
	_, ok := revoked[token]
	return ok
}
