package httpkit

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuth gates the debug HTTP surface with a single bearer token,
// compared via bcrypt rather than a plain string comparison so the
// hash (not the token) is what lives in process memory after setup.
type AdminAuth struct {
	tokenHash []byte
}

// NewAdminAuth hashes token for later comparison. An empty token
// disables the admin surface entirely: every request is rejected.
func NewAdminAuth(token string) (*AdminAuth, error) {
	if token == "" {
		return &AdminAuth{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("httpkit: hash admin token: %w", err)
	}
	return &AdminAuth{tokenHash: hash}, nil
}

// Check reports whether presented matches the configured token.
func (a *AdminAuth) Check(presented string) bool {
	if len(a.tokenHash) == 0 || presented == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.tokenHash, []byte(presented)) == nil
}

// Middleware rejects any request that doesn't present the admin token
// as "Authorization: Bearer <token>".
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !a.Check(presented) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
