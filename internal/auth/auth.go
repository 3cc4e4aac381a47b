// Package auth validates API tokens. A token is
// "<account_id>:<signature>" where the signature is
// hex(HMAC-SHA256(secret, "account:<account_id>")). Tokens are minted
// out of band by the operator; the middleware only verifies them.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// ContextKey is the key type for context values
type ContextKey string

const (
	// AccountIDKey is the context key for the authenticated account id
	AccountIDKey ContextKey = "account_id"
)

func sign(secret []byte, accountID int64) string {
	h := hmac.New(sha256.New, secret)
	fmt.Fprintf(h, "account:%d", accountID)
	return hex.EncodeToString(h.Sum(nil))
}

// MintToken creates a token for an account id. Used by the operator
// tooling and by tests.
func MintToken(secret []byte, accountID int64) string {
	return fmt.Sprintf("%d:%s", accountID, sign(secret, accountID))
}

// ValidateToken checks a token's signature and returns the account id
func ValidateToken(secret []byte, token string) (int64, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed token")
	}

	accountID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id in token")
	}

	expected := sign(secret, accountID)
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return 0, fmt.Errorf("invalid token signature")
	}

	return accountID, nil
}

// Middleware returns an HTTP middleware that validates bearer tokens on
// /api/ routes and puts the account id into the request context
func Middleware(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for non-API routes
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		// Liveness check stays open
		if r.URL.Path == "/api/ping" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "Unauthorized: missing bearer token", http.StatusUnauthorized)
			return
		}

		accountID, err := ValidateToken(secret, token)
		if err != nil {
			log.Printf("Auth failed: %v", err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		ctx := contextWithAccountID(r.Context(), accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// contextWithAccountID adds the account id to the context
func contextWithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, AccountIDKey, accountID)
}

// GetAccountIDFromContext retrieves the account id from the context
func GetAccountIDFromContext(ctx context.Context) (int64, bool) {
	accountID, ok := ctx.Value(AccountIDKey).(int64)
	return accountID, ok
}
