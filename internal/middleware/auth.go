package middleware

import (
	"context"
	"net/http"
	"strings"

	"lancebill-backend/internal/auth"
	"lancebill-backend/internal/repositories"
)

type contextKey string

const AccountIDKey contextKey = "account_id"

type AuthMiddleware struct {
	jwtManager  *auth.JWTManager
	accountRepo *repositories.AccountRepository
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, accountRepo *repositories.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:  jwtManager,
		accountRepo: accountRepo,
	}
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}

		token := parts[1]
		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		// Check database for current account status so revoked accounts
		// lose access without waiting for token expiry.
		account, err := m.accountRepo.Get(r.Context(), claims.AccountID)
		if err != nil {
			http.Error(w, "Account not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), AccountIDKey, account.ID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAccountIDFromContext extracts the authenticated owner ID from context
func GetAccountIDFromContext(ctx context.Context) (int, bool) {
	accountID, ok := ctx.Value(AccountIDKey).(int)
	return accountID, ok
}
