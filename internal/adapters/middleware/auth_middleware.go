package middleware

import (
	"context"
	"crypto/rsa"
	"log"
	"net/http"
	"strings"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies the RS256 tokens issued by the
// identity-access-service and resolves the caller into a domain.Identity.
// This service never issues tokens itself.
type AuthMiddleware struct {
	publicKey *rsa.PublicKey
}

func NewAuthMiddleware(publicKey *rsa.PublicKey) *AuthMiddleware {
	return &AuthMiddleware{
		publicKey: publicKey,
	}
}

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the authenticated caller set by Authenticate.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok
}

// WithIdentity returns a context carrying the identity, as Authenticate
// would set it.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved identity on the request context. Role and activity enforcement
// happen in the core per operation, not here: the same endpoint can behave
// differently per role.
func (m *AuthMiddleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Printf("Missing Authorization header")
			unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Printf("Invalid Authorization header format")
			unauthorized(w, "invalid authorization header")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.publicKey, nil
		})
		if err != nil {
			log.Printf("Token parse error: %v", err)
			unauthorized(w, "invalid token")
			return
		}
		if !token.Valid {
			log.Printf("Token not valid")
			unauthorized(w, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			log.Printf("Failed to extract claims")
			unauthorized(w, "invalid token claims")
			return
		}

		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			log.Printf("Missing or invalid 'sub' claim: %v", claims["sub"])
			unauthorized(w, "invalid token: missing user ID")
			return
		}

		roleClaim, ok := claims["role"].(string)
		if !ok || !domain.Role(roleClaim).Valid() {
			log.Printf("Missing or invalid 'role' claim: %v", claims["role"])
			unauthorized(w, "invalid token: missing role")
			return
		}

		// Tokens issued before an account is deactivated stay parseable;
		// the 'active' claim lets mutations be refused without a lookup.
		active, ok := claims["active"].(bool)
		if !ok {
			active = true
		}

		identity := domain.Identity{
			UserID: userID,
			Role:   domain.Role(roleClaim),
			Active: active,
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx))
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"status":"error","message":"` + message + `"}`))
}
