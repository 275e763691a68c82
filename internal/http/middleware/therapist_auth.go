package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const therapistIDKey contextKey = "therapistID"

// TherapistJWT enforces an HMAC-signed JWT whose subject is the
// therapist id. Every row in the store is scoped by that id.
func TherapistJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			therapistID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "invalid subject", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), therapistIDKey, therapistID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithTherapistID returns a context carrying the therapist identity.
// Handler tests use it in place of the JWT middleware.
func WithTherapistID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, therapistIDKey, id)
}

// TherapistIDFromContext returns the authenticated therapist id.
func TherapistIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(therapistIDKey).(uuid.UUID)
	return id, ok
}
