package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const (
	CtxUserID   ctxKey = "userId"
	CtxUserRole ctxKey = "role"
)

const RoleAdmin = "admin"

// JWTAuth validates the bearer token and puts userId and role in the
// request context.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	secretBytes := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, role, ok := parseBearer(r, secretBytes)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID, role)))
		})
	}
}

// OptionalJWT attaches the identity when a valid token is sent and lets
// anonymous requests through.
func OptionalJWT(secret string) func(http.Handler) http.Handler {
	secretBytes := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, role, ok := parseBearer(r, secretBytes); ok {
				r = r.WithContext(withIdentity(r.Context(), userID, role))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseBearer(r *http.Request, secret []byte) (string, string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "", false
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", false
	}

	// sub may be a string id or a number
	var userID string
	switch v := claims["sub"].(type) {
	case string:
		userID = v
	case float64:
		userID = strconv.FormatInt(int64(v), 10)
	}
	if userID == "" {
		return "", "", false
	}
	role, _ := claims["role"].(string)
	return userID, role, true
}

func withIdentity(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, CtxUserID, userID)
	return context.WithValue(ctx, CtxUserRole, role)
}

// AdminOnly lets only role == "admin" through.
func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(CtxUserRole).(string)
			if role != RoleAdmin {
				writeError(w, http.StatusForbidden, "forbidden", "admin only")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(CtxUserID).(string)
	return id
}
