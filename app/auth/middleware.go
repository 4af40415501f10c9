// Package auth resolves the request owner. Identity itself comes from
// an external provider: authenticated callers present a signed bearer
// token whose subject is the owner id, anonymous callers are tracked
// by an opaque session cookie minted on first contact.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/decommerce/storefront-api/app/api"
	"github.com/decommerce/storefront-api/app/session"
)

// SessionCookie carries the anonymous session token.
const SessionCookie = "session_id"

// Owner identifies who a cart or order belongs to: a user id from a
// verified token, or an anonymous session token.
type Owner struct {
	ID            string
	Authenticated bool
}

type ctxKey struct{}

func WithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

func FromContext(ctx context.Context) (Owner, bool) {
	owner, ok := ctx.Value(ctxKey{}).(Owner)
	return owner, ok
}

// Middleware attaches the resolved owner to the request context. A
// present but invalid bearer token is rejected outright rather than
// downgraded to an anonymous session.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				subject, err := verify(strings.TrimPrefix(header, "Bearer "), secret)
				if err != nil {
					api.Error(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				ctx := WithOwner(r.Context(), Owner{ID: subject, Authenticated: true})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := sessionToken(w, r)
			ctx := WithOwner(r.Context(), Owner{ID: token})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verify(raw string, secret []byte) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

func sessionToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	token := session.NewToken()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	return token
}
