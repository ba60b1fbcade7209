package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"cutting-tracker/internal/authz"
	"cutting-tracker/internal/config"
)

type ctxKey struct{}

// Account is one login allowed through BasicAuth.
type Account struct {
	Password string
	Actor    authz.Actor
}

// Accounts builds the login table from configuration.
func Accounts(users []config.User) (map[string]Account, error) {
	out := make(map[string]Account, len(users))
	for _, u := range users {
		role, err := authz.ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("auth: user %s: %w", u.Login, err)
		}
		if _, dup := out[u.Login]; dup {
			return nil, fmt.Errorf("auth: duplicate login %s", u.Login)
		}
		out[u.Login] = Account{
			Password: u.Password,
			Actor:    authz.Actor{ID: u.EmployeeID, Role: role},
		}
	}
	return out, nil
}

// BasicAuth resolves the caller from the Authorization header and stores the
// actor in the request context.
func BasicAuth(accounts map[string]Account) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			login, password, ok := r.BasicAuth()
			if !ok {
				requireAuth(w)
				return
			}

			acc, found := accounts[login]
			if !found || subtle.ConstantTimeCompare([]byte(password), []byte(acc.Password)) != 1 {
				requireAuth(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), acc.Actor)))
		})
	}
}

func WithActor(ctx context.Context, a authz.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// ActorFromContext returns the actor stored by BasicAuth.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(authz.Actor)
	return a, ok
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Cutting Tracker"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
