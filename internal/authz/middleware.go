package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yont-erp/yont-erp/internal/shared"
)

// ProfileSource resolves the current access profile for a user id.
type ProfileSource interface {
	ProfileFor(ctx context.Context, userID int64) (*UserAccessProfile, error)
}

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Engine   *Engine
	Profiles ProfileSource
	Logger   *slog.Logger
}

// RequireAny ensures the current user holds at least one of the permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			profile, ok := m.currentProfile(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if m.Engine.Evaluator().HasAnyPermission(profile, perms) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAll ensures the current user holds all of the permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			profile, ok := m.currentProfile(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if m.Engine.Evaluator().HasAllPermissions(profile, perms) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAuthority ensures the current user ranks at or above the requested
// authority.
func (m Middleware) RequireAuthority(rank AuthorityRank) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := m.currentProfile(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if m.Engine.Evaluator().HasAuthorityLevel(profile, rank) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) currentProfile(r *http.Request) (*UserAccessProfile, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok || actor.UserID <= 0 {
		return nil, false
	}
	profile, err := m.Profiles.ProfileFor(r.Context(), actor.UserID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("resolve profile", slog.Int64("user_id", actor.UserID), slog.Any("error", err))
		}
		return nil, false
	}
	return profile, true
}
