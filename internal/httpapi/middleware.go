package httpapi

import (
	"context"
	"net/http"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

type contextKey string

const actorKey contextKey = "actor"

// IdentityMiddleware resolves the authenticated identity the upstream auth
// layer attaches as headers (X-User-ID, X-User-Admin). Requests without an
// identity are rejected here so handlers can assume a valid actor.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing user identity")
			return
		}

		actor := domain.Actor{
			UserID:  userID,
			IsAdmin: r.Header.Get("X-User-Admin") == "true",
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFromContext(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey).(domain.Actor)
	return actor
}
