package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fastworkhq/fastwork-backend/api/responses"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
)

const (
	userIDHeader = "X-User-Id"
	roleHeader   = "X-User-Role"
)

// Identity trusts the authenticating proxy's headers and loads the caller
// into the request context. Requests without a parseable user id are
// rejected before they reach any handler.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := strings.TrimSpace(r.Header.Get(userIDHeader))
			if rawID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}
			userID, err := uuid.Parse(rawID)
			if err != nil || userID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user identity"))
				return
			}

			role := strings.ToLower(strings.TrimSpace(r.Header.Get(roleHeader)))
			if role != "" {
				if _, err := enums.ParseRole(role); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user role"))
					return
				}
			}

			ctx := WithUserID(r.Context(), userID.String())
			if role != "" {
				ctx = WithRole(ctx, role)
			}
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID.String())
				if role != "" {
					ctx = logg.WithActorRole(ctx, role)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
