package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// RequireRole admits only callers holding one of roles. Anonymous callers
// get 401, the wrong role gets 403.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	denied := pkgerrors.New(pkgerrors.CodeForbidden, "role required").WithDetails(map[string]any{"required": roles})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := RequestActor(r)
			switch {
			case err != nil:
				responses.WriteError(r.Context(), logg, w, err)
			case !slices.Contains(roles, actor.Role):
				responses.WriteError(r.Context(), logg, w, denied)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
