package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const bearerScheme = "bearer"

// Auth requires a bearer access token and seeds the context with its actor.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(err *pkgerrors.Error) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="bazaar"`)
				responses.WriteError(r.Context(), logg, w, err)
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, pkgAuth.ErrTokenExpired) {
					msg = "token expired"
				}
				reject(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}
			actor := pkgAuth.ActorFromClaims(claims)
			if !actor.Valid() {
				reject(pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor.UserID.String(), string(actor.Role))
			}
			if claims.StoreID != nil {
				ctx = WithStoreID(ctx, *claims.StoreID)
				if logg != nil {
					ctx = logg.WithStoreID(ctx, claims.StoreID.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
