package controllers

import (
	"net/http"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

var errAuthUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")

func writeSession(w http.ResponseWriter, status int, session *auth.LoginResponse) {
	w.Header().Set(middleware.SessionTokenHeader, session.AccessToken)
	w.Header().Set("Cache-Control", "no-store")
	responses.WriteSuccessStatus(w, status, session)
}

// AuthLogin exchanges email and password for an access token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		var creds auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &creds); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Login(r.Context(), creds)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, http.StatusOK, session)
	}
}

// AuthRegister opens a buyer or seller account and returns a session for it.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
			return
		}
		var signup auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &signup); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		signup.Name = validators.SanitizeString(signup.Name, 100)

		session, err := svc.Register(r.Context(), signup)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, http.StatusCreated, session)
	}
}
