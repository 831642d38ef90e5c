package controllers

import (
	"net/http"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type createStoreRequest struct {
	Name            string  `json:"name" validate:"required,max=120"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	City            string  `json:"city" validate:"required,max=100"`
	PayoutAccountID *string `json:"payout_account_id,omitempty" validate:"omitempty,max=120"`
}

type updateStoreRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	City            *string `json:"city,omitempty" validate:"omitempty,min=1,max=100"`
	PayoutAccountID *string `json:"payout_account_id,omitempty" validate:"omitempty,max=120"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// SellerCreateStore opens the caller's storefront. A seller owns at most one store.
func SellerCreateStore(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createStoreRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.Create(r.Context(), actor, stores.CreateStoreInput{
			Name:            payload.Name,
			Description:     payload.Description,
			City:            payload.City,
			PayoutAccountID: payload.PayoutAccountID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, store)
	}
}

func SellerGetStore(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.GetMine(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

func SellerUpdateStore(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStoreRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := svc.Update(r.Context(), actor, stores.UpdateStoreInput{
			Name:            payload.Name,
			Description:     payload.Description,
			City:            payload.City,
			PayoutAccountID: payload.PayoutAccountID,
			IsActive:        payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}
