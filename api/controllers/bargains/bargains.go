package bargains

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internalbargains "github.com/angelmondragon/bazaar-backend/internal/bargains"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const maxMessageLen = 500

type proposeRequest struct {
	ProductID     uuid.UUID        `json:"product_id" validate:"required"`
	ProposedPrice *decimal.Decimal `json:"proposed_price" validate:"required"`
	Quantity      int              `json:"quantity" validate:"omitempty,min=1"`
	SelectedSize  *string          `json:"selected_size,omitempty" validate:"omitempty,max=20"`
	SelectedColor *string          `json:"selected_color,omitempty" validate:"omitempty,max=30"`
	Message       string           `json:"message,omitempty" validate:"max=500"`
}

type sellerRespondRequest struct {
	Action          string           `json:"action" validate:"required,oneof=accept reject counter"`
	CounterOffer    *decimal.Decimal `json:"counter_offer,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty" validate:"max=500"`
	Message         string           `json:"message,omitempty" validate:"max=500"`
}

type buyerRespondRequest struct {
	Action  string `json:"action" validate:"required,oneof=accept reject"`
	Message string `json:"message,omitempty" validate:"max=500"`
}

type messageRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

// Propose opens a negotiation on a product at a price below its list price.
func Propose(svc internalbargains.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bargain service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload proposeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bargain, err := svc.Propose(r.Context(), actor, internalbargains.ProposeInput{
			ProductID:     payload.ProductID,
			ProposedPrice: *payload.ProposedPrice,
			Quantity:      payload.Quantity,
			SelectedSize:  payload.SelectedSize,
			SelectedColor: payload.SelectedColor,
			Message:       payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bargain)
	}
}

// ListMine returns the buyer's bargains. Stale open bargains are expired while listing.
func ListMine(svc internalbargains.Service, logg *logger.Logger) http.HandlerFunc {
	return list(svc, logg, func(s internalbargains.Service) listFunc { return s.ListForBuyer })
}

// SellerList returns bargains on the seller's products.
func SellerList(svc internalbargains.Service, logg *logger.Logger) http.HandlerFunc {
	return list(svc, logg, func(s internalbargains.Service) listFunc { return s.ListForSeller })
}

type listFunc func(ctx context.Context, actor auth.Actor, params internalbargains.ListParams) (*internalbargains.ListResult, error)

func list(svc internalbargains.Service, logg *logger.Logger, pick func(internalbargains.Service) listFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bargain service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := pick(svc)(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Get returns a bargain with its message thread to either party.
func Get(svc internalbargains.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bargain service unavailable"))
			return
		}

		actor, bargainID, err := actorAndBargain(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bargain, err := svc.Get(r.Context(), actor, bargainID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bargain)
	}
}

// SellerRespond accepts, rejects or counters an open bargain.
func SellerRespond(svc internalbargains.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bargain service unavailable"))
			return
		}

		actor, bargainID, err := actorAndBargain(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sellerRespondRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseBargainAction(payload.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}

		bargain, err := svc.Respond(r.Context(), actor, bargainID, internalbargains.RespondInput{
			Action:          action,
			CounterOffer:    payload.CounterOffer,
			RejectionReason: validators.SanitizeString(payload.RejectionReason, maxMessageLen),
			Message:         payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bargain)
	}
}

// BuyerRespond lets the buyer accept or reject a counter offer.
func BuyerRespond(svc internalbargains.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bargain service unavailable"))
			return
		}

		actor, bargainID, err := actorAndBargain(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload buyerRespondRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseBargainAction(payload.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}

		bargain, err := svc.BuyerRespond(r.Context(), actor, bargainID, internalbargains.BuyerRespondInput{
			Action:  action,
			Message: payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bargain)
	}
}

// PostMessage appends to the negotiation thread without changing its state.
func PostMessage(svc internalbargains.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bargain service unavailable"))
			return
		}

		actor, bargainID, err := actorAndBargain(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload messageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bargain, err := svc.PostMessage(r.Context(), actor, bargainID, payload.Text)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bargain)
	}
}

func actorAndBargain(r *http.Request) (auth.Actor, uuid.UUID, error) {
	actor, err := middleware.RequestActor(r)
	if err != nil {
		return actor, uuid.Nil, err
	}
	bargainID, err := validators.ParseUUIDParam(r, "bargainId")
	return actor, bargainID, err
}

func parseListParams(r *http.Request) (internalbargains.ListParams, error) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		return internalbargains.ListParams{}, err
	}
	params := internalbargains.ListParams{Params: page}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseBargainStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = &status
	}
	return params, nil
}
