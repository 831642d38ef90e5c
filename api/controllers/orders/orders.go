package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	internalorders "github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

const maxNoteLen = 500

type lineItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	Quantity  int        `json:"quantity" validate:"required,min=1,max=100"`
	BargainID *uuid.UUID `json:"bargain_id,omitempty"`
	Size      *string    `json:"size,omitempty" validate:"omitempty,max=20"`
	Color     *string    `json:"color,omitempty" validate:"omitempty,max=30"`
}

type createOrderRequest struct {
	Items           []lineItemRequest `json:"items" validate:"required,min=1,max=20,dive"`
	ShippingAddress types.Address     `json:"shipping_address" validate:"required"`
	PaymentMethod   string            `json:"payment_method" validate:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type paymentRequest struct {
	GatewayTxnID string `json:"gateway_txn_id" validate:"required,max=120"`
}

type statusRequest struct {
	Status   string `json:"status" validate:"required"`
	Note     string `json:"note,omitempty" validate:"max=500"`
	Location string `json:"location,omitempty" validate:"max=200"`
}

// Create places an order for items from a single seller.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.PaymentMethod))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		input := internalorders.CreateOrderInput{
			Items:           make([]internalorders.LineItemInput, 0, len(payload.Items)),
			ShippingAddress: payload.ShippingAddress,
			PaymentMethod:   method,
		}
		for _, item := range payload.Items {
			input.Items = append(input.Items, internalorders.LineItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				BargainID: item.BargainID,
				Size:      item.Size,
				Color:     item.Color,
			})
		}

		order, err := svc.CreateOrder(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListMine returns the buyer's orders, newest first.
func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return list(svc, logg, func(s internalorders.Service) listFunc { return s.ListForBuyer })
}

// SellerList returns orders placed with the seller's store.
func SellerList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return list(svc, logg, func(s internalorders.Service) listFunc { return s.ListForSeller })
}

type listFunc func(ctx context.Context, actor auth.Actor, params internalorders.ListParams) (*internalorders.ListResult, error)

func list(svc internalorders.Service, logg *logger.Logger, pick func(internalorders.Service) listFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, err := middleware.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{Params: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		result, err := pick(svc)(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Detail returns an order to its buyer or seller.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Cancel cancels a buyer's order inside the cancellation window and restores stock.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.CancelOrder(r.Context(), actor, orderID, validators.SanitizeString(payload.Reason, maxNoteLen))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ConfirmPayment records a completed online payment for the order.
func ConfirmPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmPayment(r.Context(), actor, orderID, internalorders.ConfirmPaymentInput{
			GatewayTxnID: payload.GatewayTxnID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// SellerUpdateStatus moves an order to the next fulfillment status.
func SellerUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), actor, orderID, internalorders.UpdateStatusInput{
			Status:   status,
			Note:     validators.SanitizeString(payload.Note, maxNoteLen),
			Location: validators.SanitizeString(payload.Location, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func actorAndOrder(r *http.Request) (auth.Actor, uuid.UUID, error) {
	actor, err := middleware.RequestActor(r)
	if err != nil {
		return actor, uuid.Nil, err
	}
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	return actor, orderID, err
}
