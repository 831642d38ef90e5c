package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

const (
	maxOrderItems       = 20
	defaultCancelWindow = time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	AddStatusEvent(ctx context.Context, tx *gorm.DB, event *models.OrderStatusEvent) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	Transition(ctx context.Context, tx *gorm.DB, order *models.Order, fromStatus enums.OrderStatus, fromVersion int) error
	List(ctx context.Context, query listQuery) ([]models.Order, string, error)
}

// StockKeeper reads listings and moves stock atomically inside a transaction.
type StockKeeper interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
	RestoreStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
}

// BargainConsumer prices a line at a negotiated amount and marks the bargain used.
type BargainConsumer interface {
	AcceptedForOrder(ctx context.Context, tx *gorm.DB, buyerID, bargainID uuid.UUID) (*models.Bargain, error)
	ConsumeAccepted(ctx context.Context, tx *gorm.DB, buyerID, bargainID, orderID uuid.UUID) (*models.Bargain, error)
}

// Ledger records the seller payout that belongs to a paid order.
type Ledger interface {
	CreateHeldTransaction(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Transaction, error)
	CancelHeld(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// Service runs order placement and fulfillment.
type Service interface {
	CreateOrder(ctx context.Context, actor auth.Actor, in CreateOrderInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in UpdateStatusInput) (*OrderDTO, error)
	CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*OrderDTO, error)
	ConfirmPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in ConfirmPaymentInput) (*OrderDTO, error)
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListForBuyer(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error)
	ListForSeller(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	DB       txRunner
	Repo     orderRepository
	Products StockKeeper
	Bargains BargainConsumer
	Ledger   Ledger
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
	Logger   *logger.Logger
	Config   config.MarketplaceConfig
	Clock    func() time.Time
}

type service struct {
	db           txRunner
	repo         orderRepository
	products     StockKeeper
	bargains     BargainConsumer
	ledger       Ledger
	outbox       outbox.Emitter
	notifier     notifications.Notifier
	logg         *logger.Logger
	pricing      Pricing
	cancelWindow time.Duration
	returnWindow time.Duration
	clock        func() time.Time
}

// NewService validates params and builds the order service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("stock keeper required")
	case params.Bargains == nil:
		return nil, fmt.Errorf("bargain consumer required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("settlement ledger required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	cancelWindow := params.Config.CancelWindow
	if cancelWindow <= 0 {
		cancelWindow = defaultCancelWindow
	}
	return &service{
		db:           params.DB,
		repo:         params.Repo,
		products:     params.Products,
		bargains:     params.Bargains,
		ledger:       params.Ledger,
		outbox:       params.Outbox,
		notifier:     params.Notifier,
		logg:         params.Logger,
		pricing:      NewPricing(params.Config),
		cancelWindow: cancelWindow,
		returnWindow: params.Config.ReturnWindow(),
		clock:        clock,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, actor auth.Actor, in CreateOrderInput) (*OrderDTO, error) {
	if !actor.IsBuyer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can place orders")
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := s.clock()
	number, err := models.NewOrderNumber(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		BuyerID:         actor.UserID,
		Status:          enums.OrderStatusPlaced,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		ShippingAddress: in.ShippingAddress,
		PlacedAt:        now,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var bargainIDs []uuid.UUID
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		subtotal := decimal.Zero
		for i, line := range in.Items {
			item, err := s.priceLine(ctx, tx, actor, order, line)
			if err != nil {
				return err
			}
			item.Position = i
			subtotal = subtotal.Add(item.LineTotal())
			order.Items = append(order.Items, item)
		}
		applyQuote(order, s.pricing.Quote(subtotal))
		order.StatusHistory = []models.OrderStatusEvent{{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    enums.OrderStatusPlaced,
			ActorID:   &actor.UserID,
			CreatedAt: now,
		}}

		if err := s.repo.Create(ctx, tx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := s.products.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		for _, item := range order.Items {
			if item.BargainID == nil {
				continue
			}
			if _, err := s.bargains.ConsumeAccepted(ctx, tx, actor.UserID, *item.BargainID, order.ID); err != nil {
				return err
			}
			bargainIDs = append(bargainIDs, *item.BargainID)
		}
		return s.emit(ctx, tx, enums.EventOrderPlaced, order, actor, now, payloads.OrderPlacedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			BuyerID:       order.BuyerID,
			SellerID:      order.SellerID,
			StoreID:       order.StoreID,
			ItemCount:     len(order.Items),
			BargainIDs:    bargainIDs,
			TotalAmount:   order.TotalAmount,
			PaymentMethod: order.PaymentMethod,
		})
	})
	if err != nil {
		return nil, asServiceError(err, "create order")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{"order_number": order.OrderNumber, "total": order.TotalAmount.StringFixed(2)})
	s.logg.Info(logCtx, "order.placed")
	s.notifier.Notify(ctx, order.SellerID, enums.NotificationOrderPlaced, notifications.Payload{
		Title:   "New order received",
		Message: fmt.Sprintf("Order %s for ₹%s", order.OrderNumber, order.TotalAmount.StringFixed(2)),
		Data:    orderData(order),
		Link:    "/seller/orders/" + order.ID.String(),
	})
	return s.toDTO(order, now), nil
}

// priceLine resolves a requested line against the catalog and an optional bargain.
func (s *service) priceLine(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order, line LineItemInput) (models.OrderItem, error) {
	product, err := s.products.GetByID(ctx, tx, line.ProductID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.OrderItem{}, err
	}
	if product == nil || !product.IsActive || product.Stock < line.Quantity {
		return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeUnavailable, "product is unavailable in the requested quantity").
			WithDetails(map[string]any{"product_id": line.ProductID.String()})
	}
	if order.SellerID == uuid.Nil {
		order.SellerID = product.SellerID
		order.StoreID = product.StoreID
	} else if order.SellerID != product.SellerID {
		return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeMultiSeller, "all items must come from the same seller")
	}

	item := models.OrderItem{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.EffectivePrice(),
		Quantity:  line.Quantity,
		Size:      line.Size,
		Color:     line.Color,
		CreatedAt: order.CreatedAt,
	}
	if len(product.Images) > 0 {
		image := product.Images[0]
		item.Image = &image
	}
	if line.BargainID == nil {
		return item, nil
	}

	bargain, err := s.bargains.AcceptedForOrder(ctx, tx, actor.UserID, *line.BargainID)
	if err != nil {
		return models.OrderItem{}, err
	}
	if bargain.ProductID != product.ID {
		return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeInvalidState, "bargain does not belong to this product").
			WithDetails(map[string]any{"bargain_id": bargain.ID.String()})
	}
	if line.Quantity > bargain.Quantity {
		return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the negotiated quantity").
			WithDetails(map[string]any{"bargain_id": bargain.ID.String(), "max_quantity": bargain.Quantity})
	}
	item.BargainID = &bargain.ID
	item.UnitPrice = bargain.FinalPrice.Decimal
	if item.Size == nil {
		item.Size = bargain.SelectedSize
	}
	if item.Color == nil {
		item.Color = bargain.SelectedColor
	}
	return item, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in UpdateStatusInput) (*OrderDTO, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers can update order status")
	}
	if !in.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	now := s.clock()
	var (
		order *models.Order
		from  enums.OrderStatus
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		o, err := s.load(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order, from = o, o.Status
		if o.SellerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to this seller")
		}
		if !from.CanTransitionTo(in.Status) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move order from %s to %s", from, in.Status))
		}
		if in.Status == enums.OrderStatusCancelled {
			return s.cancel(ctx, tx, o, actor, in.Note, now)
		}

		fromVersion := o.Version
		o.MarkStatus(in.Status, now)
		codPaid := false
		if in.Status == enums.OrderStatusDelivered {
			ends := now.Add(s.returnWindow)
			o.ReturnWindowEndsAt = &ends
			if !o.PaymentMethod.IsPrepaid() && o.PaymentStatus == enums.PaymentStatusPending {
				o.PaymentStatus = enums.PaymentStatusCompleted
				o.PaidAt = &now
				codPaid = true
			}
		}
		if err := s.persist(ctx, tx, o, from, fromVersion, actor, in.Note, in.Location, now); err != nil {
			return err
		}
		if codPaid {
			if err := s.recordPayment(ctx, tx, o, actor, now); err != nil {
				return err
			}
		}
		return s.emit(ctx, tx, enums.EventOrderStatusChanged, o, actor, now, payloads.OrderStatusChangedEvent{
			OrderID:  o.ID,
			SellerID: o.SellerID,
			From:     from,
			To:       o.Status,
			Note:     strings.TrimSpace(in.Note),
			Location: strings.TrimSpace(in.Location),
		})
	})
	if err != nil {
		return nil, asServiceError(err, "update order status")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{"from": string(from), "to": string(order.Status)})
	s.logg.Info(logCtx, "order.status_changed")
	if kind, ok := enums.NotificationForOrderStatus(order.Status); ok {
		s.notifier.Notify(ctx, order.BuyerID, kind, notifications.Payload{
			Title:   "Order " + strings.ReplaceAll(string(order.Status), "_", " "),
			Message: fmt.Sprintf("Your order %s is now %s", order.OrderNumber, strings.ReplaceAll(string(order.Status), "_", " ")),
			Data:    orderData(order),
			Link:    "/orders/" + order.ID.String(),
		})
	}
	return s.toDTO(order, now), nil
}

func (s *service) CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*OrderDTO, error) {
	if !actor.IsBuyer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can cancel orders")
	}

	now := s.clock()
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		o, err := s.load(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if o.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to this buyer")
		}
		if o.Status != enums.OrderStatusPlaced && o.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("orders in status %s cannot be cancelled", o.Status))
		}
		if !o.CanCancel(now, s.cancelWindow) {
			return pkgerrors.New(pkgerrors.CodeWindowExpired, "the cancellation window has closed").
				WithDetails(map[string]any{"placed_at": o.PlacedAt, "window": s.cancelWindow.String()})
		}
		return s.cancel(ctx, tx, o, actor, reason, now)
	})
	if err != nil {
		return nil, asServiceError(err, "cancel order")
	}
	return s.afterCancel(ctx, order, actor, now), nil
}

// cancel restores stock, releases any held payout and records the transition.
func (s *service) cancel(ctx context.Context, tx *gorm.DB, o *models.Order, actor auth.Actor, reason string, now time.Time) error {
	from, fromVersion := o.Status, o.Version
	o.MarkStatus(enums.OrderStatusCancelled, now)
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		o.CancelReason = &trimmed
	}
	refunded := o.PaymentStatus == enums.PaymentStatusCompleted
	if refunded {
		o.PaymentStatus = enums.PaymentStatusRefunded
	}
	if err := s.persist(ctx, tx, o, from, fromVersion, actor, reason, "", now); err != nil {
		return err
	}
	for _, item := range o.Items {
		if err := s.products.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	if refunded {
		if err := s.ledger.CancelHeld(ctx, tx, o.ID); err != nil {
			return err
		}
	}
	return s.emit(ctx, tx, enums.EventOrderCancelled, o, actor, now, payloads.OrderCancelledEvent{
		OrderID:  o.ID,
		BuyerID:  o.BuyerID,
		SellerID: o.SellerID,
		Reason:   strings.TrimSpace(reason),
		Refunded: refunded,
	})
}

func (s *service) afterCancel(ctx context.Context, order *models.Order, actor auth.Actor, now time.Time) *OrderDTO {
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithActor(logCtx, actor.UserID.String(), string(actor.Role))
	s.logg.Info(logCtx, "order.cancelled")
	recipient := order.SellerID
	link := "/seller/orders/" + order.ID.String()
	if actor.UserID == order.SellerID {
		recipient, link = order.BuyerID, "/orders/"+order.ID.String()
	}
	s.notifier.Notify(ctx, recipient, enums.NotificationOrderCancelled, notifications.Payload{
		Title:   "Order cancelled",
		Message: fmt.Sprintf("Order %s was cancelled", order.OrderNumber),
		Data:    orderData(order),
		Link:    link,
	})
	return s.toDTO(order, now)
}

func (s *service) ConfirmPayment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, in ConfirmPaymentInput) (*OrderDTO, error) {
	if !actor.IsBuyer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can confirm payment")
	}
	gatewayTxnID := strings.TrimSpace(in.GatewayTxnID)
	if gatewayTxnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway transaction id is required")
	}

	now := s.clock()
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		o, err := s.load(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = o
		if o.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to this buyer")
		}
		switch {
		case o.Status == enums.OrderStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cancelled orders cannot be paid")
		case !o.PaymentMethod.IsPrepaid():
			return pkgerrors.New(pkgerrors.CodeInvalidState, "cash on delivery orders are paid on delivery")
		case o.PaymentStatus != enums.PaymentStatusPending:
			return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("payment is already %s", o.PaymentStatus))
		}

		fromVersion := o.Version
		o.PaymentStatus = enums.PaymentStatusCompleted
		o.PaidAt = &now
		o.PaymentGatewayTxnID = &gatewayTxnID
		o.Version = fromVersion + 1
		if err := s.repo.Transition(ctx, tx, o, o.Status, fromVersion); err != nil {
			return err
		}
		return s.recordPayment(ctx, tx, o, actor, now)
	})
	if err != nil {
		return nil, asServiceError(err, "confirm payment")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(logCtx, "order.paid")
	s.notifier.Notify(ctx, order.SellerID, enums.NotificationPaymentReceived, notifications.Payload{
		Title:   "Payment received",
		Message: fmt.Sprintf("Payment of ₹%s received for order %s", order.TotalAmount.StringFixed(2), order.OrderNumber),
		Data:    orderData(order),
		Link:    "/seller/orders/" + order.ID.String(),
	})
	return s.toDTO(order, now), nil
}

// recordPayment creates the held payout and emits order.paid in the caller's tx.
func (s *service) recordPayment(ctx context.Context, tx *gorm.DB, o *models.Order, actor auth.Actor, now time.Time) error {
	txn, err := s.ledger.CreateHeldTransaction(ctx, tx, o)
	if err != nil {
		return err
	}
	event := payloads.OrderPaidEvent{
		OrderID:       o.ID,
		TransactionID: txn.ID,
		PaymentMethod: o.PaymentMethod,
		Amount:        o.TotalAmount,
		PaidAt:        now,
	}
	if o.PaymentGatewayTxnID != nil {
		event.GatewayTxnID = *o.PaymentGatewayTxnID
	}
	return s.emit(ctx, tx, enums.EventOrderPaid, o, actor, now, event)
}

func (s *service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, nil, orderID)
	if err != nil {
		return nil, asServiceError(err, "load order")
	}
	if order.BuyerID != actor.UserID && order.SellerID != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.toDTO(order, s.clock()), nil
}

func (s *service) ListForBuyer(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error) {
	if !actor.IsBuyer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer role required")
	}
	return s.list(ctx, listQuery{BuyerID: &actor.UserID, Status: params.Status, Params: params.Params})
}

func (s *service) ListForSeller(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	return s.list(ctx, listQuery{SellerID: &actor.UserID, Status: params.Status, Params: params.Params})
}

func (s *service) list(ctx context.Context, query listQuery) (*ListResult, error) {
	if query.Status != nil && !query.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, asServiceError(err, "list orders")
	}
	now := s.clock()
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *s.toDTO(&rows[i], now))
	}
	return &ListResult{Orders: out, NextCursor: next}, nil
}

func (s *service) load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

// persist bumps the version, writes the transition and appends the history row.
func (s *service) persist(ctx context.Context, tx *gorm.DB, o *models.Order, from enums.OrderStatus, fromVersion int, actor auth.Actor, note, location string, now time.Time) error {
	o.Version = fromVersion + 1
	o.UpdatedAt = now
	if err := s.repo.Transition(ctx, tx, o, from, fromVersion); err != nil {
		return err
	}
	event := models.OrderStatusEvent{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Status:    o.Status,
		Note:      optional(note),
		Location:  optional(location),
		ActorID:   &actor.UserID,
		CreatedAt: now,
	}
	if err := s.repo.AddStatusEvent(ctx, tx, &event); err != nil {
		return err
	}
	o.StatusHistory = append(o.StatusHistory, event)
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, o *models.Order, actor auth.Actor, now time.Time, data any) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   o.ID,
		Actor:         &outbox.Actor{UserID: actor.UserID, Role: actor.Role},
		OccurredAt:    now,
		Data:          data,
	})
}

func (s *service) toDTO(o *models.Order, now time.Time) *OrderDTO {
	return FromModel(o, now, s.cancelWindow)
}

func validateCreate(in CreateOrderInput) error {
	if len(in.Items) == 0 || len(in.Items) > maxOrderItems {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("an order must have between 1 and %d items", maxOrderItems))
	}
	seen := make(map[uuid.UUID]struct{}, len(in.Items))
	for _, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
		if _, dup := seen[item.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "each product may appear only once").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
		seen[item.ProductID] = struct{}{}
	}
	if !in.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}
	return nil
}

func applyQuote(o *models.Order, q Quote) {
	o.Subtotal = q.Subtotal
	o.PlatformFee = q.PlatformFee
	o.DeliveryFee = q.DeliveryFee
	o.Discount = q.Discount
	o.TotalAmount = q.Total
	o.SellerAmount = q.SellerAmount
}

func orderData(o *models.Order) map[string]any {
	return map[string]any{
		"order_id":     o.ID.String(),
		"order_number": o.OrderNumber,
		"status":       string(o.Status),
		"total_amount": o.TotalAmount.StringFixed(2),
	}
}

func optional(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func asServiceError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
