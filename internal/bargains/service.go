package bargains

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	dbpkg "github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

const (
	maxMessageLen     = 500
	activeIndexName   = "ux_bargains_active_buyer_product"
	defaultMaxCounter = 3
)

type bargainRepository interface {
	Create(ctx context.Context, tx *gorm.DB, bargain *models.Bargain) error
	AddMessage(ctx context.Context, tx *gorm.DB, message *models.BargainMessage) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Bargain, error)
	HasActive(ctx context.Context, tx *gorm.DB, buyerID, productID uuid.UUID) (bool, error)
	Transition(ctx context.Context, tx *gorm.DB, bargain *models.Bargain, fromStatus enums.BargainStatus, fromVersion int) error
	ExpireStale(ctx context.Context, tx *gorm.DB, now time.Time, scope ExpireScope) (int64, error)
	Consume(ctx context.Context, tx *gorm.DB, buyerID, bargainID, orderID uuid.UUID) (bool, error)
	List(ctx context.Context, query listQuery) ([]models.Bargain, string, error)
}

type productReader interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the price negotiation workflow.
type Service interface {
	Propose(ctx context.Context, actor auth.Actor, in ProposeInput) (*BargainDTO, error)
	Respond(ctx context.Context, actor auth.Actor, bargainID uuid.UUID, in RespondInput) (*BargainDTO, error)
	BuyerRespond(ctx context.Context, actor auth.Actor, bargainID uuid.UUID, in BuyerRespondInput) (*BargainDTO, error)
	PostMessage(ctx context.Context, actor auth.Actor, bargainID uuid.UUID, text string) (*BargainDTO, error)
	Get(ctx context.Context, actor auth.Actor, bargainID uuid.UUID) (*BargainDTO, error)
	ListForBuyer(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error)
	ListForSeller(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error)
	ExpireStale(ctx context.Context) (int64, error)
	AcceptedForOrder(ctx context.Context, tx *gorm.DB, buyerID, bargainID uuid.UUID) (*models.Bargain, error)
	ConsumeAccepted(ctx context.Context, tx *gorm.DB, buyerID, bargainID, orderID uuid.UUID) (*models.Bargain, error)
}

// ServiceParams wires the bargain service.
type ServiceParams struct {
	DB       txRunner
	Repo     bargainRepository
	Products productReader
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
	Logger   *logger.Logger
	Config   config.MarketplaceConfig
	Clock    func() time.Time
}

type service struct {
	db          txRunner
	repo        bargainRepository
	products    productReader
	outbox      outbox.Emitter
	notifier    notifications.Notifier
	logg        *logger.Logger
	ttl         time.Duration
	maxCounters int
	clock       func() time.Time
}

// NewService validates params and builds the bargain service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("bargain repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
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
	maxCounters := params.Config.BargainMaxCounters
	if maxCounters < 0 {
		maxCounters = defaultMaxCounter
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		products:    params.Products,
		outbox:      params.Outbox,
		notifier:    params.Notifier,
		logg:        params.Logger,
		ttl:         params.Config.BargainTTL(),
		maxCounters: maxCounters,
		clock:       clock,
	}, nil
}

func (s *service) Propose(ctx context.Context, actor auth.Actor, in ProposeInput) (*BargainDTO, error) {
	if !actor.IsBuyer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can make offers")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if !in.ProposedPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposed price must be positive")
	}
	message, err := cleanMessage(in.Message, true)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, nil, in.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !product.IsBargainable {
		return nil, pkgerrors.New(pkgerrors.CodeNotBargainable, "product does not accept offers")
	}
	if in.Quantity > product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds available stock").
			WithDetails(map[string]any{"available": product.Stock})
	}
	proposed := in.ProposedPrice.Round(2)
	original := product.EffectivePrice()
	if err := checkProposal(proposed, original, product.MinPrice); err != nil {
		return nil, err
	}

	now := s.clock()
	bargain := &models.Bargain{
		ID:            uuid.New(),
		ProductID:     product.ID,
		BuyerID:       actor.UserID,
		SellerID:      product.SellerID,
		StoreID:       product.StoreID,
		OriginalPrice: original,
		ProposedPrice: proposed,
		Status:        enums.BargainStatusPending,
		Quantity:      in.Quantity,
		SelectedSize:  trimPtr(in.SelectedSize),
		SelectedColor: trimPtr(in.SelectedColor),
		ExpiresAt:     now.Add(s.ttl),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		active, err := s.repo.HasActive(ctx, tx, actor.UserID, product.ID)
		if err != nil {
			return err
		}
		if active {
			return duplicateActive(product.ID)
		}
		if err := s.repo.Create(ctx, tx, bargain); err != nil {
			if dbpkg.IsUniqueViolation(err, activeIndexName) {
				return duplicateActive(product.ID)
			}
			return err
		}
		if message != "" {
			if err := s.appendMessage(ctx, tx, bargain, enums.BargainSenderBuyer, message, now); err != nil {
				return err
			}
		}
		return s.emit(ctx, tx, enums.EventBargainProposed, bargain, actor, now)
	})
	if err != nil {
		return nil, asServiceError(err, "create bargain")
	}

	logCtx := s.logg.WithBargainID(ctx, bargain.ID.String())
	s.logg.Info(logCtx, "bargain.proposed")
	s.notifier.Notify(ctx, bargain.SellerID, enums.NotificationBargainReceived, notifications.Payload{
		Title:   "New offer received",
		Message: fmt.Sprintf("A buyer offered ₹%s for %s", proposed.StringFixed(2), product.Name),
		Data:    bargainData(bargain),
		Link:    "/seller/bargains/" + bargain.ID.String(),
	})
	return FromModel(bargain, now), nil
}

func (s *service) Respond(ctx context.Context, actor auth.Actor, bargainID uuid.UUID, in RespondInput) (*BargainDTO, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers can respond to offers")
	}
	switch in.Action {
	case enums.BargainActionAccept, enums.BargainActionReject:
	case enums.BargainActionCounter:
		if in.CounterOffer == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "counter offer amount is required")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid action")
	}
	message, err := cleanMessage(in.Message, true)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var (
		bargain *models.Bargain
		expired bool
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		b, err := s.loadForParty(ctx, tx, bargainID, func(b *models.Bargain) bool { return b.SellerID == actor.UserID })
		if err != nil {
			return err
		}
		bargain = b
		if !b.Status.IsActive() {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "this bargain is no longer active")
		}
		if b.IsExpired(now) {
			expired = true
			return s.expire(ctx, tx, b, actor, now)
		}

		fromStatus, fromVersion := b.Status, b.Version
		switch in.Action {
		case enums.BargainActionAccept:
			b.Status = enums.BargainStatusAccepted
			b.FinalPrice = decimal.NewNullDecimal(b.CurrentOffer())
			b.AcceptedAt = &now
		case enums.BargainActionReject:
			b.Status = enums.BargainStatusRejected
			b.RejectedAt = &now
			b.RejectionReason = trimPtr(&in.RejectionReason)
		case enums.BargainActionCounter:
			if err := s.applyCounter(ctx, tx, b, in.CounterOffer.Round(2), now); err != nil {
				return err
			}
		}
		if err := s.persistTransition(ctx, tx, b, fromStatus, fromVersion); err != nil {
			return err
		}
		if message != "" {
			if err := s.appendMessage(ctx, tx, b, enums.BargainSenderSeller, message, now); err != nil {
				return err
			}
		}
		return s.emit(ctx, tx, eventFor(b.Status), b, actor, now)
	})
	if err != nil {
		return nil, asServiceError(err, "respond to bargain")
	}
	if expired {
		return nil, expiredError(bargain)
	}

	logCtx := s.logg.WithBargainID(ctx, bargain.ID.String())
	s.logg.Info(logCtx, string(eventFor(bargain.Status)))
	s.notifyBuyer(ctx, bargain)
	return FromModel(bargain, now), nil
}

func (s *service) BuyerRespond(ctx context.Context, actor auth.Actor, bargainID uuid.UUID, in BuyerRespondInput) (*BargainDTO, error) {
	if !actor.IsBuyer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can answer counter offers")
	}
	if in.Action != enums.BargainActionAccept && in.Action != enums.BargainActionReject {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be accept or reject")
	}
	message, err := cleanMessage(in.Message, true)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var (
		bargain *models.Bargain
		expired bool
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		b, err := s.loadForParty(ctx, tx, bargainID, func(b *models.Bargain) bool { return b.BuyerID == actor.UserID })
		if err != nil {
			return err
		}
		bargain = b
		if b.Status != enums.BargainStatusCountered {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "only counter offers can be answered by the buyer")
		}
		if b.IsExpired(now) {
			expired = true
			return s.expire(ctx, tx, b, actor, now)
		}

		fromStatus, fromVersion := b.Status, b.Version
		if in.Action == enums.BargainActionAccept {
			b.Status = enums.BargainStatusAccepted
			b.FinalPrice = decimal.NewNullDecimal(b.CurrentOffer())
			b.AcceptedAt = &now
		} else {
			b.Status = enums.BargainStatusRejected
			b.RejectedAt = &now
		}
		if err := s.persistTransition(ctx, tx, b, fromStatus, fromVersion); err != nil {
			return err
		}
		if message != "" {
			if err := s.appendMessage(ctx, tx, b, enums.BargainSenderBuyer, message, now); err != nil {
				return err
			}
		}
		return s.emit(ctx, tx, eventFor(b.Status), b, actor, now)
	})
	if err != nil {
		return nil, asServiceError(err, "answer counter offer")
	}
	if expired {
		return nil, expiredError(bargain)
	}

	logCtx := s.logg.WithBargainID(ctx, bargain.ID.String())
	s.logg.Info(logCtx, string(eventFor(bargain.Status)))
	kind, verb := enums.NotificationBargainAccepted, "accepted"
	if bargain.Status == enums.BargainStatusRejected {
		kind, verb = enums.NotificationBargainRejected, "declined"
	}
	s.notifier.Notify(ctx, bargain.SellerID, kind, notifications.Payload{
		Title:   "Counter offer " + verb,
		Message: fmt.Sprintf("The buyer %s your counter offer of ₹%s", verb, bargain.CurrentOffer().StringFixed(2)),
		Data:    bargainData(bargain),
		Link:    "/seller/bargains/" + bargain.ID.String(),
	})
	return FromModel(bargain, now), nil
}

func (s *service) PostMessage(ctx context.Context, actor auth.Actor, bargainID uuid.UUID, text string) (*BargainDTO, error) {
	message, err := cleanMessage(text, false)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var (
		bargain *models.Bargain
		expired bool
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		b, err := s.loadForParty(ctx, tx, bargainID, isParty(actor))
		if err != nil {
			return err
		}
		bargain = b
		if !b.Status.IsActive() {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "this bargain is no longer active")
		}
		if b.IsExpired(now) {
			expired = true
			return s.expire(ctx, tx, b, actor, now)
		}
		sender := enums.BargainSenderBuyer
		if b.SellerID == actor.UserID {
			sender = enums.BargainSenderSeller
		}
		return s.appendMessage(ctx, tx, b, sender, message, now)
	})
	if err != nil {
		return nil, asServiceError(err, "post bargain message")
	}
	if expired {
		return nil, expiredError(bargain)
	}
	return FromModel(bargain, now), nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, bargainID uuid.UUID) (*BargainDTO, error) {
	now := s.clock()
	bargain, err := s.loadForParty(ctx, nil, bargainID, isParty(actor))
	if err != nil {
		return nil, asServiceError(err, "load bargain")
	}
	if bargain.IsExpired(now) {
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			return s.expire(ctx, tx, bargain, actor, now)
		})
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			return nil, asServiceError(err, "expire bargain")
		}
		if err != nil {
			// Another writer got there first; show what it stored.
			if bargain, err = s.repo.GetByID(ctx, nil, bargainID); err != nil {
				return nil, asServiceError(err, "load bargain")
			}
		}
	}
	return FromModel(bargain, now), nil
}

func (s *service) ListForBuyer(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error) {
	if !actor.IsBuyer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer role required")
	}
	return s.list(ctx, ExpireScope{BuyerID: &actor.UserID}, listQuery{BuyerID: &actor.UserID, Status: params.Status, Params: params.Params})
}

func (s *service) ListForSeller(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	return s.list(ctx, ExpireScope{SellerID: &actor.UserID}, listQuery{SellerID: &actor.UserID, Status: params.Status, Params: params.Params})
}

func (s *service) list(ctx context.Context, scope ExpireScope, query listQuery) (*ListResult, error) {
	if query.Status != nil && !query.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	now := s.clock()
	if _, err := s.repo.ExpireStale(ctx, nil, now, scope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale bargains")
	}
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, asServiceError(err, "list bargains")
	}
	out := make([]BargainDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], now))
	}
	return &ListResult{Bargains: out, NextCursor: next}, nil
}

// ExpireStale is the expiry sweep entry point used by the scheduler.
func (s *service) ExpireStale(ctx context.Context) (int64, error) {
	now := s.clock()
	count, err := s.repo.ExpireStale(ctx, nil, now, ExpireScope{})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale bargains")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"expired": count, "as_of": now})
	s.logg.Info(logCtx, "bargain.expiry_sweep")
	return count, nil
}

// AcceptedForOrder returns the buyer's accepted, unused bargain for pricing an order line.
func (s *service) AcceptedForOrder(ctx context.Context, tx *gorm.DB, buyerID, bargainID uuid.UUID) (*models.Bargain, error) {
	bargain, err := s.repo.GetByID(ctx, tx, bargainID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unusableBargain(bargainID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bargain")
	}
	if bargain.BuyerID != buyerID || bargain.Status != enums.BargainStatusAccepted || bargain.OrderID != nil || !bargain.FinalPrice.Valid {
		return nil, unusableBargain(bargainID)
	}
	return bargain, nil
}

// ConsumeAccepted marks the bargain as used by orderID inside the order transaction.
func (s *service) ConsumeAccepted(ctx context.Context, tx *gorm.DB, buyerID, bargainID, orderID uuid.UUID) (*models.Bargain, error) {
	ok, err := s.repo.Consume(ctx, tx, buyerID, bargainID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume bargain")
	}
	if !ok {
		return nil, unusableBargain(bargainID)
	}
	bargain, err := s.repo.GetByID(ctx, tx, bargainID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload bargain")
	}
	return bargain, nil
}

func (s *service) applyCounter(ctx context.Context, tx *gorm.DB, b *models.Bargain, offer decimal.Decimal, now time.Time) error {
	if s.maxCounters > 0 && b.CounterCount >= s.maxCounters {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "counter offer limit reached").
			WithDetails(map[string]any{"max_counters": s.maxCounters})
	}
	if !offer.GreaterThan(b.ProposedPrice) || !offer.LessThan(b.OriginalPrice) {
		return pkgerrors.New(pkgerrors.CodeInvalidPrice, "counter offer must be between the proposed and original price").
			WithDetails(map[string]any{
				"proposed_price": b.ProposedPrice.StringFixed(2),
				"original_price": b.OriginalPrice.StringFixed(2),
			})
	}
	product, err := s.products.GetByID(ctx, tx, b.ProductID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if product != nil && product.HasFloor() && offer.LessThan(product.MinPrice.Decimal) {
		return pkgerrors.New(pkgerrors.CodeInvalidPrice, "counter offer is below the minimum price").
			WithDetails(map[string]any{"min_price": product.MinPrice.Decimal.StringFixed(2)})
	}

	b.Status = enums.BargainStatusCountered
	b.CounterOffer = decimal.NewNullDecimal(offer)
	b.CounterCount++
	if next := now.Add(s.ttl); next.After(b.ExpiresAt) {
		b.ExpiresAt = next
	}
	return nil
}

func (s *service) persistTransition(ctx context.Context, tx *gorm.DB, b *models.Bargain, fromStatus enums.BargainStatus, fromVersion int) error {
	if !fromStatus.CanTransitionTo(b.Status) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot move bargain from %s to %s", fromStatus, b.Status))
	}
	b.Version = fromVersion + 1
	b.UpdatedAt = s.clock()
	return s.repo.Transition(ctx, tx, b, fromStatus, fromVersion)
}

func (s *service) expire(ctx context.Context, tx *gorm.DB, b *models.Bargain, actor auth.Actor, now time.Time) error {
	fromStatus, fromVersion := b.Status, b.Version
	b.Status = enums.BargainStatusExpired
	b.ExpiredAt = &now
	if err := s.persistTransition(ctx, tx, b, fromStatus, fromVersion); err != nil {
		return err
	}
	return s.emit(ctx, tx, enums.EventBargainExpired, b, actor, now)
}

func (s *service) appendMessage(ctx context.Context, tx *gorm.DB, b *models.Bargain, sender enums.BargainSender, text string, now time.Time) error {
	msg := models.BargainMessage{
		ID:        uuid.New(),
		BargainID: b.ID,
		Sender:    sender,
		Text:      text,
		CreatedAt: now,
	}
	if err := s.repo.AddMessage(ctx, tx, &msg); err != nil {
		return err
	}
	b.Messages = append(b.Messages, msg)
	return nil
}

func (s *service) loadForParty(ctx context.Context, tx *gorm.DB, id uuid.UUID, allowed func(*models.Bargain) bool) (*models.Bargain, error) {
	bargain, err := s.repo.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bargain not found")
		}
		return nil, err
	}
	// Callers that are not a party get the same answer as a missing row.
	if !allowed(bargain) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bargain not found")
	}
	return bargain, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, b *models.Bargain, actor auth.Actor, now time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBargain,
		AggregateID:   b.ID,
		Actor:         &outbox.Actor{UserID: actor.UserID, Role: actor.Role},
		OccurredAt:    now,
		Data: payloads.BargainEvent{
			BargainID:     b.ID,
			ProductID:     b.ProductID,
			BuyerID:       b.BuyerID,
			SellerID:      b.SellerID,
			StoreID:       b.StoreID,
			Status:        b.Status,
			OriginalPrice: b.OriginalPrice,
			ProposedPrice: b.ProposedPrice,
			CounterOffer:  nullDecimalPtr(b.CounterOffer),
			FinalPrice:    nullDecimalPtr(b.FinalPrice),
			CounterCount:  b.CounterCount,
			ExpiresAt:     b.ExpiresAt,
		},
	})
}

func (s *service) notifyBuyer(ctx context.Context, b *models.Bargain) {
	var (
		kind    enums.NotificationType
		title   string
		message string
	)
	switch b.Status {
	case enums.BargainStatusAccepted:
		kind, title = enums.NotificationBargainAccepted, "Offer accepted"
		message = fmt.Sprintf("Your offer was accepted at ₹%s", b.FinalPrice.Decimal.StringFixed(2))
	case enums.BargainStatusRejected:
		kind, title = enums.NotificationBargainRejected, "Offer declined"
		message = "The seller declined your offer"
		if b.RejectionReason != nil {
			message += ": " + *b.RejectionReason
		}
	case enums.BargainStatusCountered:
		kind, title = enums.NotificationBargainCountered, "Counter offer received"
		message = fmt.Sprintf("The seller countered with ₹%s", b.CounterOffer.Decimal.StringFixed(2))
	default:
		return
	}
	s.notifier.Notify(ctx, b.BuyerID, kind, notifications.Payload{
		Title:   title,
		Message: message,
		Data:    bargainData(b),
		Link:    "/bargains/" + b.ID.String(),
	})
}

// checkProposal enforces proposed < original and proposed >= floor.
func checkProposal(proposed, original decimal.Decimal, floor decimal.NullDecimal) error {
	if !proposed.LessThan(original) {
		return pkgerrors.New(pkgerrors.CodeInvalidPrice, "proposed price must be less than the current price").
			WithDetails(map[string]any{"current_price": original.StringFixed(2)})
	}
	if floor.Valid && proposed.LessThan(floor.Decimal) {
		return pkgerrors.New(pkgerrors.CodeInvalidPrice, fmt.Sprintf("minimum bargain price is ₹%s", floor.Decimal.StringFixed(2))).
			WithDetails(map[string]any{"min_price": floor.Decimal.StringFixed(2)})
	}
	return nil
}

func eventFor(status enums.BargainStatus) enums.OutboxEventType {
	switch status {
	case enums.BargainStatusAccepted:
		return enums.EventBargainAccepted
	case enums.BargainStatusRejected:
		return enums.EventBargainRejected
	case enums.BargainStatusCountered:
		return enums.EventBargainCountered
	case enums.BargainStatusExpired:
		return enums.EventBargainExpired
	default:
		return enums.EventBargainProposed
	}
}

func isParty(actor auth.Actor) func(*models.Bargain) bool {
	return func(b *models.Bargain) bool {
		return b.BuyerID == actor.UserID || b.SellerID == actor.UserID
	}
}

func cleanMessage(text string, optional bool) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		if optional {
			return "", nil
		}
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}
	if utf8.RuneCountInString(trimmed) > maxMessageLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("message cannot exceed %d characters", maxMessageLen))
	}
	return trimmed, nil
}

func bargainData(b *models.Bargain) map[string]any {
	data := map[string]any{
		"bargain_id":     b.ID.String(),
		"product_id":     b.ProductID.String(),
		"status":         string(b.Status),
		"proposed_price": b.ProposedPrice.StringFixed(2),
	}
	if b.CounterOffer.Valid {
		data["counter_offer"] = b.CounterOffer.Decimal.StringFixed(2)
	}
	if b.FinalPrice.Valid {
		data["final_price"] = b.FinalPrice.Decimal.StringFixed(2)
	}
	return data
}

func duplicateActive(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateActive, "you already have an active offer on this product").
		WithDetails(map[string]any{"product_id": productID.String()})
}

func unusableBargain(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, "bargain already used or not accepted").
		WithDetails(map[string]any{"bargain_id": id.String()})
}

func expiredError(b *models.Bargain) error {
	return pkgerrors.New(pkgerrors.CodeExpired, "this bargain has expired").
		WithDetails(map[string]any{"bargain_id": b.ID.String(), "expired_at": b.ExpiresAt})
}

func asServiceError(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
