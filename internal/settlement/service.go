package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/payout"
)

const (
	defaultBatchSize = 100
	defaultCurrency  = "INR"
	// claimTimeout is how long a processing row stays claimed before a later
	// sweep may retry it under the same idempotency key.
	claimTimeout = 15 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error
	GetByOrderID(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Transaction, error)
	ListDue(ctx context.Context, cutoff, staleBefore time.Time, limit int) ([]models.Transaction, error)
	Claim(ctx context.Context, id uuid.UUID, staleBefore, at time.Time) (bool, error)
	MarkTransferred(ctx context.Context, tx *gorm.DB, id uuid.UUID, transferID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason string, at time.Time) (bool, error)
	RecordAttempt(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	CancelByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, at time.Time) (int64, error)
	List(ctx context.Context, query listQuery) ([]models.Transaction, string, error)
	Totals(ctx context.Context, sellerID uuid.UUID) ([]statusTotal, error)
}

type storeReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

// Service holds seller earnings until the hold window passes and pays them out.
type Service interface {
	CreateHeldTransaction(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Transaction, error)
	CancelHeld(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	SettleDue(ctx context.Context) (SweepResult, error)
	ListForSeller(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error)
	Summary(ctx context.Context, actor auth.Actor) (*SellerSummary, error)
}

// ServiceParams wires the settlement service.
type ServiceParams struct {
	DB       txRunner
	Repo     transactionRepository
	Stores   storeReader
	Gateway  payout.Gateway
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.SettlementMetrics
	Config   config.SettlementConfig
	Currency string
	Clock    func() time.Time
}

type service struct {
	db       txRunner
	repo     transactionRepository
	stores   storeReader
	gateway  payout.Gateway
	outbox   outbox.Emitter
	notifier notifications.Notifier
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
	hold     time.Duration
	batch    int
	currency string
	clock    func() time.Time
}

// NewService validates params and builds the settlement service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("transaction repository required")
	case params.Stores == nil:
		return nil, fmt.Errorf("store reader required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payout gateway required")
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
	batch := params.Config.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	currency := params.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		stores:   params.Stores,
		gateway:  params.Gateway,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		hold:     params.Config.HoldWindow(),
		batch:    batch,
		currency: currency,
		clock:    clock,
	}, nil
}

// CreateHeldTransaction records the payout for a paid order. Calling it again
// for the same order returns the existing row.
func (s *service) CreateHeldTransaction(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.Transaction, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	existing, err := s.repo.GetByOrderID(ctx, tx, order.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}

	now := s.clock()
	number, err := models.NewTransactionNumber(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate transaction number")
	}
	txn := &models.Transaction{
		ID:                uuid.New(),
		TransactionNumber: number,
		OrderID:           order.ID,
		SellerID:          order.SellerID,
		BuyerID:           order.BuyerID,
		StoreID:           order.StoreID,
		Amount:            order.Subtotal,
		PlatformFee:       order.PlatformFee,
		ProcessingFee:     decimal.Zero,
		Currency:          s.currency,
		Status:            enums.TransactionStatusHeld,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, tx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithField(logCtx, "transaction_number", txn.TransactionNumber)
	s.logg.Info(logCtx, "settlement.held")
	return txn, nil
}

// CancelHeld cancels the order's payout while it is still held. Orders without
// a payout, or whose payout is already cancelled, are a no-op.
func (s *service) CancelHeld(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	n, err := s.repo.CancelByOrder(ctx, tx, orderID, s.clock())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel transaction")
	}
	if n > 0 {
		return nil
	}
	existing, err := s.repo.GetByOrderID(ctx, tx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	switch existing.Status {
	case enums.TransactionStatusTransferred:
		return pkgerrors.New(pkgerrors.CodeInvalidState, "payout was already released to the seller").
			WithDetails(map[string]any{"transaction_number": existing.TransactionNumber})
	case enums.TransactionStatusProcessing:
		return pkgerrors.New(pkgerrors.CodeInvalidState, "payout to the seller is in progress").
			WithDetails(map[string]any{"transaction_number": existing.TransactionNumber})
	}
	return nil
}

// SettleDue pays out every held transaction past the hold window. A failed
// transfer never aborts the batch.
func (s *service) SettleDue(ctx context.Context) (SweepResult, error) {
	now := s.clock()
	due, err := s.repo.ListDue(ctx, now.Add(-s.hold), now.Add(-claimTimeout), s.batch)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due transactions")
	}
	s.metrics.SetDue(len(due))

	result := SweepResult{Scanned: len(due)}
	var errs error
	for i := range due {
		outcome, err := s.settle(ctx, &due[i], now)
		switch outcome {
		case metrics.OutcomeTransferred:
			result.Transferred++
		case metrics.OutcomeRetry:
			result.Retrying++
		case metrics.OutcomeFailed:
			result.Failed++
		case metrics.OutcomeUnrecorded:
			result.Unrecorded++
		default:
			result.Skipped++
		}
		if outcome != "" {
			s.metrics.Observe(outcome)
		}
		errs = multierr.Append(errs, err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"scanned":     result.Scanned,
		"transferred": result.Transferred,
		"retrying":    result.Retrying,
		"failed":      result.Failed,
		"unrecorded":  result.Unrecorded,
		"skipped":     result.Skipped,
	})
	if errs != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "errors", len(multierr.Errors(errs))), "settlement.sweep_partial")
	}
	s.logg.Info(logCtx, "settlement.sweep")
	return result, nil
}

// settle runs one transfer and returns its outcome label; "" means the row was skipped.
func (s *service) settle(ctx context.Context, txn *models.Transaction, now time.Time) (string, error) {
	logCtx := s.logg.WithOrderID(ctx, txn.OrderID.String())
	logCtx = s.logg.WithField(logCtx, "transaction_number", txn.TransactionNumber)

	destination := ""
	store, err := s.stores.FindByID(ctx, txn.StoreID)
	switch {
	case err == nil && store.PayoutAccountID != nil:
		destination = *store.PayoutAccountID
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return s.retry(logCtx, txn, fmt.Errorf("load store: %w", err), now)
	}

	// a claimed row cannot be cancelled while the provider call is in flight
	claimed, err := s.repo.Claim(ctx, txn.ID, now.Add(-claimTimeout), now)
	if err != nil {
		return "", fmt.Errorf("transaction %s: claim: %w", txn.TransactionNumber, err)
	}
	if !claimed {
		s.logg.Info(logCtx, "settlement.claim_lost")
		return "", nil
	}

	res, err := s.gateway.Transfer(ctx, payout.TransferRequest{
		IdempotencyKey: txn.ID,
		Reference:      txn.TransactionNumber,
		Amount:         txn.NetAmount,
		Currency:       txn.Currency,
		Destination:    destination,
	})
	if err != nil {
		if payout.IsPermanent(err) {
			return s.fail(logCtx, txn, err, now)
		}
		return s.retry(logCtx, txn, err, now)
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.MarkTransferred(ctx, tx, txn.ID, res.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("row is no longer processing")
		}
		txn.Status = enums.TransactionStatusTransferred
		txn.TransferID = &res.ID
		txn.TransferDate = &now
		return s.emit(ctx, tx, enums.EventSettlementTransferred, txn, res.ID, "", now)
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(logCtx, "transfer_id", res.ID), "settlement.transfer_unrecorded", err)
		return metrics.OutcomeUnrecorded, fmt.Errorf("transaction %s: transferred as %s but not recorded: %w", txn.TransactionNumber, res.ID, err)
	}

	s.metrics.AddTransferred(txn.Currency, txn.NetAmount)
	s.logg.Info(s.logg.WithField(logCtx, "transfer_id", res.ID), "settlement.transferred")
	s.notifier.Notify(ctx, txn.SellerID, enums.NotificationPaymentSettled, notifications.Payload{
		Title:   "Payment settled",
		Message: fmt.Sprintf("₹%s has been transferred to your account", txn.NetAmount.StringFixed(2)),
		Data:    transactionData(txn),
		Link:    "/seller/transactions",
	})
	return metrics.OutcomeTransferred, nil
}

func (s *service) retry(ctx context.Context, txn *models.Transaction, cause error, now time.Time) (string, error) {
	s.logg.Warn(s.logg.WithField(ctx, "reason", cause.Error()), "settlement.transfer_failed")
	if err := s.repo.RecordAttempt(ctx, txn.ID, cause.Error(), now); err != nil {
		cause = multierr.Append(cause, err)
	}
	return metrics.OutcomeRetry, fmt.Errorf("transaction %s: %w", txn.TransactionNumber, cause)
}

func (s *service) fail(ctx context.Context, txn *models.Transaction, cause error, now time.Time) (string, error) {
	var marked bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.MarkFailed(ctx, tx, txn.ID, cause.Error(), now)
		if err != nil || !ok {
			return err
		}
		marked = true
		txn.Status = enums.TransactionStatusFailed
		return s.emit(ctx, tx, enums.EventSettlementFailed, txn, "", cause.Error(), now)
	})
	if err != nil {
		return "", fmt.Errorf("transaction %s: record failure: %w", txn.TransactionNumber, multierr.Append(cause, err))
	}
	if !marked {
		return "", nil
	}
	s.logg.Error(ctx, "settlement.transfer_rejected", cause)
	s.notifier.Notify(ctx, txn.SellerID, enums.NotificationPaymentFailed, notifications.Payload{
		Title:   "Payout failed",
		Message: fmt.Sprintf("We could not transfer ₹%s. Please check your payout details.", txn.NetAmount.StringFixed(2)),
		Data:    transactionData(txn),
		Link:    "/seller/transactions",
	})
	return metrics.OutcomeFailed, fmt.Errorf("transaction %s: %w", txn.TransactionNumber, cause)
}

func (s *service) ListForSeller(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	rows, next, err := s.repo.List(ctx, listQuery{SellerID: actor.UserID, Status: params.Status, Params: params.Params})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return &ListResult{Transactions: out, NextCursor: next}, nil
}

func (s *service) Summary(ctx context.Context, actor auth.Actor) (*SellerSummary, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	totals, err := s.repo.Totals(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize transactions")
	}
	summary := &SellerSummary{
		Currency:          s.currency,
		HeldAmount:        decimal.Zero,
		TransferredAmount: decimal.Zero,
	}
	for _, row := range totals {
		switch row.Status {
		case enums.TransactionStatusHeld, enums.TransactionStatusProcessing:
			// a claimed payout is still owed until it is recorded
			summary.HeldAmount = summary.HeldAmount.Add(row.Net).Round(2)
			summary.HeldCount += row.Count
		case enums.TransactionStatusTransferred:
			summary.TransferredAmount, summary.TransferredCount = row.Net.Round(2), row.Count
		case enums.TransactionStatusFailed:
			summary.FailedCount = row.Count
		case enums.TransactionStatusCancelled:
			summary.CancelledCount = row.Count
		}
	}
	summary.TotalEarnings = summary.HeldAmount.Add(summary.TransferredAmount)
	return summary, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, txn *models.Transaction, transferID, reason string, now time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   txn.ID,
		OccurredAt:    now,
		Data: payloads.SettlementEvent{
			TransactionID:     txn.ID,
			TransactionNumber: txn.TransactionNumber,
			OrderID:           txn.OrderID,
			SellerID:          txn.SellerID,
			NetAmount:         txn.NetAmount,
			Currency:          txn.Currency,
			TransferID:        transferID,
			Error:             reason,
		},
	})
}

func transactionData(txn *models.Transaction) map[string]any {
	return map[string]any{
		"transaction_id":     txn.ID.String(),
		"transaction_number": txn.TransactionNumber,
		"order_id":           txn.OrderID.String(),
		"net_amount":         txn.NetAmount.StringFixed(2),
	}
}
