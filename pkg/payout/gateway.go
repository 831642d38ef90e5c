// Package payout moves settled seller earnings to the seller's account.
package payout

//go:generate mockgen -source=gateway.go -destination=mocks/gateway_mock.go -package=mock_payout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// TransferRequest describes one payout.
type TransferRequest struct {
	IdempotencyKey uuid.UUID
	Reference      string
	Amount         decimal.Decimal
	Currency       string
	Destination    string
}

// TransferResult is the provider's acknowledgement of a transfer.
type TransferResult struct {
	ID       string
	Provider string
}

// Gateway sends money to a seller.
type Gateway interface {
	Name() string
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// ErrRejected marks a transfer the provider will never accept as submitted.
var ErrRejected = errors.New("payout rejected")

// Rejected wraps reason as a permanent failure.
func Rejected(reason string) error {
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}

// IsPermanent reports whether retrying the transfer cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrRejected)
}

// New picks the gateway named by cfg.Provider.
func New(ctx context.Context, cfg config.PayoutConfig, stripeCfg config.StripeConfig, logg *logger.Logger) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", config.PayoutProviderMock:
		return NewMockGateway(), nil
	case config.PayoutProviderStripe:
		return NewStripeGateway(ctx, stripeCfg, logg)
	case config.PayoutProviderHTTP:
		return NewHTTPGateway(cfg)
	default:
		return nil, fmt.Errorf("unsupported payout provider %q", cfg.Provider)
	}
}

func validate(req TransferRequest) error {
	if !req.Amount.IsPositive() {
		return Rejected("amount must be positive")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return Rejected("reference is required")
	}
	return nil
}
