package payout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

type transferCreator interface {
	Create(ctx context.Context, params *stripe.TransferCreateParams) (*stripe.Transfer, error)
}

// StripeGateway pays sellers through Stripe Connect transfers.
type StripeGateway struct {
	transfers   transferCreator
	environment string
}

// NewStripeGateway validates the key against the environment and builds the client.
func NewStripeGateway(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*StripeGateway, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe payout gateway initialized (%s)", env))
	}
	return &StripeGateway{transfers: api.V1Transfers, environment: env}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

// Environment reports the normalized Stripe environment in use.
func (g *StripeGateway) Environment() string { return g.environment }

func (g *StripeGateway) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Destination) == "" {
		return nil, Rejected("store has no connected payout account")
	}

	params := &stripe.TransferCreateParams{
		Amount:        stripe.Int64(minorUnits(req.Amount)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		Destination:   stripe.String(req.Destination),
		TransferGroup: stripe.String(req.Reference),
		Description:   stripe.String("Payout " + req.Reference),
	}
	params.SetIdempotencyKey(req.IdempotencyKey.String())

	tr, err := g.transfers.Create(ctx, params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &TransferResult{ID: tr.ID, Provider: g.Name()}, nil
}

// classifyStripeError treats request errors as permanent and everything else as retryable.
func classifyStripeError(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return fmt.Errorf("stripe transfer: %w", err)
	}
	switch {
	case serr.Type == stripe.ErrorTypeInvalidRequest,
		serr.HTTPStatusCode == http.StatusBadRequest,
		serr.HTTPStatusCode == http.StatusForbidden,
		serr.HTTPStatusCode == http.StatusNotFound:
		return Rejected(fmt.Sprintf("stripe %s: %s", serr.Code, serr.Msg))
	default:
		return fmt.Errorf("stripe transfer: %w", err)
	}
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
