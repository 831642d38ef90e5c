package payout

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

const transfersPath = "/v1/transfers"

type transferBody struct {
	Reference   string `json:"reference"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
}

type transferResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPGateway posts transfers to a bank-transfer REST API.
type HTTPGateway struct {
	client *resty.Client
}

// NewHTTPGateway builds a resty client against cfg.HTTPBaseURL.
func NewHTTPGateway(cfg config.PayoutConfig) (*HTTPGateway, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.HTTPBaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("payout http base url is required")
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("Accept", "application/json")
	if key := strings.TrimSpace(cfg.HTTPAPIKey); key != "" {
		client.SetAuthToken(key)
	}
	return &HTTPGateway{client: client}, nil
}

func (g *HTTPGateway) Name() string { return "http" }

func (g *HTTPGateway) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var (
		ok      transferResponse
		failure errorResponse
	)
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.IdempotencyKey.String()).
		SetBody(transferBody{
			Reference:   req.Reference,
			Amount:      req.Amount.StringFixed(2),
			Currency:    req.Currency,
			Destination: req.Destination,
		}).
		SetResult(&ok).
		SetError(&failure).
		Post(transfersPath)
	if err != nil {
		return nil, fmt.Errorf("payout http request: %w", err)
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		if ok.ID == "" {
			return nil, fmt.Errorf("payout http: response without transfer id")
		}
		return &TransferResult{ID: ok.ID, Provider: g.Name()}, nil
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return nil, fmt.Errorf("payout http: status %d: %s", status, failure.Message)
	default:
		return nil, Rejected(fmt.Sprintf("status %d %s: %s", status, failure.Code, failure.Message))
	}
}
