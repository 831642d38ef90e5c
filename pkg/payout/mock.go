package payout

import (
	"context"
	"strings"
)

// MockGateway accepts every valid transfer and returns a generated reference.
type MockGateway struct{}

// NewMockGateway returns the development gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// repeat requests under one idempotency key resolve to the same transfer
	id := strings.ReplaceAll(req.IdempotencyKey.String(), "-", "")
	return &TransferResult{ID: "mock_tr_" + id[:16], Provider: m.Name()}, nil
}
