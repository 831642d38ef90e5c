package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

var hundred = decimal.NewFromInt(100)

// Pricing is the fee policy applied to every order subtotal.
type Pricing struct {
	FeePercent            decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	DeliveryFee           decimal.Decimal
}

// Quote is the priced breakdown of one order.
type Quote struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total_amount"`
	SellerAmount decimal.Decimal `json:"seller_amount"`
}

// NewPricing reads the fee policy from the marketplace config.
func NewPricing(cfg config.MarketplaceConfig) Pricing {
	return Pricing{
		FeePercent:            cfg.PlatformFeePercent,
		FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		DeliveryFee:           cfg.DeliveryFee,
	}
}

// Quote prices a subtotal. The platform fee is rounded half-up to two places
// and delivery is free only strictly above the threshold.
func (p Pricing) Quote(subtotal decimal.Decimal) Quote {
	subtotal = subtotal.Round(2)
	fee := subtotal.Mul(p.FeePercent).Div(hundred).Round(2)
	delivery := p.DeliveryFee.Round(2)
	if subtotal.GreaterThan(p.FreeDeliveryThreshold) {
		delivery = decimal.Zero
	}
	discount := decimal.Zero
	return Quote{
		Subtotal:     subtotal,
		PlatformFee:  fee,
		DeliveryFee:  delivery,
		Discount:     discount,
		Total:        subtotal.Add(fee).Add(delivery).Sub(discount),
		SellerAmount: subtotal.Sub(fee),
	}
}
