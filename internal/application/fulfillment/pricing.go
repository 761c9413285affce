package fulfillment

import (
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared/valueobject"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// PricingDefaults fills in document pricing terms a request leaves out
type PricingDefaults struct {
	TaxRate decimal.Decimal
	// Rates supplies the fixed exchange rate of the document currency. Nil
	// means every currency is taken at rate 1.
	Rates *valueobject.RateTable
}

func (p PricingDefaults) resolve(req PricingRequest) (trade.PricingInput, error) {
	in := trade.PricingInput{
		TaxRate:         p.TaxRate,
		ShippingCharges: decimal.Zero,
		Currency:        req.Currency,
		ExchangeRate:    decimal.NewFromInt(1),
	}
	if req.TaxRate != nil {
		in.TaxRate = *req.TaxRate
	}
	if req.ShippingCharges != nil {
		in.ShippingCharges = *req.ShippingCharges
	}
	if in.Currency == "" {
		in.Currency = string(valueobject.DefaultCurrency)
		if p.Rates != nil {
			in.Currency = string(p.Rates.Base())
		}
	}
	switch {
	case req.ExchangeRate != nil:
		in.ExchangeRate = *req.ExchangeRate
	case p.Rates != nil:
		cur, err := valueobject.ParseCurrency(in.Currency)
		if err != nil {
			return trade.PricingInput{}, shared.NewInvalidInputError("INVALID_CURRENCY", err.Error())
		}
		rate, err := p.Rates.Rate(cur)
		if err != nil {
			return trade.PricingInput{}, shared.NewInvalidInputError("UNKNOWN_EXCHANGE_RATE", err.Error())
		}
		in.ExchangeRate = rate
	}
	return in, nil
}

func buildLineItems(in []LineItemInput) (trade.LineItems, error) {
	items := make(trade.LineItems, 0, len(in))
	for _, line := range in {
		item, err := trade.NewLineItem(line.PartID, line.PartNumber, line.Description, line.Quantity, line.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
