// Package pricing computes order prices from the catalog. It has no side
// effects: identical inputs always yield identical amounts.
package pricing

import (
	"fmt"

	"github.com/set-night/boostly/internal/config"
	"github.com/set-night/boostly/internal/domain"
	"github.com/shopspring/decimal"
)

type discountTier struct {
	minQuantity int
	discount    decimal.Decimal
}

// Ordered from the highest threshold down. Lower bounds are inclusive.
var discountTiers = []discountTier{
	{50000, decimal.RequireFromString("0.15")},
	{10000, decimal.RequireFromString("0.10")},
	{5000, decimal.RequireFromString("0.05")},
}

var speedSurcharges = map[domain.SpeedTier]decimal.Decimal{
	domain.SpeedNormal:  decimal.Zero,
	domain.SpeedFast:    decimal.RequireFromString("5.00"),
	domain.SpeedExpress: decimal.RequireFromString("10.00"),
}

// DiscountFor returns the bulk discount fraction for a line quantity.
func DiscountFor(quantity int) decimal.Decimal {
	for _, t := range discountTiers {
		if quantity >= t.minQuantity {
			return t.discount
		}
	}
	return decimal.Zero
}

// SpeedSurcharge returns the flat per-order delivery fee of a speed tier.
func SpeedSurcharge(tier domain.SpeedTier) (decimal.Decimal, error) {
	s, ok := speedSurcharges[tier]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidSpeedTier, tier)
	}
	return s, nil
}

// LineTotal is basePrice * quantity * (1 - discount), unrounded.
func LineTotal(basePrice decimal.Decimal, quantity int) decimal.Decimal {
	return basePrice.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromInt(1).Sub(DiscountFor(quantity)))
}

// Catalog is the read-only service lookup the engine prices against.
type Catalog interface {
	Lookup(platform domain.Platform, serviceID string) (domain.ServiceDefinition, error)
}

type Engine struct {
	catalog Catalog
}

func NewEngine(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Quote is a fully priced order.
type Quote struct {
	Platform  domain.Platform
	Lines     []domain.OrderLine
	Subtotal  decimal.Decimal
	Surcharge decimal.Decimal
	Amount    decimal.Decimal
}

// PriceLine validates one line against its service definition and prices it.
func (e *Engine) PriceLine(platform domain.Platform, req domain.LineRequest) (domain.OrderLine, error) {
	def, err := e.catalog.Lookup(platform, req.ServiceID)
	if err != nil {
		return domain.OrderLine{}, err
	}
	if len(req.TargetURL) > config.MaxTargetURLLen {
		return domain.OrderLine{}, fmt.Errorf("%w: longer than %d bytes", domain.ErrInvalidTargetURL, config.MaxTargetURLLen)
	}
	if req.Quantity < def.MinQuantity || req.Quantity > def.MaxQuantity {
		return domain.OrderLine{}, fmt.Errorf("%w: %s quantity %d outside [%d, %d]",
			domain.ErrInvalidQuantity, def.Key(), req.Quantity, def.MinQuantity, def.MaxQuantity)
	}
	return domain.OrderLine{
		ServiceID: def.ServiceID,
		TargetURL: req.TargetURL,
		Quantity:  req.Quantity,
		UnitPrice: def.BasePrice,
		Discount:  DiscountFor(req.Quantity),
		LineTotal: LineTotal(def.BasePrice, req.Quantity),
	}, nil
}

// PriceOrder prices every line and adds the speed surcharge once.
func (e *Engine) PriceOrder(platform domain.Platform, lines []domain.LineRequest, tier domain.SpeedTier) (*Quote, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	surcharge, err := SpeedSurcharge(tier)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		Platform:  platform,
		Lines:     make([]domain.OrderLine, 0, len(lines)),
		Subtotal:  decimal.Zero,
		Surcharge: surcharge,
	}
	for i, req := range lines {
		line, err := e.PriceLine(platform, req)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		q.Lines = append(q.Lines, line)
		q.Subtotal = q.Subtotal.Add(line.LineTotal)
	}
	q.Amount = q.Subtotal.Add(surcharge)
	return q, nil
}
