package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a global discount was entered.
type DiscountType string

const (
	DiscountNone    DiscountType = "none"
	DiscountPercent DiscountType = "percent"
	DiscountAmount  DiscountType = "amount"
)

var validDiscountTypes = []DiscountType{DiscountNone, DiscountPercent, DiscountAmount}

func (t DiscountType) String() string { return string(t) }

// IsValid reports whether t is a known discount type.
func (t DiscountType) IsValid() bool {
	for _, v := range validDiscountTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ParseDiscountType maps user input onto a DiscountType. "fixed" and "percentage" are
// accepted as aliases.
func ParseDiscountType(value string) (DiscountType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return DiscountNone, nil
	case "percent", "percentage":
		return DiscountPercent, nil
	case "amount", "fixed":
		return DiscountAmount, nil
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}

// GlobalDiscount is applied once on top of the service-discounted subtotal. Only the value
// matching Type is authoritative; the other is derived by Resolve.
type GlobalDiscount struct {
	Type    DiscountType    `json:"type"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
}

// NoGlobalDiscount is the zero discount.
func NoGlobalDiscount() GlobalDiscount {
	return GlobalDiscount{Type: DiscountNone}
}

// GlobalPercent builds a percent-typed discount.
func GlobalPercent(p decimal.Decimal) GlobalDiscount {
	return NoGlobalDiscount().WithPercent(p)
}

// GlobalAmount builds an amount-typed discount.
func GlobalAmount(a decimal.Decimal) GlobalDiscount {
	return NoGlobalDiscount().WithAmount(a)
}

// WithPercent switches the discount to percent mode.
func (g GlobalDiscount) WithPercent(p decimal.Decimal) GlobalDiscount {
	g.Type = DiscountPercent
	g.Percent = ClampPercent(p)
	g.Amount = decimal.Zero
	return g
}

// WithAmount switches the discount to amount mode.
func (g GlobalDiscount) WithAmount(a decimal.Decimal) GlobalDiscount {
	g.Type = DiscountAmount
	g.Amount = NonNegative(a)
	g.Percent = decimal.Zero
	return g
}

// ResolvedDiscount is a global discount evaluated against a concrete base.
type ResolvedDiscount struct {
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// Resolve evaluates g against base. The amount is clamped into [0, base].
func (g GlobalDiscount) Resolve(base decimal.Decimal) ResolvedDiscount {
	base = NonNegative(base)
	var amount decimal.Decimal
	switch g.Type {
	case DiscountPercent:
		amount = RoundAmount(base.Mul(ClampPercent(g.Percent)).Div(hundred))
	case DiscountAmount:
		amount = NonNegative(g.Amount)
	default:
		return ResolvedDiscount{Amount: decimal.Zero, Percent: decimal.Zero}
	}
	amount = minDecimal(amount, base)

	percent := PercentOf(amount, base)
	if g.Type == DiscountPercent && base.IsPositive() {
		percent = ClampPercent(g.Percent)
	}
	return ResolvedDiscount{Amount: amount, Percent: percent}
}
