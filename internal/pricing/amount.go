package pricing

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	amountReplacer = strings.NewReplacer(",", "", "₹", "", " ", "", " ", "", "_", "")
)

// ParseAmount converts loosely typed input into a decimal. Anything that is not a finite
// number parses to zero.
func ParseAmount(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero
		}
		return *n
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case uint:
		return decimal.NewFromUint64(uint64(n))
	case uint64:
		return decimal.NewFromUint64(n)
	case json.Number:
		d, _ := parseAmountString(n.String())
		return d
	case string:
		d, _ := parseAmountString(n)
		return d
	case bool:
		return decimal.Zero
	}
	return decimal.Zero
}

// HasAmount reports whether v carries a parseable, non-empty numeric value.
func HasAmount(v any) bool {
	switch n := v.(type) {
	case nil, bool:
		return false
	case string:
		_, ok := parseAmountString(n)
		return ok
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	}
	return true
}

func parseAmountString(raw string) (decimal.Decimal, bool) {
	cleaned := amountReplacer.Replace(strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "Rs."), "INR")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// NonNegative clamps d to zero from below.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ClampPercent clamps p into [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// RoundAmount rounds money to whole rupees, half away from zero.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// PercentOf returns part/base*100 rounded to two places, or zero when base is not positive.
func PercentOf(part, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return part.Div(base).Mul(hundred).Round(2)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
