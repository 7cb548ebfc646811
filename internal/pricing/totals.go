package pricing

import "github.com/shopspring/decimal"

// HeaderTotals summarizes one header.
type HeaderTotals struct {
	HeaderName     string          `json:"headerName"`
	OriginalTotal  decimal.Decimal `json:"originalTotal"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	LumpSum        bool            `json:"lumpSum,omitempty"`
}

// Totals is derived from a breakdown and a global discount and is never stored as a source
// of truth.
type Totals struct {
	OriginalSubtotal         decimal.Decimal `json:"originalSubtotal"`
	ServiceSubtotal          decimal.Decimal `json:"serviceSubtotal"`
	ServiceDiscount          decimal.Decimal `json:"serviceDiscount"`
	GlobalDiscount           decimal.Decimal `json:"globalDiscount"`
	SubtotalAfterDiscount    decimal.Decimal `json:"subtotalAfterDiscount"`
	Total                    decimal.Decimal `json:"total"`
	TotalDiscount            decimal.Decimal `json:"totalDiscount"`
	EffectiveGlobalPercent   decimal.Decimal `json:"effectiveGlobalPercent"`
	EffectiveDiscountPercent decimal.Decimal `json:"effectiveDiscountPercent"`
	Headers                  []HeaderTotals  `json:"headers"`
}

// ComputeTotals folds the breakdown and global discount into totals. A header whose
// services carry no amounts but which has a positive HeaderTotal counts as a lump sum.
func ComputeTotals(b Breakdown, g GlobalDiscount) Totals {
	t := Totals{
		OriginalSubtotal: decimal.Zero,
		ServiceSubtotal:  decimal.Zero,
		Headers:          make([]HeaderTotals, 0, len(b)),
	}

	for _, h := range b {
		ht := HeaderTotals{HeaderName: h.HeaderName}
		if h.LumpSum() {
			ht.OriginalTotal = h.HeaderTotal.Decimal
			ht.FinalTotal = h.HeaderTotal.Decimal
			ht.LumpSum = true
		} else {
			ht.OriginalTotal = h.ServiceTotal()
			ht.FinalTotal = h.ServiceFinal()
		}
		ht.DiscountAmount = ht.OriginalTotal.Sub(ht.FinalTotal)

		t.OriginalSubtotal = t.OriginalSubtotal.Add(ht.OriginalTotal)
		t.ServiceSubtotal = t.ServiceSubtotal.Add(ht.FinalTotal)
		t.Headers = append(t.Headers, ht)
	}

	resolved := g.Resolve(t.ServiceSubtotal)
	t.ServiceDiscount = t.OriginalSubtotal.Sub(t.ServiceSubtotal)
	t.GlobalDiscount = resolved.Amount
	t.SubtotalAfterDiscount = t.ServiceSubtotal.Sub(resolved.Amount)
	t.Total = t.SubtotalAfterDiscount
	t.TotalDiscount = t.ServiceDiscount.Add(t.GlobalDiscount)
	t.EffectiveGlobalPercent = PercentOf(t.GlobalDiscount, t.ServiceSubtotal)
	t.EffectiveDiscountPercent = PercentOf(t.TotalDiscount, t.OriginalSubtotal)
	return t
}
