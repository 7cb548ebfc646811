package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EditKind records which projection of a service price the user last edited.
type EditKind string

const (
	EditNone    EditKind = "none"
	EditFinal   EditKind = "final"
	EditAmount  EditKind = "amount"
	EditPercent EditKind = "percent"
)

// ParseEditKind accepts the current edit names and the legacy discountType values.
func ParseEditKind(value string) (EditKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return EditNone, nil
	case "final", "finalamount", "final_amount":
		return EditFinal, nil
	case "amount", "fixed", "discountamount", "discount_amount":
		return EditAmount, nil
	case "percent", "percentage", "discountpercent", "discount_percent":
		return EditPercent, nil
	}
	return "", fmt.Errorf("invalid edit kind %q", value)
}

// Quantity holds the time-based multiplier metadata returned by the pricing backend.
type Quantity struct {
	BasePrice           decimal.Decimal
	RequiresYearQuarter bool
	RequiresYearOnly    bool
	QuarterCount        int
	YearCount           int
}

// Multiplier returns the unit count applied to BasePrice.
func (q Quantity) Multiplier() int {
	switch {
	case q.RequiresYearQuarter && q.QuarterCount > 0:
		return q.QuarterCount
	case q.RequiresYearOnly && q.YearCount > 0:
		return q.YearCount
	}
	return 1
}

// PricedService is one priced line. The total is fixed; discount amount, discount percent
// and final amount are projections of the last edit and always agree with each other.
type PricedService struct {
	ID          string
	Name        string
	SubServices []string
	Quantity    Quantity

	total    decimal.Decimal
	discount decimal.Decimal
	percent  decimal.Decimal
	final    decimal.Decimal
	edit     EditKind
}

// NewPricedService builds an undiscounted line. Negative totals clamp to zero.
func NewPricedService(id, name string, total decimal.Decimal) PricedService {
	total = NonNegative(total)
	return PricedService{
		ID:       id,
		Name:     name,
		total:    total,
		discount: decimal.Zero,
		percent:  decimal.Zero,
		final:    total,
		edit:     EditNone,
	}
}

// TotalAmount is the pre-discount base.
func (s PricedService) TotalAmount() decimal.Decimal { return s.total }

// DiscountAmount is total minus final.
func (s PricedService) DiscountAmount() decimal.Decimal { return s.discount }

// DiscountPercent is the discount relative to the total, zero for a zero total.
func (s PricedService) DiscountPercent() decimal.Decimal { return s.percent }

// FinalAmount is the discounted price.
func (s PricedService) FinalAmount() decimal.Decimal { return s.final }

// Edit reports the last edited projection.
func (s PricedService) Edit() EditKind { return s.edit }

// WithFinalAmount sets the final price directly. The result is clamped into [0, total].
func (s PricedService) WithFinalAmount(f decimal.Decimal) PricedService {
	f = minDecimal(NonNegative(f), s.total)
	s.final = f
	s.discount = s.total.Sub(f)
	s.percent = PercentOf(s.discount, s.total)
	s.edit = EditFinal
	return s
}

// WithDiscountAmount sets an absolute discount. Discounts beyond the total leave a zero final.
func (s PricedService) WithDiscountAmount(d decimal.Decimal) PricedService {
	d = minDecimal(NonNegative(d), s.total)
	s.discount = d
	s.final = s.total.Sub(d)
	s.percent = PercentOf(d, s.total)
	s.edit = EditAmount
	return s
}

// WithDiscountPercent sets a percentage discount; the amount is rounded to whole rupees.
func (s PricedService) WithDiscountPercent(p decimal.Decimal) PricedService {
	p = ClampPercent(p)
	d := minDecimal(RoundAmount(s.total.Mul(p).Div(hundred)), s.total)
	s.discount = d
	s.final = s.total.Sub(d)
	if s.total.IsPositive() {
		s.percent = p
	} else {
		s.percent = decimal.Zero
	}
	s.edit = EditPercent
	return s
}

// WithTotalAmount rebases the line on a new total and replays the last edit.
func (s PricedService) WithTotalAmount(total decimal.Decimal) PricedService {
	rebased := NewPricedService(s.ID, s.Name, total)
	rebased.SubServices = s.SubServices
	rebased.Quantity = s.Quantity
	return rebased.ApplyEdit(s)
}

// ApplyEdit replays the edit recorded on from onto s.
func (s PricedService) ApplyEdit(from PricedService) PricedService {
	return s.WithEdit(from.edit, from.EditValue())
}

// WithEdit applies value as the given kind of edit.
func (s PricedService) WithEdit(kind EditKind, value decimal.Decimal) PricedService {
	switch kind {
	case EditFinal:
		return s.WithFinalAmount(value)
	case EditAmount:
		return s.WithDiscountAmount(value)
	case EditPercent:
		return s.WithDiscountPercent(value)
	}
	return s
}

// EditValue returns the value of the last edit in its own unit.
func (s PricedService) EditValue() decimal.Decimal {
	switch s.edit {
	case EditFinal:
		return s.final
	case EditAmount:
		return s.discount
	case EditPercent:
		return s.percent
	}
	return decimal.Zero
}

// ServiceLine is the wire form of a priced service.
type ServiceLine struct {
	ID                  string           `json:"id,omitempty"`
	Name                string           `json:"name"`
	TotalAmount         decimal.Decimal  `json:"totalAmount"`
	DiscountAmount      decimal.Decimal  `json:"discountAmount"`
	DiscountPercent     decimal.Decimal  `json:"discountPercent"`
	FinalAmount         decimal.Decimal  `json:"finalAmount"`
	EditedField         EditKind         `json:"editedField"`
	SubServices         []string         `json:"subServices,omitempty"`
	BasePrice           *decimal.Decimal `json:"basePrice,omitempty"`
	RequiresYearQuarter bool             `json:"requiresYearQuarter,omitempty"`
	RequiresYearOnly    bool             `json:"requiresYearOnly,omitempty"`
	QuarterCount        int              `json:"quarterCount,omitempty"`
	YearCount           int              `json:"yearCount,omitempty"`
}

// Line returns the wire form of s.
func (s PricedService) Line() ServiceLine {
	return ServiceLine{
		ID:                  s.ID,
		Name:                s.Name,
		TotalAmount:         s.total,
		DiscountAmount:      s.discount,
		DiscountPercent:     s.percent,
		FinalAmount:         s.final,
		EditedField:         s.edit,
		SubServices:         s.SubServices,
		BasePrice:           basePrice(s.Quantity.BasePrice),
		RequiresYearQuarter: s.Quantity.RequiresYearQuarter,
		RequiresYearOnly:    s.Quantity.RequiresYearOnly,
		QuarterCount:        s.Quantity.QuarterCount,
		YearCount:           s.Quantity.YearCount,
	}
}

func basePrice(d decimal.Decimal) *decimal.Decimal {
	if d.IsZero() {
		return nil
	}
	return &d
}

// Service rebuilds the value object from its wire form, trusting only the total and the
// edited projection. Lines without a recognised editedField fall back to the first changed
// projection: final, then percent, then amount.
func (l ServiceLine) Service() PricedService {
	s := NewPricedService(l.ID, l.Name, l.TotalAmount)
	s.SubServices = l.SubServices
	s.Quantity = Quantity{
		BasePrice:           nonNil(l.BasePrice),
		RequiresYearQuarter: l.RequiresYearQuarter,
		RequiresYearOnly:    l.RequiresYearOnly,
		QuarterCount:        l.QuarterCount,
		YearCount:           l.YearCount,
	}
	kind, err := ParseEditKind(string(l.EditedField))
	if err != nil || kind == EditNone {
		kind = l.inferredEdit()
	}
	switch kind {
	case EditFinal:
		return s.WithFinalAmount(l.FinalAmount)
	case EditAmount:
		return s.WithDiscountAmount(l.DiscountAmount)
	case EditPercent:
		return s.WithDiscountPercent(l.DiscountPercent)
	}
	return s
}

func nonNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func (l ServiceLine) inferredEdit() EditKind {
	switch {
	case l.FinalAmount.IsPositive() && !l.FinalAmount.Equal(l.TotalAmount):
		return EditFinal
	case l.DiscountPercent.IsPositive():
		return EditPercent
	case l.DiscountAmount.IsPositive():
		return EditAmount
	}
	return EditNone
}
