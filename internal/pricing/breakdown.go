package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// HeaderBreakdown is the priced services of one header. HeaderTotal is set when the pricing
// backend quoted the header as a lump sum.
type HeaderBreakdown struct {
	HeaderName  string
	Services    []PricedService
	HeaderTotal decimal.NullDecimal
}

// Breakdown is the ordered priced view of a quotation.
type Breakdown []HeaderBreakdown

// ServiceTotal sums the pre-discount totals of the header's services.
func (h HeaderBreakdown) ServiceTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range h.Services {
		sum = sum.Add(s.TotalAmount())
	}
	return sum
}

// ServiceFinal sums the discounted amounts of the header's services.
func (h HeaderBreakdown) ServiceFinal() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range h.Services {
		sum = sum.Add(s.FinalAmount())
	}
	return sum
}

// LumpSum reports whether the header is priced only through HeaderTotal.
func (h HeaderBreakdown) LumpSum() bool {
	return h.ServiceTotal().IsZero() && h.HeaderTotal.Valid && h.HeaderTotal.Decimal.IsPositive()
}

// Header returns the entry whose name matches name case-insensitively.
func (b Breakdown) Header(name string) (HeaderBreakdown, bool) {
	key := headerKey(name)
	for _, h := range b {
		if headerKey(h.HeaderName) == key {
			return h, true
		}
	}
	return HeaderBreakdown{}, false
}

// Clone deep-copies the breakdown.
func (b Breakdown) Clone() Breakdown {
	if b == nil {
		return nil
	}
	out := make(Breakdown, len(b))
	for i, h := range b {
		out[i] = h
		out[i].Services = append([]PricedService(nil), h.Services...)
	}
	return out
}

// Merge re-applies the edits recorded in edits onto a freshly priced breakdown. Services are
// matched within the same header by id, then by name. Totals always come from fresh; headers
// or services missing from fresh are dropped.
func Merge(fresh, edits Breakdown) Breakdown {
	out := fresh.Clone()
	for i := range out {
		prior, ok := edits.Header(out[i].HeaderName)
		if !ok {
			continue
		}
		if !out[i].HeaderTotal.Valid {
			out[i].HeaderTotal = prior.HeaderTotal
		}
		for j, svc := range out[i].Services {
			match, ok := findService(prior.Services, svc)
			if !ok || match.Edit() == EditNone {
				continue
			}
			out[i].Services[j] = svc.ApplyEdit(match)
		}
	}
	return out
}

func findService(services []PricedService, target PricedService) (PricedService, bool) {
	if target.ID != "" {
		for _, s := range services {
			if s.ID == target.ID {
				return s, true
			}
		}
	}
	key := headerKey(target.Name)
	if key == "" {
		return PricedService{}, false
	}
	for _, s := range services {
		if headerKey(s.Name) == key {
			return s, true
		}
	}
	return PricedService{}, false
}

func headerKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// HeaderLine is the persisted wire form of a header breakdown.
type HeaderLine struct {
	Header      string           `json:"header"`
	Services    []ServiceLine    `json:"services"`
	HeaderTotal *decimal.Decimal `json:"headerTotal,omitempty"`
}

// Lines converts b to its wire form.
func (b Breakdown) Lines() []HeaderLine {
	out := make([]HeaderLine, 0, len(b))
	for _, h := range b {
		line := HeaderLine{Header: h.HeaderName, Services: make([]ServiceLine, 0, len(h.Services))}
		for _, s := range h.Services {
			line.Services = append(line.Services, s.Line())
		}
		if h.HeaderTotal.Valid {
			total := h.HeaderTotal.Decimal
			line.HeaderTotal = &total
		}
		out = append(out, line)
	}
	return out
}

// BreakdownFromLines rebuilds a breakdown from its wire form.
func BreakdownFromLines(lines []HeaderLine) Breakdown {
	out := make(Breakdown, 0, len(lines))
	for _, l := range lines {
		h := HeaderBreakdown{HeaderName: l.Header, Services: make([]PricedService, 0, len(l.Services))}
		for _, s := range l.Services {
			h.Services = append(h.Services, s.Service())
		}
		if l.HeaderTotal != nil {
			h.HeaderTotal = decimal.NewNullDecimal(NonNegative(*l.HeaderTotal))
		}
		out = append(out, h)
	}
	return out
}
