package packages

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/pricing"
	"github.com/shopspring/decimal"
)

// Method identifies which step of the fallback chain produced a package total.
type Method string

const (
	MethodBreakdownServices Method = "breakdown_services"
	MethodHeaderTotal       Method = "header_total"
	MethodServicePrices     Method = "service_prices"
	MethodFallbackTable     Method = "fallback_table"
	MethodUnresolved        Method = "unresolved"
)

// DefaultFallbackPrices are the last-resort package prices, used only when neither the
// pricing backend nor the quotation carries an amount. Pending product confirmation.
var DefaultFallbackPrices = map[string]decimal.Decimal{
	"Package A": decimal.NewFromInt(200000),
	"Package B": decimal.NewFromInt(250000),
	"Package C": decimal.NewFromInt(300000),
	"Package D": decimal.NewFromInt(100000),
}

// IsPackage reports whether a header name carries the package marker.
func IsPackage(headerName string) bool {
	return strings.Contains(strings.ToLower(headerName), "package")
}

// Row is one displayed line of a package header.
type Row struct {
	Name        string              `json:"name"`
	SubServices []string            `json:"subServices,omitempty"`
	Amount      decimal.NullDecimal `json:"amount"`
	Synthetic   bool                `json:"synthetic,omitempty"`
}

// Result is the folded view of a package header.
type Result struct {
	HeaderName string          `json:"headerName"`
	Total      decimal.Decimal `json:"total"`
	Method     Method          `json:"method"`
	Rows       []Row           `json:"rows"`
}

// Resolved reports whether a positive total was found.
func (r Result) Resolved() bool {
	return r.Method != MethodUnresolved
}

// Aggregator folds package headers into a single total.
type Aggregator struct {
	fallback map[string]decimal.Decimal
	keys     []string
}

// NewAggregator builds an aggregator over the given fallback table. A nil table uses
// DefaultFallbackPrices.
func NewAggregator(fallback map[string]decimal.Decimal) *Aggregator {
	if fallback == nil {
		fallback = DefaultFallbackPrices
	}
	a := &Aggregator{fallback: make(map[string]decimal.Decimal, len(fallback))}
	for name, price := range fallback {
		key := headerKey(name)
		a.fallback[key] = price
		a.keys = append(a.keys, key)
	}
	// longest key first so "package a plus" wins over "package a"
	sort.Slice(a.keys, func(i, j int) bool {
		if len(a.keys[i]) != len(a.keys[j]) {
			return len(a.keys[i]) > len(a.keys[j])
		}
		return a.keys[i] < a.keys[j]
	})
	return a
}

// Aggregate resolves the package total for header. The first method yielding a positive
// amount wins: the matching breakdown entry's services, a header-level total, the prices on
// the header's own services, then the fallback table. Priced breakdown services always
// contribute their final amounts, so a fully discounted package totals zero.
func (a *Aggregator) Aggregate(header normalize.Header, breakdown pricing.Breakdown) Result {
	res := Result{HeaderName: header.Name, Total: decimal.Zero, Method: MethodUnresolved}
	entry, hasEntry := breakdown.Header(header.Name)

	switch {
	case hasEntry && positive(entry.ServiceTotal()):
		res.Total, res.Method = entry.ServiceFinal(), MethodBreakdownServices
	case hasEntry && entry.HeaderTotal.Valid && positive(entry.HeaderTotal.Decimal):
		res.Total, res.Method = entry.HeaderTotal.Decimal, MethodHeaderTotal
	case header.TotalAmount.Valid && positive(header.TotalAmount.Decimal):
		res.Total, res.Method = header.TotalAmount.Decimal, MethodHeaderTotal
	case positive(servicePriceSum(header.Services)):
		res.Total, res.Method = servicePriceSum(header.Services), MethodServicePrices
	default:
		if price, ok := a.fallbackPrice(header.Name); ok {
			res.Total, res.Method = price, MethodFallbackTable
		}
	}

	res.Rows = make([]Row, 0, len(header.Services)+1)
	for _, svc := range header.Services {
		row := Row{Name: svc.Name, SubServices: subServiceNames(svc.SubServices)}
		if priced, ok := findPriced(entry.Services, svc); ok {
			row.Amount = decimal.NewNullDecimal(priced.FinalAmount())
		} else if svc.Price.Valid {
			row.Amount = svc.Price
		}
		res.Rows = append(res.Rows, row)
	}
	total := Row{Name: fmt.Sprintf("%s Total", header.Name), Synthetic: true}
	if res.Resolved() {
		total.Amount = decimal.NewNullDecimal(res.Total)
	}
	res.Rows = append(res.Rows, total)
	return res
}

func (a *Aggregator) fallbackPrice(headerName string) (decimal.Decimal, bool) {
	key := headerKey(headerName)
	if price, ok := a.fallback[key]; ok && positive(price) {
		return price, true
	}
	for _, k := range a.keys {
		if strings.Contains(key, k) && positive(a.fallback[k]) {
			return a.fallback[k], true
		}
	}
	return decimal.Zero, false
}

func servicePriceSum(services []normalize.Service) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range services {
		if s.Price.Valid && positive(s.Price.Decimal) {
			sum = sum.Add(s.Price.Decimal)
		}
	}
	return sum
}

func findPriced(services []pricing.PricedService, svc normalize.Service) (pricing.PricedService, bool) {
	for _, p := range services {
		if p.ID != "" && p.ID == svc.ID {
			return p, true
		}
	}
	for _, p := range services {
		if headerKey(p.Name) == headerKey(svc.Name) {
			return p, true
		}
	}
	return pricing.PricedService{}, false
}

func subServiceNames(subs []normalize.SubService) []string {
	if len(subs) == 0 {
		return nil
	}
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Name)
	}
	return out
}

func positive(d decimal.Decimal) bool {
	return d.IsPositive()
}

func headerKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
