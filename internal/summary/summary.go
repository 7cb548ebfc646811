package summary

import (
	"strings"

	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/packages"
	"github.com/reraeasy/quotation-engine/internal/pricing"
	"github.com/reraeasy/quotation-engine/internal/terms"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// Row is one displayed service line. Amounts are null in lump-sum mode or when nothing
// priced the service.
type Row struct {
	ServiceID      string              `json:"serviceId,omitempty"`
	Name           string              `json:"name"`
	SubServices    []string            `json:"subServices,omitempty"`
	TotalAmount    decimal.NullDecimal `json:"totalAmount"`
	DiscountAmount decimal.NullDecimal `json:"discountAmount"`
	FinalAmount    decimal.NullDecimal `json:"finalAmount"`
	Synthetic      bool                `json:"synthetic,omitempty"`
}

// Section is one header of the summary.
type Section struct {
	HeaderName string          `json:"headerName"`
	Package    bool            `json:"package,omitempty"`
	Method     packages.Method `json:"method,omitempty"`
	Rows       []Row           `json:"rows"`
	Total      decimal.Decimal `json:"total"`
}

// Summary is the render model shared by the summary view and the PDF download.
type Summary struct {
	QuotationID    string                 `json:"quotationId,omitempty"`
	DisplayMode    enums.DisplayMode      `json:"displayMode"`
	Sections       []Section              `json:"sections"`
	GlobalDiscount pricing.GlobalDiscount `json:"globalDiscount"`
	Totals         pricing.Totals         `json:"totals"`
	Terms          []terms.Category       `json:"terms,omitempty"`
}

// Input carries an already normalized quotation and its merged breakdown.
type Input struct {
	QuotationID string
	Quotation   normalize.Quotation
	Breakdown   pricing.Breakdown
	Global      pricing.GlobalDiscount
	DisplayMode enums.DisplayMode
	Terms       []terms.Category
}

type Builder struct {
	aggregator *packages.Aggregator
}

func NewBuilder(agg *packages.Aggregator) *Builder {
	if agg == nil {
		agg = packages.NewAggregator(nil)
	}
	return &Builder{aggregator: agg}
}

// Build folds package headers, then derives the grand totals from the folded breakdown so
// the displayed sections and totals always agree.
func (b *Builder) Build(in Input) Summary {
	mode := in.DisplayMode
	if !mode.IsValid() {
		mode = enums.DefaultDisplayMode
	}
	lumpSum := mode == enums.DisplayModeLumpsum

	folded := in.Breakdown.Clone()
	out := Summary{
		QuotationID:    in.QuotationID,
		DisplayMode:    mode,
		GlobalDiscount: in.Global,
		Terms:          in.Terms,
	}

	seen := make(map[string]struct{}, len(in.Quotation.Headers))
	for _, header := range in.Quotation.Headers {
		seen[key(header.Name)] = struct{}{}
		entry, hasEntry := in.Breakdown.Header(header.Name)

		if packages.IsPackage(header.Name) {
			res := b.aggregator.Aggregate(header, in.Breakdown)
			out.Sections = append(out.Sections, packageSection(res, lumpSum))
			folded = foldPackage(folded, res)
			continue
		}
		out.Sections = append(out.Sections, headerSection(header, entry, lumpSum))
		if !hasEntry {
			folded = foldPrices(folded, header)
		}
	}

	// breakdown headers the quotation tree no longer mentions are still billed
	for _, entry := range in.Breakdown {
		if _, ok := seen[key(entry.HeaderName)]; ok {
			continue
		}
		out.Sections = append(out.Sections, breakdownSection(entry, lumpSum))
	}

	out.Totals = pricing.ComputeTotals(folded, in.Global)
	for i := range out.Sections {
		sec := &out.Sections[i]
		if ht, ok := headerTotals(out.Totals, sec.HeaderName); ok {
			sec.Total = ht.FinalTotal
		}
		if sec.Package {
			syncPackageRow(sec)
		}
	}
	return out
}

// syncPackageRow keeps the synthetic package total row equal to the section total.
func syncPackageRow(sec *Section) {
	for i := range sec.Rows {
		if sec.Rows[i].Synthetic && sec.Rows[i].FinalAmount.Valid {
			sec.Rows[i].TotalAmount = decimal.NewNullDecimal(sec.Total)
			sec.Rows[i].FinalAmount = decimal.NewNullDecimal(sec.Total)
		}
	}
}

func packageSection(res packages.Result, lumpSum bool) Section {
	sec := Section{HeaderName: res.HeaderName, Package: true, Method: res.Method, Total: res.Total}
	sec.Rows = make([]Row, 0, len(res.Rows))
	for _, r := range res.Rows {
		row := Row{Name: r.Name, SubServices: r.SubServices, Synthetic: r.Synthetic}
		if r.Amount.Valid && (r.Synthetic || !lumpSum) {
			row.TotalAmount = r.Amount
			row.FinalAmount = r.Amount
		}
		sec.Rows = append(sec.Rows, row)
	}
	return sec
}

func headerSection(header normalize.Header, entry pricing.HeaderBreakdown, lumpSum bool) Section {
	sec := Section{HeaderName: header.Name, Rows: make([]Row, 0, len(header.Services))}
	for _, svc := range header.Services {
		row := Row{ServiceID: svc.ID, Name: svc.Name, SubServices: subNames(svc.SubServices)}
		if !lumpSum {
			if priced, ok := findPriced(entry.Services, svc); ok {
				setAmounts(&row, priced)
			} else if svc.Price.Valid {
				row.TotalAmount = svc.Price
				row.DiscountAmount = decimal.NewNullDecimal(decimal.Zero)
				row.FinalAmount = svc.Price
			}
		}
		sec.Rows = append(sec.Rows, row)
	}
	return sec
}

func breakdownSection(entry pricing.HeaderBreakdown, lumpSum bool) Section {
	sec := Section{HeaderName: entry.HeaderName, Rows: make([]Row, 0, len(entry.Services))}
	for _, svc := range entry.Services {
		row := Row{ServiceID: svc.ID, Name: svc.Name, SubServices: svc.SubServices}
		if !lumpSum {
			setAmounts(&row, svc)
		}
		sec.Rows = append(sec.Rows, row)
	}
	return sec
}

func setAmounts(row *Row, svc pricing.PricedService) {
	row.TotalAmount = decimal.NewNullDecimal(svc.TotalAmount())
	row.DiscountAmount = decimal.NewNullDecimal(svc.DiscountAmount())
	row.FinalAmount = decimal.NewNullDecimal(svc.FinalAmount())
}

// foldPackage makes the breakdown carry the aggregated package total when the breakdown
// itself could not price the header.
func foldPackage(b pricing.Breakdown, res packages.Result) pricing.Breakdown {
	if res.Method == packages.MethodBreakdownServices || !res.Resolved() {
		return b
	}
	total := decimal.NewNullDecimal(res.Total)
	for i := range b {
		if key(b[i].HeaderName) == key(res.HeaderName) {
			b[i].Services = nil
			b[i].HeaderTotal = total
			return b
		}
	}
	return append(b, pricing.HeaderBreakdown{HeaderName: res.HeaderName, HeaderTotal: total})
}

// foldPrices prices a header the breakdown never saw from the amounts on its own services.
func foldPrices(b pricing.Breakdown, header normalize.Header) pricing.Breakdown {
	entry := pricing.HeaderBreakdown{HeaderName: header.Name, HeaderTotal: header.TotalAmount}
	for _, svc := range header.Services {
		if svc.Price.Valid {
			entry.Services = append(entry.Services, pricing.NewPricedService(svc.ID, svc.Name, svc.Price.Decimal))
		}
	}
	if len(entry.Services) == 0 && !entry.LumpSum() {
		return b
	}
	return append(b, entry)
}

func headerTotals(t pricing.Totals, name string) (pricing.HeaderTotals, bool) {
	for _, ht := range t.Headers {
		if key(ht.HeaderName) == key(name) {
			return ht, true
		}
	}
	return pricing.HeaderTotals{}, false
}

func findPriced(services []pricing.PricedService, svc normalize.Service) (pricing.PricedService, bool) {
	for _, p := range services {
		if p.ID != "" && p.ID == svc.ID {
			return p, true
		}
	}
	for _, p := range services {
		if key(p.Name) == key(svc.Name) {
			return p, true
		}
	}
	return pricing.PricedService{}, false
}

func subNames(subs []normalize.SubService) []string {
	if len(subs) == 0 {
		return nil
	}
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Name)
	}
	return out
}

func key(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
