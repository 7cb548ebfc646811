package approval

import (
	"strings"

	"github.com/reraeasy/quotation-engine/internal/catalog"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// Reason names a rule that routes a quotation to approval.
type Reason string

const (
	ReasonDefaultServiceRemoved  Reason = "default_service_removed"
	ReasonAddonSelected          Reason = "addon_selected"
	ReasonDiscountAboveThreshold Reason = "discount_above_threshold"
	ReasonCustomTerms            Reason = "custom_terms"
)

// HeaderSelection is the part of a selected header the rules look at. Defaults, when non-nil,
// lists the service ids that were preselected for the header; otherwise the catalog defaults
// of package and customized headers apply.
type HeaderSelection struct {
	Name         string
	OriginalName string
	ServiceIDs   []string
	Defaults     []string
}

// Input is everything the predicate needs.
type Input struct {
	Headers []HeaderSelection
	// EffectiveDiscountPercent is the total discount relative to the undiscounted subtotal.
	EffectiveDiscountPercent decimal.Decimal
	Threshold                decimal.Decimal
	CustomTerms              []string
}

// Decision is the evaluation result.
type Decision struct {
	Required        bool     `json:"required"`
	Reasons         []Reason `json:"reasons"`
	RemovedDefaults []string `json:"removedDefaults,omitempty"`
	Addons          []string `json:"addons,omitempty"`
}

// Has reports whether r triggered.
func (d Decision) Has(r Reason) bool {
	for _, got := range d.Reasons {
		if got == r {
			return true
		}
	}
	return false
}

// Status maps the decision onto the quotation status after a save.
func (d Decision) Status() enums.QuotationStatus {
	if d.Required {
		return enums.QuotationStatusPendingApproval
	}
	return enums.QuotationStatusCompleted
}

// Evaluator applies the approval rules against the catalog.
type Evaluator struct {
	catalog *catalog.Catalog
}

// NewEvaluator builds an evaluator; a nil catalog uses the embedded default.
func NewEvaluator(c *catalog.Catalog) *Evaluator {
	if c == nil {
		c = catalog.Default()
	}
	return &Evaluator{catalog: c}
}

// Evaluate reports whether the quotation needs manager or admin approval.
func (e *Evaluator) Evaluate(in Input) Decision {
	d := Decision{Reasons: []Reason{}}
	seenAddon := map[string]struct{}{}

	for _, h := range in.Headers {
		selected := make(map[string]struct{}, len(h.ServiceIDs))
		for _, id := range h.ServiceIDs {
			selected[id] = struct{}{}
			if !e.catalog.IsAddon(id) {
				continue
			}
			if _, dup := seenAddon[id]; !dup {
				seenAddon[id] = struct{}{}
				d.Addons = append(d.Addons, id)
			}
		}

		for _, id := range e.defaultsFor(h) {
			if _, ok := selected[id]; !ok {
				d.RemovedDefaults = append(d.RemovedDefaults, id)
			}
		}
	}

	if len(d.RemovedDefaults) > 0 {
		d.add(ReasonDefaultServiceRemoved)
	}
	if len(d.Addons) > 0 {
		d.add(ReasonAddonSelected)
	}
	if in.EffectiveDiscountPercent.GreaterThan(in.Threshold) {
		d.add(ReasonDiscountAboveThreshold)
	}
	if len(NonEmptyTerms(in.CustomTerms)) > 0 {
		d.add(ReasonCustomTerms)
	}
	return d
}

func (d *Decision) add(r Reason) {
	if d.Has(r) {
		return
	}
	d.Reasons = append(d.Reasons, r)
	d.Required = true
}

func (e *Evaluator) defaultsFor(h HeaderSelection) []string {
	if h.Defaults != nil {
		return h.Defaults
	}
	return DefaultIDs(e.catalog, TemplateName(h))
}

// DefaultIDs lists the ids of the services preselected for a header template. Only package
// headers and the customized header have defaults.
func DefaultIDs(c *catalog.Catalog, template string) []string {
	defs := c.DefaultServices(template)
	ids := make([]string, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID)
	}
	return ids
}

// TemplateName returns the catalog header a selected header was created from. Customized
// header instances carry an originalName prefixed with the catalog name.
func TemplateName(h HeaderSelection) string {
	if strings.HasPrefix(h.OriginalName, catalog.CustomizedHeader) {
		return catalog.CustomizedHeader
	}
	if h.OriginalName != "" {
		return h.OriginalName
	}
	return h.Name
}

// NonEmptyTerms trims terms and drops blanks.
func NonEmptyTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
