package quotations

import (
	"github.com/reraeasy/quotation-engine/internal/approval"
	"github.com/reraeasy/quotation-engine/internal/packages"
	"github.com/reraeasy/quotation-engine/internal/pricing"
	"github.com/reraeasy/quotation-engine/internal/terms"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// PricingView is the reconciled pricing state of a quotation.
type PricingView struct {
	QuotationID    string                 `json:"quotationId"`
	Status         enums.QuotationStatus  `json:"status"`
	Breakdown      []pricing.HeaderLine   `json:"pricingBreakdown"`
	GlobalDiscount pricing.GlobalDiscount `json:"globalDiscount"`
	Totals         pricing.Totals         `json:"totals"`
	Packages       []PackageTotal         `json:"packages"`
	Approval       approval.Decision      `json:"approval"`
}

// PackageTotal reports how a package header was priced.
type PackageTotal struct {
	HeaderName string          `json:"headerName"`
	Method     packages.Method `json:"method"`
	Total      decimal.Decimal `json:"total"`
}

type TermsView struct {
	QuotationID string                `json:"quotationId"`
	Categories  []terms.Category      `json:"categories"`
	Accepted    bool                  `json:"termsAccepted"`
	CustomTerms []string              `json:"customTerms"`
	Status      enums.QuotationStatus `json:"status"`
	Approval    *approval.Decision    `json:"approval,omitempty"`
}

type DecisionView struct {
	QuotationID string                `json:"quotationId"`
	Action      enums.ApprovalAction  `json:"action"`
	Status      enums.QuotationStatus `json:"status"`
	ApprovedBy  string                `json:"approvedBy,omitempty"`
}
