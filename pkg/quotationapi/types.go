package quotationapi

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/reraeasy/quotation-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// User is the profile returned by GET /api/me.
type User struct {
	ID        json.Number     `json:"id"`
	FirstName string          `json:"fname"`
	LastName  string          `json:"lname"`
	Username  string          `json:"username"`
	Role      enums.UserRole  `json:"role"`
	Threshold decimal.Decimal `json:"threshold"`
}

// Record is a persisted quotation. Headers, PricingBreakdown and ApplicableTerms keep the
// loosely shaped JSON the backend stores; callers normalize them before use.
type Record struct {
	ID                       string                `json:"id"`
	DeveloperType            string                `json:"developerType"`
	ProjectRegion            string                `json:"projectRegion"`
	PlotArea                 decimal.Decimal       `json:"plotArea"`
	DeveloperName            string                `json:"developerName"`
	ProjectName              string                `json:"projectName"`
	Validity                 string                `json:"validity"`
	PaymentSchedule          string                `json:"paymentSchedule"`
	ReraNumber               string                `json:"reraNumber"`
	Headers                  any                   `json:"headers"`
	PricingBreakdown         any                   `json:"pricingBreakdown"`
	GlobalDiscount           *GlobalDiscount       `json:"globalDiscount,omitempty"`
	TotalAmount              decimal.Decimal       `json:"totalAmount"`
	DiscountAmount           decimal.Decimal       `json:"discountAmount"`
	EffectiveDiscountPercent decimal.Decimal       `json:"effectiveDiscountPercent"`
	CreatedBy                string                `json:"createdBy"`
	Status                   enums.QuotationStatus `json:"status"`
	CreatedAt                string                `json:"createdAt"`
	TermsAccepted            bool                  `json:"termsAccepted"`
	ApplicableTerms          any                   `json:"applicableTerms"`
	CustomTerms              []string              `json:"customTerms"`
	RequiresApproval         bool                  `json:"requiresApproval"`
	ApprovedBy               string                `json:"approvedBy"`
	DisplayMode              enums.DisplayMode     `json:"displayMode,omitempty"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// CreatedTime parses CreatedAt. The backend emits naive UTC timestamps.
func (r Record) CreatedTime() *time.Time {
	raw := strings.TrimSpace(r.CreatedAt)
	if raw == "" {
		return nil
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// PricingRequest is the body of POST /api/quotations/calculate-pricing.
type PricingRequest struct {
	DeveloperType string          `json:"developerType"`
	ProjectRegion string          `json:"projectRegion"`
	PlotArea      decimal.Decimal `json:"plotArea"`
	Headers       any             `json:"headers"`
}

// PricingResult is the raw calculate-pricing response.
type PricingResult struct {
	Breakdown any `json:"breakdown"`
	Summary   struct {
		Subtotal      decimal.Decimal `json:"subtotal"`
		TotalServices int             `json:"totalServices"`
	} `json:"summary"`
}

// PricingPayload is the body of PUT /api/quotations/:id/pricing.
type PricingPayload struct {
	TotalAmount           decimal.Decimal `json:"totalAmount"`
	DiscountAmount        decimal.Decimal `json:"discountAmount"`
	DiscountPercent       decimal.Decimal `json:"discountPercent"`
	ServiceDiscountAmount decimal.Decimal `json:"serviceDiscountAmount"`
	GlobalDiscountAmount  decimal.Decimal `json:"globalDiscountAmount"`
	PricingBreakdown      any             `json:"pricingBreakdown"`
	GlobalDiscount        *GlobalDiscount `json:"globalDiscount,omitempty"`
	Headers               any             `json:"headers,omitempty"`
}

// GlobalDiscount is the quotation-wide discount as entered: a type and one value in that
// type's unit.
type GlobalDiscount struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// TermsPayload is the body of PUT /api/quotations/:id/terms.
type TermsPayload struct {
	TermsAccepted   bool     `json:"termsAccepted"`
	ApplicableTerms any      `json:"applicableTerms"`
	CustomTerms     []string `json:"customTerms"`
}

// QuotationPatch is the body of PUT /api/quotations/:id. Nil fields are left untouched.
type QuotationPatch struct {
	Headers        any                    `json:"headers,omitempty"`
	ServiceSummary *string                `json:"serviceSummary,omitempty"`
	Status         *enums.QuotationStatus `json:"status,omitempty"`
	DisplayMode    *enums.DisplayMode     `json:"displayMode,omitempty"`
}

// Document is a downloaded file.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}
