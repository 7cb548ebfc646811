package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/reraeasy/quotation-engine/api/responses"
	"github.com/reraeasy/quotation-engine/api/validators"
	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/pricing"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
	"github.com/reraeasy/quotation-engine/pkg/logger"
)

type serviceEditRequest struct {
	Service pricing.ServiceLine `json:"service"`
	Field   string              `json:"field" validate:"required"`
	Value   decimal.Decimal     `json:"value"`
}

// PricingServiceEdit applies one edit to a priced service and returns every projection.
func PricingServiceEdit(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload serviceEditRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := pricing.ParseEditKind(payload.Field)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid edit field"))
			return
		}

		edited := payload.Service.Service().WithEdit(kind, payload.Value)
		responses.WriteSuccess(w, edited.Line())
	}
}

type totalsRequest struct {
	PricingBreakdown any                `json:"pricingBreakdown" validate:"required"`
	GlobalDiscount   GlobalDiscountBody `json:"globalDiscount"`
}

// PricingTotals folds a breakdown and a global discount into totals. The breakdown may use
// any shape the normalizer accepts.
func PricingTotals(norm *normalize.Normalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload totalsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		global, err := payload.GlobalDiscount.Discount()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown := norm.Breakdown(r.Context(), payload.PricingBreakdown)
		responses.WriteSuccess(w, pricing.ComputeTotals(breakdown, global))
	}
}

// GlobalDiscountBody is the request form of a global discount: a type and one value in
// that type's unit.
type GlobalDiscountBody struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Discount converts the body into a clamped global discount.
func (b GlobalDiscountBody) Discount() (pricing.GlobalDiscount, error) {
	kind, err := pricing.ParseDiscountType(b.Type)
	if err != nil {
		return pricing.GlobalDiscount{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid global discount type")
	}
	switch kind {
	case pricing.DiscountPercent:
		return pricing.GlobalPercent(b.Value), nil
	case pricing.DiscountAmount:
		return pricing.GlobalAmount(b.Value), nil
	}
	return pricing.NoGlobalDiscount(), nil
}
