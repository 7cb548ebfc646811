package quotations

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reraeasy/quotation-engine/api/controllers"
	"github.com/reraeasy/quotation-engine/api/middleware"
	"github.com/reraeasy/quotation-engine/api/responses"
	"github.com/reraeasy/quotation-engine/api/validators"
	internalquotations "github.com/reraeasy/quotation-engine/internal/quotations"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
	"github.com/reraeasy/quotation-engine/pkg/logger"
)

// Pricing returns the reconciled pricing of a quotation.
func Pricing(svc internalquotations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotation service unavailable"))
			return
		}

		id, err := quotationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Pricing(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type savePricingRequest struct {
	PricingBreakdown any                            `json:"pricingBreakdown" validate:"required"`
	GlobalDiscount   controllers.GlobalDiscountBody `json:"globalDiscount"`
	Headers          any                            `json:"headers,omitempty"`
}

// SavePricing reconciles the submitted edits against fresh prices and persists them.
func SavePricing(svc internalquotations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotation service unavailable"))
			return
		}

		id, err := quotationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload savePricingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		global, err := payload.GlobalDiscount.Discount()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SavePricing(r.Context(), id, internalquotations.SavePricingInput{
			Breakdown:      payload.PricingBreakdown,
			GlobalDiscount: global,
			Headers:        payload.Headers,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Summary renders the quotation summary in the requested or remembered display mode.
func Summary(svc internalquotations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotation service unavailable"))
			return
		}

		id, err := quotationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := displayModeQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.Summary(r.Context(), middleware.UserIDFromContext(r.Context()), id, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// Terms returns the applicable terms categories and the accepted state.
func Terms(svc internalquotations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotation service unavailable"))
			return
		}

		id, err := quotationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Terms(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type saveTermsRequest struct {
	TermsAccepted bool     `json:"termsAccepted"`
	CustomTerms   []string `json:"customTerms" validate:"omitempty,max=50,dive,max=2000"`
}

// SaveTerms records terms acceptance and custom clauses.
func SaveTerms(svc internalquotations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotation service unavailable"))
			return
		}

		id, err := quotationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saveTermsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SaveTerms(r.Context(), id, internalquotations.SaveTermsInput{
			Accepted:    payload.TermsAccepted,
			CustomTerms: sanitizeTerms(payload.CustomTerms),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

const maxCustomTermLen = 2000

func sanitizeTerms(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, term := range in {
		out = append(out, validators.SanitizeString(term, maxCustomTermLen))
	}
	return out
}

type displayModeRequest struct {
	DisplayMode string `json:"displayMode" validate:"required"`
}

// DisplayMode stores the caller's display mode for a quotation.
func DisplayMode(svc internalquotations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotation service unavailable"))
			return
		}

		id, err := quotationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload displayModeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := enums.ParseDisplayMode(payload.DisplayMode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid display mode"))
			return
		}

		stored, err := svc.SetDisplayMode(r.Context(), middleware.UserIDFromContext(r.Context()), id, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"quotationId": id, "displayMode": stored})
	}
}

type approvalRequest struct {
	Action string `json:"action" validate:"required"`
}

// Approval approves or rejects a quotation waiting for approval.
func Approval(svc internalquotations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotation service unavailable"))
			return
		}

		id, err := quotationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload approvalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseApprovalAction(payload.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid approval action"))
			return
		}

		view, err := svc.Decide(r.Context(), id, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Download streams the quotation PDF.
func Download(svc internalquotations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotation service unavailable"))
			return
		}

		id, err := quotationID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := displayModeQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		doc, err := svc.Download(r.Context(), middleware.UserIDFromContext(r.Context()), id, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contentType := doc.ContentType
		if contentType == "" {
			contentType = "application/pdf"
		}
		filename := doc.Filename
		if filename == "" {
			filename = fmt.Sprintf("Quotation_%s.pdf", id)
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(doc.Body); err != nil && logg != nil {
			logg.Warn(r.Context(), "download.write_failed")
		}
	}
}

func quotationID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "quotationID"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "quotation id is required")
	}
	return id, nil
}

// displayModeQuery returns the requested display mode, or "" when none was requested.
func displayModeQuery(r *http.Request) (enums.DisplayMode, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("displayMode"))
	if raw == "" {
		return "", nil
	}
	mode, err := enums.ParseDisplayMode(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid display mode").WithDetails(map[string]any{"field": "displayMode"})
	}
	return mode, nil
}
