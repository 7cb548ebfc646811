package quotations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reraeasy/quotation-engine/api/middleware"
	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/pricing"
	internalquotations "github.com/reraeasy/quotation-engine/internal/quotations"
	"github.com/reraeasy/quotation-engine/internal/summary"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
	"github.com/reraeasy/quotation-engine/pkg/quotationapi"
)

type stubService struct {
	savedPricing *internalquotations.SavePricingInput
	savedTerms   *internalquotations.SaveTermsInput
	summaryMode  enums.DisplayMode
	summaryUser  string
	action       enums.ApprovalAction
	setMode      enums.DisplayMode
	err          error
}

func (s *stubService) Pricing(_ context.Context, id string) (*internalquotations.PricingView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &internalquotations.PricingView{QuotationID: id, Status: enums.QuotationStatusDraft}, nil
}

func (s *stubService) SavePricing(_ context.Context, id string, input internalquotations.SavePricingInput) (*internalquotations.PricingView, error) {
	s.savedPricing = &input
	if s.err != nil {
		return nil, s.err
	}
	return &internalquotations.PricingView{QuotationID: id, GlobalDiscount: input.GlobalDiscount}, nil
}

func (s *stubService) Summary(_ context.Context, userID, id string, mode enums.DisplayMode) (*summary.Summary, error) {
	s.summaryUser = userID
	s.summaryMode = mode
	if s.err != nil {
		return nil, s.err
	}
	return &summary.Summary{QuotationID: id, DisplayMode: enums.DisplayModeLumpsum}, nil
}

func (s *stubService) Terms(_ context.Context, id string) (*internalquotations.TermsView, error) {
	return &internalquotations.TermsView{QuotationID: id}, s.err
}

func (s *stubService) SaveTerms(_ context.Context, id string, input internalquotations.SaveTermsInput) (*internalquotations.TermsView, error) {
	s.savedTerms = &input
	return &internalquotations.TermsView{QuotationID: id, Accepted: input.Accepted, CustomTerms: input.CustomTerms}, s.err
}

func (s *stubService) SetDisplayMode(_ context.Context, _ string, _ string, mode enums.DisplayMode) (enums.DisplayMode, error) {
	s.setMode = mode
	return mode, s.err
}

func (s *stubService) Decide(_ context.Context, id string, action enums.ApprovalAction) (*internalquotations.DecisionView, error) {
	s.action = action
	if s.err != nil {
		return nil, s.err
	}
	return &internalquotations.DecisionView{QuotationID: id, Action: action, Status: enums.QuotationStatusCompleted}, nil
}

func (s *stubService) Download(_ context.Context, _ string, id string, _ enums.DisplayMode) (*quotationapi.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &quotationapi.Document{Filename: "Quotation_" + id + ".pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.4")}, nil
}

func newRouter(svc internalquotations.Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/quotations/{quotationID}", func(r chi.Router) {
		r.Get("/pricing", Pricing(svc, nil))
		r.Put("/pricing", SavePricing(svc, nil))
		r.Get("/summary", Summary(svc, nil))
		r.Get("/terms", Terms(svc, nil))
		r.Put("/terms", SaveTerms(svc, nil))
		r.Put("/display-mode", DisplayMode(svc, nil))
		r.Post("/approval", Approval(svc, nil))
		r.Get("/download", Download(svc, nil))
	})
	return r
}

func serve(t *testing.T, svc internalquotations.Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = req.WithContext(middleware.WithUserID(req.Context(), "7"))
	resp := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestPricingReturnsView(t *testing.T) {
	t.Parallel()

	resp := serve(t, &stubService{}, http.MethodGet, "/quotations/q-9/pricing", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Data internalquotations.PricingView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, "q-9", payload.Data.QuotationID)
}

func TestPricingMapsServiceErrors(t *testing.T) {
	t.Parallel()

	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeNotFound, "quotation not found")}
	resp := serve(t, svc, http.MethodGet, "/quotations/q-9/pricing", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeNotFound), errorCode(t, resp))
}

func TestSavePricingDecodesBody(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	body := `{
		"pricingBreakdown": [{"header": "Compliance", "services": [{"name": "CHANGE OF PROMOTER", "totalAmount": 100000, "discountAmount": 0, "discountPercent": 10, "finalAmount": 90000, "editedField": "percent"}]}],
		"globalDiscount": {"type": "amount", "value": "5000"},
		"headers": [{"name": "Compliance"}]
	}`
	resp := serve(t, svc, http.MethodPut, "/quotations/q-9/pricing", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	require.NotNil(t, svc.savedPricing)
	b := normalize.New(nil, nil).Breakdown(context.Background(), svc.savedPricing.Breakdown)
	require.Len(t, b, 1)
	line := b[0].Services[0]
	assert.Equal(t, pricing.EditPercent, line.Edit())
	assert.True(t, decimal.NewFromInt(10).Equal(line.DiscountPercent()))
	assert.Equal(t, pricing.DiscountAmount, svc.savedPricing.GlobalDiscount.Type)
	assert.True(t, decimal.NewFromInt(5000).Equal(svc.savedPricing.GlobalDiscount.Amount))
	assert.NotNil(t, svc.savedPricing.Headers)
}

func TestSavePricingKeepsDiscountsWithoutEditedField(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	body := `{"pricingBreakdown": [{"header": "Compliance", "services": [
		{"name": "CHANGE OF PROMOTER", "totalAmount": 100000, "discountAmount": 10000, "discountPercent": 10, "finalAmount": 90000}
	]}]}`
	resp := serve(t, svc, http.MethodPut, "/quotations/q-9/pricing", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	require.NotNil(t, svc.savedPricing)
	b := normalize.New(nil, nil).Breakdown(context.Background(), svc.savedPricing.Breakdown)
	require.Len(t, b, 1)
	line := b[0].Services[0]
	assert.True(t, decimal.NewFromInt(90000).Equal(line.FinalAmount()))
	assert.True(t, decimal.NewFromInt(10000).Equal(line.DiscountAmount()))
}

func TestSavePricingRejectsBadBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"missing breakdown", `{"globalDiscount": {"type": "percent", "value": 5}}`},
		{"unknown field", `{"pricingBreakdown": [], "discount": 5}`},
		{"bad discount type", `{"pricingBreakdown": [], "globalDiscount": {"type": "coupon", "value": 5}}`},
		{"malformed json", `{"pricingBreakdown": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			resp := serve(t, svc, http.MethodPut, "/quotations/q-9/pricing", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, resp))
			assert.Nil(t, svc.savedPricing)
		})
	}
}

func TestSummaryPassesDisplayMode(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	resp := serve(t, svc, http.MethodGet, "/quotations/q-9/summary?displayMode=LUMPSUM", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.DisplayModeLumpsum, svc.summaryMode)
	assert.Equal(t, "7", svc.summaryUser)

	svc = &stubService{}
	resp = serve(t, svc, http.MethodGet, "/quotations/q-9/summary", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.DisplayMode(""), svc.summaryMode)

	resp = serve(t, &stubService{}, http.MethodGet, "/quotations/q-9/summary?displayMode=grid", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSaveTerms(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	resp := serve(t, svc, http.MethodPut, "/quotations/q-9/terms", `{"termsAccepted": true, "customTerms": ["  Payment within 15 days. "]}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.savedTerms)
	assert.True(t, svc.savedTerms.Accepted)
	assert.Equal(t, []string{"Payment within 15 days."}, svc.savedTerms.CustomTerms)
}

func TestDisplayMode(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	resp := serve(t, svc, http.MethodPut, "/quotations/q-9/display-mode", `{"displayMode": "lumpsum"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.DisplayModeLumpsum, svc.setMode)

	resp = serve(t, &stubService{}, http.MethodPut, "/quotations/q-9/display-mode", `{"displayMode": "compact"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = serve(t, &stubService{}, http.MethodPut, "/quotations/q-9/display-mode", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestApproval(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	resp := serve(t, svc, http.MethodPost, "/quotations/q-9/approval", `{"action": "reject"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.ApprovalActionReject, svc.action)

	resp = serve(t, &stubService{}, http.MethodPost, "/quotations/q-9/approval", `{"action": "escalate"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	svc = &stubService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "quotation is not pending approval")}
	resp = serve(t, svc, http.MethodPost, "/quotations/q-9/approval", `{"action": "approve"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), errorCode(t, resp))
}

func TestDownloadStreamsDocument(t *testing.T) {
	t.Parallel()

	resp := serve(t, &stubService{}, http.MethodGet, "/quotations/q-9/download", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Quotation_q-9.pdf"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", resp.Body.String())
}

func TestDownloadForbiddenWhilePending(t *testing.T) {
	t.Parallel()

	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeForbidden, "quotation is pending approval")}
	resp := serve(t, svc, http.MethodGet, "/quotations/q-9/download", "")
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeForbidden), errorCode(t, resp))
}

func TestNilServiceIsInternalError(t *testing.T) {
	t.Parallel()

	resp := serve(t, nil, http.MethodGet, "/quotations/q-9/terms", "")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
