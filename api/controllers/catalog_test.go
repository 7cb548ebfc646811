package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reraeasy/quotation-engine/internal/catalog"
	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/pricing"
)

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var payload struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Data
}

func catalogRouter() http.Handler {
	c := catalog.Default()
	r := chi.NewRouter()
	r.Get("/catalog/headers", CatalogHeaders(c, nil))
	r.Get("/catalog/headers/{header}/services", CatalogHeaderServices(c, nil))
	r.Get("/catalog/periods", CatalogPeriods(func() time.Time {
		return time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC)
	}))
	r.Post("/pricing/services/edit", PricingServiceEdit(nil))
	r.Post("/pricing/totals", PricingTotals(normalize.New(c, nil), nil))
	return r
}

func do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	resp := httptest.NewRecorder()
	catalogRouter().ServeHTTP(resp, req)
	return resp
}

func TestCatalogHeaders(t *testing.T) {
	t.Parallel()

	resp := do(http.MethodGet, "/catalog/headers", "")
	require.Equal(t, http.StatusOK, resp.Code)

	headers := decodeData[[]catalogHeaderResponse](t, resp)
	require.NotEmpty(t, headers)
	assert.Equal(t, "Project Registration", headers[0].Name)

	packages := map[string]bool{}
	for _, h := range headers {
		packages[h.Name] = h.Package
	}
	assert.True(t, packages["Package B"])
	assert.False(t, packages["Compliance"])
}

func TestCatalogHeaderServicesForPackage(t *testing.T) {
	t.Parallel()

	resp := do(http.MethodGet, "/catalog/headers/Package%20B/services", "")
	require.Equal(t, http.StatusOK, resp.Code)

	out := decodeData[headerServicesResponse](t, resp)
	assert.Equal(t, "Package B", out.Header)
	assert.Contains(t, out.DefaultIDs, "service-package-a-1")
	assert.Contains(t, out.DefaultIDs, "service-package-b-1")
	assert.NotContains(t, out.DefaultIDs, "service-addon-1")

	var sawAddon bool
	for _, svc := range out.Services {
		if svc.ID == "service-addon-1" {
			sawAddon = true
			assert.Equal(t, catalog.CategoryAddon, svc.Category)
		}
	}
	assert.True(t, sawAddon)
}

func TestCatalogHeaderServicesRegularHeaderHasNoDefaults(t *testing.T) {
	t.Parallel()

	resp := do(http.MethodGet, "/catalog/headers/Compliance/services", "")
	require.Equal(t, http.StatusOK, resp.Code)
	out := decodeData[headerServicesResponse](t, resp)
	assert.Empty(t, out.DefaultIDs)
	assert.NotEmpty(t, out.Services)
}

func TestCatalogHeaderServicesUnknownHeader(t *testing.T) {
	t.Parallel()

	resp := do(http.MethodGet, "/catalog/headers/Gardening/services", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCatalogPeriods(t *testing.T) {
	t.Parallel()

	resp := do(http.MethodGet, "/catalog/periods", "")
	require.Equal(t, http.StatusOK, resp.Code)
	out := decodeData[periodsResponse](t, resp)
	assert.Equal(t, []string{"2017", "2018", "2019"}, out.Years)
	require.Len(t, out.Quarters, 12)
	assert.Equal(t, "2017-Q1", out.Quarters[0])
	assert.Equal(t, "2019-Q4", out.Quarters[11])
}

func TestPricingServiceEdit(t *testing.T) {
	t.Parallel()

	body := `{"service": {"name": "LEGAL CONSULTATION", "totalAmount": 100000, "discountAmount": 0, "discountPercent": 0, "finalAmount": 100000, "editedField": "none"}, "field": "final", "value": 50000}`
	resp := do(http.MethodPost, "/pricing/services/edit", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	line := decodeData[pricing.ServiceLine](t, resp)
	assert.Equal(t, pricing.EditFinal, line.EditedField)
	assert.True(t, decimal.NewFromInt(50000).Equal(line.FinalAmount))
	assert.True(t, decimal.NewFromInt(50000).Equal(line.DiscountAmount))
	assert.True(t, decimal.NewFromInt(50).Equal(line.DiscountPercent))
}

func TestPricingServiceEditKeepsInferredDiscount(t *testing.T) {
	t.Parallel()

	body := `{"service": {"name": "LEGAL CONSULTATION", "totalAmount": 100000, "discountAmount": 10000, "discountPercent": 10, "finalAmount": 90000}, "field": "amount", "value": 20000}`
	resp := do(http.MethodPost, "/pricing/services/edit", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	line := decodeData[pricing.ServiceLine](t, resp)
	assert.True(t, decimal.NewFromInt(80000).Equal(line.FinalAmount))
	assert.Equal(t, pricing.EditAmount, line.EditedField)
}

func TestPricingServiceEditRejectsUnknownField(t *testing.T) {
	t.Parallel()

	body := `{"service": {"name": "X", "totalAmount": 100}, "field": "markup", "value": 5}`
	resp := do(http.MethodPost, "/pricing/services/edit", body)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPricingTotalsWithoutEditedField(t *testing.T) {
	t.Parallel()

	body := `{"pricingBreakdown": [{"header": "Legal Services", "services": [{"name": "LEGAL CONSULTATION", "totalAmount": 100000, "discountAmount": 10000, "discountPercent": 10, "finalAmount": 90000}]}]}`
	resp := do(http.MethodPost, "/pricing/totals", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	totals := decodeData[pricing.Totals](t, resp)
	assert.True(t, decimal.NewFromInt(10000).Equal(totals.ServiceDiscount))
	assert.True(t, decimal.NewFromInt(90000).Equal(totals.Total))
}

func TestPricingTotals(t *testing.T) {
	t.Parallel()

	body := `{
		"pricingBreakdown": [{"header": "Legal Services", "services": [{"name": "LEGAL CONSULTATION", "totalAmount": 150000, "discountAmount": 0, "discountPercent": 0, "finalAmount": 150000, "editedField": "none"}]}],
		"globalDiscount": {"type": "percent", "value": 20}
	}`
	resp := do(http.MethodPost, "/pricing/totals", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	totals := decodeData[pricing.Totals](t, resp)
	assert.True(t, decimal.NewFromInt(30000).Equal(totals.GlobalDiscount))
	assert.True(t, decimal.NewFromInt(120000).Equal(totals.Total))
	assert.True(t, totals.Total.Equal(totals.OriginalSubtotal.Sub(totals.TotalDiscount)))
}
