package controllers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reraeasy/quotation-engine/api/responses"
	"github.com/reraeasy/quotation-engine/internal/catalog"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
	"github.com/reraeasy/quotation-engine/pkg/logger"
)

type catalogHeaderResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Package bool   `json:"package"`
}

// CatalogHeaders lists the selectable headers in catalog order.
func CatalogHeaders(c *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		headers := c.Headers()
		out := make([]catalogHeaderResponse, 0, len(headers))
		for _, h := range headers {
			out = append(out, catalogHeaderResponse{ID: h.ID, Name: h.Name, Package: c.IsPackageHeader(h.Name)})
		}
		responses.WriteSuccess(w, out)
	}
}

type headerServicesResponse struct {
	Header     string                      `json:"header"`
	Services   []catalog.ServiceDefinition `json:"services"`
	DefaultIDs []string                    `json:"defaultServiceIds"`
}

// CatalogHeaderServices lists the services offered under one header together with the ids
// preselected when the header is added.
func CatalogHeaderServices(c *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		name, err := url.PathUnescape(chi.URLParam(r, "header"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid header"))
			return
		}
		name = strings.TrimSpace(name)
		if !knownHeader(c, name) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "header not found").WithDetails(map[string]any{"header": name}))
			return
		}

		defaults := c.DefaultServices(name)
		ids := make([]string, 0, len(defaults))
		for _, svc := range defaults {
			ids = append(ids, svc.ID)
		}
		responses.WriteSuccess(w, headerServicesResponse{
			Header:     name,
			Services:   c.ServicesForHeader(name),
			DefaultIDs: ids,
		})
	}
}

type periodsResponse struct {
	Years    []string `json:"years"`
	Quarters []string `json:"quarters"`
}

// CatalogPeriods lists the years and quarters selectable for time-based services.
func CatalogPeriods(now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		t := now()
		responses.WriteSuccess(w, periodsResponse{
			Years:    catalog.YearOptions(t),
			Quarters: catalog.QuarterOptions(t),
		})
	}
}

func knownHeader(c *catalog.Catalog, name string) bool {
	if name == catalog.AddOnsHeader {
		return true
	}
	for _, h := range c.Headers() {
		if h.Name == name {
			return true
		}
	}
	return false
}
