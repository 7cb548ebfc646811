package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/reraeasy/quotation-engine/internal/catalog"
	"github.com/reraeasy/quotation-engine/pkg/logger"
	"github.com/shopspring/decimal"
)

// SubService is a canonical sub-service.
type SubService struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service is a canonical selected service. Price is captured from whatever amount field the
// input carried and may be null.
type Service struct {
	ID                    string              `json:"id"`
	Name                  string              `json:"name"`
	SubServices           []SubService        `json:"subServices"`
	SelectedSubServiceIDs []string            `json:"selectedSubServiceIds,omitempty"`
	RequiresYearQuarter   bool                `json:"requiresYearQuarter,omitempty"`
	RequiresYearOnly      bool                `json:"requiresYearOnly,omitempty"`
	SelectedYears         []string            `json:"selectedYears,omitempty"`
	SelectedQuarters      []string            `json:"selectedQuarters,omitempty"`
	QuarterCount          int                 `json:"quarterCount,omitempty"`
	Price                 decimal.NullDecimal `json:"price"`
}

// Header is a canonical header.
type Header struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	OriginalName string              `json:"originalName,omitempty"`
	Services     []Service           `json:"services"`
	TotalAmount  decimal.NullDecimal `json:"totalAmount"`
}

// Quotation is the canonical header tree of a quotation.
type Quotation struct {
	Headers []Header `json:"headers"`
}

// HeaderNames lists header names in order.
func (q Quotation) HeaderNames() []string {
	out := make([]string, 0, len(q.Headers))
	for _, h := range q.Headers {
		out = append(out, h.Name)
	}
	return out
}

// Normalizer canonicalizes loosely shaped quotation data against the catalog.
type Normalizer struct {
	catalog *catalog.Catalog
	logg    *logger.Logger
	newID   func() string
}

// New builds a Normalizer. A nil catalog uses the embedded default.
func New(c *catalog.Catalog, logg *logger.Logger) *Normalizer {
	if c == nil {
		c = catalog.Default()
	}
	return &Normalizer{catalog: c, logg: logg, newID: randomID}
}

func randomID() string {
	return "id-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// idRegistry guarantees uniqueness of every id issued in one normalization pass.
type idRegistry struct {
	used map[string]struct{}
}

func newIDRegistry() *idRegistry {
	return &idRegistry{used: make(map[string]struct{})}
}

func (r *idRegistry) claim(id string) string {
	candidate := id
	for n := 1; ; n++ {
		if _, taken := r.used[candidate]; !taken {
			r.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
}

// Quotation normalizes raw, which may be a decoded quotation object, a {headers:[...]}
// wrapper or a bare header list.
func (n *Normalizer) Quotation(ctx context.Context, raw any) Quotation {
	headers := asSlice(raw)
	if m, ok := asMap(raw); ok {
		headers = asSlice(m["headers"])
	}

	ids := newIDRegistry()
	out := Quotation{Headers: make([]Header, 0, len(headers))}
	for i, item := range headers {
		m, ok := asMap(item)
		if !ok {
			if name, isString := item.(string); isString && strings.TrimSpace(name) != "" {
				m = map[string]any{"name": name}
			} else {
				continue
			}
		}
		out.Headers = append(out.Headers, n.header(ctx, ids, m, i))
	}
	return out
}

func (n *Normalizer) header(ctx context.Context, ids *idRegistry, m map[string]any, index int) Header {
	name := firstString(m, "name", "header", "headerName", "label", "title")
	if name == "" {
		name = fmt.Sprintf("Header %d", index+1)
	}

	id := firstString(m, "id")
	if id == "" {
		id = "header-" + Slugify(name)
		if id == "header-" {
			id = n.newID()
		}
	}

	h := Header{
		ID:           ids.claim(id),
		Name:         name,
		OriginalName: firstString(m, "originalName"),
	}
	if h.OriginalName == "" {
		h.OriginalName = name
	}
	if total, ok := firstAmount(m, "totalAmount", "headerTotal", "total", "price"); ok {
		h.TotalAmount = decimal.NewNullDecimal(total)
	}

	services := asSlice(m["services"])
	h.Services = make([]Service, 0, len(services))
	for i, item := range services {
		sm, ok := asMap(item)
		if !ok {
			name, isString := item.(string)
			if !isString || strings.TrimSpace(name) == "" {
				continue
			}
			sm = map[string]any{"name": name}
		}
		h.Services = append(h.Services, n.service(ctx, ids, h.ID, sm, i))
	}
	return h
}

func (n *Normalizer) service(ctx context.Context, ids *idRegistry, headerID string, m map[string]any, index int) Service {
	name := firstString(m, "name", "label", "title", "serviceName")
	explicitID := firstString(m, "id", "serviceId")

	def, found := n.lookup(explicitID, name)
	if name == "" && found {
		name = def.Name
	}
	if name == "" {
		name = fmt.Sprintf("Service %d", index+1)
	}

	id := explicitID
	if id == "" {
		if slug := Slugify(name); slug != "" {
			id = headerID + "-service-" + slug
		} else {
			id = n.newID()
		}
	}
	id = ids.claim(id)

	svc := Service{
		ID:                    id,
		Name:                  name,
		SelectedSubServiceIDs: idSet(firstPresent(m, "selectedSubServiceIds", "selectedSubServices")),
		SelectedYears:         stringList(m["selectedYears"]),
		SelectedQuarters:      stringList(m["selectedQuarters"]),
		RequiresYearQuarter:   boolField(m, "requiresYearQuarter"),
		RequiresYearOnly:      boolField(m, "requiresYearOnly"),
	}
	if price, ok := firstAmount(m, "price", "finalAmount", "totalAmount", "amount", "cost"); ok {
		svc.Price = decimal.NewNullDecimal(price)
	}

	if found {
		svc.RequiresYearQuarter = def.RequiresYearQuarter
		svc.RequiresYearOnly = def.RequiresYearOnly
		svc.SubServices = make([]SubService, 0, len(def.SubServices))
		for _, sub := range def.SubServices {
			svc.SubServices = append(svc.SubServices, SubService{ID: ids.claim(sub.ID), Name: sub.Name})
		}
	} else {
		if n.logg != nil {
			warnCtx := n.logg.WithFields(ctx, map[string]any{"service_id": explicitID, "service_name": name})
			n.logg.Warn(warnCtx, "normalize: service not found in catalog")
		}
		svc.SubServices = n.inputSubServices(ids, id, m["subServices"])
	}

	svc.QuarterCount = quarterCount(svc, intField(m, "quarterCount"))
	return svc
}

func (n *Normalizer) lookup(id, name string) (catalog.ServiceDefinition, bool) {
	if id != "" {
		if def, ok := n.catalog.FindServiceByID(id); ok {
			return def, true
		}
	}
	if name != "" {
		if def, ok := n.catalog.FindServiceByName(name); ok {
			return def, true
		}
	}
	return catalog.ServiceDefinition{}, false
}

func (n *Normalizer) inputSubServices(ids *idRegistry, serviceID string, raw any) []SubService {
	items := asSlice(raw)
	out := make([]SubService, 0, len(items))
	for i, item := range items {
		var id, name string
		switch v := item.(type) {
		case string:
			name = strings.TrimSpace(v)
		case map[string]any:
			id = firstString(v, "id")
			name = firstString(v, "name", "label", "title")
		default:
			continue
		}
		if name == "" && id == "" {
			continue
		}
		if name == "" {
			name = fmt.Sprintf("Sub-service %d", i+1)
		}
		if id == "" {
			if slug := Slugify(name); slug != "" {
				id = serviceID + "-sub-" + slug
			} else {
				id = n.newID()
			}
		}
		out = append(out, SubService{ID: ids.claim(id), Name: name})
	}
	return out
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func quarterCount(svc Service, declared int) int {
	if !svc.RequiresYearQuarter {
		return declared
	}
	if len(svc.SelectedQuarters) > 0 {
		return len(svc.SelectedQuarters)
	}
	if declared > 0 {
		return declared
	}
	return 1
}
