package normalize

import (
	"context"
	"strings"

	"github.com/reraeasy/quotation-engine/internal/pricing"
	"github.com/shopspring/decimal"
)

// Breakdown converts any server or persisted breakdown shape into a pricing.Breakdown. raw may
// be the pricing response ({breakdown}), a persisted record ({pricingBreakdown}) or a bare list.
func (n *Normalizer) Breakdown(ctx context.Context, raw any) pricing.Breakdown {
	entries := asSlice(raw)
	if m, ok := asMap(raw); ok {
		entries = asSlice(firstPresent(m, "breakdown", "pricingBreakdown", "headers"))
	}

	out := make(pricing.Breakdown, 0, len(entries))
	for _, entry := range entries {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		h := pricing.HeaderBreakdown{HeaderName: firstString(m, "header", "headerName", "name")}
		if total, ok := firstAmount(m, "headerTotal", "totalAmount", "total", "amount", "price"); ok {
			h.HeaderTotal = decimal.NewNullDecimal(total)
		}
		for _, item := range asSlice(m["services"]) {
			sm, ok := asMap(item)
			if !ok {
				continue
			}
			h.Services = append(h.Services, n.pricedService(ctx, sm))
		}
		out = append(out, h)
	}
	return out
}

func (n *Normalizer) pricedService(ctx context.Context, m map[string]any) pricing.PricedService {
	qty := pricing.Quantity{
		RequiresYearQuarter: boolField(m, "requiresYearQuarter"),
		RequiresYearOnly:    boolField(m, "requiresYearOnly"),
		QuarterCount:        intField(m, "quarterCount"),
		YearCount:           intField(m, "yearCount"),
	}
	if base, ok := firstAmount(m, "basePrice"); ok {
		qty.BasePrice = base
	}

	total, ok := firstAmount(m, "totalAmount", "price", "amount", "cost", "baseAmount")
	if !ok && qty.BasePrice.IsPositive() {
		total = qty.BasePrice.Mul(decimal.NewFromInt(int64(qty.Multiplier())))
	}

	svc := pricing.NewPricedService(
		firstString(m, "id", "serviceId"),
		firstString(m, "name", "label", "title", "serviceName"),
		total,
	)
	svc.Quantity = qty
	svc.SubServices = subServiceNames(m["subServices"])

	kind, value := n.recordedEdit(ctx, m)
	return svc.WithEdit(kind, value)
}

// recordedEdit recovers the last edit from a persisted service. Records written by this
// service carry editedField; older records carry discountType/discountValue or bare projections.
func (n *Normalizer) recordedEdit(ctx context.Context, m map[string]any) (pricing.EditKind, decimal.Decimal) {
	if field := firstString(m, "editedField"); field != "" {
		kind, err := pricing.ParseEditKind(field)
		if err != nil {
			if n.logg != nil {
				n.logg.Warn(n.logg.WithField(ctx, "edited_field", field), "normalize: unknown edited field")
			}
			return pricing.EditNone, decimal.Zero
		}
		return kind, editValue(m, kind)
	}

	if dt := firstString(m, "discountType"); dt != "" {
		kind, err := pricing.ParseEditKind(dt)
		if err == nil && kind != pricing.EditNone {
			if v, ok := firstAmount(m, "discountValue"); ok {
				return kind, v
			}
			return kind, editValue(m, kind)
		}
	}

	if v, ok := firstAmount(m, "finalAmount"); ok {
		if total, hasTotal := firstAmount(m, "totalAmount"); !hasTotal || !v.Equal(total) {
			return pricing.EditFinal, v
		}
	}
	if v, ok := firstAmount(m, "discountPercent"); ok && v.IsPositive() {
		return pricing.EditPercent, v
	}
	if v, ok := firstAmount(m, "discountAmount"); ok && v.IsPositive() {
		return pricing.EditAmount, v
	}
	return pricing.EditNone, decimal.Zero
}

func editValue(m map[string]any, kind pricing.EditKind) decimal.Decimal {
	var v decimal.Decimal
	switch kind {
	case pricing.EditFinal:
		v, _ = firstAmount(m, "finalAmount")
	case pricing.EditAmount:
		v, _ = firstAmount(m, "discountAmount")
	case pricing.EditPercent:
		v, _ = firstAmount(m, "discountPercent")
	}
	return v
}

func subServiceNames(raw any) []string {
	var out []string
	for _, item := range asSlice(raw) {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if name := firstString(v, "name", "label", "title"); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// MergePrices overlays breakdown amounts onto the normalized quotation: each matching
// service gets its final amount as Price, and each header without an explicit total gets the
// breakdown header total.
func MergePrices(q Quotation, b pricing.Breakdown) Quotation {
	out := Quotation{Headers: make([]Header, len(q.Headers))}
	for i, h := range q.Headers {
		h.Services = append([]Service(nil), h.Services...)
		entry, ok := b.Header(h.Name)
		if !ok && h.OriginalName != "" {
			entry, ok = b.Header(h.OriginalName)
		}
		if ok {
			if !h.TotalAmount.Valid && entry.HeaderTotal.Valid {
				h.TotalAmount = entry.HeaderTotal
			}
			for j, svc := range h.Services {
				if priced, found := matchPriced(entry.Services, svc); found {
					h.Services[j].Price = decimal.NewNullDecimal(priced.FinalAmount())
				}
			}
		}
		out.Headers[i] = h
	}
	return out
}

func matchPriced(services []pricing.PricedService, svc Service) (pricing.PricedService, bool) {
	for _, p := range services {
		if p.ID != "" && p.ID == svc.ID {
			return p, true
		}
	}
	key := nameKey(svc.Name)
	for _, p := range services {
		if nameKey(p.Name) == key {
			return p, true
		}
	}
	return pricing.PricedService{}, false
}

func nameKey(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	return strings.TrimSpace(strings.TrimSuffix(key, "(add-on)"))
}
