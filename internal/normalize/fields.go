package normalize

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/reraeasy/quotation-engine/internal/pricing"
	"github.com/shopspring/decimal"
)

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases value and collapses every run of non-alphanumerics into one dash.
func Slugify(value string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(value), "-")
	return strings.Trim(slug, "-")
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out
	case []string:
		out := make([]any, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out
	}
	return nil
}

// firstString returns the first non-blank string (or number) under keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case fmt.Stringer:
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstAmount returns the first parseable amount under keys.
func firstAmount(m map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || !pricing.HasAmount(v) {
			continue
		}
		return pricing.NonNegative(pricing.ParseAmount(v)), true
	}
	return decimal.Zero, false
}

func boolField(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

func intField(m map[string]any, key string) int {
	if !pricing.HasAmount(m[key]) {
		return 0
	}
	n := pricing.ParseAmount(m[key]).IntPart()
	if n < 0 {
		return 0
	}
	return int(n)
}

func stringList(v any) []string {
	var out []string
	for _, item := range asSlice(v) {
		switch s := item.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		case float64:
			out = append(out, strconv.FormatFloat(s, 'f', -1, 64))
		}
	}
	return out
}

// idSet accepts a list of ids, a list of {id} objects or a map of id → bool.
func idSet(v any) []string {
	if m, ok := asMap(v); ok {
		var out []string
		for k, selected := range m {
			if b, ok := selected.(bool); ok && !b {
				continue
			}
			out = append(out, k)
		}
		slices.Sort(out)
		return out
	}
	var out []string
	for _, item := range asSlice(v) {
		switch s := item.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			if id := firstString(s, "id"); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}
