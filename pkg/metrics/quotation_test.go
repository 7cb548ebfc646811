package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestQuotationMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewQuotationMetrics(reg)

	metrics.ObserveReconcile("get_pricing", 150*time.Millisecond)
	metrics.IncApprovalReason("addon_selected", "discount_above_threshold")
	metrics.IncApprovalReason("addon_selected")
	metrics.IncPackageMethod("header_total")
	metrics.IncUpstream("calculate_pricing", "ok")
	metrics.IncSuperseded("")
	metrics.IncCache(true)
	metrics.IncCache(false)
	metrics.IncCache(false)
	metrics.IncFallbackSave("Package A")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name  string
		label string
		value string
		want  float64
	}{
		{"quotation_approval_required_total", "reason", "addon_selected", 2},
		{"quotation_approval_required_total", "reason", "discount_above_threshold", 1},
		{"quotation_package_aggregation_total", "method", "header_total", 1},
		{"quotation_upstream_requests_total", "outcome", "ok", 1},
		{"quotation_superseded_operations_total", "operation", "unknown", 1},
		{"quotation_pricing_cache_total", "result", "hit", 1},
		{"quotation_pricing_cache_total", "result", "miss", 2},
		{"quotation_fallback_priced_saves_total", "header", "Package A", 1},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.name, c.label, c.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s{%s=%s}: expected %v, got %v", c.name, c.label, c.value, c.want, got)
		}
	}

	if got, err := fetchHistogramSum(mfs, "quotation_reconcile_duration_seconds", "operation", "get_pricing"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilQuotationMetricsIsSafe(t *testing.T) {
	var metrics *QuotationMetrics
	metrics.ObserveReconcile("x", time.Second)
	metrics.IncApprovalReason("x")
	metrics.IncPackageMethod("x")
	metrics.IncUpstream("x", "y")
	metrics.IncSuperseded("x")
	metrics.IncCache(true)

	unregistered := NewQuotationMetrics(nil)
	unregistered.IncCache(false)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
