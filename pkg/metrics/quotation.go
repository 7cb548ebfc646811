package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QuotationMetrics records reconciliation, approval and upstream activity.
type QuotationMetrics struct {
	reconcile  *prometheus.HistogramVec
	approvals  *prometheus.CounterVec
	packages   *prometheus.CounterVec
	upstream   *prometheus.CounterVec
	superseded *prometheus.CounterVec
	cache      *prometheus.CounterVec
	fallback   *prometheus.CounterVec
}

// NewQuotationMetrics registers the quotation metrics on the provided registerer.
func NewQuotationMetrics(reg prometheus.Registerer) *QuotationMetrics {
	if reg == nil {
		return &QuotationMetrics{}
	}
	reconcile := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quotation_reconcile_duration_seconds",
		Help:    "Duration of quotation reconciliation passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	approvals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotation_approval_required_total",
		Help: "Approval-required decisions by triggering reason.",
	}, []string{"reason"})
	packages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotation_package_aggregation_total",
		Help: "Package header totals by resolution method.",
	}, []string{"method"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotation_upstream_requests_total",
		Help: "Calls to the quotation backend by operation and outcome.",
	}, []string{"operation", "outcome"})
	superseded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotation_superseded_operations_total",
		Help: "Operations dropped because a newer one started for the same quotation.",
	}, []string{"operation"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotation_pricing_cache_total",
		Help: "Pricing cache lookups by result.",
	}, []string{"result"})
	fallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotation_fallback_priced_saves_total",
		Help: "Saved quotations whose totals include a fallback-table package price, by header.",
	}, []string{"header"})
	reg.MustRegister(reconcile, approvals, packages, upstream, superseded, cache, fallback)
	return &QuotationMetrics{
		reconcile:  reconcile,
		approvals:  approvals,
		packages:   packages,
		upstream:   upstream,
		superseded: superseded,
		cache:      cache,
		fallback:   fallback,
	}
}

// ObserveReconcile records how long a reconciliation pass took.
func (m *QuotationMetrics) ObserveReconcile(operation string, duration time.Duration) {
	if m == nil || m.reconcile == nil {
		return
	}
	m.reconcile.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncApprovalReason counts one approval-required decision per triggered reason.
func (m *QuotationMetrics) IncApprovalReason(reasons ...string) {
	if m == nil || m.approvals == nil {
		return
	}
	for _, reason := range reasons {
		m.approvals.WithLabelValues(normalizeLabel(reason)).Inc()
	}
}

// IncPackageMethod counts how a package header total was resolved.
func (m *QuotationMetrics) IncPackageMethod(method string) {
	if m == nil || m.packages == nil {
		return
	}
	m.packages.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncUpstream counts a backend call outcome.
func (m *QuotationMetrics) IncUpstream(operation, outcome string) {
	if m == nil || m.upstream == nil {
		return
	}
	m.upstream.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncSuperseded counts an operation dropped by the request sequencer.
func (m *QuotationMetrics) IncSuperseded(operation string) {
	if m == nil || m.superseded == nil {
		return
	}
	m.superseded.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncCache counts a pricing cache hit or miss.
func (m *QuotationMetrics) IncCache(hit bool) {
	if m == nil || m.cache == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

// IncFallbackSave counts a save that billed a fallback-table package price.
func (m *QuotationMetrics) IncFallbackSave(header string) {
	if m == nil || m.fallback == nil {
		return
	}
	m.fallback.WithLabelValues(normalizeLabel(header)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
