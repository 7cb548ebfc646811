package quotations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reraeasy/quotation-engine/internal/approval"
	"github.com/reraeasy/quotation-engine/internal/catalog"
	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/packages"
	"github.com/reraeasy/quotation-engine/internal/pricing"
	"github.com/reraeasy/quotation-engine/internal/selection"
	"github.com/reraeasy/quotation-engine/internal/summary"
	"github.com/reraeasy/quotation-engine/internal/terms"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
	"github.com/reraeasy/quotation-engine/pkg/logger"
	"github.com/reraeasy/quotation-engine/pkg/metrics"
	"github.com/reraeasy/quotation-engine/pkg/quotationapi"
	pkgredis "github.com/reraeasy/quotation-engine/pkg/redis"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	opPricing     = "pricing"
	opSavePricing = "save_pricing"
	opSummary     = "summary"
	opTerms       = "terms"
	opSaveTerms   = "save_terms"
	opDisplayMode = "display_mode"
	opDecide      = "approval"
	opDownload    = "download"
)

// Backend is the persistence and pricing API the engine reconciles against.
type Backend interface {
	CurrentUser(ctx context.Context) (*quotationapi.User, error)
	GetQuotation(ctx context.Context, id string) (*quotationapi.Record, error)
	UpdateQuotation(ctx context.Context, id string, patch quotationapi.QuotationPatch) (*quotationapi.Record, error)
	CalculatePricing(ctx context.Context, req quotationapi.PricingRequest) (*quotationapi.PricingResult, error)
	SavePricing(ctx context.Context, id string, payload quotationapi.PricingPayload) (*quotationapi.Record, error)
	SaveTerms(ctx context.Context, id string, payload quotationapi.TermsPayload) (*quotationapi.Record, error)
	Approve(ctx context.Context, id string, action enums.ApprovalAction) (*quotationapi.Record, error)
	DownloadPDF(ctx context.Context, id string, summary bool, mode enums.DisplayMode) (*quotationapi.Document, error)
}

// PreferenceStore resolves and stores per-user display modes.
type PreferenceStore interface {
	Resolve(ctx context.Context, userID, quotationID string, requested, recorded enums.DisplayMode) enums.DisplayMode
	Set(ctx context.Context, userID, quotationID string, mode enums.DisplayMode) (enums.DisplayMode, error)
}

// Service exposes the quotation reconciliation operations.
type Service interface {
	Pricing(ctx context.Context, id string) (*PricingView, error)
	SavePricing(ctx context.Context, id string, input SavePricingInput) (*PricingView, error)
	Summary(ctx context.Context, userID, id string, mode enums.DisplayMode) (*summary.Summary, error)
	Terms(ctx context.Context, id string) (*TermsView, error)
	SaveTerms(ctx context.Context, id string, input SaveTermsInput) (*TermsView, error)
	SetDisplayMode(ctx context.Context, userID, id string, mode enums.DisplayMode) (enums.DisplayMode, error)
	Decide(ctx context.Context, id string, action enums.ApprovalAction) (*DecisionView, error)
	Download(ctx context.Context, userID, id string, mode enums.DisplayMode) (*quotationapi.Document, error)
}

// Config wires the service dependencies. Catalog, Terms and Aggregator fall back to the
// embedded defaults; Cache, Preferences and Metrics are optional.
type Config struct {
	Backend     Backend
	Catalog     *catalog.Catalog
	Terms       *terms.Selector
	Aggregator  *packages.Aggregator
	Preferences PreferenceStore
	Cache       pkgredis.PricingCache
	CacheTTL    time.Duration
	Metrics     *metrics.QuotationMetrics
	Logger      *logger.Logger
}

type service struct {
	backend    Backend
	catalog    *catalog.Catalog
	normalizer *normalize.Normalizer
	evaluator  *approval.Evaluator
	terms      *terms.Selector
	summaries  *summary.Builder
	prefs      PreferenceStore
	pricer     *pricer
	seq        *Sequencer
	metrics    *metrics.QuotationMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the quotation service.
func NewService(cfg Config) (Service, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("quotation backend required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	c := cfg.Catalog
	if c == nil {
		c = catalog.Default()
	}
	sel := cfg.Terms
	if sel == nil {
		sel = terms.Default()
	}
	return &service{
		backend:    cfg.Backend,
		catalog:    c,
		normalizer: normalize.New(c, cfg.Logger),
		evaluator:  approval.NewEvaluator(c),
		terms:      sel,
		summaries:  summary.NewBuilder(cfg.Aggregator),
		prefs:      cfg.Preferences,
		pricer: &pricer{
			upstream: cfg.Backend,
			cache:    cfg.Cache,
			ttl:      cfg.CacheTTL,
			metrics:  cfg.Metrics,
			logg:     cfg.Logger,
		},
		seq:     NewSequencer(),
		metrics: cfg.Metrics,
		logg:    cfg.Logger,
		now:     time.Now,
	}, nil
}

// snapshot is one fully reconciled read of a quotation.
type snapshot struct {
	record    *quotationapi.Record
	user      *quotationapi.User
	quotation normalize.Quotation
	breakdown pricing.Breakdown
	global    pricing.GlobalDiscount
	summary   summary.Summary
}

// Pricing fetches the quotation, reprices it and re-applies the persisted edits.
func (s *service) Pricing(ctx context.Context, id string) (*PricingView, error) {
	ctx = s.logg.WithQuotationID(ctx, id)
	opCtx, ticket := s.seq.Begin(ctx, readKey(id))
	defer ticket.Release()
	started := time.Now()

	snap, err := s.load(opCtx, id, true)
	if err != nil {
		return nil, s.settle(ctx, opPricing, ticket, err)
	}
	if !ticket.Current() {
		return nil, s.superseded(ctx, opPricing)
	}

	view := s.pricingView(snap)
	s.metrics.ObserveReconcile(opPricing, time.Since(started))
	return view, nil
}

// SavePricingInput carries the user's edits. Totals are always recomputed from the fresh
// pricing; only the recorded edit of each line and the global discount are taken from here.
type SavePricingInput struct {
	// Breakdown is the decoded client breakdown in any accepted shape.
	Breakdown      any
	GlobalDiscount pricing.GlobalDiscount
	// Headers replaces the quotation's header tree when set.
	Headers any
}

// SavePricing reconciles the edits against fresh pricing and persists the result. Nothing is
// written unless reconciliation succeeds and the operation is still the latest for the
// quotation.
func (s *service) SavePricing(ctx context.Context, id string, input SavePricingInput) (*PricingView, error) {
	ctx = s.logg.WithQuotationID(ctx, id)
	s.seq.Supersede(readKey(id))
	opCtx, ticket := s.seq.Begin(ctx, writeKey(id))
	defer ticket.Release()
	started := time.Now()

	record, user, err := s.fetch(opCtx, id, true)
	if err != nil {
		return nil, s.settle(ctx, opSavePricing, ticket, err)
	}

	var headers any
	if input.Headers != nil {
		headers = s.normalizer.Quotation(opCtx, input.Headers).Headers
		record.Headers = input.Headers
	}

	edits := s.normalizer.Breakdown(opCtx, input.Breakdown)
	snap, err := s.reconcile(opCtx, record, edits, input.GlobalDiscount)
	if err != nil {
		return nil, s.settle(ctx, opSavePricing, ticket, err)
	}
	snap.user = user

	decision := s.evaluate(snap, record.CustomTerms)
	s.metrics.IncApprovalReason(reasonLabels(decision)...)

	if !ticket.Current() {
		return nil, s.superseded(ctx, opSavePricing)
	}
	s.flagFallbackPrices(ctx, snap)
	totals := snap.summary.Totals
	saved, err := s.backend.SavePricing(opCtx, id, quotationapi.PricingPayload{
		TotalAmount:           totals.Total,
		DiscountAmount:        totals.TotalDiscount,
		DiscountPercent:       totals.EffectiveDiscountPercent,
		ServiceDiscountAmount: totals.ServiceDiscount,
		GlobalDiscountAmount:  totals.GlobalDiscount,
		PricingBreakdown:      snap.breakdown.Lines(),
		GlobalDiscount:        globalRecord(input.GlobalDiscount),
		Headers:               headers,
	})
	if err != nil {
		return nil, s.settle(ctx, opSavePricing, ticket, err)
	}
	if !ticket.Current() {
		return nil, s.superseded(ctx, opSavePricing)
	}

	snap.record = saved
	view := s.pricingView(snap)
	view.Approval = decision
	s.metrics.ObserveReconcile(opSavePricing, time.Since(started))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total":             totals.Total.String(),
		"approval_required": decision.Required,
		"status":            saved.Status,
	}), "quotations.pricing_saved")
	return view, nil
}

// Summary builds the render model the summary page and PDF share.
func (s *service) Summary(ctx context.Context, userID, id string, mode enums.DisplayMode) (*summary.Summary, error) {
	ctx = s.logg.WithQuotationID(ctx, id)
	opCtx, ticket := s.seq.Begin(ctx, readKey(id))
	defer ticket.Release()
	started := time.Now()

	snap, err := s.load(opCtx, id, false)
	if err != nil {
		return nil, s.settle(ctx, opSummary, ticket, err)
	}
	if !ticket.Current() {
		return nil, s.superseded(ctx, opSummary)
	}

	out := s.summaries.Build(summary.Input{
		QuotationID: id,
		Quotation:   snap.quotation,
		Breakdown:   snap.breakdown,
		Global:      snap.global,
		DisplayMode: s.resolveMode(opCtx, userID, id, mode, snap.record.DisplayMode),
		Terms:       s.selectTerms(snap.quotation, snap.record, snap.record.CustomTerms),
	})
	s.metrics.ObserveReconcile(opSummary, time.Since(started))
	return &out, nil
}

// Decide approves or rejects a pending quotation.
func (s *service) Decide(ctx context.Context, id string, action enums.ApprovalAction) (*DecisionView, error) {
	ctx = s.logg.WithQuotationID(ctx, id)
	if !action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval action").
			WithDetails(map[string]any{"action": action})
	}
	s.seq.Supersede(readKey(id))
	opCtx, ticket := s.seq.Begin(ctx, writeKey(id))
	defer ticket.Release()

	record, user, err := s.fetch(opCtx, id, true)
	if err != nil {
		return nil, s.settle(ctx, opDecide, ticket, err)
	}
	approver := approval.Approver{Username: user.Username, Role: user.Role, Threshold: user.Threshold}
	if err := approval.Authorize(approver, record.EffectiveDiscountPercent); err != nil {
		return nil, err
	}
	if record.Status != enums.QuotationStatusPendingApproval {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quotation is not pending approval").
			WithDetails(map[string]any{"status": record.Status})
	}
	if !ticket.Current() {
		return nil, s.superseded(ctx, opDecide)
	}

	saved, err := s.backend.Approve(opCtx, id, action)
	if err != nil {
		return nil, s.settle(ctx, opDecide, ticket, err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"action":   action,
		"approver": user.Username,
		"status":   saved.Status,
	}), "quotations.approval_decided")

	status := saved.Status
	if !status.IsValid() {
		status = approval.Outcome(action)
	}
	return &DecisionView{
		QuotationID: id,
		Action:      action,
		Status:      status,
		ApprovedBy:  saved.ApprovedBy,
	}, nil
}

// Download fetches the PDF for a quotation that is not waiting on or refused approval.
func (s *service) Download(ctx context.Context, userID, id string, mode enums.DisplayMode) (*quotationapi.Document, error) {
	ctx = s.logg.WithQuotationID(ctx, id)
	record, err := s.backend.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.Status.AllowsDownload() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quotation cannot be downloaded until it is approved").
			WithDetails(map[string]any{"status": record.Status})
	}
	resolved := s.resolveMode(ctx, userID, id, mode, record.DisplayMode)
	doc, err := s.backend.DownloadPDF(ctx, id, true, resolved)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "display_mode", resolved), "quotations.downloaded")
	return doc, nil
}

// SetDisplayMode stores the mode for the user locally and on the quotation record.
func (s *service) SetDisplayMode(ctx context.Context, userID, id string, mode enums.DisplayMode) (enums.DisplayMode, error) {
	ctx = s.logg.WithQuotationID(ctx, id)
	if !mode.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid display mode").
			WithDetails(map[string]any{"displayMode": mode})
	}
	if s.prefs != nil {
		if _, err := s.prefs.Set(ctx, userID, id, mode); err != nil {
			return "", err
		}
	}
	if _, err := s.backend.UpdateQuotation(ctx, id, quotationapi.QuotationPatch{DisplayMode: &mode}); err != nil {
		return "", err
	}
	return mode, nil
}

// load fetches and reconciles a quotation. With reprice set the breakdown is priced fresh
// and the persisted edits are merged on top; otherwise the persisted breakdown is used as is
// unless it is empty.
func (s *service) load(ctx context.Context, id string, withUser bool) (*snapshot, error) {
	record, user, err := s.fetch(ctx, id, withUser)
	if err != nil {
		return nil, err
	}
	persisted := s.normalizer.Breakdown(ctx, record.PricingBreakdown)
	global := recordedGlobal(record, persisted)

	var snap *snapshot
	if withUser || len(persisted) == 0 {
		snap, err = s.reconcile(ctx, record, persisted, global)
		if err != nil {
			return nil, err
		}
	} else {
		snap = s.fold(record, s.normalizer.Quotation(ctx, record.Headers), persisted, global)
	}
	snap.user = user
	return snap, nil
}

func (s *service) fetch(ctx context.Context, id string, withUser bool) (*quotationapi.Record, *quotationapi.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quotation id is required")
	}
	var (
		record *quotationapi.Record
		user   *quotationapi.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		record, err = s.backend.GetQuotation(gctx, id)
		return err
	})
	if withUser {
		g.Go(func() error {
			var err error
			user, err = s.backend.CurrentUser(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return record, user, nil
}

// reconcile reprices the record's headers and replays edits onto the fresh breakdown. A
// record without pricing inputs, or a pricing response without lines, keeps the edits as
// the breakdown.
func (s *service) reconcile(ctx context.Context, record *quotationapi.Record, edits pricing.Breakdown, global pricing.GlobalDiscount) (*snapshot, error) {
	q := s.normalizer.Quotation(ctx, record.Headers)

	merged := edits
	if record.DeveloperType != "" && record.ProjectRegion != "" && len(q.Headers) > 0 {
		res, err := s.pricer.Calculate(ctx, quotationapi.PricingRequest{
			DeveloperType: record.DeveloperType,
			ProjectRegion: record.ProjectRegion,
			PlotArea:      record.PlotArea,
			Headers:       q.Headers,
		})
		if err != nil {
			return nil, err
		}
		if fresh := s.normalizer.Breakdown(ctx, res.Breakdown); len(fresh) > 0 {
			merged = pricing.Merge(fresh, edits)
		}
	} else {
		s.logg.Debug(ctx, "quotations.reprice_skipped")
	}
	return s.fold(record, q, merged, global), nil
}

func (s *service) fold(record *quotationapi.Record, q normalize.Quotation, b pricing.Breakdown, global pricing.GlobalDiscount) *snapshot {
	q = normalize.MergePrices(q, b)
	sum := s.summaries.Build(summary.Input{
		QuotationID: record.ID,
		Quotation:   q,
		Breakdown:   b,
		Global:      global,
	})
	for _, section := range sum.Sections {
		if section.Package {
			s.metrics.IncPackageMethod(string(section.Method))
		}
	}
	return &snapshot{
		record:    record,
		quotation: q,
		breakdown: b,
		global:    global,
		summary:   sum,
	}
}

// flagFallbackPrices reports package headers billed from the fallback price table, whose
// amounts are unconfirmed defaults rather than backend prices.
func (s *service) flagFallbackPrices(ctx context.Context, snap *snapshot) {
	for _, section := range snap.summary.Sections {
		if !section.Package || section.Method != packages.MethodFallbackTable {
			continue
		}
		s.metrics.IncFallbackSave(section.HeaderName)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"header": section.HeaderName,
			"amount": section.Total.String(),
		}), "quotations.fallback_price_saved")
	}
}

func (s *service) evaluate(snap *snapshot, customTerms []string) approval.Decision {
	threshold := snap.user.Threshold
	return s.evaluator.Evaluate(approval.Input{
		Headers:                  selection.FromQuotation(s.catalog, snap.quotation).ApprovalHeaders(),
		EffectiveDiscountPercent: snap.summary.Totals.EffectiveDiscountPercent,
		Threshold:                threshold,
		CustomTerms:              customTerms,
	})
}

func (s *service) pricingView(snap *snapshot) *PricingView {
	view := &PricingView{
		QuotationID:    snap.record.ID,
		Status:         snap.record.Status,
		Breakdown:      snap.breakdown.Lines(),
		GlobalDiscount: snap.global,
		Totals:         snap.summary.Totals,
		Packages:       []PackageTotal{},
	}
	for _, section := range snap.summary.Sections {
		if !section.Package {
			continue
		}
		view.Packages = append(view.Packages, PackageTotal{
			HeaderName: section.HeaderName,
			Method:     section.Method,
			Total:      section.Total,
		})
	}
	if snap.user != nil {
		view.Approval = s.evaluate(snap, snap.record.CustomTerms)
	}
	return view
}

func (s *service) resolveMode(ctx context.Context, userID, id string, requested, recorded enums.DisplayMode) enums.DisplayMode {
	if s.prefs == nil {
		switch {
		case requested.IsValid():
			return requested
		case recorded.IsValid():
			return recorded
		}
		return enums.DefaultDisplayMode
	}
	return s.prefs.Resolve(ctx, userID, id, requested, recorded)
}

// settle maps a failure of a sequenced operation. A failure seen after a newer operation
// began is reported as superseded, since the cancellation most likely caused it.
func (s *service) settle(ctx context.Context, op string, ticket *Ticket, err error) error {
	if !ticket.Current() {
		return s.superseded(ctx, op)
	}
	return err
}

func (s *service) superseded(ctx context.Context, op string) error {
	s.metrics.IncSuperseded(op)
	s.logg.Info(s.logg.WithField(ctx, "operation", op), "quotations.superseded")
	return pkgerrors.New(pkgerrors.CodeConflict, "operation superseded by a newer request").
		WithDetails(map[string]any{"operation": op})
}

// recordedGlobal recovers the global discount of a persisted quotation. Records that carry
// the entered discount get it back in its own unit; older records only store the combined
// discount amount, so whatever the breakdown does not explain is taken as a fixed amount.
func recordedGlobal(record *quotationapi.Record, persisted pricing.Breakdown) pricing.GlobalDiscount {
	if g := record.GlobalDiscount; g != nil {
		kind, err := pricing.ParseDiscountType(g.Type)
		if err == nil {
			switch kind {
			case pricing.DiscountPercent:
				return pricing.GlobalPercent(g.Value)
			case pricing.DiscountAmount:
				return pricing.GlobalAmount(g.Value)
			}
			return pricing.NoGlobalDiscount()
		}
	}

	serviceDiscount := pricing.ComputeTotals(persisted, pricing.NoGlobalDiscount()).ServiceDiscount
	rest := record.DiscountAmount.Sub(serviceDiscount)
	if !rest.IsPositive() {
		return pricing.NoGlobalDiscount()
	}
	return pricing.GlobalAmount(rest)
}

func globalRecord(g pricing.GlobalDiscount) *quotationapi.GlobalDiscount {
	switch g.Type {
	case pricing.DiscountPercent:
		return &quotationapi.GlobalDiscount{Type: string(g.Type), Value: g.Percent}
	case pricing.DiscountAmount:
		return &quotationapi.GlobalDiscount{Type: string(g.Type), Value: g.Amount}
	}
	return &quotationapi.GlobalDiscount{Type: string(pricing.DiscountNone), Value: decimal.Zero}
}

func reasonLabels(d approval.Decision) []string {
	out := make([]string, 0, len(d.Reasons))
	for _, r := range d.Reasons {
		out = append(out, string(r))
	}
	return out
}

func readKey(id string) string  { return "read:" + id }
func writeKey(id string) string { return "write:" + id }
