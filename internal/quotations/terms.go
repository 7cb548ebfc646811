package quotations

import (
	"context"
	"time"

	"github.com/reraeasy/quotation-engine/internal/approval"
	"github.com/reraeasy/quotation-engine/internal/normalize"
	"github.com/reraeasy/quotation-engine/internal/selection"
	"github.com/reraeasy/quotation-engine/internal/terms"
	"github.com/reraeasy/quotation-engine/pkg/quotationapi"
)

// SaveTermsInput is the user's answer on the terms page.
type SaveTermsInput struct {
	Accepted    bool
	CustomTerms []string
}

// Terms returns the categories that apply to the quotation as it is currently saved.
func (s *service) Terms(ctx context.Context, id string) (*TermsView, error) {
	ctx = s.logg.WithQuotationID(ctx, id)
	opCtx, ticket := s.seq.Begin(ctx, readKey(id))
	defer ticket.Release()

	record, _, err := s.fetch(opCtx, id, false)
	if err != nil {
		return nil, s.settle(ctx, opTerms, ticket, err)
	}
	if !ticket.Current() {
		return nil, s.superseded(ctx, opTerms)
	}

	q := s.normalizer.Quotation(opCtx, record.Headers)
	custom := approval.NonEmptyTerms(record.CustomTerms)
	return &TermsView{
		QuotationID: id,
		Categories:  s.selectTerms(q, record, custom),
		Accepted:    record.TermsAccepted,
		CustomTerms: custom,
		Status:      record.Status,
	}, nil
}

// SaveTerms stores acceptance and custom clauses. Any custom clause routes the quotation
// to approval.
func (s *service) SaveTerms(ctx context.Context, id string, input SaveTermsInput) (*TermsView, error) {
	ctx = s.logg.WithQuotationID(ctx, id)
	s.seq.Supersede(readKey(id))
	opCtx, ticket := s.seq.Begin(ctx, writeKey(id))
	defer ticket.Release()
	started := time.Now()

	record, user, err := s.fetch(opCtx, id, true)
	if err != nil {
		return nil, s.settle(ctx, opSaveTerms, ticket, err)
	}

	custom := approval.NonEmptyTerms(input.CustomTerms)
	persisted := s.normalizer.Breakdown(opCtx, record.PricingBreakdown)
	snap := s.fold(record, s.normalizer.Quotation(opCtx, record.Headers), persisted, recordedGlobal(record, persisted))
	snap.user = user
	decision := s.evaluate(snap, custom)
	s.metrics.IncApprovalReason(reasonLabels(decision)...)

	categories := s.selectTerms(snap.quotation, record, custom)
	if !ticket.Current() {
		return nil, s.superseded(ctx, opSaveTerms)
	}
	saved, err := s.backend.SaveTerms(opCtx, id, quotationapi.TermsPayload{
		TermsAccepted:   input.Accepted,
		ApplicableTerms: categoryNames(categories),
		CustomTerms:     custom,
	})
	if err != nil {
		return nil, s.settle(ctx, opSaveTerms, ticket, err)
	}
	if !ticket.Current() {
		return nil, s.superseded(ctx, opSaveTerms)
	}

	s.metrics.ObserveReconcile(opSaveTerms, time.Since(started))
	return &TermsView{
		QuotationID: id,
		Categories:  categories,
		Accepted:    saved.TermsAccepted,
		CustomTerms: custom,
		Status:      saved.Status,
		Approval:    &decision,
	}, nil
}

func (s *service) selectTerms(q normalize.Quotation, record *quotationapi.Record, custom []string) []terms.Category {
	return s.terms.Select(terms.Input{
		Headers:         selection.FromQuotation(s.catalog, q).TermsHeaders(),
		Validity:        record.Validity,
		PaymentSchedule: record.PaymentSchedule,
		CreatedAt:       record.CreatedTime(),
		CustomTerms:     custom,
	})
}

// categoryNames lists the catalog categories; custom clauses travel separately.
func categoryNames(categories []terms.Category) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c.Name == terms.CustomCategory {
			continue
		}
		out = append(out, c.Name)
	}
	return out
}
