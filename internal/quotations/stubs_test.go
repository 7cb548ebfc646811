package quotations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	"github.com/reraeasy/quotation-engine/pkg/logger"
	"github.com/reraeasy/quotation-engine/pkg/quotationapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu sync.Mutex

	record  *quotationapi.Record
	user    *quotationapi.User
	pricing *quotationapi.PricingResult

	getErr  error
	calcErr error
	saveErr error

	calcEntered chan struct{}
	calcGate    chan struct{}

	calcCalls int
	saved     []quotationapi.PricingPayload
	terms     []quotationapi.TermsPayload
	patches   []quotationapi.QuotationPatch
	actions   []enums.ApprovalAction
	downloads []enums.DisplayMode
}

func (b *stubBackend) CurrentUser(context.Context) (*quotationapi.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := *b.user
	return &u, nil
}

func (b *stubBackend) GetQuotation(_ context.Context, id string) (*quotationapi.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	r := *b.record
	r.ID = id
	return &r, nil
}

func (b *stubBackend) UpdateQuotation(_ context.Context, id string, patch quotationapi.QuotationPatch) (*quotationapi.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.patches = append(b.patches, patch)
	r := *b.record
	r.ID = id
	if patch.DisplayMode != nil {
		r.DisplayMode = *patch.DisplayMode
	}
	return &r, nil
}

func (b *stubBackend) CalculatePricing(context.Context, quotationapi.PricingRequest) (*quotationapi.PricingResult, error) {
	b.mu.Lock()
	b.calcCalls++
	entered, gate := b.calcEntered, b.calcGate
	b.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calcErr != nil {
		return nil, b.calcErr
	}
	res := *b.pricing
	return &res, nil
}

func (b *stubBackend) SavePricing(_ context.Context, id string, payload quotationapi.PricingPayload) (*quotationapi.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return nil, b.saveErr
	}
	b.saved = append(b.saved, payload)
	r := *b.record
	r.ID = id
	r.TotalAmount = payload.TotalAmount
	r.DiscountAmount = payload.DiscountAmount
	r.Status = enums.QuotationStatusPendingApproval
	return &r, nil
}

func (b *stubBackend) SaveTerms(_ context.Context, id string, payload quotationapi.TermsPayload) (*quotationapi.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.terms = append(b.terms, payload)
	r := *b.record
	r.ID = id
	r.TermsAccepted = payload.TermsAccepted
	r.CustomTerms = payload.CustomTerms
	return &r, nil
}

func (b *stubBackend) Approve(_ context.Context, id string, action enums.ApprovalAction) (*quotationapi.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = append(b.actions, action)
	r := *b.record
	r.ID = id
	if action == enums.ApprovalActionApprove {
		r.Status = enums.QuotationStatusCompleted
		r.ApprovedBy = b.user.Username
	} else {
		r.Status = enums.QuotationStatusRejected
	}
	return &r, nil
}

func (b *stubBackend) DownloadPDF(_ context.Context, id string, _ bool, mode enums.DisplayMode) (*quotationapi.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.downloads = append(b.downloads, mode)
	return &quotationapi.Document{
		Filename:    fmt.Sprintf("Quotation_%s.pdf", id),
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.4"),
	}, nil
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = fmt.Sprint(value)
	return nil
}

func (c *memoryCache) PricingKey(fingerprint string) string { return "pricing:" + fingerprint }

type stubPreferences struct {
	mu       sync.Mutex
	stored   map[string]enums.DisplayMode
	setCalls int
}

func (p *stubPreferences) Resolve(_ context.Context, userID, quotationID string, requested, recorded enums.DisplayMode) enums.DisplayMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if requested.IsValid() {
		return requested
	}
	if mode, ok := p.stored[userID+"|"+quotationID]; ok {
		return mode
	}
	if recorded.IsValid() {
		return recorded
	}
	return enums.DefaultDisplayMode
}

func (p *stubPreferences) Set(_ context.Context, userID, quotationID string, mode enums.DisplayMode) (enums.DisplayMode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stored == nil {
		p.stored = map[string]enums.DisplayMode{}
	}
	p.setCalls++
	p.stored[userID+"|"+quotationID] = mode
	return mode, nil
}

func decodeJSON[T any](t *testing.T, raw string) *T {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var out T
	require.NoError(t, dec.Decode(&out))
	return &out
}

func testUser(role enums.UserRole, threshold int64) *quotationapi.User {
	return &quotationapi.User{
		ID:        json.Number("7"),
		Username:  "asha",
		Role:      role,
		Threshold: decimal.NewFromInt(threshold),
	}
}

func newTestService(t *testing.T, backend *stubBackend, opts ...func(*Config)) Service {
	t.Helper()
	cfg := Config{
		Backend: backend,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	svc, err := NewService(cfg)
	require.NoError(t, err)
	return svc
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
