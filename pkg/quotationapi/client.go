package quotationapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/reraeasy/quotation-engine/pkg/enums"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
)

const (
	defaultTimeout             = 15 * time.Second
	errorBodyReadLimit   int64 = 4 * 1024
	documentReadLimit    int64 = 25 * 1024 * 1024
	outcomeOK                  = "ok"
	outcomeTransport           = "transport_error"
	defaultPDFContentType      = "application/pdf"
)

var errBaseURLRequired = errors.New("quotation api base url is required")

type tokenKey struct{}

// WithBearerToken attaches the caller's access token to ctx; every request made with ctx
// forwards it.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, strings.TrimSpace(token))
}

func bearerToken(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

// Observer is notified once per call with the operation name and its outcome.
type Observer func(operation, outcome string)

// Client talks to the quotation persistence and pricing backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	observe    Observer
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithObserver registers a call outcome hook, typically metrics.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observe = observer
	}
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parse quotation api base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// CurrentUser returns the profile of the bearer token's owner.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, "current_user", http.MethodGet, "/api/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetQuotation fetches one persisted quotation.
func (c *Client) GetQuotation(ctx context.Context, id string) (*Record, error) {
	path, err := quotationPath(id, "")
	if err != nil {
		return nil, err
	}
	return c.record(ctx, "get_quotation", http.MethodGet, path, nil)
}

// UpdateQuotation applies a partial update to the quotation.
func (c *Client) UpdateQuotation(ctx context.Context, id string, patch QuotationPatch) (*Record, error) {
	path, err := quotationPath(id, "")
	if err != nil {
		return nil, err
	}
	return c.record(ctx, "update_quotation", http.MethodPut, path, patch)
}

// CalculatePricing asks the backend for the base prices of the selected headers.
func (c *Client) CalculatePricing(ctx context.Context, req PricingRequest) (*PricingResult, error) {
	if strings.TrimSpace(req.DeveloperType) == "" || strings.TrimSpace(req.ProjectRegion) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "developer type and project region are required")
	}
	var result PricingResult
	if err := c.doJSON(ctx, "calculate_pricing", http.MethodPost, "/api/quotations/calculate-pricing", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SavePricing persists reconciled totals and the edited breakdown.
func (c *Client) SavePricing(ctx context.Context, id string, payload PricingPayload) (*Record, error) {
	path, err := quotationPath(id, "/pricing")
	if err != nil {
		return nil, err
	}
	return c.record(ctx, "save_pricing", http.MethodPut, path, payload)
}

// SaveTerms persists the accepted and custom terms.
func (c *Client) SaveTerms(ctx context.Context, id string, payload TermsPayload) (*Record, error) {
	path, err := quotationPath(id, "/terms")
	if err != nil {
		return nil, err
	}
	return c.record(ctx, "save_terms", http.MethodPut, path, payload)
}

// Approve records an approval decision.
func (c *Client) Approve(ctx context.Context, id string, action enums.ApprovalAction) (*Record, error) {
	path, err := quotationPath(id, "/approve")
	if err != nil {
		return nil, err
	}
	body := map[string]string{"action": string(action)}
	return c.record(ctx, "approve", http.MethodPut, path, body)
}

// DownloadPDF fetches the rendered quotation document.
func (c *Client) DownloadPDF(ctx context.Context, id string, summary bool, mode enums.DisplayMode) (doc *Document, err error) {
	path, err := quotationPath(id, "/download-pdf")
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("summary", fmt.Sprintf("%t", summary))
	if mode.IsValid() {
		query.Set("displayMode", string(mode))
	}

	const op = "download_pdf"
	resp, err := c.send(ctx, op, http.MethodGet, path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, closeErr(resp.Body))
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, documentReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read pdf body")
	}

	doc = &Document{
		Filename:    fmt.Sprintf("Quotation_%s.pdf", id),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if doc.ContentType == "" {
		doc.ContentType = defaultPDFContentType
	}
	if _, params, perr := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); perr == nil && params["filename"] != "" {
		doc.Filename = params["filename"]
	}
	return doc, nil
}

func (c *Client) record(ctx context.Context, op, method, path string, body any) (*Record, error) {
	var envelope struct {
		Data Record `json:"data"`
	}
	if err := c.doJSON(ctx, op, method, path, body, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) (err error) {
	resp, err := c.send(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closeErr(resp.Body))
	}()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", op))
	}
	return nil
}

// send executes the request and maps non-2xx responses onto error codes. On success the
// caller owns resp.Body.
func (c *Client) send(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quotation api client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("marshal %s request", op))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", op))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := bearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.notify(op, outcomeTransport)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", op))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		c.notify(op, fmt.Sprintf("status_%d", resp.StatusCode))
		return nil, statusError(op, resp)
	}
	c.notify(op, outcomeOK)
	return resp, nil
}

func (c *Client) notify(op, outcome string) {
	if c.observe != nil {
		c.observe(op, outcome)
	}
}

// statusError maps upstream statuses onto service error codes.
func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	upstream := upstreamMessage(raw)
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, upstream)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, upstream)
	case http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, cause, "session expired, please sign in again")
	case http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, cause, upstream)
	case http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, "quotation not found")
	case http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, cause, "quotation backend is throttling requests")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, fmt.Sprintf("%s request failed", op)).
		WithDetails(map[string]any{"operation": op, "status": resp.StatusCode})
}

func upstreamMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

func quotationPath(id, suffix string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "quotation id is required")
	}
	return "/api/quotations/" + url.PathEscape(trimmed) + suffix, nil
}

func closeErr(body io.Closer) error {
	if err := body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}
