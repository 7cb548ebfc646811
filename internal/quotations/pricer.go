package quotations

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
	"github.com/reraeasy/quotation-engine/pkg/logger"
	"github.com/reraeasy/quotation-engine/pkg/metrics"
	"github.com/reraeasy/quotation-engine/pkg/quotationapi"
	pkgredis "github.com/reraeasy/quotation-engine/pkg/redis"
	"golang.org/x/sync/singleflight"
)

type pricingCalculator interface {
	CalculatePricing(ctx context.Context, req quotationapi.PricingRequest) (*quotationapi.PricingResult, error)
}

// pricer fronts the upstream pricing endpoint with a response cache and collapses identical
// in-flight requests into one call.
type pricer struct {
	upstream pricingCalculator
	cache    pkgredis.PricingCache
	ttl      time.Duration
	group    singleflight.Group
	metrics  *metrics.QuotationMetrics
	logg     *logger.Logger
}

func (p *pricer) Calculate(ctx context.Context, req quotationapi.PricingRequest) (*quotationapi.PricingResult, error) {
	fp, err := fingerprint(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fingerprint pricing request")
	}
	if res, ok := p.cached(ctx, fp); ok {
		return res, nil
	}

	// the shared call must outlive any single caller; the client applies its own timeout
	ch := p.group.DoChan(fp, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		res, err := p.upstream.CalculatePricing(callCtx, req)
		if err != nil {
			return nil, err
		}
		p.store(callCtx, fp, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "pricing request cancelled")
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*quotationapi.PricingResult), nil
	}
}

func (p *pricer) cached(ctx context.Context, fp string) (*quotationapi.PricingResult, bool) {
	if p.cache == nil {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, p.cache.PricingKey(fp))
	if err != nil {
		if !pkgredis.IsMiss(err) && p.logg != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "pricing.cache_read_failed")
		}
		p.metrics.IncCache(false)
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var res quotationapi.PricingResult
	if err := dec.Decode(&res); err != nil {
		if p.logg != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "pricing.cache_decode_failed")
		}
		p.metrics.IncCache(false)
		return nil, false
	}
	p.metrics.IncCache(true)
	return &res, true
}

func (p *pricer) store(ctx context.Context, fp string, res *quotationapi.PricingResult) {
	if p.cache == nil || p.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, p.cache.PricingKey(fp), string(payload), p.ttl); err != nil && p.logg != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "pricing.cache_write_failed")
	}
}

func fingerprint(req quotationapi.PricingRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
