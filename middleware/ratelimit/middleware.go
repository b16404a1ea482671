package ratelimit

import (
	"context"
	"net/http"
	"time"

	"store-backend/middleware/pipeline"
	"store-backend/middleware/ratelimit/application"
	"store-backend/middleware/ratelimit/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RejectBody é o corpo literal da resposta 429.
const RejectBody = "Rate limit exceeded. Try again later."

type Options struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool

	Log logrus.FieldLogger
	Now func() time.Time
}

// bucketInfo é exposto pelos stores de token-bucket.
type bucketInfo interface {
	RPS() float64
	Burst() int
}

// Limiter é o estágio de rate limit do pipeline.
type Limiter struct {
	opts Options
	svc  application.Service

	// falha de store é logada no máximo uma vez a cada 10s
	storeErrLog rate.Sometimes
}

func New(opts Options) *Limiter {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	return &Limiter{
		opts: opts,
		svc: application.Service{
			Store:      opts.Store,
			RetryAfter: opts.RetryAfter,
		},
		storeErrLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

func (l *Limiter) Name() string { return "ratelimit" }

func (l *Limiter) Inbound(rc *pipeline.RequestContext) bool {
	ctx := rc.Request.Context()
	key := domain.Key(rc.ClientKey)

	dec, err := l.svc.Decide(ctx, key, l.opts.Now())
	if err != nil {
		l.storeErrLog.Do(func() {
			l.opts.Log.WithError(err).WithField("key", rc.ClientKey).Warn("rate limit store failed, allowing request")
		})
	}

	if l.opts.Stats != nil {
		_ = l.opts.Stats.Record(context.WithoutCancel(ctx), domain.StatsEvent{
			Key:     key,
			Allowed: dec.Allowed,
			Policy:  l.Name(),
			Method:  rc.Method,
			Path:    rc.Path,
			At:      time.Now(),
		})
	}

	if !dec.Allowed {
		rc.Reject(l.Name(), l.opts.RejectStatus, RejectBody)
		rc.Response.Header().Set("Retry-After", retryAfterSeconds(dec.RetryAfter))
		l.setHeaders(rc.Response.Header(), dec)
		return true
	}

	l.setHeaders(rc.Response.Header(), dec)
	return false
}

func (l *Limiter) Outbound(*pipeline.RequestContext) {}

func (l *Limiter) setHeaders(h http.Header, dec domain.Decision) {
	if !l.opts.AddRateLimitHeaders {
		return
	}
	if bi, ok := l.opts.Store.(bucketInfo); ok {
		h.Set("X-RateLimit-RPS", formatFloat(bi.RPS()))
		h.Set("X-RateLimit-Burst", formatInt(bi.Burst()))
	}
	if dec.Limit <= 0 {
		return
	}
	h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
	if dec.Count > 0 {
		remaining := dec.Limit - dec.Count
		if remaining < 0 {
			remaining = 0
		}
		h.Set("X-RateLimit-Remaining", formatInt(remaining))
	}
}
