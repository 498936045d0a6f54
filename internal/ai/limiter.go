package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// LimitConfig bounds generative traffic per tenant.
type LimitConfig struct {
	// Concurrency is the number of in-flight calls allowed per tenant. Zero
	// disables the bound.
	Concurrency int64
	// RequestsPerMinute throttles call starts per tenant. Zero disables it.
	RequestsPerMinute int
}

// Limited wraps a Completer with a semaphore and a rate limiter per tenant.
type Limited struct {
	next Completer
	cfg  LimitConfig

	mu      sync.Mutex
	tenants map[string]*tenantLimit
}

type tenantLimit struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewLimited returns next guarded by cfg.
func NewLimited(next Completer, cfg LimitConfig) *Limited {
	return &Limited{
		next:    next,
		cfg:     cfg,
		tenants: make(map[string]*tenantLimit),
	}
}

func (l *Limited) Complete(ctx context.Context, req Request) (*Completion, error) {
	tl := l.forTenant(req.Credential.TenantID)

	if tl.limiter != nil {
		if err := tl.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for tenant rate limit: %w", err)
		}
	}

	if tl.sem != nil {
		if err := tl.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for tenant concurrency slot: %w", err)
		}
		defer tl.sem.Release(1)
	}

	return l.next.Complete(ctx, req)
}

func (l *Limited) forTenant(tenantID string) *tenantLimit {
	key := strings.TrimSpace(tenantID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if tl, ok := l.tenants[key]; ok {
		return tl
	}

	tl := &tenantLimit{}
	if l.cfg.Concurrency > 0 {
		tl.sem = semaphore.NewWeighted(l.cfg.Concurrency)
	}
	if l.cfg.RequestsPerMinute > 0 {
		every := time.Minute / time.Duration(l.cfg.RequestsPerMinute)
		tl.limiter = rate.NewLimiter(rate.Every(every), l.cfg.RequestsPerMinute)
	}
	l.tenants[key] = tl

	return tl
}
