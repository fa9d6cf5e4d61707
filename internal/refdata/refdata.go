// Package refdata provides process-scoped read-only snapshots of the
// reference lists (customers, payment methods, products) the sale editor
// depends on. The provider has a load-once lifecycle: uninitialized until
// the first request, loading while fetching, ready afterwards. Snapshots are
// injected into the editor rather than fetched ad hoc.
package refdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salesadmin/backend/internal/cache"
	"salesadmin/backend/internal/domain"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

const cacheKey = "refdata:v1"

// Source is the subset of the repository the provider reads from.
type Source interface {
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type Provider struct {
	source Source
	cache  cache.RefDataCache
	ttl    time.Duration

	mu    sync.Mutex
	state State
	snap  domain.ReferenceData
}

func NewProvider(source Source, c cache.RefDataCache, ttl time.Duration) *Provider {
	if c == nil {
		c = cache.NoopRefDataCache{}
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Provider{source: source, cache: c, ttl: ttl}
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns the reference data, loading it on first use. Once ready,
// the same immutable snapshot is served for the rest of the process (or
// until Invalidate), so editing sessions see consistent lists.
func (p *Provider) Snapshot(ctx context.Context) (domain.ReferenceData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateReady {
		return copyRefData(p.snap), nil
	}

	p.state = StateLoading
	snap, err := p.load(ctx)
	if err != nil {
		p.state = StateUninitialized
		return domain.ReferenceData{}, err
	}
	p.snap = snap
	p.state = StateReady
	return copyRefData(p.snap), nil
}

// Invalidate drops the snapshot so the next request reloads. Called after
// reference data changes out of band.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateUninitialized
	p.snap = domain.ReferenceData{}
}

func (p *Provider) load(ctx context.Context) (domain.ReferenceData, error) {
	if cached, ok, err := p.cache.Get(ctx, cacheKey); err == nil && ok {
		return *cached, nil
	}

	customers, err := p.source.ListCustomers(ctx)
	if err != nil {
		return domain.ReferenceData{}, fmt.Errorf("load customers: %w", err)
	}
	methods, err := p.source.ListPaymentMethods(ctx)
	if err != nil {
		return domain.ReferenceData{}, fmt.Errorf("load payment methods: %w", err)
	}
	products, err := p.source.ListProducts(ctx)
	if err != nil {
		return domain.ReferenceData{}, fmt.Errorf("load products: %w", err)
	}

	snap := domain.ReferenceData{
		Customers:      customers,
		PaymentMethods: methods,
		Products:       products,
	}
	_ = p.cache.Set(ctx, cacheKey, &snap, p.ttl)
	return snap, nil
}

func copyRefData(ref domain.ReferenceData) domain.ReferenceData {
	out := domain.ReferenceData{
		Customers:      make([]domain.Customer, len(ref.Customers)),
		PaymentMethods: make([]domain.PaymentMethod, len(ref.PaymentMethods)),
		Products:       make([]domain.Product, len(ref.Products)),
	}
	copy(out.Customers, ref.Customers)
	copy(out.PaymentMethods, ref.PaymentMethods)
	copy(out.Products, ref.Products)
	return out
}
