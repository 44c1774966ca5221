package location

import (
	"context"
	"sync"
	"time"
)

// StaticProvider reports a fixed position. It stands in for a platform
// location source on machines without one.
type StaticProvider struct {
	mu   sync.Mutex
	perm Permission
	fix  *Location
}

// NewStaticProvider returns a provider granting perm and reporting fix,
// which may be nil.
func NewStaticProvider(perm Permission, fix *Location) *StaticProvider {
	return &StaticProvider{perm: perm, fix: fix}
}

func (p *StaticProvider) Permissions(ctx context.Context) Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perm
}

// Set replaces the fix.
func (p *StaticProvider) Set(fix *Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fix = fix
}

func (p *StaticProvider) CurrentLocation(ctx context.Context, req Request) (*Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fix == nil {
		return nil, nil
	}
	l := *p.fix
	l.Time = time.Now()
	return &l, nil
}

func (p *StaticProvider) LastLocation(ctx context.Context) (*Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fix == nil {
		return nil, nil
	}
	l := *p.fix
	return &l, nil
}
