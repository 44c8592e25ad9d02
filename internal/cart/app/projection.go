package app

import (
	"sync"
	"sync/atomic"

	"github.com/dwikikusuma/storefront/internal/cart/domain"
)

// Projection fans CartState changes out to subscribers. A new subscriber is
// called with the current state before Subscribe returns, then with every
// later change. A subscriber never sees an older state after a newer one.
type Projection struct {
	mu      sync.Mutex
	current domain.CartState
	version uint64
	nextID  uint64
	subs    map[uint64]*subscriber
}

type subscriber struct {
	mu     sync.Mutex
	fn     func(domain.CartState)
	seen   uint64
	closed atomic.Bool
}

func NewProjection(initial domain.CartState) *Projection {
	return &Projection{
		current: initial.Clone(),
		version: 1,
		subs:    make(map[uint64]*subscriber),
	}
}

// Subscribe registers fn and returns its unsubscribe handle. fn runs on the
// goroutine that changed the state and must not block for long.
func (p *Projection) Subscribe(fn func(domain.CartState)) (unsubscribe func()) {
	sub := &subscriber{fn: fn}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = sub
	state, version := p.current.Clone(), p.version
	p.mu.Unlock()

	sub.deliver(state, version)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			sub.closed.Store(true)
		})
	}
}

// Current returns a copy of the latest published state.
func (p *Projection) Current() domain.CartState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.Clone()
}

func (p *Projection) publish(state domain.CartState) {
	p.mu.Lock()
	p.version++
	p.current = state.Clone()
	version := p.version
	subs := make([]*subscriber, 0, len(p.subs))
	for _, s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	for _, s := range subs {
		s.deliver(state.Clone(), version)
	}
}

func (s *subscriber) deliver(state domain.CartState, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() || version <= s.seen {
		return
	}
	s.seen = version
	s.fn(state)
}
