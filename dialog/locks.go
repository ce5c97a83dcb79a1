package dialog

import "sync"

// phoneLocks serializes processing per phone number so concurrent webhook
// deliveries for the same user cannot interleave state transitions.
// Different phones proceed in parallel.
type phoneLocks struct {
	mu    sync.Mutex
	locks map[string]*phoneLock
}

type phoneLock struct {
	mu   sync.Mutex
	refs int
}

func newPhoneLocks() *phoneLocks {
	return &phoneLocks{locks: make(map[string]*phoneLock)}
}

// Acquire locks the per-phone mutex and returns its release func. Entries
// are removed once the last holder releases, so the map does not grow with
// the total number of phones ever seen.
func (p *phoneLocks) Acquire(phone string) func() {
	p.mu.Lock()
	l, ok := p.locks[phone]
	if !ok {
		l = &phoneLock{}
		p.locks[phone] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, phone)
		}
		p.mu.Unlock()
	}
}
