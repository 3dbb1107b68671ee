package transport

import (
	"context"
	"sync"

	"github.com/nestclip/nestclip/internal/common"
)

// MemoryRelay is an in-process relay used by tests and by single-device
// setups that loop events back to the local coordinators.
type MemoryRelay struct {
	url string

	mu       sync.Mutex
	healthy  bool
	events   []Event
	failNext error
	subs     []*memorySub
}

type memorySub struct {
	filter Filter

	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (s *memorySub) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		// Slow consumer; drop rather than block the publisher.
	}
}

func (s *memorySub) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func NewMemoryRelay(url string) *MemoryRelay {
	return &MemoryRelay{url: url, healthy: true}
}

func (m *MemoryRelay) URL() string { return m.url }

func (m *MemoryRelay) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// SetHealthy toggles the health flag.
func (m *MemoryRelay) SetHealthy(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = v
}

// FailNext makes the next Publish return err.
func (m *MemoryRelay) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryRelay) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return common.ErrRelayTimeout
	}

	m.mu.Lock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		m.mu.Unlock()
		return err
	}
	m.events = append(m.events, ev)
	subs := make([]*memorySub, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, s := range subs {
		if s.filter.Match(ev) {
			s.send(ev)
		}
	}
	return nil
}

func (m *MemoryRelay) Subscribe(ctx context.Context, f Filter) (<-chan Event, error) {
	sub := &memorySub{filter: f, ch: make(chan Event, 64)}

	m.mu.Lock()
	m.subs = append(m.subs, sub)
	backlog := make([]Event, 0, len(m.events))
	for _, ev := range m.events {
		if f.Match(ev) {
			backlog = append(backlog, ev)
		}
	}
	m.mu.Unlock()

	for _, ev := range backlog {
		sub.send(ev)
	}

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		for i, s := range m.subs {
			if s == sub {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		sub.close()
	}()
	return sub.ch, nil
}

// Events returns a snapshot of everything published so far.
func (m *MemoryRelay) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
