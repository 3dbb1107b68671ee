package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/logging"
)

// Pool fans out publishes to every healthy relay and merges subscriptions.
// Publish succeeds when at least one relay accepts the event; per-relay
// failures are joined into the returned error only when all of them fail.
type Pool struct {
	relays  []Relay
	timeout time.Duration
	log     logging.Logger
}

func NewPool(relays []Relay, publishTimeout time.Duration, log logging.Logger) *Pool {
	if log == nil {
		log = logging.Nop{}
	}
	return &Pool{relays: relays, timeout: publishTimeout, log: log}
}

// Relays returns the configured relays.
func (p *Pool) Relays() []Relay {
	return p.relays
}

func (p *Pool) healthy() []Relay {
	var out []Relay
	for _, r := range p.relays {
		if r.Healthy() {
			out = append(out, r)
		}
	}
	return out
}

// Publish sends ev to every healthy relay concurrently. It returns nil as
// soon as the fan-out completes with at least one acceptance.
func (p *Pool) Publish(ctx context.Context, ev Event) error {
	relays := p.healthy()
	if len(relays) == 0 {
		return common.ErrNoConnectedRelays
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		ok   bool
	)
	for _, r := range relays {
		wg.Add(1)
		go func(r Relay) {
			defer wg.Done()
			if err := r.Publish(ctx, ev); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", r.URL(), err))
				mu.Unlock()
				p.log.Warn(ctx, "relay publish failed", "relay", r.URL(), "event_id", ev.ID, "error", err.Error())
				return
			}
			mu.Lock()
			ok = true
			mu.Unlock()
		}(r)
	}
	wg.Wait()

	if ok {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", common.ErrRelayTimeout, ev.ID)
	}
	return errors.Join(errs...)
}

// Subscribe merges matching events from all relays onto one channel. The
// channel closes once every relay stream ends or ctx is cancelled. Duplicate
// deliveries of the same event id from different relays are dropped.
func (p *Pool) Subscribe(ctx context.Context, f Filter) (<-chan Event, error) {
	relays := p.healthy()
	if len(relays) == 0 {
		return nil, common.ErrNoConnectedRelays
	}

	out := make(chan Event)
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]struct{})

	for _, r := range relays {
		ch, err := r.Subscribe(ctx, f)
		if err != nil {
			p.log.Warn(ctx, "relay subscribe failed", "relay", r.URL(), "error", err.Error())
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range ch {
				mu.Lock()
				_, dup := seen[ev.ID]
				if !dup {
					seen[ev.ID] = struct{}{}
				}
				mu.Unlock()
				if dup {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}
