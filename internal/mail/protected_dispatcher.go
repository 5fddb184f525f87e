package mail

import (
	"context"
	"sync"
	"time"
)

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

type ProtectedConfig struct {
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open

	// Observe is told about every attempt; "rejected" means the breaker said no.
	Observe func(kind Kind, outcome string)
}

// ProtectedDispatcher wraps a Dispatcher with a per-send timeout and a circuit
// breaker so a dead provider fails requests fast.
type ProtectedDispatcher struct {
	inner Dispatcher
	cfg   ProtectedConfig
	now   func() time.Time

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedDispatcher(inner Dispatcher, cfg ProtectedConfig) *ProtectedDispatcher {
	//defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedDispatcher{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: stateClosed,
	}
}

func (d *ProtectedDispatcher) Send(ctx context.Context, msg Message) error {
	// fail-fast gate
	if !d.allowRequest() {
		d.observe(msg.Kind, "rejected")
		return ErrCircuitOpen
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	err := d.inner.Send(sendCtx, msg)
	d.afterRequest(err)

	if err != nil {
		d.observe(msg.Kind, "failed")
		return err
	}
	d.observe(msg.Kind, "sent")
	return nil
}

func (d *ProtectedDispatcher) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.state)
}

func (d *ProtectedDispatcher) observe(kind Kind, outcome string) {
	if d.cfg.Observe != nil {
		d.cfg.Observe(kind, outcome)
	}
}

func (d *ProtectedDispatcher) allowRequest() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case stateClosed:
		return true
	case stateOpen:
		// cooldown has passed? move to half open
		if d.now().Sub(d.openedAt) >= d.cfg.Cooldown {
			d.state = stateHalfOpen
			d.halfOpenInFlight = 1
			return true
		}
		return false
	case stateHalfOpen:
		if d.halfOpenInFlight >= d.cfg.HalfOpenMaxCalls {
			return false
		}
		d.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (d *ProtectedDispatcher) afterRequest(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == stateHalfOpen && d.halfOpenInFlight > 0 {
		d.halfOpenInFlight--
	}

	if err == nil {
		d.consecutiveFailures = 0
		d.state = stateClosed
		return
	}

	d.consecutiveFailures++

	// a failed trial call reopens immediately
	if d.state == stateHalfOpen {
		d.state = stateOpen
		d.openedAt = d.now()
		return
	}

	if d.consecutiveFailures >= d.cfg.FailureThreshold {
		d.state = stateOpen
		d.openedAt = d.now()
	}
}
