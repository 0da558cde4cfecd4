package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often a running Poller checks the session.
const DefaultPollInterval = 10 * time.Second

// SessionValidator is the server call the Poller makes on every tick.
type SessionValidator interface {
	ValidateSession(ctx context.Context) (*SessionInfo, error)
}

// Poller periodically checks that the held session is still live and moves the
// SessionState to invalidated when a newer login replaced it.
type Poller struct {
	validator SessionValidator
	state     *SessionState
	interval  time.Duration
	logger    zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type PollerOption func(*Poller)

func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithPollerLogger(logger zerolog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

func NewPoller(validator SessionValidator, state *SessionState, options ...PollerOption) *Poller {
	p := &Poller{
		validator: validator,
		state:     state,
		interval:  DefaultPollInterval,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// shouldPoll holds for live technician sessions. Admin tokens have no session
// record to check.
func shouldPoll(s Snapshot) bool {
	return s.IsAuthenticated && !s.IsTestMode && !s.IsInvalidated && s.UserRole != RoleAdmin
}

// Start checks the session immediately and then on every interval. It does nothing
// and returns false when already running or when the state is not an authenticated,
// non-test technician session. The loop ends on Stop or ctx cancellation, and as
// soon as the state leaves that condition.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runningLocked() || !shouldPoll(p.state.Snapshot()) {
		return false
	}

	pollCtx, cancel := context.WithCancel(ctx)
	unsubscribe := p.state.Subscribe(func(s Snapshot) {
		if !shouldPoll(s) {
			cancel()
		}
	})

	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		defer unsubscribe()
		defer cancel()
		p.run(pollCtx)
	}()
	return true
}

// Stop tears the loop down and waits for it. No result is applied after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *Poller) runningLocked() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Poller) run(ctx context.Context) {
	p.check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Poller) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	_, err := p.validator.ValidateSession(ctx)
	if ctx.Err() != nil {
		return // torn down while the call was in flight
	}
	if err == nil {
		return
	}

	if !IsSessionInvalidated(err) {
		// 401s are handled by the API client's unauthorized handler
		p.logger.Debug().Err(err).Msg("session check failed")
		return
	}

	p.logger.Info().Msg("session replaced by a newer login")
	if err := p.state.SetInvalidated(true); err != nil {
		p.logger.Warn().Err(err).Msg("failed to persist invalidation")
	}
	if err := p.state.ClearSession(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to persist cleared session")
	}
}
