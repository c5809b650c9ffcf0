package session

import (
	"context"
	"time"

	"github.com/shareflow/shareflow-go/tool"
	"github.com/shareflow/shareflow-go/types"
)

// DefaultSweepInterval is how often the sweeper wakes up.
const DefaultSweepInterval = 60 * time.Second

// Notifier receives owner-facing session events. Implemented by the
// api/notifyhub package; nil disables notification.
type Notifier interface {
	Broadcast(n *types.Notification)
}

// Sweeper is the liveness guarantee that no session stays Active past
// its deadline. Each cycle expires due sessions, retries blob releases
// that failed earlier, and garbage-collects terminal records past the
// retention grace period.
type Sweeper struct {
	store    *Store
	interval time.Duration
	clock    Clock
	notifier Notifier
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval overrides the sweep interval.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) { s.interval = d }
}

// WithSweeperClock overrides the sweeper's time source.
func WithSweeperClock(c Clock) SweeperOption {
	return func(s *Sweeper) { s.clock = c }
}

// WithNotifier attaches the owner event channel.
func WithNotifier(n Notifier) SweeperOption {
	return func(s *Sweeper) { s.notifier = n }
}

// NewSweeper creates a sweeper for the store.
func NewSweeper(store *Store, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:    store,
		interval: DefaultSweepInterval,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Run sweeps on a ticker until the context is cancelled. Blocking;
// callers run it in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	tool.DefaultLogger.Infof("[Sweeper] Started, interval=%s", s.interval)
	for {
		select {
		case <-ctx.Done():
			tool.DefaultLogger.Infof("[Sweeper] Stopped")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one cycle. Idempotent and safe to run concurrently with
// user-triggered cancels: the store's guarded transition makes sure a
// racing cancel and expire never both win.
func (s *Sweeper) Sweep() {
	now := s.clock()

	expired := s.store.ExpireDue(now)
	for _, id := range expired {
		tool.DefaultLogger.Infof("[Sweeper] Session expired: %s", id)
		if s.notifier != nil {
			s.notifier.Broadcast(&types.Notification{
				Type:      types.NotifySessionExpired,
				SessionId: id,
			})
		}
	}

	s.store.RetryPendingReleases()

	if purged := s.store.Purge(now); purged > 0 {
		tool.DefaultLogger.Infof("[Sweeper] Purged %d terminal sessions", purged)
	}
}
