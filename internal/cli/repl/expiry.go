package repl

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/core/service"
	"github.com/yndnr/prodadmin-go/internal/telemetry/logger"
)

// expireRetryDelay is the wait before retrying an expiry that collided
// with another transition.
const expireRetryDelay = time.Second

// ExpiryWatcher ends the session when the held token reaches its exp claim.
type ExpiryWatcher struct {
	store *service.Store
	log   logger.Logger

	mu          sync.Mutex
	timer       *time.Timer
	armedFor    time.Time
	stopped     bool
	unsubscribe func()
}

// WatchExpiry arms a timer for the store's current expiry and re-arms it
// on every session change.
func WatchExpiry(store *service.Store, log logger.Logger) *ExpiryWatcher {
	if log == nil {
		log = logger.Discard()
	}
	w := &ExpiryWatcher{store: store, log: log}
	w.unsubscribe = store.Subscribe(w.handle)
	w.arm(store.ExpiresAt())
	return w
}

// Stop disarms the timer and unsubscribes from the store.
func (w *ExpiryWatcher) Stop() {
	w.unsubscribe()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// ArmedFor returns the expiry the timer is set for, zero when disarmed.
func (w *ExpiryWatcher) ArmedFor() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armedFor
}

func (w *ExpiryWatcher) handle(c domain.Change) {
	if c.Session.Loading {
		return
	}
	if c.Session.IsAuthenticated() {
		w.arm(c.Session.ExpiresAt)
		return
	}
	w.arm(time.Time{})
}

func (w *ExpiryWatcher) arm(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || (at.Equal(w.armedFor) && (w.timer != nil || at.IsZero())) {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.armedFor = at
	if at.IsZero() {
		return
	}

	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	w.log.Debug("session expiry armed", "expires_at", at, "in", d)
	w.timer = time.AfterFunc(d, w.fire)
}

func (w *ExpiryWatcher) fire() {
	w.mu.Lock()
	w.timer = nil
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := w.store.Expire(ctx)
	if errors.Is(err, domain.ErrTransitionInProgress) {
		w.retry(w.armedExpiry())
		return
	}
	if err != nil {
		w.log.Warn("session expiry failed", "error", err)
	}

	// Expire does nothing when the store's clock has not reached exp yet.
	if snap := w.store.Snapshot(); snap.IsAuthenticated() && !snap.Loading && !snap.ExpiresAt.IsZero() {
		w.retry(snap.ExpiresAt)
	}
}

func (w *ExpiryWatcher) armedExpiry() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armedFor
}

// retry arms the timer for at, no sooner than expireRetryDelay from now.
// A timer armed meanwhile by a session change wins.
func (w *ExpiryWatcher) retry(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.timer != nil || at.IsZero() {
		return
	}

	d := time.Until(at)
	if d < expireRetryDelay {
		d = expireRetryDelay
	}
	w.armedFor = at
	w.timer = time.AfterFunc(d, w.fire)
}
