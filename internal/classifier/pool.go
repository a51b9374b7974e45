package classifier

import (
	"context"
	"sync/atomic"
	"time"

	"trashd/internal/apperr"
)

// pool hands out sessions for exclusive use. The channel holds idle sessions;
// its capacity equals the number of sessions created at Open.
type pool struct {
	idle    chan Session
	size    int
	maxWait time.Duration
	closed  atomic.Bool
}

func newPool(sessions []Session, maxWait time.Duration) *pool {
	p := &pool{idle: make(chan Session, len(sessions)), size: len(sessions), maxWait: maxWait}
	for _, s := range sessions {
		p.idle <- s
	}
	return p
}

// acquire checks out an idle session, waiting up to maxWait. The returned
// release func must be called exactly once.
func (p *pool) acquire(ctx context.Context) (Session, func(), error) {
	if p.closed.Load() {
		return nil, func() {}, apperr.ServiceUnavailable("classifier is shut down")
	}
	if err := ctx.Err(); err != nil {
		return nil, func() {}, err
	}
	// Fast path: an idle session is available.
	select {
	case s := <-p.idle:
		return p.checkedOut(s)
	default:
	}
	timer := time.NewTimer(p.maxWait)
	defer timer.Stop()
	select {
	case s := <-p.idle:
		return p.checkedOut(s)
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	case <-timer.C:
		return nil, func() {}, apperr.Busy("classifier busy, try again")
	}
}

func (p *pool) checkedOut(s Session) (Session, func(), error) {
	sessionsInUse.Inc()
	var once atomic.Bool
	return s, func() {
		if once.CompareAndSwap(false, true) {
			sessionsInUse.Dec()
			p.idle <- s
		}
	}, nil
}

// drain marks the pool closed and collects every session, waiting for
// checked-out sessions to be released.
func (p *pool) drain(ctx context.Context) ([]Session, error) {
	p.closed.Store(true)
	out := make([]Session, 0, p.size)
	for len(out) < p.size {
		select {
		case s := <-p.idle:
			out = append(out, s)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, nil
}
