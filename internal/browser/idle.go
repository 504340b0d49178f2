package browser

import (
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// idleTracker counts in-flight requests for one tab. The page is idle once
// no more than maxInflight requests have been pending for the quiet period.
type idleTracker struct {
	mu          sync.Mutex
	inflight    map[network.RequestID]struct{}
	maxInflight int
	settledAt   time.Time
	now         func() time.Time
}

func newIdleTracker(maxInflight int) *idleTracker {
	t := &idleTracker{
		inflight:    make(map[network.RequestID]struct{}),
		maxInflight: maxInflight,
		now:         time.Now,
	}
	t.settledAt = t.now()
	return t
}

func (t *idleTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight = make(map[network.RequestID]struct{})
	t.settledAt = t.now()
}

func (t *idleTracker) started(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.update()
}

func (t *idleTracker) finished(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
	t.update()
}

// update must be called with mu held.
func (t *idleTracker) update() {
	if len(t.inflight) > t.maxInflight {
		t.settledAt = time.Time{}
		return
	}
	if t.settledAt.IsZero() {
		t.settledAt = t.now()
	}
}

func (t *idleTracker) idle(quiet time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settledAt.IsZero() {
		return false
	}
	return t.now().Sub(t.settledAt) >= quiet
}

func (t *idleTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// handle is the chromedp.ListenTarget callback. It must not block.
func (t *idleTracker) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.started(e.RequestID)
	case *network.EventLoadingFinished:
		t.finished(e.RequestID)
	case *network.EventLoadingFailed:
		t.finished(e.RequestID)
	}
}
