package browser

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(maxInflight int) (*idleTracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := newIdleTracker(maxInflight)
	tr.now = clock.now
	tr.reset()
	return tr, clock
}

func TestIdleTracker_QuietPeriod(t *testing.T) {
	tr, clock := newTestTracker(0)
	quiet := 500 * time.Millisecond

	assert.False(t, tr.idle(quiet), "reset starts the quiet window")
	clock.advance(quiet)
	assert.True(t, tr.idle(quiet))
}

func TestIdleTracker_InflightBlocksIdle(t *testing.T) {
	tr, clock := newTestTracker(0)
	quiet := 500 * time.Millisecond

	tr.handle(&network.EventRequestWillBeSent{RequestID: "1"})
	tr.handle(&network.EventRequestWillBeSent{RequestID: "2"})
	clock.advance(time.Second)
	assert.False(t, tr.idle(quiet))
	assert.Equal(t, 2, tr.pending())

	tr.handle(&network.EventLoadingFinished{RequestID: "1"})
	clock.advance(time.Second)
	assert.False(t, tr.idle(quiet))

	tr.handle(&network.EventLoadingFailed{RequestID: "2"})
	assert.False(t, tr.idle(quiet), "quiet window restarts when the last request ends")
	clock.advance(quiet)
	assert.True(t, tr.idle(quiet))
}

func TestIdleTracker_MaxInflightTolerance(t *testing.T) {
	tr, clock := newTestTracker(2)
	quiet := 500 * time.Millisecond

	tr.handle(&network.EventRequestWillBeSent{RequestID: "poll"})
	clock.advance(quiet)
	assert.True(t, tr.idle(quiet), "one long-poll is within tolerance")

	tr.handle(&network.EventRequestWillBeSent{RequestID: "a"})
	tr.handle(&network.EventRequestWillBeSent{RequestID: "b"})
	assert.False(t, tr.idle(quiet))

	tr.handle(&network.EventLoadingFinished{RequestID: "b"})
	clock.advance(quiet)
	assert.True(t, tr.idle(quiet))
}

func TestIdleTracker_RedirectReusesRequestID(t *testing.T) {
	tr, clock := newTestTracker(0)

	tr.handle(&network.EventRequestWillBeSent{RequestID: "r"})
	tr.handle(&network.EventRequestWillBeSent{RequestID: "r"})
	assert.Equal(t, 1, tr.pending())

	tr.handle(&network.EventLoadingFinished{RequestID: "r"})
	clock.advance(time.Second)
	assert.True(t, tr.idle(500*time.Millisecond))
}

func TestIdleTracker_IgnoresOtherEvents(t *testing.T) {
	tr, _ := newTestTracker(0)
	tr.handle(&network.EventResponseReceived{RequestID: "x"})
	tr.handle("not an event")
	assert.Equal(t, 0, tr.pending())
}
