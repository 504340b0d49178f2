package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a locator resolves to zero nodes.
var ErrNotFound = errors.New("element not found")

type Options struct {
	Headless          bool
	WindowWidth       int
	WindowHeight      int
	ExecPath          string
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	IdleQuiet         time.Duration
	MaxInflight       int
}

// Session owns one browser process and its single page. Close releases the
// process exactly once no matter how many times it is called.
type Session struct {
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc

	opts    Options
	tracker *idleTracker
	logger  *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open launches a browser with a fresh profile and attaches to its first tab.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "browser"))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	s := &Session{
		opts:    opts,
		tracker: newIdleTracker(opts.MaxInflight),
		logger:  logger,
	}

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...))
		}),
	)

	chromedp.ListenTarget(s.browserCtx, s.tracker.handle)

	if err := chromedp.Run(s.browserCtx, network.Enable()); err != nil {
		s.browserCancel()
		s.allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("browser started",
		zap.Bool("headless", opts.Headless),
		zap.Int("window_w", opts.WindowWidth),
		zap.Int("window_h", opts.WindowHeight))

	return s, nil
}

// Close shuts the browser down and waits for the process to exit.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info("closing browser")
		if err := chromedp.Cancel(s.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
		s.browserCancel()
		s.allocCancel()
	})
	return s.closeErr
}

func (s *Session) actionCtx(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	// chromedp resolves the target from the context chain, so the caller's
	// cancellation has to be joined onto the browser context.
	runCtx, cancel := context.WithCancel(s.browserCtx)
	stop := context.AfterFunc(ctx, cancel)
	if d > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(runCtx, d)
		return runCtx, func() {
			timeoutCancel()
			stop()
			cancel()
		}
	}
	return runCtx, func() {
		stop()
		cancel()
	}
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.tracker.reset()
	runCtx, cancel := s.actionCtx(ctx, s.opts.NavigationTimeout)
	defer cancel()

	s.logger.Debug("navigating", zap.String("url", url))
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitNetworkIdle blocks until the page has had at most MaxInflight requests
// pending for IdleQuiet, or the navigation timeout expires.
func (s *Session) WaitNetworkIdle(ctx context.Context) error {
	if s.opts.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.NavigationTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.tracker.idle(s.opts.IdleQuiet) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for network idle (%d requests pending): %w", s.tracker.pending(), ctx.Err())
		case <-s.browserCtx.Done():
			return fmt.Errorf("browser closed while waiting for network idle: %w", s.browserCtx.Err())
		case <-ticker.C:
		}
	}
}

// Count returns the number of nodes matching loc right now.
func (s *Session) Count(ctx context.Context, loc Locator) (int, error) {
	runCtx, cancel := s.actionCtx(ctx, s.opts.ActionTimeout)
	defer cancel()

	var n int
	if err := chromedp.Run(runCtx, chromedp.Evaluate(loc.countJS(), &n)); err != nil {
		return 0, fmt.Errorf("count %s: %w", loc.Name, err)
	}
	return n, nil
}

// Click clicks the first match once it is visible, waiting up to the action
// timeout.
func (s *Session) Click(ctx context.Context, loc Locator) error {
	runCtx, cancel := s.actionCtx(ctx, s.opts.ActionTimeout)
	defer cancel()

	s.logger.Debug("clicking", zap.String("locator", loc.Name))
	err := chromedp.Run(runCtx, chromedp.Click(loc.actionSelector(), loc.queryOption()))
	if err == nil {
		return nil
	}
	return s.explain(ctx, loc, "click", err)
}

// Fill waits for the first match to be visible, replaces its value and fires
// input/change events.
func (s *Session) Fill(ctx context.Context, loc Locator, text string) error {
	runCtx, cancel := s.actionCtx(ctx, s.opts.ActionTimeout)
	defer cancel()

	script := fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	el.focus();
	el.value = %s;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})()`, loc.firstJS(), jsString(text))

	var ok bool
	err := chromedp.Run(runCtx,
		chromedp.WaitVisible(loc.actionSelector(), loc.queryOption()),
		chromedp.Evaluate(script, &ok),
	)
	if err != nil {
		return s.explain(ctx, loc, "fill", err)
	}
	if !ok {
		return fmt.Errorf("fill %s: %w", loc.Name, ErrNotFound)
	}
	return nil
}

// OuterHTML returns the outer HTML of the first match.
func (s *Session) OuterHTML(ctx context.Context, loc Locator) (string, error) {
	runCtx, cancel := s.actionCtx(ctx, s.opts.ActionTimeout)
	defer cancel()

	var html string
	script := fmt.Sprintf(`(() => { const el = %s; return el ? el.outerHTML : ""; })()`, loc.firstJS())
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &html)); err != nil {
		return "", fmt.Errorf("outer html %s: %w", loc.Name, err)
	}
	if html == "" {
		return "", fmt.Errorf("outer html %s: %w", loc.Name, ErrNotFound)
	}
	return html, nil
}

// Document returns the serialized document and the current URL.
func (s *Session) Document(ctx context.Context) (string, string, error) {
	runCtx, cancel := s.actionCtx(ctx, s.opts.ActionTimeout)
	defer cancel()

	var html, location string
	err := chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		return "", "", fmt.Errorf("read document: %w", err)
	}
	return html, location, nil
}

// Screenshot captures the full scrollable page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := s.actionCtx(ctx, s.opts.ActionTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// explain turns a timed-out query into ErrNotFound when nothing matches.
func (s *Session) explain(ctx context.Context, loc Locator, action string, err error) error {
	if !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", action, loc.Name, err)
	}
	if n, cErr := s.Count(ctx, loc); cErr == nil && n == 0 {
		return fmt.Errorf("%s %s: %w", action, loc.Name, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", action, loc.Name, err)
}
