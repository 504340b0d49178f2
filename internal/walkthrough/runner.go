package walkthrough

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rahul/dreamscope-smoke/internal/browser"
	"github.com/rahul/dreamscope-smoke/internal/governance"
	"github.com/rahul/dreamscope-smoke/internal/inspect"
	"github.com/rahul/dreamscope-smoke/internal/observability"
	"github.com/rahul/dreamscope-smoke/internal/store"
	"github.com/rahul/dreamscope-smoke/pkg/config"
)

// Page is the slice of a browser session the walkthrough drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitNetworkIdle(ctx context.Context) error
	Click(ctx context.Context, loc browser.Locator) error
	Fill(ctx context.Context, loc browser.Locator, text string) error
	Count(ctx context.Context, loc browser.Locator) (int, error)
	OuterHTML(ctx context.Context, loc browser.Locator) (string, error)
	Document(ctx context.Context) (html string, url string, err error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Opener acquires a fresh page. The runner owns what it returns.
type Opener func(ctx context.Context) (Page, error)

// Checkpoint indices and names. The numbering is fixed so that a skipped
// branch shows up as a gap in the screenshot directory.
const (
	shotInitial  = 1
	shotRecord   = 2
	shotHistory  = 3
	shotAnalysis = 4
	shotInput    = 5
	shotSaved    = 6
	shotListed   = 7
	shotSelected = 8
	shotAnalyzed = 9
	shotFinal    = 10
)

const previewRunes = 60

type Runner struct {
	cfg       *config.Config
	open      Opener
	policy    governance.PolicyEngine
	reporter  *observability.Reporter
	logger    *zap.Logger
	now       func() time.Time
	artifacts Artifacts

	recordBtn   browser.Locator
	historyBtn  browser.Locator
	analysisBtn browser.Locator
	saveBtn     browser.Locator
	input       browser.Locator
	entries     browser.Locator
	analyzeBtn  browser.Locator
}

type Option func(*Runner)

func WithPolicy(p governance.PolicyEngine) Option {
	return func(r *Runner) { r.policy = p }
}

func WithReporter(rep *observability.Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(cfg *config.Config, open Opener, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		open:      open,
		reporter:  observability.NewReporter(io.Discard),
		logger:    zap.NewNop(),
		now:       time.Now,
		artifacts: Artifacts{Dir: cfg.OutputDir},

		recordBtn:   browser.ButtonText("record button", cfg.UI.RecordLabel),
		historyBtn:  browser.ButtonText("history button", cfg.UI.HistoryLabel),
		analysisBtn: browser.ButtonText("analysis button", cfg.UI.AnalysisLabel),
		saveBtn:     browser.ButtonText("save button", cfg.UI.SaveLabel),
		input:       browser.CSS("dream input", cfg.UI.InputSelector),
		entries:     browser.CSS("dream entries", cfg.UI.EntrySelectors...),
		analyzeBtn:  browser.ButtonText("analyze button", cfg.UI.AnalyzeLabels...),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "walkthrough"))
	return r
}

// Run executes one full pass. Setup and initial-load failures are returned
// as errors; everything after that degrades to warnings recorded on the Run.
func (r *Runner) Run(ctx context.Context) (run *store.Run, err error) {
	run = &store.Run{
		ID:        uuid.NewString(),
		TargetURL: r.cfg.TargetURL,
		StartedAt: r.now(),
	}
	logger := r.logger.With(zap.String("run_id", run.ID))

	defer func() {
		run.FinishedAt = r.now()
		switch {
		case err != nil:
			run.Status = store.RunFailed
			run.Error = err.Error()
		case run.Warnings() > 0:
			run.Status = store.RunWarnings
		default:
			run.Status = store.RunPassed
		}
		logger.Info("run finished",
			observability.Event(observability.EventTypeRun),
			zap.String("status", string(run.Status)),
			zap.Int("warnings", run.Warnings()),
			zap.Int("entries", run.EntryCount),
			zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	}()

	if r.policy != nil {
		res, err := r.policy.Evaluate(ctx, governance.Request{TargetURL: r.cfg.TargetURL})
		if err != nil {
			return run, err
		}
		if res.Effect == governance.EffectDeny {
			return run, fmt.Errorf("target %s refused: %s", r.cfg.TargetURL, res.Reason)
		}
	}

	if err := r.artifacts.Ensure(); err != nil {
		return run, err
	}

	page, err := r.open(ctx)
	if err != nil {
		return run, fmt.Errorf("acquire browser session: %w", err)
	}
	release := sync.OnceValue(page.Close)
	defer func() {
		if cerr := release(); cerr != nil {
			logger.Warn("browser close failed", zap.Error(cerr))
		}
	}()

	w := &walk{Runner: r, page: page, run: run, logger: logger}
	if err := w.execute(ctx); err != nil {
		return run, err
	}

	if cerr := release(); cerr != nil {
		logger.Warn("browser close failed", zap.Error(cerr))
	}
	r.reporter.Done(r.cfg.OutputDir, run.Warnings())
	return run, nil
}

// walk holds the state of one pass.
type walk struct {
	*Runner
	page   Page
	run    *store.Run
	logger *zap.Logger
}

func (w *walk) execute(ctx context.Context) error {
	if err := w.loadApplication(ctx); err != nil {
		return err
	}
	if err := interrupted(ctx); err != nil {
		return err
	}
	w.checkNavigation(ctx)
	if err := interrupted(ctx); err != nil {
		return err
	}
	w.recordDream(ctx)
	if err := interrupted(ctx); err != nil {
		return err
	}
	count := w.checkHistory(ctx)
	if err := interrupted(ctx); err != nil {
		return err
	}
	w.analyze(ctx, count)
	if err := interrupted(ctx); err != nil {
		return err
	}
	w.finish(ctx)
	return nil
}

func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("walkthrough interrupted: %w", err)
	}
	return nil
}

// loadApplication is the only stage whose failure stops the run.
func (w *walk) loadApplication(ctx context.Context) error {
	w.reporter.Stage("Testing application display")

	if err := w.page.Navigate(ctx, w.cfg.TargetURL); err != nil {
		w.reporter.Fail("Application did not load: %v", err)
		return fmt.Errorf("initial page load: %w", err)
	}
	if err := w.page.WaitNetworkIdle(ctx); err != nil {
		w.reporter.Fail("Application did not settle: %v", err)
		return fmt.Errorf("initial page load: %w", err)
	}

	w.checkpoint(ctx, shotInitial, "initial_view", nil)
	w.reporter.OK("Application loaded successfully")
	return nil
}

func (w *walk) checkNavigation(ctx context.Context) {
	w.reporter.Stage("Testing navigation buttons")

	buttons := []struct {
		loc   browser.Locator
		index int
		shot  string
		label string
	}{
		{w.recordBtn, shotRecord, "record_view", "Record"},
		{w.historyBtn, shotHistory, "history_view", "History"},
		{w.analysisBtn, shotAnalysis, "analysis_view", "Analysis"},
	}

	for _, b := range buttons {
		err := w.page.Click(ctx, b.loc)
		w.settle(ctx, w.cfg.Settle.Short.Std())
		w.checkpoint(ctx, b.index, b.shot, err)
		if err != nil {
			w.reporter.Warn("%s button %s", b.label, describe(err))
			continue
		}
		w.reporter.OK("%s button works", b.label)
	}
}

func (w *walk) recordDream(ctx context.Context) {
	w.reporter.Stage("Testing dream recording function")

	complete := true
	if err := w.page.Click(ctx, w.recordBtn); err != nil {
		complete = false
		w.note("return_to_record", err)
		w.reporter.Warn("Could not return to record view: %s", describe(err))
	}
	w.settle(ctx, w.cfg.Settle.Short.Std())

	if err := w.page.Fill(ctx, w.input, DreamPayload(w.now())); err != nil {
		complete = false
		w.note("fill_dream_input", err)
		w.reporter.Warn("Dream input %s", describe(err))
	}
	w.checkpoint(ctx, shotInput, "dream_input", nil)

	if err := w.page.Click(ctx, w.saveBtn); err != nil {
		complete = false
		w.note("save_dream", err)
		w.reporter.Warn("Save button %s", describe(err))
	}
	w.settle(ctx, w.cfg.Settle.Save.Std())
	w.checkpoint(ctx, shotSaved, "after_save", nil)

	if complete {
		w.reporter.OK("Dream recording completed")
	} else {
		w.reporter.Warn("Dream recording incomplete")
	}
}

func (w *walk) checkHistory(ctx context.Context) int {
	w.reporter.Stage("Testing history display")

	clickErr := w.page.Click(ctx, w.historyBtn)
	w.settle(ctx, w.cfg.Settle.History.Std())

	count, countErr := w.page.Count(ctx, w.entries)
	if countErr != nil {
		count = 0
	}
	w.run.EntryCount = count

	var stepErr error
	switch {
	case clickErr != nil:
		stepErr = fmt.Errorf("history button: %w", clickErr)
	case countErr != nil:
		stepErr = countErr
	case count == 0:
		stepErr = errors.New("no dream entries found")
	}
	w.checkpoint(ctx, shotListed, "history_with_dream", stepErr)

	if clickErr != nil {
		w.reporter.Warn("History button %s", describe(clickErr))
	}
	if countErr != nil {
		w.reporter.Warn("Could not count dream entries: %v", countErr)
	}
	if count == 0 {
		w.reporter.Warn("Found 0 dream entries in history")
		return 0
	}

	w.reporter.OK("Found %d dream entries in history", count)
	if fragment, err := w.page.OuterHTML(ctx, w.entries); err == nil {
		w.reporter.Info("first entry: %s", inspect.TextPreview(fragment, previewRunes))
	}
	return count
}

func (w *walk) analyze(ctx context.Context, count int) {
	w.reporter.Stage("Testing AI analysis function")

	if count == 0 {
		w.skip(shotSelected, "dream_selected", "no dream entries")
		w.skip(shotAnalyzed, "ai_analysis_result", "no dream entries")
		w.reporter.Warn("No dreams found to analyze")
		return
	}

	err := w.page.Click(ctx, w.entries)
	w.settle(ctx, w.cfg.Settle.Short.Std())
	w.checkpoint(ctx, shotSelected, "dream_selected", err)
	if err != nil {
		w.reporter.Warn("First dream entry %s", describe(err))
	}

	n, err := w.page.Count(ctx, w.analyzeBtn)
	if err != nil || n == 0 {
		w.skip(shotAnalyzed, "ai_analysis_result", "analyze button not found")
		w.reporter.Warn("AI analysis button not found")
		return
	}

	err = w.page.Click(ctx, w.analyzeBtn)
	w.settle(ctx, w.cfg.Settle.Analysis.Std())
	w.checkpoint(ctx, shotAnalyzed, "ai_analysis_result", err)
	if err != nil {
		w.reporter.Warn("AI analysis button %s", describe(err))
		return
	}
	w.reporter.OK("AI analysis executed")
}

func (w *walk) finish(ctx context.Context) {
	w.checkpoint(ctx, shotFinal, "final_state", nil)

	doc, location, err := w.page.Document(ctx)
	if err != nil {
		w.logger.Warn("final document unavailable", zap.Error(err))
		return
	}
	digest, err := inspect.PageDigest(doc, location)
	if err != nil {
		w.logger.Warn("final page digest failed", zap.Error(err))
		return
	}
	w.logger.Info("final page",
		zap.String("title", digest.Title),
		zap.String("excerpt", digest.Excerpt),
		zap.Int("text_length", digest.TextLength))
	w.reporter.Info("final page: %q (%d characters of text)", digest.Title, digest.TextLength)
}

// checkpoint captures a screenshot and records the step. actionErr marks the
// step as a warning; the screenshot is taken either way.
func (w *walk) checkpoint(ctx context.Context, index int, name string, actionErr error) {
	step := store.Step{Index: index, Name: name, Outcome: store.OutcomeOK, At: w.now()}
	if actionErr != nil {
		step.Outcome = store.OutcomeWarn
		step.Detail = actionErr.Error()
	}

	png, err := w.page.Screenshot(ctx)
	if err == nil {
		step.Screenshot, err = w.artifacts.Write(index, name, png)
	}
	if err != nil {
		step.Outcome = store.OutcomeWarn
		step.Detail = joinDetail(step.Detail, err.Error())
		w.reporter.Warn("Screenshot %02d_%s failed: %v", index, name, err)
	}

	w.record(step)
}

// note records a warning for an action that has no screenshot of its own.
func (w *walk) note(name string, err error) {
	w.record(store.Step{Name: name, Outcome: store.OutcomeWarn, Detail: err.Error(), At: w.now()})
}

func (w *walk) skip(index int, name, reason string) {
	w.record(store.Step{Index: index, Name: name, Outcome: store.OutcomeSkip, Detail: reason, At: w.now()})
}

func (w *walk) record(step store.Step) {
	w.run.Steps = append(w.run.Steps, step)

	fields := []zap.Field{
		observability.Event(observability.EventTypeStep),
		zap.Int("index", step.Index),
		zap.String("name", step.Name),
		zap.String("outcome", string(step.Outcome)),
	}
	if step.Screenshot != "" {
		fields = append(fields, zap.String("screenshot", step.Screenshot))
	}
	if step.Detail != "" {
		fields = append(fields, zap.String("detail", step.Detail))
	}
	if step.Outcome == store.OutcomeWarn {
		w.logger.Warn("step", fields...)
		return
	}
	w.logger.Info("step", fields...)
}

// settle waits a fixed delay for the page to catch up.
func (w *walk) settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func describe(err error) string {
	if errors.Is(err, browser.ErrNotFound) {
		return "not found"
	}
	return fmt.Sprintf("failed: %v", err)
}

func joinDetail(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
