package observability

import (
	"fmt"
	"io"
	"sync"
)

// Reporter prints the human-readable walkthrough narration: numbered stage
// headers followed by ✓ / ⚠ result lines.
type Reporter struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	stage int
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out, color: isTerminal(out)}
}

// Stage starts the next numbered section and returns its number.
func (r *Reporter) Stage(title string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage++
	if r.stage > 1 {
		fmt.Fprintln(r.out)
	}
	r.printf(colorBold, "%d. %s...", r.stage, title)
	return r.stage
}

func (r *Reporter) OK(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf(colorNeonCyan, "✓ "+format, args...)
}

func (r *Reporter) Warn(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf(colorYellow, "⚠ "+format, args...)
}

func (r *Reporter) Info(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("", "  "+format, args...)
}

func (r *Reporter) Fail(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf(colorRed, "✗ "+format, args...)
}

// Done prints the completion summary.
func (r *Reporter) Done(outputDir string, warnings int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	if warnings == 0 {
		r.printf(colorNeonMag, "✅ Testing completed! Screenshots saved in %s/", outputDir)
		return
	}
	r.printf(colorNeonMag, "✅ Testing completed with %d warning(s). Screenshots saved in %s/", warnings, outputDir)
}

// printf must be called with mu held.
func (r *Reporter) printf(color, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if r.color && color != "" {
		line = color + line + colorReset
	}
	fmt.Fprintln(r.out, line)
}
