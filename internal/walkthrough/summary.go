package walkthrough

import (
	"fmt"
	"strings"
	"time"

	"github.com/rahul/dreamscope-smoke/internal/store"
)

// Summary renders a run as a short plain-text report for chat notifiers.
func Summary(run *store.Run, outputDir string) string {
	var b strings.Builder

	icon := "✅"
	switch run.Status {
	case store.RunWarnings:
		icon = "⚠️"
	case store.RunFailed:
		icon = "❌"
	}

	fmt.Fprintf(&b, "%s DreamScope smoke %s\n", icon, run.Status)
	fmt.Fprintf(&b, "target: %s\n", run.TargetURL)
	if run.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", run.Error)
	} else {
		fmt.Fprintf(&b, "dream entries: %d\n", run.EntryCount)
	}
	fmt.Fprintf(&b, "duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(100*time.Millisecond))

	for _, s := range run.Steps {
		if s.Outcome != store.OutcomeWarn {
			continue
		}
		if s.Index > 0 {
			fmt.Fprintf(&b, "- %02d %s: %s\n", s.Index, s.Name, s.Detail)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Detail)
		}
	}

	fmt.Fprintf(&b, "screenshots: %s/", outputDir)
	return b.String()
}
