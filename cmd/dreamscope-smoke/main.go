package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rahul/dreamscope-smoke/internal/browser"
	"github.com/rahul/dreamscope-smoke/internal/gateway"
	"github.com/rahul/dreamscope-smoke/internal/governance"
	"github.com/rahul/dreamscope-smoke/internal/observability"
	"github.com/rahul/dreamscope-smoke/internal/store"
	"github.com/rahul/dreamscope-smoke/internal/walkthrough"
	"github.com/rahul/dreamscope-smoke/pkg/config"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always executes.
func run() int {
	observability.PrintBanner(os.Stdout)
	log.SetFlags(0)
	log.SetPrefix("[dreamscope-smoke] ")

	cfg, err := config.LoadConfig(config.Resolve())
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		log.Printf("logger: %v", err)
		return 1
	}
	defer logger.Sync()

	policy, err := newPolicy(cfg.Policy)
	if err != nil {
		log.Printf("policy: %v", err)
		return 1
	}

	var history *store.HistoryStore
	if cfg.Journal.Path != "" {
		history, err = store.NewHistoryStore(cfg.Journal.Path)
		if err != nil {
			log.Printf("journal: %v", err)
			return 1
		}
		defer history.Close()
	}

	reporter := observability.NewReporter(os.Stdout)
	if history != nil {
		reportPreviousRun(reporter, history, cfg.TargetURL, logger)
	}

	messengers := newMessengers(cfg, logger)

	// Ctrl-C cancels the walkthrough; the browser is still closed on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := browser.Options{
		Headless:          cfg.Browser.Headless,
		WindowWidth:       cfg.Browser.WindowWidth,
		WindowHeight:      cfg.Browser.WindowHeight,
		ExecPath:          cfg.Browser.ExecPath,
		ActionTimeout:     cfg.Browser.ActionTimeout.Std(),
		NavigationTimeout: cfg.Navigation.Timeout.Std(),
		IdleQuiet:         cfg.Navigation.IdleQuiet.Std(),
		MaxInflight:       cfg.Navigation.MaxInflight,
	}
	open := func(ctx context.Context) (walkthrough.Page, error) {
		s, err := browser.Open(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	runner := walkthrough.NewRunner(cfg, open,
		walkthrough.WithPolicy(policy),
		walkthrough.WithReporter(reporter),
		walkthrough.WithLogger(logger),
	)

	result, runErr := runner.Run(ctx)
	if runErr != nil {
		reporter.Fail("Walkthrough aborted: %v", runErr)
	}

	if history != nil {
		if err := history.SaveRun(result); err != nil {
			logger.Warn("journal write failed", zap.Error(err))
		}
	}

	if len(messengers) > 0 {
		// The run context may already be cancelled; delivery gets its own budget.
		notifyCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := gateway.Broadcast(notifyCtx, messengers, walkthrough.Summary(result, cfg.OutputDir))
		cancel()
		if err != nil {
			logger.Warn("notification failed", observability.Event(observability.EventTypeNotify), zap.Error(err))
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}

// reportPreviousRun prints the last journaled result for the target so a
// regression stands out before the new walkthrough starts.
func reportPreviousRun(r *observability.Reporter, history *store.HistoryStore, target string, logger *zap.Logger) {
	prev, err := history.LastRun(target)
	if err != nil {
		logger.Warn("journal read failed", zap.Error(err))
		return
	}
	if prev == nil {
		return
	}
	r.Info("Previous run %s: %s, %d dream entries, %d warning(s)",
		prev.StartedAt.Local().Format("2006-01-02 15:04"), prev.Status, prev.EntryCount, prev.Warnings())
}

func newPolicy(cfg config.PolicyConfig) (*governance.DefaultPolicyEngine, error) {
	gov := governance.NewDefaultPolicyEngine()
	for _, h := range cfg.AllowedHosts {
		gov.AllowHost(h)
	}
	for _, p := range cfg.DeniedPatterns {
		if err := gov.DenyPattern(p); err != nil {
			return nil, err
		}
	}
	return gov, nil
}

func newMessengers(cfg *config.Config, logger *zap.Logger) []gateway.Messenger {
	var out []gateway.Messenger

	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, tgCfg.ChatID)
		if err != nil {
			logger.Warn("telegram gateway disabled", zap.Error(err))
		} else {
			out = append(out, tg)
		}
	}

	if dcCfg, ok := cfg.GetDiscordConfig(); ok {
		dc, err := gateway.NewDiscordGateway(dcCfg.Token, dcCfg.ChannelID)
		if err != nil {
			logger.Warn("discord gateway disabled", zap.Error(err))
		} else {
			out = append(out, dc)
		}
	}

	return out
}
