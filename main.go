//go:build !test

/* main.go
 * The "main" method for running the survivor pool service. Loads config, connects the store and results provider,
 * then runs the scheduler, web server and discord bot until interrupted
 * Usage: go run . -env=".env" -test="false" [-audit] [-poll=<week>]
 * Authors: Zachary Bower
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"survivor-pool/api/api"
	"survivor-pool/api/config"
	"survivor-pool/api/external"
	"survivor-pool/api/logger"
	"survivor-pool/api/logic"
	"survivor-pool/bot"
	"survivor-pool/web"
)

func main() {
	//Flags
	envPtr := flag.String("env", ".env", "Path of the .env file to load")
	testPtr := flag.String("test", "false", "Use main or test bot: takes true or false as argument")
	auditPtr := flag.Bool("audit", false, "Run one pool audit, print the summary and exit")
	pollPtr := flag.Int("poll", 0, "Poll the given week until every game is final, recalculate the pool and exit")
	flag.Parse()

	cfg, err := config.Load(*envPtr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	testBot, err := convertStrToBool(*testPtr)
	if err != nil {
		log.Fatal("Invalid \"test\" flag. Should be true or false")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, testBot, oneShot{audit: *auditPtr, pollWeek: *pollPtr}); err != nil {
		log.WithError(err).Fatal("Survivor pool stopped")
	}
}

// oneShot selects a single task to run instead of the long running service
type oneShot struct {
	audit    bool
	pollWeek int
}

// run wires the components together and blocks until the context is cancelled or a component fails
func run(ctx context.Context, cfg config.Config, log *logrus.Logger, testBot bool, once oneShot) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.WithError(err).Error("Failed to close store")
		}
	}()

	provider := external.NewESPNClient(external.ESPNConfig{
		BaseURL:           cfg.ESPNBaseURL,
		RequestsPerSecond: cfg.ProviderRPS,
		Timeout:           cfg.ProviderTimeout,
	}, log)

	a, err := api.NewAPI(api.Dependencies{
		Store:    st,
		Provider: provider,
		Engine:   logic.NewEngine(logic.Options{TieRule: cfg.TieRuleValue()}),
		Logger:   log,
	}, apiOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	if err := a.Init(ctx); err != nil {
		return err
	}

	if once.pollWeek != 0 {
		polls, err := a.PollWeek(ctx, once.pollWeek)
		fmt.Printf("Week %d: %d polls\n", once.pollWeek, polls)
		return err
	}
	if once.audit {
		report, err := a.AuditPool(ctx, api.AuditOptions{AutoCorrect: cfg.AuditAutoCorrect})
		fmt.Printf("Audit %s: %d members, %d match, %d missing, %d mismatched, %d errors, %d corrected, %d need review\n",
			report.RunID, report.Total, report.Matches, report.MissingPersisted, report.Mismatches, report.Errors,
			report.Corrected, report.ManualReview)
		return err
	}

	scheduler := api.NewScheduler(a, schedulerConfig(cfg))
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	// The first component to fail stops the others
	components := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	components.Go(func(ctx context.Context) error {
		return web.Start(ctx, web.Config{Addr: cfg.HTTPAddr, API: a, StatusTTL: cfg.StatusCacheTTL, Logger: log})
	})

	token := cfg.DiscordToken(testBot)
	if token == "" {
		log.Warn("No discord token configured, the bot will not start")
	} else {
		b, err := bot.NewBot(token, a, cfg.AdminIDs(), log)
		if err != nil {
			return err
		}
		components.Go(b.Run)
	}

	log.WithFields(logrus.Fields{
		"pool":    cfg.PoolID,
		"season":  cfg.Season,
		"week":    cfg.CurrentWeek,
		"backend": cfg.StoreBackend,
	}).Info("Survivor pool running")
	return components.Wait()
}
