/* scheduler.go
 * Contains the cron jobs that keep the current week's results fresh and periodically audit the pool
 * Authors: Zachary Bower
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"survivor-pool/api/shared"
)

type SchedulerConfig struct {
	RefreshSchedule  string
	AuditSchedule    string
	AuditAutoCorrect bool
}

// Scheduler runs refresh and audit jobs on cron schedules. An empty schedule disables that job
type Scheduler struct {
	api    *API
	cfg    SchedulerConfig
	cron   *cron.Cron
	logger *logrus.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler for the api. Jobs are added by Start
func NewScheduler(a *API, cfg SchedulerConfig) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(a.Logger)
	return &Scheduler{
		api:    a,
		cfg:    cfg,
		cron:   cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		logger: a.Logger,
	}
}

// Start adds the configured jobs and starts the cron runner.
// Preconditions: Receives a parent context, cancelling it stops running jobs
// Postconditions: Returns nil once jobs are scheduled, or an error for a bad schedule or a second Start
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if s.cfg.RefreshSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.RefreshSchedule, func() { s.RefreshJob(s.ctx) }); err != nil {
			s.cancel()
			return fmt.Errorf("failed to schedule refresh job: %w", err)
		}
	}
	if s.cfg.AuditSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.AuditSchedule, func() { s.AuditJob(s.ctx) }); err != nil {
			s.cancel()
			return fmt.Errorf("failed to schedule audit job: %w", err)
		}
	}

	s.cron.Start()
	s.running = true
	s.logger.WithFields(logrus.Fields{
		"component": "scheduler",
		"refresh":   s.cfg.RefreshSchedule,
		"audit":     s.cfg.AuditSchedule,
		"jobs":      len(s.cron.Entries()),
	}).Info("Scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
}

// Jobs returns the number of scheduled jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// RefreshJob refreshes the current week and recalculates the pool. Nothing runs before the first deadline
func (s *Scheduler) RefreshJob(ctx context.Context) {
	week := s.api.CurrentWeek()
	log := s.logger.WithFields(logrus.Fields{"component": "scheduler", "job": "refresh", "week": week})
	if week == 0 {
		log.Debug("No week has locked yet, skipping refresh")
		return
	}

	if _, err := s.api.RefreshWeek(ctx, week); err != nil {
		if !errors.Is(err, shared.ErrDataAmbiguous) {
			log.WithField("error", err).Warn("Refresh failed, statuses left as they are")
			return
		}
		log.WithField("error", err).Warn("Refresh found conflicting results")
	}
	report, err := s.api.RecalculatePool(ctx)
	if err != nil {
		log.WithField("error", err).Error("Recalculation failed")
		return
	}
	log.WithFields(logrus.Fields{"updated": len(report.Updated), "failed": len(report.Failed)}).Info("Refresh job done")
}

// AuditJob runs a full audit with the configured auto correction setting
func (s *Scheduler) AuditJob(ctx context.Context) {
	report, err := s.api.AuditPool(ctx, AuditOptions{AutoCorrect: s.cfg.AuditAutoCorrect})
	log := s.logger.WithFields(logrus.Fields{"component": "scheduler", "job": "audit", "run_id": report.RunID})
	if err != nil {
		log.WithField("error", err).Error("Audit job failed")
		return
	}
	if report.Discrepancies() > 0 || report.Errors > 0 {
		log.WithFields(logrus.Fields{
			"discrepancies": report.Discrepancies(),
			"errors":        report.Errors,
			"manual_review": report.ManualReview,
		}).Warn("Audit found problems")
	}
}
