/* audit.go
 * Contains the integrity auditor. It recomputes every member's status from scratch, compares it with what is
 * persisted and, when asked to, writes back corrections that are safe to apply automatically
 * Authors: Zachary Bower
 */

package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"survivor-pool/api/shared"
)

// AuditPool reconciles every member's persisted status against a fresh evaluation.
// Preconditions: Receives a context, checked between members, and audit options
// Postconditions: Returns the report, which is also persisted. A member that fails to evaluate is recorded as ERROR
// and the batch carries on. If the context is cancelled the partial report is returned, marked cancelled, together
// with the context error. Returns an error without a report only if the members could not be listed
func (a *API) AuditPool(ctx context.Context, opts AuditOptions) (shared.AuditReport, error) {
	if err := a.waitReady(ctx); err != nil {
		return shared.AuditReport{}, err
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = a.opts.AuditConcurrency
	}

	report := shared.AuditReport{
		RunID:       uuid.New().String(),
		PoolID:      a.Store.GetPoolID(),
		StartedAt:   a.now(),
		AutoCorrect: opts.AutoCorrect,
		Entries:     []shared.AuditEntry{},
	}
	log := a.Logger.WithFields(logrus.Fields{"component": "audit", "run_id": report.RunID, "pool": report.PoolID})

	members, err := a.Store.ListMembers(ctx)
	if err != nil {
		return shared.AuditReport{}, fmt.Errorf("failed to list members: %w", err)
	}

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return shared.AuditReport{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	entries := make([]shared.AuditEntry, len(members))
	done := make([]bool, len(members))

	var workers sync.WaitGroup
	for i, member := range members {
		if ctx.Err() != nil {
			break
		}
		i, member := i, member
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			if ctx.Err() != nil {
				return
			}
			entries[i] = a.auditMember(ctx, member, opts.AutoCorrect, report.RunID)
			done[i] = true
		}); err != nil {
			workers.Done()
			entries[i] = shared.AuditEntry{
				UserID:         member.UserID,
				DisplayName:    member.DisplayName,
				Classification: shared.AuditError,
				Error:          fmt.Sprintf("submit to worker pool: %v", err),
			}
			done[i] = true
		}
	}
	workers.Wait()

	for i := range entries {
		if done[i] {
			report.Entries = append(report.Entries, entries[i])
		}
	}
	report.Cancelled = len(report.Entries) < len(members)
	report.Tally()
	report.FinishedAt = a.now()

	saveCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
	}
	if err := a.Store.SaveAuditReport(saveCtx, report); err != nil {
		log.WithField("error", err).Error("Failed to persist audit report")
		return report, fmt.Errorf("audit finished but report was not saved: %w", err)
	}

	log.WithFields(logrus.Fields{
		"total":         report.Total,
		"matches":       report.Matches,
		"missing":       report.MissingPersisted,
		"mismatches":    report.Mismatches,
		"errors":        report.Errors,
		"corrected":     report.Corrected,
		"manual_review": report.ManualReview,
		"cancelled":     report.Cancelled,
	}).Info("Audit finished")

	if report.Cancelled {
		return report, fmt.Errorf("audit stopped after %d of %d members: %w", len(report.Entries), len(members), ctx.Err())
	}
	return report, nil
}

// auditMember classifies one member and applies a correction when it is safe to
func (a *API) auditMember(ctx context.Context, member shared.PoolMember, autoCorrect bool, runID string) shared.AuditEntry {
	entry := shared.AuditEntry{UserID: member.UserID, DisplayName: member.DisplayName, Persisted: member.Survivor}

	recomputed, err := a.evaluate(ctx, member.UserID)
	if err != nil {
		entry.Classification = shared.AuditError
		entry.Error = err.Error()
		return entry
	}
	entry.Recomputed = &recomputed

	switch {
	case member.Survivor == nil:
		entry.Classification = shared.AuditMissingPersisted
	case member.Survivor.SameOutcome(recomputed):
		entry.Classification = shared.AuditMatch
		return entry
	default:
		entry.Classification = shared.AuditStatusMismatch
		entry.Differences = differences(*member.Survivor, recomputed)
	}

	if reason := reviewReason(member.Survivor, recomputed); reason != "" {
		entry.ManualReview = true
		entry.ReviewReason = reason
		return entry
	}
	if !autoCorrect {
		return entry
	}

	now := a.now()
	corrected := recomputed
	corrected.AutoCorrected = true
	corrected.CorrectedAt = now
	corrected.UpdatedAt = now
	corrected.CorrectionReason = fmt.Sprintf("audit %s: %s", runID, entry.Classification)
	if err := a.Store.SaveSurvivorStatus(ctx, member.UserID, corrected); err != nil {
		entry.Error = fmt.Sprintf("auto correction failed: %v", err)
		return entry
	}
	entry.AutoCorrected = true
	entry.Recomputed = &corrected
	a.invalidate(member.UserID)
	return entry
}

// reviewReason returns why a correction must not be applied automatically, or "" if it is safe
func reviewReason(persisted *shared.SurvivorStatus, recomputed shared.SurvivorStatus) string {
	if err := guard(persisted, recomputed); err != nil {
		return err.Error()
	}
	if recomputed.StaleData {
		return "recomputed from stale results"
	}
	if persisted == nil {
		return ""
	}
	if persisted.IsEliminated() {
		return "persisted elimination differs from the recomputation"
	}
	if recomputed.Week < persisted.Week {
		return fmt.Sprintf("recomputed status regresses from Week %d to Week %d", persisted.Week, recomputed.Week)
	}
	return ""
}

// differences lists the engine derived fields that disagree
func differences(persisted shared.SurvivorStatus, recomputed shared.SurvivorStatus) []string {
	var diffs []string
	if persisted.State != recomputed.State {
		diffs = append(diffs, fmt.Sprintf("state: %s -> %s", persisted.State, recomputed.State))
	}
	if persisted.Alive != recomputed.Alive {
		diffs = append(diffs, fmt.Sprintf("alive: %t -> %t", persisted.Alive, recomputed.Alive))
	}
	if persisted.Week != recomputed.Week {
		diffs = append(diffs, fmt.Sprintf("week: %d -> %d", persisted.Week, recomputed.Week))
	}
	if persisted.EliminatedWeek != recomputed.EliminatedWeek {
		diffs = append(diffs, fmt.Sprintf("eliminated_week: %d -> %d", persisted.EliminatedWeek, recomputed.EliminatedWeek))
	}
	if persisted.EliminationReason != recomputed.EliminationReason {
		diffs = append(diffs, fmt.Sprintf("elimination_reason: '%s' -> '%s'", persisted.EliminationReason, recomputed.EliminationReason))
	}
	if strings.Join(persisted.PickHistory, ",") != strings.Join(recomputed.PickHistory, ",") {
		diffs = append(diffs, fmt.Sprintf("pick_history: [%s] -> [%s]",
			strings.Join(persisted.PickHistory, ", "), strings.Join(recomputed.PickHistory, ", ")))
	}
	return diffs
}
