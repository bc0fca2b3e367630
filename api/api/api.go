/* api.go
 * This file contains the public methods for interacting with this package. Consumers (the bot, the web handlers and
 * the scheduler) should only call the methods in this package, not the sub packages for the cache, engine and store
 * Authors: Zachary Bower
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"survivor-pool/api/cache"
	"survivor-pool/api/external"
	"survivor-pool/api/logic"
	"survivor-pool/api/shared"
	"survivor-pool/api/store"
	"survivor-pool/api/teams"
)

// ErrPollBudgetExhausted is returned by PollWeek when the week is still not final after the last allowed poll
var ErrPollBudgetExhausted = errors.New("poll budget exhausted")

// PendingDisplayReason is shown for members whose status cannot be evaluated right now
const PendingDisplayReason = "status pending - awaiting data"

// Dependencies are the collaborators an API is built from. Cache, Engine, Logger and Now are optional
type Dependencies struct {
	Store    store.Interface
	Provider external.Provider
	Cache    *cache.ResultsCache
	Engine   *logic.Engine
	Logger   *logrus.Logger
	Now      func() time.Time
}

// API provides methods for interacting with the survivor pool
type API struct {
	Store    store.Interface
	Provider external.Provider
	Cache    *cache.ResultsCache
	Engine   *logic.Engine
	Logger   *logrus.Logger

	opts Options
	now  func() time.Time

	mu           sync.RWMutex
	currentWeek  int
	invalidators []StatusInvalidator

	initOnce sync.Once
	ready    chan struct{}
	initErr  error
}

// NewAPI creates a new API instance from its dependencies. The API is not usable until Init has completed
// Preconditions: Receives dependencies with a non nil Store and Provider, and options
// Postconditions: Returns the API, or an error if a required dependency is missing
func NewAPI(deps Dependencies, opts Options) (*API, error) {
	if deps.Store == nil || deps.Provider == nil {
		return nil, fmt.Errorf("store and provider are required")
	}
	if opts.CurrentWeek < 0 || opts.CurrentWeek > shared.LastWeek {
		return nil, fmt.Errorf("current week %d is outside 0-%d", opts.CurrentWeek, shared.LastWeek)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewResultsCache(deps.Now)
	}
	if deps.Engine == nil {
		deps.Engine = logic.NewEngine(logic.Options{})
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = 500 * time.Millisecond
	}
	if opts.RetryMaxInterval <= 0 {
		opts.RetryMaxInterval = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Minute
	}
	if opts.PollMaxIterations <= 0 {
		opts.PollMaxIterations = 48
	}
	if opts.AuditConcurrency <= 0 {
		opts.AuditConcurrency = 4
	}

	return &API{
		Store:       deps.Store,
		Provider:    deps.Provider,
		Cache:       deps.Cache,
		Engine:      deps.Engine,
		Logger:      deps.Logger,
		opts:        opts,
		now:         deps.Now,
		currentWeek: opts.CurrentWeek,
		ready:       make(chan struct{}),
	}, nil
}

// Init restores persisted week results and manual overrides into the cache, then signals Ready. Only the first call
// does any work, later calls return the first call's result
// Preconditions: Receives a context
// Postconditions: Ready is closed whether or not loading succeeded. Returns the load error, if any
func (a *API) Init(ctx context.Context) error {
	a.initOnce.Do(func() {
		defer close(a.ready)

		snaps, err := a.Store.LoadWeekSnapshots(ctx)
		if err != nil {
			a.initErr = fmt.Errorf("failed to restore week results: %w", err)
			return
		}
		overrides := 0
		for _, snap := range snaps {
			a.Cache.Restore(snap)
			overrides += len(snap.Overrides)
		}
		a.Logger.WithFields(logrus.Fields{
			"component": "api",
			"pool":      a.Store.GetPoolID(),
			"weeks":     len(snaps),
			"overrides": overrides,
		}).Info("Restored week results")
	})
	return a.initErr
}

// Ready is closed once Init has finished
func (a *API) Ready() <-chan struct{} {
	return a.ready
}

// waitReady blocks until Init has finished or the context is done
func (a *API) waitReady(ctx context.Context) error {
	select {
	case <-a.ready:
		return a.initErr
	default:
	}
	select {
	case <-a.ready:
		return a.initErr
	case <-ctx.Done():
		return fmt.Errorf("waiting for initialization: %w", ctx.Err())
	}
}

// CurrentWeek returns the latest week whose pick deadline has passed, 0 if unknown
func (a *API) CurrentWeek() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentWeek
}

// SetCurrentWeek moves the pick deadline forward or back
func (a *API) SetCurrentWeek(week int) error {
	if week < 0 || week > shared.LastWeek {
		return fmt.Errorf("week %d is outside 0-%d", week, shared.LastWeek)
	}
	a.mu.Lock()
	a.currentWeek = week
	a.mu.Unlock()
	return nil
}

// AddInvalidator registers a cache of derived statuses to be told about persisted status changes
func (a *API) AddInvalidator(inv StatusInvalidator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.invalidators = append(a.invalidators, inv)
}

func (a *API) invalidate(userID string) {
	a.mu.RLock()
	invs := a.invalidators
	a.mu.RUnlock()
	for _, inv := range invs {
		inv.Invalidate(userID)
	}
}

// RefreshWeek fetches a week from the provider, validates it and merges it into the cache, retrying provider failures
// with exponential backoff.
// Preconditions: Receives a context and a week number
// Postconditions: Returns a report of what changed. The cache keeps its previous contents if the provider could not be
// reached, in which case a ProviderUnavailable error is returned. A DataAmbiguous error is returned, alongside a
// report, when the provider listed a team in two games
func (a *API) RefreshWeek(ctx context.Context, week int) (RefreshReport, error) {
	if week < shared.FirstWeek || week > shared.LastWeek {
		return RefreshReport{}, fmt.Errorf("week %d is outside %d-%d", week, shared.FirstWeek, shared.LastWeek)
	}
	if err := a.waitReady(ctx); err != nil {
		return RefreshReport{}, err
	}

	log := a.Logger.WithFields(logrus.Fields{"component": "refresh", "week": week})
	season := a.Store.GetSeason()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = a.opts.RetryInitialInterval
	expo.MaxInterval = a.opts.RetryMaxInterval

	games, err := backoff.Retry(ctx, func() ([]shared.GameResult, error) {
		games, err := a.Provider.FetchWeek(ctx, season, week)
		if err != nil && !errors.Is(err, shared.ErrProviderUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return games, err
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(a.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithFields(logrus.Fields{"error": err, "retry_in": next.String()}).Warn("Provider request failed, retrying")
		}),
	)
	if err != nil {
		log.WithField("error", err).Error("Failed to refresh week, keeping cached results")
		return RefreshReport{}, err
	}

	accepted, rejected := external.ValidateGames(games, week)
	for _, r := range rejected {
		log.WithFields(logrus.Fields{"game_id": r.Game.GameID, "reason": r.Reason}).Warn("Rejected provider game")
	}

	storeReport, storeErr := a.Cache.Store(week, accepted)
	report := RefreshReport{StoreReport: storeReport, Fetched: len(games), Rejected: rejected}

	if err := a.Store.SaveWeekSnapshot(ctx, a.Cache.Snapshot(week)); err != nil {
		return report, fmt.Errorf("failed to persist week %d results: %w", week, err)
	}

	log.WithFields(logrus.Fields{
		"fetched":   report.Fetched,
		"rejected":  len(report.Rejected),
		"added":     report.Added,
		"updated":   report.Updated,
		"skipped":   report.Skipped,
		"conflicts": len(report.Conflicts),
	}).Info("Refreshed week")
	return report, storeErr
}

// PollWeek refreshes a week until every game in it is final or the iteration budget runs out, then recalculates the
// pool.
// Preconditions: Receives a context and a week number
// Postconditions: Returns the number of polls made. Returns ErrPollBudgetExhausted if the week never became final,
// the context error if cancelled, or any non provider error from a refresh
func (a *API) PollWeek(ctx context.Context, week int) (int, error) {
	log := a.Logger.WithFields(logrus.Fields{"component": "poll", "week": week})

	for i := 1; i <= a.opts.PollMaxIterations; i++ {
		_, err := a.RefreshWeek(ctx, week)
		if err != nil && !errors.Is(err, shared.ErrProviderUnavailable) && !errors.Is(err, shared.ErrDataAmbiguous) {
			return i, err
		}
		if a.Cache.WeekFinal(week) {
			if _, err := a.RecalculatePool(ctx); err != nil {
				return i, err
			}
			log.WithField("polls", i).Info("Week is final")
			return i, nil
		}
		if i == a.opts.PollMaxIterations {
			break
		}

		select {
		case <-ctx.Done():
			return i, ctx.Err()
		case <-time.After(a.opts.PollInterval):
		}
	}
	log.WithField("polls", a.opts.PollMaxIterations).Warn("Week still not final, giving up")
	return a.opts.PollMaxIterations, fmt.Errorf("week %d after %d polls: %w", week, a.opts.PollMaxIterations, ErrPollBudgetExhausted)
}

// evaluate recomputes a member's status from their stored picks and the cache. Nothing is written
func (a *API) evaluate(ctx context.Context, userID string) (shared.SurvivorStatus, error) {
	picks, err := a.Store.GetPicks(ctx, userID)
	if err != nil {
		return shared.SurvivorStatus{}, err
	}
	return a.Engine.EvaluateThrough(picks, a.Cache.View(a.opts.CacheMaxAge), a.CurrentWeek())
}

// guard checks that replacing previous with recomputed cannot rewrite a recorded elimination
func guard(previous *shared.SurvivorStatus, recomputed shared.SurvivorStatus) error {
	if err := logic.CheckMonotonic(previous, recomputed); err != nil {
		return err
	}
	if previous != nil && previous.IsEliminated() && recomputed.EliminatedWeek > previous.EliminatedWeek {
		return shared.IntegrityViolationf("recomputed elimination moves later from Week %d to Week %d, needs review",
			previous.EliminatedWeek, recomputed.EliminatedWeek)
	}
	return nil
}

// RecalculateMember re-evaluates one member and persists the result if it changed.
// Preconditions: Receives a context and the member's user id
// Postconditions: Returns the recomputed status and whether it was written. A status that would move or clear a
// recorded elimination is not written and an IntegrityViolation error is returned with it
func (a *API) RecalculateMember(ctx context.Context, userID string) (MemberResult, error) {
	if err := a.waitReady(ctx); err != nil {
		return MemberResult{}, err
	}
	member, err := a.Store.GetMember(ctx, userID)
	if err != nil {
		return MemberResult{}, err
	}
	return a.recalculate(ctx, member)
}

func (a *API) recalculate(ctx context.Context, member shared.PoolMember) (MemberResult, error) {
	result := MemberResult{UserID: member.UserID}
	status, err := a.evaluate(ctx, member.UserID)
	if err != nil {
		return result, fmt.Errorf("failed to evaluate %s: %w", member.UserID, err)
	}
	result.Status = status

	if err := guard(member.Survivor, status); err != nil {
		a.Logger.WithFields(logrus.Fields{
			"component": "recalculate",
			"user_id":   member.UserID,
			"error":     err,
		}).Error("Refusing to overwrite elimination")
		return result, err
	}
	if member.Survivor != nil && member.Survivor.SameOutcome(status) && member.Survivor.StaleData == status.StaleData {
		return result, nil
	}

	status.UpdatedAt = a.now()
	if err := a.Store.SaveSurvivorStatus(ctx, member.UserID, status); err != nil {
		return result, err
	}
	result.Status = status
	result.Changed = true
	a.invalidate(member.UserID)
	return result, nil
}

// RecalculatePool re-evaluates every member of the pool. One member failing does not stop the others.
// Preconditions: Receives a context, checked between members
// Postconditions: Returns which members were updated, unchanged or failed, or an error if the members could not be
// listed
func (a *API) RecalculatePool(ctx context.Context) (RecalculateReport, error) {
	report := RecalculateReport{Failed: make(map[string]string)}
	if err := a.waitReady(ctx); err != nil {
		return report, err
	}
	members, err := a.Store.ListMembers(ctx)
	if err != nil {
		return report, err
	}

	for _, member := range members {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		res, err := a.recalculate(ctx, member)
		switch {
		case err != nil:
			report.Failed[member.UserID] = err.Error()
		case res.Changed:
			report.Updated = append(report.Updated, member.UserID)
		default:
			report.Unchanged = append(report.Unchanged, member.UserID)
		}
	}

	a.Logger.WithFields(logrus.Fields{
		"component": "recalculate",
		"pool":      a.Store.GetPoolID(),
		"updated":   len(report.Updated),
		"unchanged": len(report.Unchanged),
		"failed":    len(report.Failed),
	}).Info("Recalculated pool")
	return report, nil
}

// CheckSurvivor computes a member's current status for display without writing it.
// Preconditions: Receives a context and the member's user id
// Postconditions: Returns the status, or a DataMissing error if the member is not in the pool. A recorded
// elimination always wins over a recomputation that disagrees with it, and a member who cannot be evaluated is shown
// as pending
func (a *API) CheckSurvivor(ctx context.Context, userID string) (shared.SurvivorStatus, error) {
	if err := a.waitReady(ctx); err != nil {
		return shared.SurvivorStatus{}, err
	}
	member, err := a.Store.GetMember(ctx, userID)
	if err != nil {
		return shared.SurvivorStatus{}, err
	}

	status, err := a.evaluate(ctx, userID)
	if err != nil {
		a.Logger.WithFields(logrus.Fields{
			"component": "status",
			"user_id":   userID,
			"error":     err,
		}).Warn("Could not evaluate member")
		if member.Survivor != nil && member.Survivor.IsEliminated() {
			return *member.Survivor, nil
		}
		pending := shared.NewSurvivorStatus()
		pending.State = shared.StatePending
		pending.Week = a.CurrentWeek()
		pending.PendingReason = PendingDisplayReason
		pending.Warnings = []string{err.Error()}
		if member.Survivor != nil {
			pending.PickHistory = member.Survivor.PickHistory
		}
		return pending, nil
	}

	if guard(member.Survivor, status) != nil {
		return *member.Survivor, nil
	}
	return status, nil
}

// OverrideResult records an operator correction for a team's game and persists it.
// Preconditions: Receives a context, hand typed team and winner names (or "tie"), the week and a free text scoreline
// Postconditions: The override is in the cache and stored with the week's results, or an error is returned
func (a *API) OverrideResult(ctx context.Context, teamInput string, week int, winnerInput string, scoreline string) error {
	if err := a.waitReady(ctx); err != nil {
		return err
	}
	team, err := teams.Resolve(teamInput)
	if err != nil {
		return err
	}
	winner := shared.WinnerTie
	if !strings.EqualFold(strings.TrimSpace(winnerInput), shared.WinnerTie) {
		if winner, err = teams.Resolve(winnerInput); err != nil {
			return err
		}
	}

	if err := a.Cache.SetManualOverride(team, week, winner, scoreline); err != nil {
		return err
	}
	if err := a.Store.SaveWeekSnapshot(ctx, a.Cache.Snapshot(week)); err != nil {
		return fmt.Errorf("override applied but not persisted: %w", err)
	}

	a.Logger.WithFields(logrus.Fields{
		"component": "override",
		"team":      team,
		"week":      week,
		"winner":    winner,
		"scoreline": scoreline,
	}).Info("Manual override set")
	return nil
}

// ClearOverride removes an operator correction so the next refresh can replace it.
// Preconditions: Receives a context, a hand typed team name and the week
// Postconditions: The override is gone from the cache and the stored results, or a DataMissing error is returned if
// there was none
func (a *API) ClearOverride(ctx context.Context, teamInput string, week int) error {
	if err := a.waitReady(ctx); err != nil {
		return err
	}
	team, err := teams.Resolve(teamInput)
	if err != nil {
		return err
	}
	if !a.Cache.ClearManualOverride(team, week) {
		return shared.DataMissingf("no override for %s in Week %d", team, week)
	}
	if err := a.Store.SaveWeekSnapshot(ctx, a.Cache.Snapshot(week)); err != nil {
		return fmt.Errorf("override cleared but not persisted: %w", err)
	}

	a.Logger.WithFields(logrus.Fields{"component": "override", "team": team, "week": week}).Info("Manual override cleared")
	return nil
}

// GetStandings groups the pool by each member's persisted status. Members with no persisted status are alive with
// no picks
func (a *API) GetStandings(ctx context.Context) (Standings, error) {
	var standings Standings
	members, err := a.Store.ListMembers(ctx)
	if err != nil {
		return standings, err
	}

	for _, m := range members {
		entry := StandingEntry{UserID: m.UserID, DisplayName: m.DisplayName, Status: shared.NewSurvivorStatus()}
		if entry.DisplayName == "" {
			entry.DisplayName = m.UserID
		}
		if m.Survivor != nil {
			entry.Status = *m.Survivor
		}
		switch {
		case entry.Status.IsEliminated():
			standings.Eliminated = append(standings.Eliminated, entry)
		case entry.Status.State == shared.StatePending:
			standings.Pending = append(standings.Pending, entry)
		default:
			standings.Alive = append(standings.Alive, entry)
		}
	}

	byName := func(list []StandingEntry) func(i, j int) bool {
		return func(i, j int) bool { return strings.ToLower(list[i].DisplayName) < strings.ToLower(list[j].DisplayName) }
	}
	sort.SliceStable(standings.Alive, byName(standings.Alive))
	sort.SliceStable(standings.Pending, byName(standings.Pending))
	// Longest survivors first
	sort.SliceStable(standings.Eliminated, func(i, j int) bool {
		x, y := standings.Eliminated[i], standings.Eliminated[j]
		if x.Status.EliminatedWeek != y.Status.EliminatedWeek {
			return x.Status.EliminatedWeek > y.Status.EliminatedWeek
		}
		return strings.ToLower(x.DisplayName) < strings.ToLower(y.DisplayName)
	})
	return standings, nil
}
