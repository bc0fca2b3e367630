/* elimination.go
 * Contains the survivor elimination engine. Given a member's weekly picks and read access to game results it derives
 * the member's SurvivorStatus. Evaluation is a pure function of its inputs: the engine holds no state between calls
 * and never fetches data itself
 * Authors: Zachary Bower
 */

package logic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"survivor-pool/api/shared"
	"survivor-pool/api/teams"
)

// TieRule decides what a tied game means for the member who picked one of the two teams
type TieRule string

const (
	// TieEliminates treats a tie as not a win. This is the default
	TieEliminates TieRule = "eliminate"
	// TiePushes lets the pick advance as if it had won
	TiePushes TieRule = "push"
)

// ParseTieRule converts a config value into a TieRule. An empty string is the default rule
func ParseTieRule(s string) (TieRule, error) {
	switch TieRule(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieEliminates:
		return TieEliminates, nil
	case TiePushes:
		return TiePushes, nil
	}
	return "", fmt.Errorf("unknown tie rule '%s', expected '%s' or '%s'", s, TieEliminates, TiePushes)
}

// Options configures an Engine
type Options struct {
	TieRule TieRule
}

// Engine evaluates survivor picks. The zero value uses the default tie rule
type Engine struct {
	tieRule TieRule
}

// NewEngine creates an engine with the given options
func NewEngine(opts Options) *Engine {
	rule := opts.TieRule
	if rule == "" {
		rule = TieEliminates
	}
	return &Engine{tieRule: rule}
}

// TieRule returns the rule the engine applies to tied games
func (e *Engine) TieRule() TieRule {
	if e.tieRule == "" {
		return TieEliminates
	}
	return e.tieRule
}

// Evaluate derives a member's status from their picks, evaluating up to the latest week they picked.
// Preconditions: Receives the member's picks in any order and a results lookup
// Postconditions: Returns the derived status, or an error if the picks or results are ambiguous or malformed
func (e *Engine) Evaluate(picks []shared.Pick, lookup shared.ResultsLookup) (shared.SurvivorStatus, error) {
	return e.EvaluateThrough(picks, lookup, 0)
}

// EvaluateThrough derives a member's status, walking the weeks in ascending order and stopping at the first week
// that eliminates the member or cannot be resolved yet.
// Preconditions: Receives the member's picks in any order, a results lookup and lastWeek, the latest week whose pick
// deadline has passed. A lastWeek of 0 means the deadline is unknown and only weeks up to the latest pick are walked
// Postconditions: Returns one of the four survivor states. A missing or unresolved result is always pending, never a
// loss. Returns a DataAmbiguous error for conflicting picks or results, and an error for picks outside the season
func (e *Engine) EvaluateThrough(picks []shared.Pick, lookup shared.ResultsLookup, lastWeek int) (shared.SurvivorStatus, error) {
	if lookup == nil {
		return shared.SurvivorStatus{}, errors.New("results lookup cannot be nil")
	}
	if lastWeek < 0 || lastWeek > shared.LastWeek {
		return shared.SurvivorStatus{}, errors.Newf("week %d is outside %d-%d", lastWeek, shared.FirstWeek, shared.LastWeek)
	}

	byWeek, latestPick, err := indexPicks(picks)
	if err != nil {
		return shared.SurvivorStatus{}, err
	}

	status := shared.NewSurvivorStatus()
	finalWeek := latestPick
	if lastWeek > finalWeek {
		finalWeek = lastWeek
	}

	for week := shared.FirstWeek; week <= finalWeek; week++ {
		pick, ok := byWeek[week]
		if !ok {
			if lastWeek > 0 && week > lastWeek {
				// The deadline for this week has not passed, so the member can still pick
				status.State = shared.StatePending
				status.Week = week
				status.PendingReason = fmt.Sprintf("Awaiting pick for Week %d", week)
				status.PickHistory = history(byWeek, latestPick)
				return status, nil
			}
			status.State = shared.StateEliminated
			status.Alive = false
			status.Week = week
			status.EliminatedWeek = week
			status.EliminationReason = fmt.Sprintf("No pick made for Week %d", week)
			status.PickHistory = history(byWeek, week-1)
			return status, nil
		}

		res, err := lookup.Lookup(pick.Team, week)
		if err != nil {
			return shared.SurvivorStatus{}, fmt.Errorf("week %d result for %s: %w", week, pick.Team, err)
		}
		if res.Stale {
			status.StaleData = true
		}

		game := res.Game
		if game == nil || !game.IsFinal() {
			status.State = shared.StatePending
			status.Week = week
			status.PendingReason = pendingReason(pick.Team, week, game)
			status.PickHistory = history(byWeek, latestPick)
			return status, nil
		}

		home, away := teams.Normalize(game.HomeTeam), teams.Normalize(game.AwayTeam)
		if pick.Team != home && pick.Team != away {
			return shared.SurvivorStatus{}, shared.DataAmbiguousf("week %d result for %s is %s vs %s", week, pick.Team, away, home)
		}
		if pick.GameID != "" && game.GameID != "" && pick.GameID != game.GameID {
			status.Warnings = append(status.Warnings,
				fmt.Sprintf("Week %d pick references game %s but %s played game %s", week, pick.GameID, pick.Team, game.GameID))
		}

		opponent := away
		if pick.Team == away {
			opponent = home
		}

		if game.IsTie() {
			if e.TieRule() == TiePushes {
				status.State = shared.StateSurvived
				status.Week = week
				continue
			}
			status.State = shared.StateEliminated
			status.Alive = false
			status.Week = week
			status.EliminatedWeek = week
			status.EliminationReason = fmt.Sprintf("%s tied with %s", pick.Team, opponent)
			status.PickHistory = history(byWeek, week)
			return status, nil
		}

		winner := teams.Normalize(game.Winner)
		if winner == pick.Team {
			status.State = shared.StateSurvived
			status.Week = week
			continue
		}

		status.State = shared.StateEliminated
		status.Alive = false
		status.Week = week
		status.EliminatedWeek = week
		status.EliminationReason = fmt.Sprintf("%s lost to %s", pick.Team, winner)
		status.PickHistory = history(byWeek, week)
		return status, nil
	}

	status.PickHistory = history(byWeek, latestPick)
	return status, nil
}

// indexPicks normalizes picks and keys them by week. A pick with an empty team counts as no pick.
// Returns the index and the latest week with a pick
func indexPicks(picks []shared.Pick) (map[int]shared.Pick, int, error) {
	sorted := make([]shared.Pick, len(picks))
	copy(sorted, picks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Week < sorted[j].Week })

	byWeek := make(map[int]shared.Pick, len(sorted))
	latest := 0
	for _, p := range sorted {
		if p.Week < shared.FirstWeek || p.Week > shared.LastWeek {
			return nil, 0, errors.Newf("pick for week %d is outside %d-%d", p.Week, shared.FirstWeek, shared.LastWeek)
		}
		p.Team = teams.Normalize(p.Team)
		if p.Team == "" {
			continue
		}
		if existing, ok := byWeek[p.Week]; ok {
			if existing.Team != p.Team {
				return nil, 0, shared.DataAmbiguousf("week %d has two picks: %s and %s", p.Week, existing.Team, p.Team)
			}
			if existing.GameID == "" {
				byWeek[p.Week] = p
			}
			continue
		}
		byWeek[p.Week] = p
		if p.Week > latest {
			latest = p.Week
		}
	}
	return byWeek, latest, nil
}

// history lists the picked teams in week order up to and including the given week
func history(byWeek map[int]shared.Pick, through int) []string {
	out := []string{}
	for week := shared.FirstWeek; week <= through; week++ {
		if p, ok := byWeek[week]; ok {
			out = append(out, p.Team)
		}
	}
	return out
}

func pendingReason(team string, week int, game *shared.GameResult) string {
	if game == nil {
		return fmt.Sprintf("No result yet for %s in Week %d", team, week)
	}
	status := game.Status
	if status == "" {
		status = "unknown"
	}
	return fmt.Sprintf("%s Week %d game is %s", team, week, status)
}

// CheckMonotonic compares a recomputed status with the persisted one.
// Preconditions: Receives the persisted status (nil if none was persisted) and a freshly computed status
// Postconditions: Returns an IntegrityViolation error if the recomputation moves a recorded elimination earlier or
// clears it, else nil. Moving an elimination later is not a violation here, callers decide how to treat it
func CheckMonotonic(previous *shared.SurvivorStatus, recomputed shared.SurvivorStatus) error {
	if previous == nil || !previous.IsEliminated() {
		return nil
	}
	if !recomputed.IsEliminated() {
		return shared.IntegrityViolationf("recomputed status would clear the Week %d elimination (%s)",
			previous.EliminatedWeek, previous.EliminationReason)
	}
	if recomputed.EliminatedWeek < previous.EliminatedWeek {
		return shared.IntegrityViolationf("recomputed elimination moves from Week %d to Week %d (%s)",
			previous.EliminatedWeek, recomputed.EliminatedWeek, recomputed.EliminationReason)
	}
	return nil
}
