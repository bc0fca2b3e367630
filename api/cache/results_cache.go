/* results_cache.go
 * Contains the in-process cache of game results keyed by (normalized team, week). The cache never fetches data, it
 * only holds what the refresh layer stores and what operators override. Entries are replaced, never mutated in place,
 * so values handed out by Get are safe to read without holding the lock
 * Authors: Zachary Bower
 */

package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"survivor-pool/api/shared"
	"survivor-pool/api/teams"
)

// Entry is a cached game result for one team in one week
type Entry struct {
	Game       shared.GameResult
	Overridden bool
	Scoreline  string
	StoredAt   time.Time
}

type key struct {
	team string
	week int
}

// StoreReport summarises what a Store call did with a batch of games
type StoreReport struct {
	Week      int
	Added     int
	Updated   int
	Unchanged int
	// Skipped counts games that would have overwritten an override or un-finalized a result
	Skipped   int
	Conflicts []string
}

// ResultsCache holds per-team, per-week game results
type ResultsCache struct {
	mu          sync.RWMutex
	entries     map[key]Entry
	ambiguous   map[key]string
	lastUpdated map[int]time.Time
	now         func() time.Time
}

// NewResultsCache creates an empty cache. now may be nil, in which case time.Now is used
func NewResultsCache(now func() time.Time) *ResultsCache {
	if now == nil {
		now = time.Now
	}
	return &ResultsCache{
		entries:     make(map[key]Entry),
		ambiguous:   make(map[key]string),
		lastUpdated: make(map[int]time.Time),
		now:         now,
	}
}

func newKey(team string, week int) key {
	return key{team: teams.Normalize(team), week: week}
}

// Get looks up the cached result for a team in a week.
// Preconditions: Receives a raw or canonical team name and a week number
// Postconditions: Returns the entry and true, or an empty entry and false on a cache miss
func (c *ResultsCache) Get(team string, week int) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[newKey(team, week)]
	return e, ok
}

// Store merges a week of games into the cache, keyed by both the home and away team.
// Preconditions: Receives the week number and the games for that week. Games should already be validated
// Postconditions: Adds new entries, replaces entries that were not yet final, leaves overridden and final entries
// untouched and returns a report. If the batch lists one team in two different games, that team is marked ambiguous
// for the week and a DataAmbiguous error is returned alongside the report
func (c *ResultsCache) Store(week int, games []shared.GameResult) (StoreReport, error) {
	report := StoreReport{Week: week}

	// Find teams listed in more than one game before touching the cache
	byTeam := make(map[key][]shared.GameResult)
	for _, game := range games {
		game.HomeTeam = teams.Normalize(game.HomeTeam)
		game.AwayTeam = teams.Normalize(game.AwayTeam)
		if game.HasWinner() && !game.IsTie() {
			game.Winner = teams.Normalize(game.Winner)
		}
		game.Week = week
		for _, team := range []string{game.HomeTeam, game.AwayTeam} {
			k := key{team: team, week: week}
			byTeam[k] = append(byTeam[k], game)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]key, 0, len(byTeam))
	for k := range byTeam {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].team < keys[j].team })

	for _, k := range keys {
		candidates := byTeam[k]
		if len(candidates) > 1 && !sameGame(candidates) {
			msg := ambiguityMessage(k, candidates)
			c.ambiguous[k] = msg
			report.Conflicts = append(report.Conflicts, msg)
			continue
		}

		incoming := candidates[0]
		existing, ok := c.entries[k]
		switch {
		case !ok:
			c.entries[k] = Entry{Game: incoming, StoredAt: now}
			report.Added++
		case existing.Overridden:
			report.Skipped++
		case existing.Game.IsFinal() && !incoming.IsFinal():
			// Results never go from final back to unresolved
			report.Skipped++
		case existing.Game == incoming:
			report.Unchanged++
		case existing.Game.IsFinal() && incoming.IsFinal() && existing.Game.Winner != incoming.Winner:
			// A final result changing winner is either a stat correction or contaminated data, which needs an operator
			msg := fmt.Sprintf("%s week %d: provider changed final winner from %s to %s", k.team, week, existing.Game.Winner, incoming.Winner)
			report.Conflicts = append(report.Conflicts, msg)
			report.Skipped++
		default:
			c.entries[k] = Entry{Game: incoming, StoredAt: now}
			report.Updated++
		}
		delete(c.ambiguous, k)
	}
	c.lastUpdated[week] = now

	if len(report.Conflicts) > 0 {
		return report, shared.DataAmbiguousf("week %d results: %s", week, strings.Join(report.Conflicts, "; "))
	}
	return report, nil
}

func ambiguityMessage(k key, games []shared.GameResult) string {
	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.GameID)
	}
	return fmt.Sprintf("%s appears in %d games in week %d (%s)", k.team, len(games), k.week, strings.Join(ids, ", "))
}

// sameGame reports whether every candidate is the same game repeated, which is a harmless duplicate
func sameGame(games []shared.GameResult) bool {
	for _, g := range games[1:] {
		if g.GameID != games[0].GameID || g.HomeTeam != games[0].HomeTeam || g.AwayTeam != games[0].AwayTeam {
			return false
		}
	}
	return true
}

// IsFresh reports whether the week was stored within maxAge of now. Weeks never stored are not fresh
func (c *ResultsCache) IsFresh(week int, maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	updated, ok := c.lastUpdated[week]
	if !ok {
		return false
	}
	return c.now().Sub(updated) <= maxAge
}

// LastUpdated returns when the week was last stored, or the zero time if it never was
func (c *ResultsCache) LastUpdated(week int) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated[week]
}

// SetManualOverride records an operator correction for one team's game in a week.
// Preconditions: Receives the team, week, the winning team (or TIE) and a free text scoreline for the record
// Postconditions: Stores a final, overridden entry for the team and its opponent (when known) that Store will not
// overwrite until ClearManualOverride is called, or returns an error if the winner is not one of the two teams
func (c *ResultsCache) SetManualOverride(team string, week int, winner string, scoreline string) error {
	if week < shared.FirstWeek || week > shared.LastWeek {
		return fmt.Errorf("week %d is outside %d-%d", week, shared.FirstWeek, shared.LastWeek)
	}
	team = teams.Normalize(team)
	if strings.EqualFold(strings.TrimSpace(winner), shared.WinnerTie) {
		winner = shared.WinnerTie
	} else {
		winner = teams.Normalize(winner)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{team: team, week: week}
	game := shared.GameResult{Week: week, HomeTeam: team, Status: shared.StatusFinal, Winner: winner}
	if existing, ok := c.entries[k]; ok {
		game.GameID = existing.Game.GameID
		game.HomeTeam = existing.Game.HomeTeam
		game.AwayTeam = existing.Game.AwayTeam
		game.HomeScore = existing.Game.HomeScore
		game.AwayScore = existing.Game.AwayScore
	} else if winner != team && winner != shared.WinnerTie {
		// Without a cached game the winner is the only opponent we know about
		game.AwayTeam = winner
	}

	if winner != shared.WinnerTie && winner != game.HomeTeam && winner != game.AwayTeam {
		return fmt.Errorf("winner %s did not play in %s's week %d game", winner, team, week)
	}

	now := c.now()
	entry := Entry{Game: game, Overridden: true, Scoreline: scoreline, StoredAt: now}
	c.entries[k] = entry
	delete(c.ambiguous, k)
	if opponent := game.Opponent(team); opponent != "" && opponent != team {
		oppKey := key{team: opponent, week: week}
		c.entries[oppKey] = entry
		delete(c.ambiguous, oppKey)
	}
	return nil
}

// ClearManualOverride removes an override for a team (and its opponent) so the next Store can refresh it.
// Returns false if there was no override for the team in that week
func (c *ResultsCache) ClearManualOverride(team string, week int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := newKey(team, week)
	existing, ok := c.entries[k]
	if !ok || !existing.Overridden {
		return false
	}
	delete(c.entries, k)
	if opponent := existing.Game.Opponent(k.team); opponent != "" {
		oppKey := key{team: opponent, week: week}
		if other, found := c.entries[oppKey]; found && other.Overridden {
			delete(c.entries, oppKey)
		}
	}
	return true
}

// Overrides returns every overridden entry, ordered by week then team
func (c *ResultsCache) Overrides() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Entry
	seen := make(map[string]bool)
	for k, e := range c.entries {
		if !e.Overridden {
			continue
		}
		id := fmt.Sprintf("%d|%s|%s", k.week, e.Game.HomeTeam, e.Game.AwayTeam)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Game.Week != out[j].Game.Week {
			return out[i].Game.Week < out[j].Game.Week
		}
		return out[i].Game.HomeTeam < out[j].Game.HomeTeam
	})
	return out
}

// WeekFinal reports whether the week has cached games and every one of them is final
func (c *ResultsCache) WeekFinal(week int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	found := false
	for k, e := range c.entries {
		if k.week != week {
			continue
		}
		found = true
		if !e.Game.IsFinal() {
			return false
		}
	}
	return found
}

// View returns a lookup for the elimination engine. Entries of weeks older than maxAge are reported as stale.
// A maxAge of 0 disables staleness reporting
func (c *ResultsCache) View(maxAge time.Duration) shared.ResultsLookup {
	return view{cache: c, maxAge: maxAge}
}

type view struct {
	cache  *ResultsCache
	maxAge time.Duration
}

// Lookup implements shared.ResultsLookup. A miss is a nil Game with no error, an ambiguous team is an error
func (v view) Lookup(team string, week int) (shared.CachedResult, error) {
	c := v.cache
	k := newKey(team, week)

	c.mu.RLock()
	msg, isAmbiguous := c.ambiguous[k]
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if isAmbiguous {
		return shared.CachedResult{}, shared.DataAmbiguousf("%s", msg)
	}
	if !ok {
		return shared.CachedResult{}, nil
	}

	game := e.Game
	res := shared.CachedResult{Game: &game, Overridden: e.Overridden}
	if v.maxAge > 0 && !e.Overridden && !game.IsFinal() {
		res.Stale = !c.IsFresh(week, v.maxAge)
	}
	return res, nil
}
