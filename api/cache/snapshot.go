/* snapshot.go
 * Contains the conversion between the in-process cache and the week documents persisted by the store, so manual
 * overrides and the last known results survive a restart
 * Authors: Zachary Bower
 */

package cache

import (
	"sort"
	"time"

	"survivor-pool/api/shared"
)

// Override is a persisted manual correction
type Override struct {
	Game      shared.GameResult `bson:"game" firestore:"game" json:"game"`
	Scoreline string            `bson:"scoreline,omitempty" firestore:"scoreline,omitempty" json:"scoreline,omitempty"`
	SetAt     time.Time         `bson:"set_at" firestore:"set_at" json:"setAt"`
}

// WeekSnapshot is everything the cache knows about one week
type WeekSnapshot struct {
	Week        int                 `bson:"week" firestore:"week" json:"week"`
	LastUpdated time.Time           `bson:"last_updated" firestore:"last_updated" json:"lastUpdated"`
	Games       []shared.GameResult `bson:"games" firestore:"games" json:"games"`
	Overrides   []Override          `bson:"overrides" firestore:"overrides" json:"overrides"`
}

// Snapshot copies the cached games and overrides of a week
func (c *ResultsCache) Snapshot(week int) WeekSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Overrides is never nil so a stored week loses an override once it is cleared
	snap := WeekSnapshot{Week: week, LastUpdated: c.lastUpdated[week], Games: []shared.GameResult{}, Overrides: []Override{}}
	seenGames := make(map[shared.GameResult]bool)
	seenOverrides := make(map[shared.GameResult]bool)
	for k, e := range c.entries {
		if k.week != week {
			continue
		}
		if e.Overridden {
			if !seenOverrides[e.Game] {
				seenOverrides[e.Game] = true
				snap.Overrides = append(snap.Overrides, Override{Game: e.Game, Scoreline: e.Scoreline, SetAt: e.StoredAt})
			}
			continue
		}
		if !seenGames[e.Game] {
			seenGames[e.Game] = true
			snap.Games = append(snap.Games, e.Game)
		}
	}

	sort.Slice(snap.Games, func(i, j int) bool { return snap.Games[i].GameID < snap.Games[j].GameID })
	sort.Slice(snap.Overrides, func(i, j int) bool { return snap.Overrides[i].Game.HomeTeam < snap.Overrides[j].Game.HomeTeam })
	return snap
}

// Weeks returns the weeks that have cached data, ascending
func (c *ResultsCache) Weeks() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[int]bool)
	for k := range c.entries {
		seen[k.week] = true
	}
	for week := range c.lastUpdated {
		seen[week] = true
	}
	weeks := make([]int, 0, len(seen))
	for week := range seen {
		weeks = append(weeks, week)
	}
	sort.Ints(weeks)
	return weeks
}

// Restore loads a persisted snapshot. Entries already in the cache are kept, so restoring never un-finalizes a result
// and never replaces an override made since the snapshot was taken. A team listed in two different games is marked
// ambiguous again, the same as Store would have marked it
func (c *ResultsCache) Restore(snap WeekSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	put := func(k key, e Entry) {
		if existing, ok := c.entries[k]; ok && (existing.Overridden || !e.Overridden) {
			return
		}
		c.entries[k] = e
	}

	for _, o := range snap.Overrides {
		e := Entry{Game: o.Game, Overridden: true, Scoreline: o.Scoreline, StoredAt: o.SetAt}
		for _, team := range []string{o.Game.HomeTeam, o.Game.AwayTeam} {
			if team != "" {
				put(newKey(team, snap.Week), e)
			}
		}
	}

	byTeam := make(map[key][]shared.GameResult)
	for _, g := range snap.Games {
		for _, team := range []string{g.HomeTeam, g.AwayTeam} {
			if team == "" {
				continue
			}
			k := newKey(team, snap.Week)
			byTeam[k] = append(byTeam[k], g)
		}
	}
	for k, games := range byTeam {
		if len(games) > 1 && !sameGame(games) {
			if existing, ok := c.entries[k]; ok && existing.Overridden {
				continue
			}
			c.ambiguous[k] = ambiguityMessage(k, games)
			continue
		}
		put(k, Entry{Game: games[0], StoredAt: snap.LastUpdated})
	}

	if snap.LastUpdated.After(c.lastUpdated[snap.Week]) {
		c.lastUpdated[snap.Week] = snap.LastUpdated
	}
}
