/* elimination_test.go
 * Contains unit tests for elimination.go
 * Authors: Zachary Bower
 */

package logic

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survivor-pool/api/cache"
	"survivor-pool/api/shared"
)

// fakeLookup serves results from a map keyed by "<team>|<week>" and counts calls
type fakeLookup struct {
	results map[string]shared.CachedResult
	errs    map[string]error
	calls   []string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{results: make(map[string]shared.CachedResult), errs: make(map[string]error)}
}

func lookupKey(team string, week int) string {
	return fmt.Sprintf("%s|%d", team, week)
}

// addFinal registers a final game under both teams
func (f *fakeLookup) addFinal(week int, home, away, winner string) {
	g := shared.GameResult{GameID: home + away, Week: week, HomeTeam: home, AwayTeam: away, Status: shared.StatusFinal, Winner: winner}
	f.results[lookupKey(home, week)] = shared.CachedResult{Game: &g}
	f.results[lookupKey(away, week)] = shared.CachedResult{Game: &g}
}

func (f *fakeLookup) addLive(week int, home, away string) {
	g := shared.GameResult{GameID: home + away, Week: week, HomeTeam: home, AwayTeam: away, Status: shared.StatusInProgress, Winner: shared.WinnerTBD}
	f.results[lookupKey(home, week)] = shared.CachedResult{Game: &g}
	f.results[lookupKey(away, week)] = shared.CachedResult{Game: &g}
}

func (f *fakeLookup) Lookup(team string, week int) (shared.CachedResult, error) {
	k := lookupKey(team, week)
	f.calls = append(f.calls, k)
	if err, ok := f.errs[k]; ok {
		return shared.CachedResult{}, err
	}
	return f.results[k], nil
}

// TestEvaluate_LossEliminates tests a week 1 loss
func TestEvaluate_LossEliminates(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Philadelphia Eagles", "Dallas Cowboys", "Philadelphia Eagles")

	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Dallas Cowboys"}}, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateEliminated, status.State)
	assert.False(t, status.Alive)
	assert.Equal(t, 1, status.EliminatedWeek)
	assert.Contains(t, status.EliminationReason, "Dallas Cowboys")
	assert.Contains(t, status.EliminationReason, "Philadelphia Eagles")
	assert.Equal(t, []string{"Dallas Cowboys"}, status.PickHistory)
}

// TestEvaluate_SurviveThenLose tests elimination in the second week with the full pick history
func TestEvaluate_SurviveThenLose(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")
	lookup.addFinal(2, "Buffalo Bills", "Miami Dolphins", "Miami Dolphins")

	picks := []shared.Pick{{Week: 1, Team: "Kansas City Chiefs"}, {Week: 2, Team: "Buffalo Bills"}}
	status, err := NewEngine(Options{}).Evaluate(picks, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateEliminated, status.State)
	assert.Equal(t, 2, status.EliminatedWeek)
	assert.Equal(t, "Buffalo Bills lost to Miami Dolphins", status.EliminationReason)
	assert.Equal(t, []string{"Kansas City Chiefs", "Buffalo Bills"}, status.PickHistory)
}

// TestEvaluate_NoPickWeekOne tests a member with no week 1 pick once week 1 has locked
func TestEvaluate_NoPickWeekOne(t *testing.T) {
	lookup := newFakeLookup()

	status, err := NewEngine(Options{}).EvaluateThrough(nil, lookup, 1)

	require.NoError(t, err)
	assert.Equal(t, shared.StateEliminated, status.State)
	assert.Equal(t, 1, status.EliminatedWeek)
	assert.Equal(t, "No pick made for Week 1", status.EliminationReason)
	assert.Empty(t, status.PickHistory)
}

// TestEvaluate_NoPickWeekOneWithLaterPicks tests that a gap before the latest pick eliminates
func TestEvaluate_NoPickWeekOneWithLaterPicks(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(2, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")

	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 2, Team: "Kansas City Chiefs"}}, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateEliminated, status.State)
	assert.Equal(t, "No pick made for Week 1", status.EliminationReason)
	assert.Empty(t, lookup.calls, "nothing after the missing week is evaluated")
}

// TestEvaluate_InProgressIsPending tests that an unresolved game stops evaluation at that week
func TestEvaluate_InProgressIsPending(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")
	lookup.addFinal(2, "Detroit Lions", "Chicago Bears", "Detroit Lions")
	lookup.addLive(3, "San Francisco 49ers", "Seattle Seahawks")
	// Week 4 is final and would eliminate, it must not be looked at
	lookup.addFinal(4, "Green Bay Packers", "Minnesota Vikings", "Minnesota Vikings")

	picks := []shared.Pick{
		{Week: 1, Team: "Kansas City Chiefs"},
		{Week: 2, Team: "Detroit Lions"},
		{Week: 3, Team: "San Francisco 49ers"},
		{Week: 4, Team: "Green Bay Packers"},
	}
	status, err := NewEngine(Options{}).Evaluate(picks, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StatePending, status.State)
	assert.True(t, status.Alive)
	assert.Equal(t, 3, status.Week)
	assert.Zero(t, status.EliminatedWeek)
	assert.NotContains(t, lookup.calls, lookupKey("Green Bay Packers", 4))
	assert.Contains(t, status.Summary(), "awaiting data for Week 3")
}

// TestEvaluate_AllSurvived tests the survived state after every pick won
func TestEvaluate_AllSurvived(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")
	lookup.addFinal(2, "Detroit Lions", "Chicago Bears", "Detroit Lions")

	picks := []shared.Pick{{Week: 1, Team: "KC"}, {Week: 2, Team: "Lions"}}
	status, err := NewEngine(Options{}).Evaluate(picks, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateSurvived, status.State)
	assert.True(t, status.Alive)
	assert.Equal(t, 2, status.Week)
	assert.Equal(t, []string{"Kansas City Chiefs", "Detroit Lions"}, status.PickHistory)
}

// TestEvaluate_NoPicks tests a member who has just joined
func TestEvaluate_NoPicks(t *testing.T) {
	status, err := NewEngine(Options{}).Evaluate(nil, newFakeLookup())

	require.NoError(t, err)
	assert.Equal(t, shared.NewSurvivorStatus(), status)
}

// TestEvaluate_MissingResultIsPending tests that a pick with no result is never resolved
func TestEvaluate_MissingResultIsPending(t *testing.T) {
	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Chicago Bears"}}, newFakeLookup())

	require.NoError(t, err)
	assert.Equal(t, shared.StatePending, status.State)
	assert.True(t, status.Alive)
	assert.Zero(t, status.EliminatedWeek)
	assert.Contains(t, status.PendingReason, "No result yet")
}

// TestEvaluate_FinalWithoutWinnerIsPending tests a final status with a TBD winner
func TestEvaluate_FinalWithoutWinnerIsPending(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Chicago Bears", "Green Bay Packers", shared.WinnerTBD)

	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Chicago Bears"}}, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StatePending, status.State)
}

// TestEvaluate_FutureWeekWithoutPickIsPending tests that a week whose deadline has not passed does not eliminate
func TestEvaluate_FutureWeekWithoutPickIsPending(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")

	picks := []shared.Pick{{Week: 1, Team: "Kansas City Chiefs"}, {Week: 3, Team: "Detroit Lions"}}
	status, err := NewEngine(Options{}).EvaluateThrough(picks, lookup, 1)

	require.NoError(t, err)
	assert.Equal(t, shared.StatePending, status.State)
	assert.Equal(t, 2, status.Week)
	assert.Equal(t, "Awaiting pick for Week 2", status.PendingReason)
}

// TestEvaluateThrough_MissedLockedWeek tests that survived picks followed by a locked week with no pick eliminate
func TestEvaluateThrough_MissedLockedWeek(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")

	status, err := NewEngine(Options{}).EvaluateThrough([]shared.Pick{{Week: 1, Team: "Kansas City Chiefs"}}, lookup, 2)

	require.NoError(t, err)
	assert.Equal(t, shared.StateEliminated, status.State)
	assert.Equal(t, 2, status.EliminatedWeek)
	assert.Equal(t, []string{"Kansas City Chiefs"}, status.PickHistory)
}

// TestEvaluate_TieEliminatesByDefault tests the default tie rule
func TestEvaluate_TieEliminatesByDefault(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Houston Texans", "Tennessee Titans", shared.WinnerTie)

	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Tennessee Titans"}}, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateEliminated, status.State)
	assert.Equal(t, "Tennessee Titans tied with Houston Texans", status.EliminationReason)
}

// TestEvaluate_TiePush tests the push tie rule
func TestEvaluate_TiePush(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Houston Texans", "Tennessee Titans", shared.WinnerTie)

	status, err := NewEngine(Options{TieRule: TiePushes}).Evaluate([]shared.Pick{{Week: 1, Team: "Tennessee Titans"}}, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateSurvived, status.State)
	assert.Equal(t, 1, status.Week)
}

// TestParseTieRule tests parsing the tie rule from config
func TestParseTieRule(t *testing.T) {
	rule, err := ParseTieRule("")
	require.NoError(t, err)
	assert.Equal(t, TieEliminates, rule)

	rule, err = ParseTieRule(" PUSH ")
	require.NoError(t, err)
	assert.Equal(t, TiePushes, rule)

	_, err = ParseTieRule("replay")
	assert.Error(t, err)
}

// TestEvaluate_MissingGameIDIsEvaluable tests that gameId is advisory
func TestEvaluate_MissingGameIDIsEvaluable(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")

	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Kansas City Chiefs", GameID: ""}}, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateSurvived, status.State)
	assert.Empty(t, status.Warnings)
}

// TestEvaluate_GameIDMismatchWarns tests that a contaminated game ID warns but does not change the outcome
func TestEvaluate_GameIDMismatchWarns(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")

	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Kansas City Chiefs", GameID: "401999999"}}, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateSurvived, status.State)
	require.Len(t, status.Warnings, 1)
	assert.Contains(t, status.Warnings[0], "401999999")
}

// TestEvaluate_AmbiguousResultIsError tests that the engine surfaces duplicate games instead of choosing one
func TestEvaluate_AmbiguousResultIsError(t *testing.T) {
	lookup := newFakeLookup()
	lookup.errs[lookupKey("Dallas Cowboys", 1)] = shared.DataAmbiguousf("Dallas Cowboys appears in 2 games")

	_, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Dallas Cowboys"}}, lookup)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrDataAmbiguous))
}

// TestEvaluate_DuplicateGameFromCacheIsError tests the same case through the real cache
func TestEvaluate_DuplicateGameFromCacheIsError(t *testing.T) {
	c := cache.NewResultsCache(nil)
	_, _ = c.Store(1, []shared.GameResult{
		{GameID: "g1", HomeTeam: "Dallas Cowboys", AwayTeam: "New York Giants", Status: shared.StatusFinal, Winner: "Dallas Cowboys"},
		{GameID: "g2", HomeTeam: "Washington Commanders", AwayTeam: "Dallas Cowboys", Status: shared.StatusFinal, Winner: "Washington Commanders"},
	})

	_, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "DAL"}}, c.View(0))

	assert.True(t, errors.Is(err, shared.ErrDataAmbiguous))
}

// TestEvaluate_ResultForOtherTeamIsError tests a lookup returning a game the picked team did not play
func TestEvaluate_ResultForOtherTeamIsError(t *testing.T) {
	lookup := newFakeLookup()
	g := shared.GameResult{GameID: "x", HomeTeam: "Denver Broncos", AwayTeam: "Las Vegas Raiders", Status: shared.StatusFinal, Winner: "Denver Broncos"}
	lookup.results[lookupKey("Chicago Bears", 1)] = shared.CachedResult{Game: &g}

	_, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Chicago Bears"}}, lookup)

	assert.True(t, errors.Is(err, shared.ErrDataAmbiguous))
}

// TestEvaluate_ConflictingPicksIsError tests two different teams picked for one week
func TestEvaluate_ConflictingPicksIsError(t *testing.T) {
	picks := []shared.Pick{{Week: 1, Team: "Kansas City Chiefs"}, {Week: 1, Team: "Detroit Lions"}}

	_, err := NewEngine(Options{}).Evaluate(picks, newFakeLookup())

	assert.True(t, errors.Is(err, shared.ErrDataAmbiguous))
}

// TestEvaluate_RepeatedPickIsNotAnError tests the same team recorded twice for one week
func TestEvaluate_RepeatedPickIsNotAnError(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")
	picks := []shared.Pick{{Week: 1, Team: "KC"}, {Week: 1, Team: "Kansas City Chiefs"}}

	status, err := NewEngine(Options{}).Evaluate(picks, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateSurvived, status.State)
}

// TestEvaluate_InvalidWeek tests picks outside the season
func TestEvaluate_InvalidWeek(t *testing.T) {
	_, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 0, Team: "Kansas City Chiefs"}}, newFakeLookup())
	assert.Error(t, err)

	_, err = NewEngine(Options{}).EvaluateThrough(nil, newFakeLookup(), 19)
	assert.Error(t, err)
}

// TestEvaluate_NilLookup tests that a nil lookup is rejected
func TestEvaluate_NilLookup(t *testing.T) {
	_, err := NewEngine(Options{}).Evaluate(nil, nil)
	assert.Error(t, err)
}

// TestEvaluate_StaleFlag tests that stale inputs are reported on the status
func TestEvaluate_StaleFlag(t *testing.T) {
	lookup := newFakeLookup()
	g := shared.GameResult{GameID: "x", HomeTeam: "Chicago Bears", AwayTeam: "Green Bay Packers", Status: shared.StatusInProgress}
	lookup.results[lookupKey("Chicago Bears", 1)] = shared.CachedResult{Game: &g, Stale: true}

	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Chicago Bears"}}, lookup)

	require.NoError(t, err)
	assert.True(t, status.StaleData)
	assert.Equal(t, shared.StatePending, status.State)
}

// TestEvaluate_PicksAfterEliminationIgnored tests that elimination is absorbing
func TestEvaluate_PicksAfterEliminationIgnored(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Philadelphia Eagles", "Dallas Cowboys", "Philadelphia Eagles")
	lookup.addFinal(2, "Detroit Lions", "Chicago Bears", "Detroit Lions")

	picks := []shared.Pick{{Week: 1, Team: "Dallas Cowboys"}, {Week: 2, Team: "Detroit Lions"}}
	status, err := NewEngine(Options{}).Evaluate(picks, lookup)

	require.NoError(t, err)
	assert.Equal(t, 1, status.EliminatedWeek)
	assert.Equal(t, []string{"Dallas Cowboys"}, status.PickHistory)
	assert.Equal(t, []string{lookupKey("Dallas Cowboys", 1)}, lookup.calls)
}

// TestEvaluate_Idempotent tests that repeated evaluation of the same inputs gives the same status
func TestEvaluate_Idempotent(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs")
	lookup.addLive(2, "Detroit Lions", "Chicago Bears")
	picks := []shared.Pick{{Week: 1, Team: "Kansas City Chiefs"}, {Week: 2, Team: "Detroit Lions"}}
	engine := NewEngine(Options{})

	first, err := engine.Evaluate(picks, lookup)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.Evaluate(picks, lookup)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// TestEvaluate_OrderIndependent tests that shuffled picks give the same status as sorted picks
func TestEvaluate_OrderIndependent(t *testing.T) {
	lookup := newFakeLookup()
	teamsByWeek := []string{"Kansas City Chiefs", "Detroit Lions", "Buffalo Bills", "San Francisco 49ers", "Philadelphia Eagles"}
	var picks []shared.Pick
	for i, team := range teamsByWeek {
		week := i + 1
		lookup.addFinal(week, team, "Opponent "+team, team)
		picks = append(picks, shared.Pick{Week: week, Team: team})
	}
	engine := NewEngine(Options{})
	sorted, err := engine.Evaluate(picks, lookup)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := make([]shared.Pick, len(picks))
		copy(shuffled, picks)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		status, err := engine.Evaluate(shuffled, lookup)
		require.NoError(t, err)
		assert.Equal(t, sorted, status)
	}
	assert.Equal(t, teamsByWeek, sorted.PickHistory)
}

// TestEvaluate_NormalizationEquivalence tests that name variants of one team evaluate identically
func TestEvaluate_NormalizationEquivalence(t *testing.T) {
	lookup := newFakeLookup()
	lookup.addFinal(1, "Los Angeles Rams", "Arizona Cardinals", "Los Angeles Rams")
	engine := NewEngine(Options{})

	canonical, err := engine.Evaluate([]shared.Pick{{Week: 1, Team: "Los Angeles Rams"}}, lookup)
	require.NoError(t, err)
	for _, variant := range []string{"LA Rams", "LAR", "l.a. rams", "Rams"} {
		status, err := engine.Evaluate([]shared.Pick{{Week: 1, Team: variant}}, lookup)
		require.NoError(t, err)
		assert.Equal(t, canonical, status, "variant %s", variant)
	}
}

// TestEvaluate_ProviderSpellingInResult tests that a non canonical winner from a lookup still matches the pick
func TestEvaluate_ProviderSpellingInResult(t *testing.T) {
	lookup := newFakeLookup()
	g := shared.GameResult{GameID: "x", HomeTeam: "LA Rams", AwayTeam: "ARI", Status: shared.StatusFinal, Winner: "LAR"}
	lookup.results[lookupKey("Los Angeles Rams", 1)] = shared.CachedResult{Game: &g}

	status, err := NewEngine(Options{}).Evaluate([]shared.Pick{{Week: 1, Team: "Rams"}}, lookup)

	require.NoError(t, err)
	assert.Equal(t, shared.StateSurvived, status.State)
}

// TestEvaluate_MonotonicAsWeeksResolve tests that eliminatedWeek never changes once set as more weeks resolve
func TestEvaluate_MonotonicAsWeeksResolve(t *testing.T) {
	lookup := newFakeLookup()
	picks := []shared.Pick{{Week: 1, Team: "Kansas City Chiefs"}, {Week: 2, Team: "Buffalo Bills"}, {Week: 3, Team: "Detroit Lions"}}
	engine := NewEngine(Options{})

	var previous *shared.SurvivorStatus
	steps := []func(){
		func() { lookup.addFinal(1, "Kansas City Chiefs", "Baltimore Ravens", "Kansas City Chiefs") },
		func() { lookup.addFinal(2, "Buffalo Bills", "Miami Dolphins", "Miami Dolphins") },
		func() { lookup.addFinal(3, "Detroit Lions", "Chicago Bears", "Detroit Lions") },
	}
	for _, step := range steps {
		step()
		status, err := engine.Evaluate(picks, lookup)
		require.NoError(t, err)
		require.NoError(t, CheckMonotonic(previous, status))
		if previous != nil && previous.IsEliminated() {
			assert.Equal(t, previous.EliminatedWeek, status.EliminatedWeek)
		}
		previous = &status
	}
	assert.Equal(t, 2, previous.EliminatedWeek)
}

// TestCheckMonotonic tests the integrity guard
func TestCheckMonotonic(t *testing.T) {
	eliminated := func(week int) shared.SurvivorStatus {
		return shared.SurvivorStatus{State: shared.StateEliminated, Week: week, EliminatedWeek: week}
	}
	alive := shared.SurvivorStatus{State: shared.StatePending, Alive: true, Week: 4}

	assert.NoError(t, CheckMonotonic(nil, eliminated(3)))
	assert.NoError(t, CheckMonotonic(&alive, eliminated(3)))
	assert.NoError(t, CheckMonotonic(ptr(eliminated(3)), eliminated(3)))
	assert.NoError(t, CheckMonotonic(ptr(eliminated(3)), eliminated(5)))

	err := CheckMonotonic(ptr(eliminated(5)), eliminated(3))
	assert.True(t, errors.Is(err, shared.ErrIntegrityViolation))

	err = CheckMonotonic(ptr(eliminated(5)), alive)
	assert.True(t, errors.Is(err, shared.ErrIntegrityViolation))
}

func ptr(s shared.SurvivorStatus) *shared.SurvivorStatus {
	return &s
}
