/* parser_test.go
 * Contains unit tests for parser.go
 * Authors: Zachary Bower
 */

package external

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survivor-pool/api/shared"
)

func loadScoreboard(t *testing.T) []shared.GameResult {
	t.Helper()
	body, err := os.ReadFile("testdata/scoreboard_week1.json")
	require.NoError(t, err)
	games, err := ParseScoreboard(body, 1)
	require.NoError(t, err)
	return games
}

func findGame(games []shared.GameResult, id string) (shared.GameResult, bool) {
	for _, g := range games {
		if g.GameID == id {
			return g, true
		}
	}
	return shared.GameResult{}, false
}

// TestParseScoreboard tests that every event becomes a game
func TestParseScoreboard(t *testing.T) {
	games := loadScoreboard(t)
	assert.Len(t, games, 5)
}

// TestParseScoreboard_FinalWithWinnerFlag tests a final game decided by the competitor flag
func TestParseScoreboard_FinalWithWinnerFlag(t *testing.T) {
	g, ok := findGame(loadScoreboard(t), "401772510")
	require.True(t, ok)

	assert.Equal(t, shared.GameResult{
		GameID: "401772510", Week: 1,
		HomeTeam: "Philadelphia Eagles", AwayTeam: "Dallas Cowboys",
		HomeScore: 24, AwayScore: 20,
		Status: shared.StatusFinal, Winner: "Philadelphia Eagles",
	}, g)
}

// TestParseScoreboard_NormalizesDisplayNames tests that provider spellings become canonical names
func TestParseScoreboard_NormalizesDisplayNames(t *testing.T) {
	g, ok := findGame(loadScoreboard(t), "401772714")
	require.True(t, ok)
	assert.Equal(t, "Los Angeles Chargers", g.HomeTeam)
	assert.Equal(t, "Los Angeles Chargers", g.Winner)
}

// TestParseScoreboard_Tie tests an overtime tie
func TestParseScoreboard_Tie(t *testing.T) {
	g, ok := findGame(loadScoreboard(t), "401772720")
	require.True(t, ok)
	assert.Equal(t, shared.WinnerTie, g.Winner)
	assert.True(t, g.IsFinal())
}

// TestParseScoreboard_InProgressHasNoWinner tests that a leading team is not declared the winner
func TestParseScoreboard_InProgressHasNoWinner(t *testing.T) {
	g, ok := findGame(loadScoreboard(t), "401772830")
	require.True(t, ok)
	assert.Equal(t, shared.StatusInProgress, g.Status)
	assert.Equal(t, shared.WinnerTBD, g.Winner)
	assert.False(t, g.IsFinal())
}

// TestParseScoreboard_Scheduled tests a game that has not started
func TestParseScoreboard_Scheduled(t *testing.T) {
	g, ok := findGame(loadScoreboard(t), "401772840")
	require.True(t, ok)
	assert.Equal(t, shared.StatusScheduled, g.Status)
	assert.False(t, g.HasWinner())
}

// TestParseScoreboard_InvalidJson tests a body that is not json
func TestParseScoreboard_InvalidJson(t *testing.T) {
	_, err := ParseScoreboard([]byte("<html>rate limited</html>"), 1)
	assert.Error(t, err)
}

// TestParseScoreboard_EventWeekWins tests that an event filed under another week keeps its own week
func TestParseScoreboard_EventWeekWins(t *testing.T) {
	body := `{"events":[{"id":"1","week":{"number":2},"competitions":[]}]}`
	games, err := ParseScoreboard([]byte(body), 1)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, 2, games[0].Week)
}

// TestParseScoreboard_BadScore tests that a non numeric score is marked invalid
func TestParseScoreboard_BadScore(t *testing.T) {
	body := `{"events":[{"id":"1","competitions":[{"status":{"type":{"name":"STATUS_FINAL"}},"competitors":[
		{"homeAway":"home","score":"abc","team":{"displayName":"Chicago Bears"}},
		{"homeAway":"away","score":"10","team":{"displayName":"Detroit Lions"}}]}]}]}`
	games, err := ParseScoreboard([]byte(body), 1)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, -1, games[0].HomeScore)
}

// TestMapStatus tests mapping of provider status names
func TestMapStatus(t *testing.T) {
	status := func(name, state string, completed bool) EventStatus {
		var s EventStatus
		s.Type.Name, s.Type.State, s.Type.Completed = name, state, completed
		return s
	}

	assert.Equal(t, shared.StatusFinal, MapStatus(status("STATUS_FINAL", "post", true)))
	assert.Equal(t, shared.StatusFinal, MapStatus(status("STATUS_FINAL_OVERTIME", "post", true)))
	assert.Equal(t, shared.StatusInProgress, MapStatus(status("STATUS_HALFTIME", "in", false)))
	assert.Equal(t, shared.StatusInProgress, MapStatus(status("STATUS_END_PERIOD", "in", false)))
	assert.Equal(t, shared.StatusInProgress, MapStatus(status("STATUS_UNKNOWN_NEW", "in", false)))
	assert.Equal(t, shared.StatusScheduled, MapStatus(status("STATUS_SCHEDULED", "pre", false)))
	assert.Equal(t, shared.StatusScheduled, MapStatus(status("STATUS_POSTPONED", "post", false)))
}
