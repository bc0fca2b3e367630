/* parser.go
 * Contains the logic for turning an ESPN scoreboard response into game results. The parser is lenient: malformed
 * events still produce a GameResult so that ValidateGames can reject them with a reason
 * Authors: Zachary Bower
 */

package external

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"survivor-pool/api/shared"
	"survivor-pool/api/teams"
)

// ParseScoreboard converts a scoreboard response body into game results.
// Preconditions: Receives the raw response body and the week that was requested
// Postconditions: Returns one GameResult per event with canonical team names, or an error if the body is not valid json
func ParseScoreboard(body []byte, week int) ([]shared.GameResult, error) {
	var board Scoreboard
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, fmt.Errorf("error decoding scoreboard: %w", err)
	}

	games := make([]shared.GameResult, 0, len(board.Events))
	for _, event := range board.Events {
		game := shared.GameResult{GameID: event.ID, Week: week, Status: shared.StatusScheduled, Winner: shared.WinnerTBD}

		// Events carry their own week, which is what gives away results filed under the wrong week
		if event.Week.Number != 0 {
			game.Week = event.Week.Number
		} else if board.Week.Number != 0 {
			game.Week = board.Week.Number
		}

		if len(event.Competitions) == 0 {
			games = append(games, game)
			continue
		}
		comp := event.Competitions[0]
		game.Status = MapStatus(comp.Status)

		var homeWon, awayWon bool
		for _, c := range comp.Competitors {
			name := competitorName(c)
			score := parseScore(c.Score)
			switch strings.ToLower(c.HomeAway) {
			case "home":
				game.HomeTeam, game.HomeScore, homeWon = name, score, c.Winner
			case "away":
				game.AwayTeam, game.AwayScore, awayWon = name, score, c.Winner
			}
		}

		if game.Status == shared.StatusFinal {
			game.Winner = decideWinner(game, homeWon, awayWon)
		}
		games = append(games, game)
	}
	return games, nil
}

// MapStatus maps an ESPN status onto final, in_progress or scheduled
func MapStatus(status EventStatus) string {
	name := strings.ToUpper(status.Type.Name)
	switch {
	case strings.HasPrefix(name, "STATUS_FINAL"):
		return shared.StatusFinal
	case name == "STATUS_IN_PROGRESS", name == "STATUS_HALFTIME", name == "STATUS_END_PERIOD", name == "STATUS_DELAYED":
		return shared.StatusInProgress
	case status.Type.State == "post" && status.Type.Completed:
		return shared.StatusFinal
	case status.Type.State == "in":
		return shared.StatusInProgress
	}
	return shared.StatusScheduled
}

func competitorName(c Competitor) string {
	if c.Team.DisplayName != "" {
		return teams.Normalize(c.Team.DisplayName)
	}
	return teams.Normalize(c.Team.Abbreviation)
}

// parseScore returns -1 for scores that are present but not numbers so validation rejects the game
func parseScore(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// decideWinner uses the provider's winner flag and falls back to the score. Equal scores with no flag is a tie
func decideWinner(game shared.GameResult, homeWon bool, awayWon bool) string {
	switch {
	case homeWon && !awayWon:
		return game.HomeTeam
	case awayWon && !homeWon:
		return game.AwayTeam
	case homeWon && awayWon:
		// Both flagged, let validation reject it
		return shared.WinnerTBD
	}
	switch {
	case game.HomeScore > game.AwayScore:
		return game.HomeTeam
	case game.AwayScore > game.HomeScore:
		return game.AwayTeam
	}
	return shared.WinnerTie
}
