/* validate.go
 * Contains validation of provider data against the game schema and the league roster. Nothing reaches the results
 * cache without passing through ValidateGames
 * Authors: Zachary Bower
 */

package external

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"survivor-pool/api/shared"
	"survivor-pool/api/teams"
)

var validate = validator.New()

// ValidateGames splits provider games into those safe to cache and those rejected.
// Preconditions: Receives the games returned by a provider and the week they were requested for
// Postconditions: Returns the accepted games and a rejection with a reason for every other game
func ValidateGames(games []shared.GameResult, week int) ([]shared.GameResult, []Rejection) {
	var accepted []shared.GameResult
	var rejected []Rejection
	for _, game := range games {
		if reason := checkGame(game, week); reason != "" {
			rejected = append(rejected, Rejection{Game: game, Reason: reason})
			continue
		}
		accepted = append(accepted, game)
	}
	return accepted, rejected
}

func checkGame(game shared.GameResult, week int) string {
	if err := validate.Struct(game); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			var fields []string
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return strings.Join(fields, ", ")
		}
		return err.Error()
	}
	if game.Week != week {
		return fmt.Sprintf("game is for week %d, expected week %d", game.Week, week)
	}
	for _, team := range []string{game.HomeTeam, game.AwayTeam} {
		if !teams.IsKnown(team) {
			return fmt.Sprintf("unknown team %s", team)
		}
	}

	if !game.IsFinal() {
		if game.Status == shared.StatusFinal {
			return "final game has no winner"
		}
		return ""
	}
	switch {
	case game.IsTie():
		if game.HomeScore != game.AwayScore {
			return fmt.Sprintf("tie declared with score %d-%d", game.AwayScore, game.HomeScore)
		}
	case game.Winner == game.HomeTeam:
		if game.HomeScore <= game.AwayScore {
			return fmt.Sprintf("winner %s does not have the higher score", game.Winner)
		}
	case game.Winner == game.AwayTeam:
		if game.AwayScore <= game.HomeScore {
			return fmt.Sprintf("winner %s does not have the higher score", game.Winner)
		}
	default:
		return fmt.Sprintf("winner %s did not play in the game", game.Winner)
	}
	return ""
}
