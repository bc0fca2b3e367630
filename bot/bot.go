/* bot.go
 * Contains logic used for creating and running the bot. Requires a discord bot token and an initialised API, both of
 * which are passed in from main.go
 * Authors: Zachary Bower
 */

package bot

import (
	"fmt"
	"strings"

	"github.com/go-andiamo/splitter"
	"github.com/sirupsen/logrus"

	"survivor-pool/api/api"
	"survivor-pool/api/shared"
)

// discordMessageLimit is the longest message discord accepts
const discordMessageLimit = 2000

type Bot struct {
	BotToken string
	APIPtr   *api.API
	AdminIDs map[string]bool
	Logger   *logrus.Logger
}

// NewBot creates a bot.
// Preconditions: Receives the bot token, the api, the discord ids allowed to run operator commands and a logger
// Postconditions: Returns the bot, or an error if the token or api is missing
func NewBot(botToken string, apiPtr *api.API, adminIDs []string, logger *logrus.Logger) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("botToken is required but none was provided")
	}
	if apiPtr == nil {
		return nil, fmt.Errorf("api is required but none was provided")
	}
	if logger == nil {
		logger = apiPtr.Logger
	}

	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Bot{
		BotToken: botToken,
		APIPtr:   apiPtr,
		AdminIDs: admins,
		Logger:   logger,
	}, nil
}

func (b *Bot) isAdmin(userID string) bool {
	return b.AdminIDs[userID]
}

// splitArgs splits a command into its arguments, dropping the command itself. Quoted names stay together,
// e.g. `$override "Kansas City" 3 KC` is ["Kansas City", "3", "KC"]
func splitArgs(content string) ([]string, error) {
	spaceSplitter, err := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	if err != nil {
		return nil, err
	}
	parts, err := spaceSplitter.Split(strings.TrimSpace(content))
	if err != nil {
		return nil, err
	}
	var args []string
	for _, p := range parts[1:] {
		p = strings.Trim(strings.TrimSpace(p), "\"“”")
		if p != "" {
			args = append(args, p)
		}
	}
	return args, nil
}

// mentionID converts a discord mention such as <@123> or <@!123> into the user id
func mentionID(arg string) string {
	arg = strings.TrimPrefix(arg, "<@")
	arg = strings.TrimPrefix(arg, "!")
	return strings.TrimSuffix(arg, ">")
}

// formatStatus renders one member's status for a discord message
func formatStatus(name string, status shared.SurvivorStatus) string {
	var res strings.Builder
	res.WriteString(fmt.Sprintf("**%s**: %s\n", name, status.Summary()))
	if status.State == shared.StatePending && status.PendingReason != "" {
		res.WriteString(fmt.Sprintf("Pending: %s\n", status.PendingReason))
	}
	if len(status.PickHistory) > 0 {
		res.WriteString(fmt.Sprintf("Picks: %s\n", strings.Join(status.PickHistory, ", ")))
	}
	if status.StaleData {
		res.WriteString("Results may be out of date\n")
	}
	return res.String()
}

// formatStandings renders the standings grouped by state
func formatStandings(standings api.Standings) string {
	if standings.Total() == 0 {
		return "Nobody has joined the pool yet"
	}
	var res strings.Builder
	res.WriteString(fmt.Sprintf("Survivor standings (%d alive, %d pending, %d eliminated)\n",
		len(standings.Alive), len(standings.Pending), len(standings.Eliminated)))
	if len(standings.Alive) > 0 {
		res.WriteString("__Alive__\n")
		for _, e := range standings.Alive {
			res.WriteString(fmt.Sprintf("- %s (through Week %d)\n", e.DisplayName, e.Status.Week))
		}
	}
	if len(standings.Pending) > 0 {
		res.WriteString("__Pending__\n")
		for _, e := range standings.Pending {
			res.WriteString(fmt.Sprintf("- %s (Week %d)\n", e.DisplayName, e.Status.Week))
		}
	}
	if len(standings.Eliminated) > 0 {
		res.WriteString("__Eliminated__\n")
		for _, e := range standings.Eliminated {
			res.WriteString(fmt.Sprintf("- %s: Week %d, %s\n", e.DisplayName, e.Status.EliminatedWeek, e.Status.EliminationReason))
		}
	}
	return res.String()
}

// formatAuditReport renders an audit summary and the members that need an operator
func formatAuditReport(report shared.AuditReport) string {
	var res strings.Builder
	res.WriteString(fmt.Sprintf("Audit %s: %d members, %d match, %d missing, %d mismatched, %d errors, %d corrected\n",
		report.RunID, report.Total, report.Matches, report.MissingPersisted, report.Mismatches, report.Errors, report.Corrected))
	if report.Cancelled {
		res.WriteString("The audit was stopped early, the counts above are partial\n")
	}
	for _, e := range report.Entries {
		name := e.DisplayName
		if name == "" {
			name = e.UserID
		}
		switch {
		case e.ManualReview:
			res.WriteString(fmt.Sprintf("- Review %s: %s\n", name, e.ReviewReason))
		case e.Classification == shared.AuditError:
			res.WriteString(fmt.Sprintf("- Error %s: %s\n", name, e.Error))
		}
	}
	return res.String()
}

// chunk splits a message into pieces discord will accept, breaking on new lines where possible
func chunk(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		} else {
			cut++
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// Helper function to check if a string starts with a given substring
// Preconditions: Recieves an input string and a substring
// Postconditions: Returns true if the substring is at the start of the string, else returns false
func startsWith(inputString string, substring string) bool {
	return strings.HasPrefix(inputString, substring)
}
