/* handlers.go
 * Contains testable handler methods that accept DiscordSession interface
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"survivor-pool/api/api"
	"survivor-pool/api/shared"
)

// handlerTimeout bounds the work a single command can do
const handlerTimeout = 2 * time.Minute

// send posts a reply, split into as many messages as discord needs
func (b *Bot) send(session DiscordSession, channelID string, content string) {
	for _, part := range chunk(content, discordMessageLimit) {
		if _, err := session.ChannelMessageSend(channelID, part); err != nil {
			b.Logger.WithFields(logrus.Fields{
				"component":  "bot",
				"channel_id": channelID,
				"error":      err,
			}).Error("Failed to send message")
			return
		}
	}
}

// typing shows the typing indicator. Failing to show it is not worth reporting to the user
func (b *Bot) typing(session DiscordSession, channelID string) {
	if err := session.ChannelTyping(channelID); err != nil {
		b.Logger.WithFields(logrus.Fields{"component": "bot", "channel_id": channelID, "error": err}).Debug("Failed to show typing")
	}
}

// userError turns an api error into something a pool member can act on
func userError(err error) string {
	switch {
	case errors.Is(err, shared.ErrProviderUnavailable):
		return "The results provider is unavailable right now, try again later"
	case errors.Is(err, shared.ErrDataAmbiguous):
		return fmt.Sprintf("The results are ambiguous and need an operator: %s", err)
	case errors.Is(err, shared.ErrDataMissing):
		return err.Error()
	case errors.Is(err, shared.ErrIntegrityViolation):
		return fmt.Sprintf("Refused: %s", err)
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long, try again later"
	}
	return "An unexpected error occured"
}

// requireAdmin replies and returns false if the author may not run operator commands
func (b *Bot) requireAdmin(session DiscordSession, message *discordgo.MessageCreate) bool {
	if b.isAdmin(message.Author.ID) {
		return true
	}
	b.send(session, message.ChannelID, "Only pool operators can use that command")
	return false
}

// parseWeek reads a week number, returning an error message for the user if it is not one
func parseWeek(arg string) (int, string) {
	week, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(arg), "w"))
	if err != nil || week < shared.FirstWeek || week > shared.LastWeek {
		return 0, fmt.Sprintf("`%s` is not a week, use a number from %d to %d", arg, shared.FirstWeek, shared.LastWeek)
	}
	return week, ""
}

// helpMessageHandler handles the $help command with a DiscordSession interface
func (b *Bot) helpMessageHandler(session DiscordSession, message *discordgo.MessageCreate) {
	var res strings.Builder
	res.WriteString("Survivor Pool Bot v1.0\n")
	res.WriteString("`$status [@user]`: shows whether you (or the mentioned member) are still alive, and your picks so far\n")
	res.WriteString("`$standings`: shows who is alive, who is waiting on a game and who has been eliminated\n")
	res.WriteString("Operator commands:\n")
	res.WriteString("`$refresh [week]`: fetches the latest results and recalculates the pool. Defaults to the current week\n")
	res.WriteString("`$override team week winner [scoreline]`: records the result of a team's game by hand. Use `tie` as the winner for a tie\n")
	res.WriteString("`$clearoverride team week`: removes a hand recorded result\n")
	res.WriteString("`$audit [fix|last]`: compares every stored status against a fresh recalculation. `fix` corrects what is safe to correct, `last` shows the previous run\n")
	res.WriteString("`$week [n]`: shows or sets the current week\n")
	res.WriteString("Team names can be cities, nicknames or abbreviations. Names with spaces need to be encased in \" (e.g. \"Kansas City\")\n")
	b.send(session, message.ChannelID, res.String())
}

// statusHandler handles the $status command with a DiscordSession interface
func (b *Bot) statusHandler(session DiscordSession, message *discordgo.MessageCreate) {
	args, err := splitArgs(message.Content)
	if err != nil {
		b.send(session, message.ChannelID, "Could not read that command, check your quotes")
		return
	}
	userID, name := message.Author.ID, message.Author.Username
	if len(args) > 0 {
		userID = mentionID(args[0])
		name = userID
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if len(args) > 0 {
		if member, err := b.APIPtr.Store.GetMember(ctx, userID); err == nil && member.DisplayName != "" {
			name = member.DisplayName
		}
	}
	status, err := b.APIPtr.CheckSurvivor(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrDataMissing) {
			b.send(session, message.ChannelID, fmt.Sprintf("%s is not in this survivor pool\n", name))
			return
		}
		b.Logger.WithFields(logrus.Fields{"component": "bot", "user_id": userID, "error": err}).Error("Status check failed")
		b.send(session, message.ChannelID, fmt.Sprintf("An error occured checking %s's status: %s", name, userError(err)))
		return
	}
	b.send(session, message.ChannelID, formatStatus(name, status))
}

// standingsHandler handles the $standings command with a DiscordSession interface
func (b *Bot) standingsHandler(session DiscordSession, message *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	standings, err := b.APIPtr.GetStandings(ctx)
	if err != nil {
		b.Logger.WithFields(logrus.Fields{"component": "bot", "error": err}).Error("Standings failed")
		b.send(session, message.ChannelID, userError(err))
		return
	}
	b.send(session, message.ChannelID, formatStandings(standings))
}

// refreshHandler handles the $refresh command with a DiscordSession interface
func (b *Bot) refreshHandler(session DiscordSession, message *discordgo.MessageCreate) {
	if !b.requireAdmin(session, message) {
		return
	}
	args, err := splitArgs(message.Content)
	if err != nil {
		b.send(session, message.ChannelID, "Could not read that command, check your quotes")
		return
	}
	week := b.APIPtr.CurrentWeek()
	if len(args) > 0 {
		var msg string
		if week, msg = parseWeek(args[0]); msg != "" {
			b.send(session, message.ChannelID, msg)
			return
		}
	}
	if week == 0 {
		b.send(session, message.ChannelID, "The season has not started, give a week to refresh")
		return
	}
	b.typing(session, message.ChannelID)

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	report, err := b.APIPtr.RefreshWeek(ctx, week)
	if err != nil && !errors.Is(err, shared.ErrDataAmbiguous) {
		b.Logger.WithFields(logrus.Fields{"component": "bot", "week": week, "error": err}).Error("Refresh failed")
		b.send(session, message.ChannelID, fmt.Sprintf("Week %d was not refreshed: %s", week, userError(err)))
		return
	}

	var res strings.Builder
	res.WriteString(fmt.Sprintf("Week %d: fetched %d games, %d added, %d updated, %d rejected\n",
		week, report.Fetched, report.Added, report.Updated, len(report.Rejected)))
	for _, r := range report.Rejected {
		res.WriteString(fmt.Sprintf("- Rejected %s @ %s: %s\n", r.Game.AwayTeam, r.Game.HomeTeam, r.Reason))
	}
	for _, c := range report.Conflicts {
		res.WriteString(fmt.Sprintf("- Kept existing result: %s\n", c))
	}
	if err != nil {
		res.WriteString(fmt.Sprintf("Warning: %s\n", err))
	}

	recalc, err := b.APIPtr.RecalculatePool(ctx)
	if err != nil {
		b.Logger.WithFields(logrus.Fields{"component": "bot", "error": err}).Error("Recalculation failed")
		res.WriteString(fmt.Sprintf("Recalculation failed: %s\n", userError(err)))
	} else {
		res.WriteString(fmt.Sprintf("Recalculated: %d updated, %d unchanged, %d failed\n", len(recalc.Updated), len(recalc.Unchanged), len(recalc.Failed)))
	}
	b.send(session, message.ChannelID, res.String())
}

// overrideHandler handles the $override command with a DiscordSession interface
func (b *Bot) overrideHandler(session DiscordSession, message *discordgo.MessageCreate) {
	if !b.requireAdmin(session, message) {
		return
	}
	args, err := splitArgs(message.Content)
	if err != nil || len(args) < 3 {
		b.send(session, message.ChannelID, "Usage: `$override team week winner [scoreline]`")
		return
	}
	week, msg := parseWeek(args[1])
	if msg != "" {
		b.send(session, message.ChannelID, msg)
		return
	}
	scoreline := strings.Join(args[3:], " ")

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.APIPtr.OverrideResult(ctx, args[0], week, args[2], scoreline); err != nil {
		b.Logger.WithFields(logrus.Fields{"component": "bot", "error": err}).Warn("Override failed")
		b.send(session, message.ChannelID, fmt.Sprintf("Override not applied: %s", err))
		return
	}
	b.send(session, message.ChannelID, fmt.Sprintf("Override set for %s in Week %d. Run `$refresh %d` or wait for the next scheduled refresh to update statuses\n", args[0], week, week))
}

// clearOverrideHandler handles the $clearoverride command with a DiscordSession interface
func (b *Bot) clearOverrideHandler(session DiscordSession, message *discordgo.MessageCreate) {
	if !b.requireAdmin(session, message) {
		return
	}
	args, err := splitArgs(message.Content)
	if err != nil || len(args) != 2 {
		b.send(session, message.ChannelID, "Usage: `$clearoverride team week`")
		return
	}
	week, msg := parseWeek(args[1])
	if msg != "" {
		b.send(session, message.ChannelID, msg)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.APIPtr.ClearOverride(ctx, args[0], week); err != nil {
		b.send(session, message.ChannelID, fmt.Sprintf("Override not cleared: %s", err))
		return
	}
	b.send(session, message.ChannelID, fmt.Sprintf("Override cleared for %s in Week %d\n", args[0], week))
}

// auditHandler handles the $audit command with a DiscordSession interface
func (b *Bot) auditHandler(session DiscordSession, message *discordgo.MessageCreate) {
	if !b.requireAdmin(session, message) {
		return
	}
	args, _ := splitArgs(message.Content)
	opts := api.AuditOptions{}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "fix":
			opts.AutoCorrect = true
			b.typing(session, message.ChannelID)
		case "last":
			report, err := b.APIPtr.Store.GetLatestAuditReport(ctx)
			if err != nil {
				b.send(session, message.ChannelID, userError(err))
				return
			}
			b.send(session, message.ChannelID, fmt.Sprintf("Last audit finished %s\n%s",
				report.FinishedAt.Format("2006-01-02 15:04 MST"), formatAuditReport(report)))
			return
		}
	}

	report, err := b.APIPtr.AuditPool(ctx, opts)
	if err != nil && report.RunID == "" {
		b.Logger.WithFields(logrus.Fields{"component": "bot", "error": err}).Error("Audit failed")
		b.send(session, message.ChannelID, fmt.Sprintf("Audit failed: %s", userError(err)))
		return
	}
	res := formatAuditReport(report)
	if err != nil {
		res += fmt.Sprintf("Warning: %s\n", err)
	}
	b.send(session, message.ChannelID, res)
}

// weekHandler handles the $week command with a DiscordSession interface
func (b *Bot) weekHandler(session DiscordSession, message *discordgo.MessageCreate) {
	args, _ := splitArgs(message.Content)
	if len(args) == 0 {
		b.send(session, message.ChannelID, fmt.Sprintf("The current week is %d\n", b.APIPtr.CurrentWeek()))
		return
	}
	if !b.requireAdmin(session, message) {
		return
	}
	week, msg := parseWeek(args[0])
	if msg != "" {
		b.send(session, message.ChannelID, msg)
		return
	}
	if err := b.APIPtr.SetCurrentWeek(week); err != nil {
		b.send(session, message.ChannelID, err.Error())
		return
	}
	b.send(session, message.ChannelID, fmt.Sprintf("The current week is now %d\n", week))
}

// newMessageHandler routes messages to appropriate handlers with a DiscordSession interface
// botUserID is the bot's user ID to prevent self-responses
func (b *Bot) newMessageHandler(session DiscordSession, message *discordgo.MessageCreate, botUserID string) {
	// Prevent bot from responding to its own messages
	if message.Author == nil || message.Author.ID == botUserID {
		return
	}

	if !startsWith(message.Content, "$") {
		return
	}

	// Route to appropriate handler
	switch strings.Fields(message.Content)[0] {
	case "$help":
		b.helpMessageHandler(session, message)

	case "$status":
		b.statusHandler(session, message)

	case "$standings":
		b.standingsHandler(session, message)

	case "$refresh":
		b.refreshHandler(session, message)

	case "$override":
		b.overrideHandler(session, message)

	case "$clearoverride":
		b.clearOverrideHandler(session, message)

	case "$audit":
		b.auditHandler(session, message)

	case "$week":
		b.weekHandler(session, message)
	}
}
