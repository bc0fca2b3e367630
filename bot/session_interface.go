/* session_interface.go
 * Contains the subset of the discord session used by the command handlers, so handlers can run against a mock
 * Authors: Zachary Bower
 */

package bot

import "github.com/bwmarrin/discordgo"

// DiscordSession is implemented by *discordgo.Session.
// ChannelTyping shows the typing indicator while a slow operator command (refresh, audit) runs
type DiscordSession interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

var _ DiscordSession = (*discordgo.Session)(nil)
