/* mock_session.go
 * Contains a recording DiscordSession for handler tests
 * Authors: Zachary Bower
 */

package bot

import (
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// MockMessage is one message posted through the mock session
type MockMessage struct {
	ChannelID string
	Content   string
}

// MockDiscordSession records what the handlers send. Setting ErrorToReturn makes every send fail
type MockDiscordSession struct {
	mu            sync.Mutex
	SentMessages  []MockMessage
	TypingIn      []string
	ErrorToReturn error
}

func NewMockDiscordSession() *MockDiscordSession {
	return &MockDiscordSession{SentMessages: []MockMessage{}}
}

func (m *MockDiscordSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	m.SentMessages = append(m.SentMessages, MockMessage{ChannelID: channelID, Content: content})
	return &discordgo.Message{ID: "mock_message_id", ChannelID: channelID, Content: content}, nil
}

func (m *MockDiscordSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TypingIn = append(m.TypingIn, channelID)
	return nil
}

// GetLastMessage returns the most recent message, or the zero value when nothing was sent
func (m *MockDiscordSession) GetLastMessage() MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentMessages) == 0 {
		return MockMessage{}
	}
	return m.SentMessages[len(m.SentMessages)-1]
}

// Transcript joins every message sent, in order, so split replies can be checked as one
func (m *MockDiscordSession) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res strings.Builder
	for _, msg := range m.SentMessages {
		res.WriteString(msg.Content)
	}
	return res.String()
}
