// Package mock provides test doubles for the Discord REST surface used by
// the bot and the control panel.
package mock

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ReactionCall records one reaction add or remove.
type ReactionCall struct {
	ChannelID string
	MessageID string
	Emoji     string
	UserID    string
}

// Session records outbound Discord API calls for test assertions. Sent
// messages get sequential IDs "mock-1", "mock-2", ...
type Session struct {
	mu sync.Mutex

	// Err is returned by every call when non-nil, allowing error injection.
	Err error

	// RespondErr, when set, is returned by InteractionRespond only.
	RespondErr error

	Responses []*discordgo.InteractionResponse
	FollowUps []*discordgo.WebhookParams
	Sent      []*discordgo.MessageSend
	SentTo    []string
	Edits     []*discordgo.MessageEdit
	Reactions []ReactionCall
	Removed   []ReactionCall

	next int
}

// InteractionRespond records the response and returns the configured error.
func (m *Session) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, resp)
	if m.RespondErr != nil {
		return m.RespondErr
	}
	return m.Err
}

// FollowupMessageCreate records the follow-up.
func (m *Session) FollowupMessageCreate(i *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FollowUps = append(m.FollowUps, data)
	if m.Err != nil {
		return nil, m.Err
	}
	m.next++
	return &discordgo.Message{ID: fmt.Sprintf("mock-%d", m.next), ChannelID: i.ChannelID, Content: data.Content}, nil
}

// ChannelMessageSendComplex records the message and returns it with a new ID.
func (m *Session) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	m.SentTo = append(m.SentTo, channelID)
	if m.Err != nil {
		return nil, m.Err
	}
	m.next++
	return &discordgo.Message{
		ID:         fmt.Sprintf("mock-%d", m.next),
		ChannelID:  channelID,
		Content:    data.Content,
		Embeds:     data.Embeds,
		Components: data.Components,
	}, nil
}

// ChannelMessageEditComplex records the edit.
func (m *Session) ChannelMessageEditComplex(e *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, e)
	if m.Err != nil {
		return nil, m.Err
	}
	return &discordgo.Message{ID: e.ID, ChannelID: e.Channel}, nil
}

// MessageReactionAdd records the reaction.
func (m *Session) MessageReactionAdd(channelID, messageID, emoji string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reactions = append(m.Reactions, ReactionCall{ChannelID: channelID, MessageID: messageID, Emoji: emoji})
	return m.Err
}

// MessageReactionRemove records the removal.
func (m *Session) MessageReactionRemove(channelID, messageID, emoji, userID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, ReactionCall{ChannelID: channelID, MessageID: messageID, Emoji: emoji, UserID: userID})
	return m.Err
}

// LastResponse returns the most recently recorded interaction response, or nil.
func (m *Session) LastResponse() *discordgo.InteractionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 {
		return nil
	}
	return m.Responses[len(m.Responses)-1]
}

// LastSent returns the most recently sent message, or nil.
func (m *Session) LastSent() *discordgo.MessageSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}

// Reset clears all recorded calls and errors.
func (m *Session) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = nil
	m.RespondErr = nil
	m.Responses = nil
	m.FollowUps = nil
	m.Sent = nil
	m.SentTo = nil
	m.Edits = nil
	m.Reactions = nil
	m.Removed = nil
}
