package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soursound/internal/control"
)

// Responder answers interactions. *discordgo.Session satisfies it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// RespondDeferred acknowledges i at once, runs handle and delivers its reply
// as an ephemeral follow-up. Discord drops interactions that are not
// acknowledged within three seconds. When the deferral itself fails the
// reply is sent as a plain response instead.
func RespondDeferred(ctx context.Context, s Responder, i *discordgo.InteractionCreate, handle func() string) {
	deferred := DeferReply(ctx, s, i)
	reply := handle()
	if !deferred {
		RespondEphemeral(ctx, s, i, reply)
		return
	}
	FollowUp(ctx, s, i, reply)
}

// DeferReply sends an ephemeral deferred response and reports whether
// Discord accepted it.
func DeferReply(ctx context.Context, s Responder, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.Warn("discord: failed to defer interaction", "err", err)
		return false
	}
	return true
}

// FollowUp sends content as an ephemeral follow-up to a deferred response.
func FollowUp(ctx context.Context, s Responder, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.Warn("discord: failed to send follow-up", "err", err)
	}
}

// RespondEphemeral sends an ephemeral text response to an interaction.
func RespondEphemeral(ctx context.Context, s Responder, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.Warn("discord: failed to send ephemeral response", "err", err)
	}
}

// MessageAPI is the part of *discordgo.Session used for chat output.
type MessageAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
}

// Chat sends replies, embeds and reactions on behalf of the router.
type Chat struct {
	api MessageAPI
}

var _ control.Chat = (*Chat)(nil)

// NewChat creates a Chat on api.
func NewChat(api MessageAPI) *Chat { return &Chat{api: api} }

func replyTo(channelID, messageID string) *discordgo.MessageReference {
	fail := false
	return &discordgo.MessageReference{
		MessageID:       messageID,
		ChannelID:       channelID,
		FailIfNotExists: &fail,
	}
}

// Reply answers messageID with text. A deleted original degrades to a plain
// message.
func (c *Chat) Reply(ctx context.Context, channelID, messageID, content string) error {
	_, err := c.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:   content,
		Reference: replyTo(channelID, messageID),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: reply in %s: %w", channelID, err)
	}
	return nil
}

// ReplyEmbed answers messageID with an embed and returns the new message ID.
func (c *Chat) ReplyEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) (string, error) {
	msg, err := c.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: replyTo(channelID, messageID),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord: reply embed in %s: %w", channelID, err)
	}
	return msg.ID, nil
}

// EditEmbed replaces the embeds of a message the bot posted.
func (c *Chat) EditEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).SetEmbed(embed)
	if _, err := c.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: edit %s: %w", messageID, err)
	}
	return nil
}

// React adds emoji to a message.
func (c *Chat) React(ctx context.Context, channelID, messageID, emoji string) error {
	return c.api.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

// Unreact removes userID's emoji reaction from a message.
func (c *Chat) Unreact(ctx context.Context, channelID, messageID, emoji, userID string) error {
	return c.api.MessageReactionRemove(channelID, messageID, emoji, userID, discordgo.WithContext(ctx))
}

// VoiceLocator answers "which voice channel is this member in" from the
// gateway state cache.
type VoiceLocator struct {
	state *discordgo.State
}

var _ control.VoiceLocator = (*VoiceLocator)(nil)

// NewVoiceLocator creates a VoiceLocator over state.
func NewVoiceLocator(state *discordgo.State) *VoiceLocator {
	return &VoiceLocator{state: state}
}

// VoiceChannel returns userID's current voice channel in guildID.
func (v *VoiceLocator) VoiceChannel(guildID, userID string) (string, bool) {
	vs, err := v.state.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}
