package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soursound/internal/control"
)

// MessageEvent converts a gateway message into a router event. Direct
// messages and messages by bots (including this one) are dropped.
func MessageEvent(botID string, m *discordgo.MessageCreate) (control.Message, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return control.Message{}, false
	}
	if m.Author.Bot || m.Author.ID == botID || m.GuildID == "" {
		return control.Message{}, false
	}
	return control.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		AuthorID:  m.Author.ID,
		Content:   m.Content,
	}, true
}

// InteractionEvent converts a message component interaction into a router
// event. Slash commands, modals and interactions outside guilds are dropped.
func InteractionEvent(i *discordgo.InteractionCreate) (control.Interaction, bool) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionMessageComponent {
		return control.Interaction{}, false
	}
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return control.Interaction{}, false
	}
	data := i.MessageComponentData()
	in := control.Interaction{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		UserID:    i.Member.User.ID,
		CustomID:  data.CustomID,
		Values:    data.Values,
	}
	if i.Message != nil {
		in.MessageID = i.Message.ID
	}
	return in, true
}

// ReactionEvent converts a reaction into a router event. The bot's own
// reactions (it seeds every menu with them) are dropped.
func ReactionEvent(botID string, r *discordgo.MessageReactionAdd) (control.Reaction, bool) {
	if r == nil || r.MessageReaction == nil || r.GuildID == "" {
		return control.Reaction{}, false
	}
	if r.UserID == botID {
		return control.Reaction{}, false
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return control.Reaction{}, false
	}
	return control.Reaction{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
	}, true
}
