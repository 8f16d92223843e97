package control

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/observe"
	"github.com/MrWong99/soursound/internal/remote"
	"github.com/MrWong99/soursound/internal/session"
)

// Quick-select reactions.
const (
	EmojiPrev = "⬅️"
	EmojiPlay = "▶️"
	EmojiNext = "➡️"
)

const (
	quickSelectTitle  = "🔊 Noise Selector"
	quickSelectFooter = "⬅️ / ➡️ to change — ▶️ to play"
)

// quickSelect is an open reaction menu. Only its owner may drive it, and
// playback goes to the voice channel the owner was in when it opened.
type quickSelect struct {
	key       string
	channelID string
	messageID string // the menu
	commandID string // the message that opened it
	owner     string
	voice     string
	timer     *time.Timer
}

// QuickSelectEmbed renders the menu for p.
func QuickSelectEmbed(p noise.Preset) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       quickSelectTitle,
		Description: fmt.Sprintf("**%s** — %s", p.Label, p.Description),
		Color:       remote.AccentColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Type", Value: string(p.Color), Inline: true},
			{Name: "Lowpass", Value: fmt.Sprintf("%d Hz", p.LowpassHz), Inline: true},
			{Name: "Highpass", Value: fmt.Sprintf("%d Hz", p.HighpassHz), Inline: true},
			{Name: "Volume", Value: strconv.FormatFloat(p.Volume, 'f', -1, 64), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: quickSelectFooter},
	}
}

func (h *Handler) openQuickSelect(ctx context.Context, m Message) error {
	voice, ok := h.voiceOf(m.GuildID, m.AuthorID)
	if !ok {
		h.reply(ctx, m, msgJoinVoice)
		return ErrNoVoice
	}

	var cursor int
	_ = h.registry.Do(m.GuildID, func(st *session.State) error {
		st.Cursor = h.catalog.Wrap(st.Cursor)
		cursor = st.Cursor
		return nil
	})

	menuID, err := h.chat.ReplyEmbed(ctx, m.ChannelID, m.MessageID, QuickSelectEmbed(h.catalog.At(cursor)))
	if err != nil {
		return fmt.Errorf("control: open quick select: %w", err)
	}

	q := &quickSelect{
		key:       m.GuildID,
		channelID: m.ChannelID,
		messageID: menuID,
		commandID: m.MessageID,
		owner:     m.AuthorID,
		voice:     voice,
	}
	timeout := time.Duration(h.quickTimeout.Load())
	h.mu.Lock()
	h.menus[menuID] = q
	q.timer = time.AfterFunc(timeout, func() { h.expire(menuID) })
	h.mu.Unlock()

	for _, e := range []string{EmojiPrev, EmojiPlay, EmojiNext} {
		if err := h.chat.React(ctx, m.ChannelID, menuID, e); err != nil {
			observe.Logger(ctx).Debug("control: failed to add menu reaction", "guild", m.GuildID, "emoji", e, "err", err)
		}
	}
	return nil
}

func (h *Handler) expire(menuID string) {
	h.mu.Lock()
	delete(h.menus, menuID)
	h.mu.Unlock()
}

// OpenMenus returns the number of quick-select menus still accepting
// reactions.
func (h *Handler) OpenMenus() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.menus)
}

// HandleReaction drives an open quick-select menu. Reactions on unknown or
// expired menus, by anyone but the menu's owner, or with other emoji are
// ignored.
func (h *Handler) HandleReaction(ctx context.Context, r Reaction) {
	switch r.Emoji {
	case EmojiPrev, EmojiPlay, EmojiNext:
	default:
		return
	}
	h.mu.Lock()
	q, ok := h.menus[r.MessageID]
	h.mu.Unlock()
	if !ok || r.UserID != q.owner || r.GuildID != q.key {
		return
	}

	if err := h.chat.Unreact(ctx, q.channelID, q.messageID, r.Emoji, r.UserID); err != nil {
		observe.Logger(ctx).Debug("control: failed to remove menu reaction", "guild", q.key, "err", err)
	}

	var (
		shown noise.Preset
		reply string
		err   error
	)
	_ = h.registry.Do(q.key, func(st *session.State) error {
		switch r.Emoji {
		case EmojiPrev:
			st.Cursor = h.catalog.Wrap(st.Cursor - 1)
		case EmojiNext:
			st.Cursor = h.catalog.Wrap(st.Cursor + 1)
		case EmojiPlay:
			p := h.catalog.At(st.Cursor)
			prev := st.Settings
			noise.ApplyPreset(&st.Settings, p)
			if err = h.playOrRevert(ctx, st, q.voice, prev); err != nil {
				reply = playFailure(ctx, st.Key, err)
			} else {
				reply = msgNowPlaying(p)
				h.reconcile(ctx, st, q.channelID)
			}
		}
		shown = h.catalog.At(st.Cursor)
		return nil
	})

	if r.Emoji == EmojiPlay {
		h.record(ctx, "quickselect.play", err)
		if err := h.chat.Reply(ctx, q.channelID, q.commandID, reply); err != nil {
			observe.Logger(ctx).Warn("control: failed to reply", "guild", q.key, "err", err)
		}
	}
	if err := h.chat.EditEmbed(ctx, q.channelID, q.messageID, QuickSelectEmbed(shown)); err != nil {
		observe.Logger(ctx).Debug("control: failed to update menu", "guild", q.key, "err", err)
	}
}
