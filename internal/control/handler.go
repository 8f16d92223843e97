// Package control routes typed commands, control-panel callbacks and
// quick-select reactions to the session, playback and panel layers.
//
// Every state change follows the same sequence under the session lock:
// check preconditions, mutate the session, restart playback when the issuer
// is in voice, then reconcile the control panel. Precondition failures are
// answered with a short reply and change nothing.
package control

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soursound/internal/generator"
	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/observe"
	"github.com/MrWong99/soursound/internal/playback"
	"github.com/MrWong99/soursound/internal/remote"
	"github.com/MrWong99/soursound/internal/session"
)

// DefaultQuickSelectTimeout is how long a quick-select menu accepts reactions.
const DefaultQuickSelectTimeout = 120 * time.Second

// ErrNoVoice is returned when the issuer has no voice presence.
var ErrNoVoice = errors.New("control: issuer is not in a voice channel")

// Message is an inbound chat message.
type Message struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	Content   string
}

// Interaction is an inbound control-panel callback.
type Interaction struct {
	GuildID   string
	ChannelID string
	// MessageID is the panel the control was clicked on.
	MessageID string
	UserID    string
	CustomID  string
	Values    []string
}

// Reaction is an inbound emoji reaction.
type Reaction struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

// Chat is the outbound side of the chat gateway.
type Chat interface {
	// Reply answers the message (channelID, messageID) with text.
	Reply(ctx context.Context, channelID, messageID, content string) error
	// ReplyEmbed answers with an embed and returns the new message ID.
	ReplyEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) (string, error)
	// EditEmbed replaces the embed of a message the bot posted.
	EditEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error
	// React adds emoji to a message.
	React(ctx context.Context, channelID, messageID, emoji string) error
	// Unreact removes userID's emoji reaction from a message.
	Unreact(ctx context.Context, channelID, messageID, emoji, userID string) error
}

// VoiceLocator finds a user's current voice channel.
type VoiceLocator interface {
	VoiceChannel(guildID, userID string) (channelID string, ok bool)
}

// Playback is the subset of [playback.Manager] the router drives.
type Playback interface {
	PlayCurrent(ctx context.Context, st *session.State, channelID string) error
	Stop(ctx context.Context, key string)
	Leave(ctx context.Context, key string) error
	Status(key string) playback.Status
}

// Reconciler is the subset of [remote.Synchronizer] the router drives.
type Reconciler interface {
	Reconcile(ctx context.Context, st *session.State, channelID string) (remote.Outcome, error)
}

// StatsSource reports generator process statistics.
type StatsSource interface {
	Stats(ctx context.Context, key string) (generator.Stats, bool)
}

var (
	_ Playback    = (*playback.Manager)(nil)
	_ Reconciler  = (*remote.Synchronizer)(nil)
	_ StatsSource = (*generator.Supervisor)(nil)
)

// Config holds the dependencies of a [Handler].
type Config struct {
	Prefix             string
	QuickSelectTimeout time.Duration

	Registry *session.Registry
	Catalog  *noise.Catalog
	Playback Playback
	Panels   Reconciler
	Stats    StatsSource // optional
	Chat     Chat
	Voice    VoiceLocator
	Metrics  *observe.Metrics
}

// Handler is the command and interaction router. It is safe for concurrent
// use; events for different sessions proceed in parallel.
type Handler struct {
	prefix   string
	registry *session.Registry
	catalog  *noise.Catalog
	playback Playback
	panels   Reconciler
	stats    StatsSource
	chat     Chat
	voice    VoiceLocator
	metrics  *observe.Metrics

	quickTimeout atomic.Int64

	mu    sync.Mutex
	menus map[string]*quickSelect // by menu message ID
}

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.QuickSelectTimeout <= 0 {
		cfg.QuickSelectTimeout = DefaultQuickSelectTimeout
	}
	if cfg.Catalog == nil {
		cfg.Catalog = noise.DefaultCatalog()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	h := &Handler{
		prefix:   cfg.Prefix,
		registry: cfg.Registry,
		catalog:  cfg.Catalog,
		playback: cfg.Playback,
		panels:   cfg.Panels,
		stats:    cfg.Stats,
		chat:     cfg.Chat,
		voice:    cfg.Voice,
		metrics:  cfg.Metrics,
		menus:    make(map[string]*quickSelect),
	}
	h.quickTimeout.Store(int64(cfg.QuickSelectTimeout))
	return h
}

// SetQuickSelectTimeout changes the lifetime of menus opened from now on.
func (h *Handler) SetQuickSelectTimeout(d time.Duration) {
	if d > 0 {
		h.quickTimeout.Store(int64(d))
	}
}

// Prefix returns the command prefix.
func (h *Handler) Prefix() string { return h.prefix }

func (h *Handler) voiceOf(guildID, userID string) (string, bool) {
	if h.voice == nil {
		return "", false
	}
	return h.voice.VoiceChannel(guildID, userID)
}

func (h *Handler) record(ctx context.Context, name string, err error) {
	status := observe.StatusOK
	if err != nil {
		status = observe.StatusError
	}
	h.metrics.RecordCommand(ctx, name, status)
}

// playFailure maps a PlayCurrent error to the reply shown to the issuer.
func playFailure(ctx context.Context, key string, err error) string {
	if errors.Is(err, generator.ErrUnavailable) {
		observe.Logger(ctx).Error("control: generator failed to start", "guild", key, "err", err)
		return msgGeneratorFailed
	}
	observe.Logger(ctx).Warn("control: voice join failed", "guild", key, "err", err)
	return msgVoiceJoinFailed
}

// playOrRevert restarts playback into voice. When it fails, st.Settings is
// restored to prev so the session still matches the last reconciled panel.
func (h *Handler) playOrRevert(ctx context.Context, st *session.State, voice string, prev noise.Settings) error {
	if err := h.playback.PlayCurrent(ctx, st, voice); err != nil {
		st.Settings = prev
		return err
	}
	return nil
}

// reconcile refreshes the panel and logs failures; the mutation already
// happened, so a panel failure does not fail the command.
func (h *Handler) reconcile(ctx context.Context, st *session.State, channelID string) {
	if _, err := h.panels.Reconcile(ctx, st, channelID); err != nil {
		observe.Logger(ctx).Warn("control: failed to reconcile remote panel",
			"guild", st.Key, "channel", channelID, "err", err)
	}
}

// reply answers a typed command, logging delivery failures.
func (h *Handler) reply(ctx context.Context, m Message, content string) {
	if err := h.chat.Reply(ctx, m.ChannelID, m.MessageID, content); err != nil {
		slog.Warn("control: failed to reply", "guild", m.GuildID, "channel", m.ChannelID, "err", err)
	}
}

// HandleMessage runs the typed command in m, if there is one.
func (h *Handler) HandleMessage(ctx context.Context, m Message) {
	if m.GuildID == "" {
		return
	}
	cmd, ok := ParseCommand(h.prefix, m.Content)
	if !ok {
		return
	}
	ctx, span := observe.StartSessionSpan(ctx, "control.command."+string(cmd.Kind), m.GuildID, m.ChannelID)
	defer span.End()

	var err error
	switch cmd.Kind {
	case CmdHelp:
		h.reply(ctx, m, helpText(h.prefix, h.catalog))
	case CmdStatus:
		err = h.status(ctx, m)
	case CmdPlay:
		err = h.play(ctx, m, cmd.Arg)
	case CmdNoises:
		err = h.openQuickSelect(ctx, m)
	case CmdStop:
		err = h.registry.Do(m.GuildID, func(*session.State) error {
			h.playback.Stop(ctx, m.GuildID)
			return nil
		})
		h.reply(ctx, m, msgStopped)
	case CmdLeave:
		err = h.registry.Do(m.GuildID, func(*session.State) error {
			return h.playback.Leave(ctx, m.GuildID)
		})
		if err != nil {
			observe.Logger(ctx).Warn("control: leave", "guild", m.GuildID, "err", err)
		}
		h.reply(ctx, m, msgLeft)
	case CmdRemote:
		err = h.openRemote(ctx, m)
	}
	h.record(ctx, string(cmd.Kind), err)
}

func (h *Handler) status(ctx context.Context, m Message) error {
	st := h.registry.GetOrCreate(m.GuildID)
	v := remote.Render(st.Key, st.Settings, h.catalog)
	v.Footer = "Not playing."
	if h.playback.Status(st.Key).Playing {
		v.Footer = "Playing."
		if h.stats != nil {
			if s, ok := h.stats.Stats(ctx, st.Key); ok {
				v.Footer = "Generator: " + s.String()
			}
		}
	}
	_, err := h.chat.ReplyEmbed(ctx, m.ChannelID, m.MessageID, remote.Embed(v))
	return err
}

func (h *Handler) play(ctx context.Context, m Message, name string) error {
	voice, ok := h.voiceOf(m.GuildID, m.AuthorID)
	if !ok {
		h.reply(ctx, m, msgJoinVoice)
		return ErrNoVoice
	}
	p, err := h.catalog.Find(name)
	if err != nil {
		var suggestion *noise.Preset
		if s, ok := h.catalog.Suggest(name); ok {
			suggestion = &s
		}
		h.reply(ctx, m, msgPresetUnknown(h.prefix, suggestion))
		return err
	}

	var reply string
	err = h.registry.Do(m.GuildID, func(st *session.State) error {
		prev := st.Settings
		noise.ApplyPreset(&st.Settings, p)
		if err := h.playOrRevert(ctx, st, voice, prev); err != nil {
			reply = playFailure(ctx, st.Key, err)
			return err
		}
		h.reconcile(ctx, st, m.ChannelID)
		reply = msgNowPlaying(p)
		return nil
	})
	h.reply(ctx, m, reply)
	return err
}

func (h *Handler) openRemote(ctx context.Context, m Message) error {
	if _, ok := h.voiceOf(m.GuildID, m.AuthorID); !ok {
		h.reply(ctx, m, msgJoinVoice)
		return ErrNoVoice
	}
	return h.registry.Do(m.GuildID, func(st *session.State) error {
		if _, err := h.panels.Reconcile(ctx, st, m.ChannelID); err != nil {
			observe.Logger(ctx).Warn("control: failed to open remote panel", "guild", st.Key, "err", err)
			h.reply(ctx, m, msgRemoteOpenFailed)
			return err
		}
		return nil
	})
}

// HandleInteraction processes a control-panel callback and returns the
// ephemeral acknowledgement for the issuer.
func (h *Handler) HandleInteraction(ctx context.Context, in Interaction) string {
	cb, err := DecodeCallback(in.CustomID, in.Values)
	if errors.Is(err, ErrNoSelection) {
		return msgNoSelection
	}
	if err != nil {
		h.record(ctx, "invalid", err)
		return msgInvalidControl
	}
	if cb.SessionKey() != in.GuildID {
		h.record(ctx, "invalid", ErrInvalidControl)
		return msgWrongSession
	}

	ctx, span := observe.StartSessionSpan(ctx, "control.callback", cb.SessionKey(), in.ChannelID)
	defer span.End()

	var reply, name string
	err = h.registry.Do(cb.SessionKey(), func(st *session.State) error {
		h.adoptPanel(st, in)
		reply, name, err = h.applyCallback(ctx, st, in, cb)
		return err
	})
	h.record(ctx, name, err)
	return reply
}

// adoptPanel makes the panel the interaction came from the session's panel
// when none is remembered, so that it is edited rather than duplicated.
func (h *Handler) adoptPanel(st *session.State, in Interaction) {
	if st.View == nil && in.MessageID != "" && in.ChannelID != "" {
		st.View = &session.ViewRef{ChannelID: in.ChannelID, MessageID: in.MessageID}
	}
}

// applyCallback runs under the session lock.
func (h *Handler) applyCallback(ctx context.Context, st *session.State, in Interaction, cb Callback) (reply, name string, err error) {
	voice, inVoice := h.voiceOf(in.GuildID, in.UserID)

	// mutate applies fn, restarts playback when the issuer is in voice and
	// refreshes the panel. A failed restart leaves the settings untouched.
	mutate := func(fn func(*noise.Settings), ok string) (string, error) {
		prev := st.Settings
		fn(&st.Settings)
		if inVoice {
			if err := h.playOrRevert(ctx, st, voice, prev); err != nil {
				return playFailure(ctx, st.Key, err), err
			}
		}
		h.reconcile(ctx, st, in.ChannelID)
		return ok, nil
	}

	switch c := cb.(type) {
	case PresetSelect:
		p, found := h.catalog.ByID(c.PresetID)
		if !found {
			return msgPresetNotFound, "preset", noise.ErrUnknownPreset
		}
		reply, err = mutate(func(s *noise.Settings) { noise.ApplyPreset(s, p) }, msgApplied(p))
		return reply, "preset", err

	case ColorSelect:
		reply, err = mutate(func(s *noise.Settings) { noise.SetColor(s, c.Color) }, msgColorSet(c.Color))
		return reply, "color", err

	case Nudge:
		reply, err = mutate(func(s *noise.Settings) { _ = noise.ApplyDelta(s, c.Delta) }, msgUpdated)
		return reply, "nudge", err

	case SessionControl:
		name = "control." + string(c.Action)
		switch c.Action {
		case remote.ActionPlay:
			if !inVoice {
				return msgJoinVoiceToPlay, name, ErrNoVoice
			}
			if err := h.playOrRevert(ctx, st, voice, st.Settings); err != nil {
				return playFailure(ctx, st.Key, err), name, err
			}
			h.reconcile(ctx, st, in.ChannelID)
			return msgPlaying, name, nil
		case remote.ActionStop:
			h.playback.Stop(ctx, st.Key)
			return msgStopped, name, nil
		case remote.ActionLeave:
			if err := h.playback.Leave(ctx, st.Key); err != nil {
				observe.Logger(ctx).Warn("control: leave", "guild", st.Key, "err", err)
			}
			return msgLeft, name, nil
		}
	}
	return msgInvalidControl, "invalid", ErrInvalidControl
}

// Close expires every open quick-select menu.
func (h *Handler) Close() {
	h.mu.Lock()
	menus := h.menus
	h.menus = make(map[string]*quickSelect)
	h.mu.Unlock()
	for _, q := range menus {
		q.timer.Stop()
	}
}
