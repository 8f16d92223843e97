// Package discord provides the Discord bot layer for SourSound. It owns the
// discordgo.Session lifecycle, sets the bot presence and fans gateway events
// into the command router.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soursound/internal/control"
	"github.com/MrWong99/soursound/pkg/audio"
	discordaudio "github.com/MrWong99/soursound/pkg/audio/discord"
)

// DefaultStatus is the presence text shown under the bot's name.
const DefaultStatus = "Shelp | Sremote"

// Intents are the gateway intents the bot subscribes to. Message content is
// needed to read typed commands.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsMessageContent

// Config holds Discord bot configuration.
type Config struct {
	// Token is the bare bot token, without the "Bot " prefix.
	Token string

	// Status is the presence text. Empty uses [DefaultStatus].
	Status string
}

// Router receives the events the bot forwards.
type Router interface {
	HandleMessage(ctx context.Context, m control.Message)
	HandleInteraction(ctx context.Context, in control.Interaction) string
	HandleReaction(ctx context.Context, r control.Reaction)
}

var _ Router = (*control.Handler)(nil)

// Bot owns the Discord gateway connection.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	platform  *discordaudio.Platform
	chat      *Chat
	voice     *VoiceLocator
	status    string
	ready     atomic.Bool
	closeOnce sync.Once
}

// New creates a Bot. The gateway is not opened until [Bot.Run].
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = Intents
	session.StateEnabled = true

	status := cfg.Status
	if status == "" {
		status = DefaultStatus
	}
	return &Bot{
		session:  session,
		platform: discordaudio.New(session),
		chat:     NewChat(session),
		voice:    NewVoiceLocator(session.State),
		status:   status,
	}, nil
}

// Platform returns the audio.Platform for voice channel connections.
func (b *Bot) Platform() audio.Platform { return b.platform }

// Chat returns the outbound message helper.
func (b *Bot) Chat() *Chat { return b.chat }

// Voice returns the voice presence lookup backed by the gateway state cache.
func (b *Bot) Voice() *VoiceLocator { return b.voice }

// Session returns the underlying discordgo session. Used by subsystems that
// need direct Discord API access (e.g. control panel updates).
func (b *Bot) Session() *discordgo.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Ready reports whether the gateway session is connected and identified.
func (b *Bot) Ready() bool { return b.ready.Load() }

// SetStatus changes the presence text. It is applied immediately when the
// gateway is connected and on every later reconnect.
func (b *Bot) SetStatus(text string) error {
	if text == "" {
		text = DefaultStatus
	}
	b.mu.Lock()
	b.status = text
	b.mu.Unlock()
	if !b.Ready() {
		return nil
	}
	return b.applyStatus()
}

func (b *Bot) applyStatus() error {
	b.mu.RLock()
	text := b.status
	b.mu.RUnlock()
	err := b.session.UpdateStatusComplex(presence(text))
	if err != nil {
		return fmt.Errorf("discord: update presence: %w", err)
	}
	return nil
}

func presence(text string) discordgo.UpdateStatusData {
	return discordgo.UpdateStatusData{
		Status: string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{
			{Name: text, Type: discordgo.ActivityTypeGame},
		},
	}
}

// Run registers the event handlers, opens the gateway and blocks until ctx
// is cancelled. Events are dispatched to router on discordgo's goroutines.
func (b *Bot) Run(ctx context.Context, router Router) error {
	s := b.session
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.ready.Store(true)
		slog.Info("discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
		if err := b.applyStatus(); err != nil {
			slog.Warn("discord: failed to set presence", "err", err)
		}
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		b.ready.Store(false)
		slog.Warn("discord gateway disconnected")
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		b.ready.Store(true)
	})
	s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if msg, ok := MessageEvent(botID(s), m); ok {
			router.HandleMessage(ctx, msg)
		}
	})
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		in, ok := InteractionEvent(i)
		if !ok {
			return
		}
		RespondDeferred(ctx, s, i, func() string {
			return router.HandleInteraction(ctx, in)
		})
	})
	s.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if re, ok := ReactionEvent(botID(s), r); ok {
			router.HandleReaction(ctx, re)
		}
	})

	if err := s.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	slog.Info("discord gateway opened")

	<-ctx.Done()
	return b.Close()
}

func botID(s *discordgo.Session) string {
	if s == nil || s.State == nil || s.State.User == nil {
		return ""
	}
	return s.State.User.ID
}

// Close disconnects from Discord. It is safe to call more than once.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.ready.Store(false)
		if b.session != nil {
			if err := b.session.Close(); err != nil {
				closeErr = fmt.Errorf("discord: close session: %w", err)
			}
		}
		slog.Info("discord bot closed")
	})
	return closeErr
}
