// Package discord provides an [audio.Platform] implementation backed by
// Discord voice channels via the bwmarrin/discordgo library. It bridges
// SourSound's PCM [audio.AudioFrame] stream to Discord's Opus transport.
//
// The platform requires an active *discordgo.Session (owned by the bot
// layer). Each call to [Platform.Connect] joins the requested voice channel
// of the requested guild and returns a [Connection] that encodes frames to
// Opus and sends them.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soursound/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// Platform implements [audio.Platform] using discordgo voice connections.
//
// Platform is safe for concurrent use.
type Platform struct {
	session *discordgo.Session
}

// New creates a new Discord Platform for the given session.
func New(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

// Connect joins channelID in guildID and returns an active [audio.Connection].
// Joining a channel in a guild where the bot is already connected moves the
// existing voice connection; discordgo hands back the same underlying
// *discordgo.VoiceConnection in that case.
func (p *Platform) Connect(_ context.Context, guildID, channelID string) (audio.Connection, error) {
	// mute=false (we send audio), deaf=true (we never listen).
	vc, err := p.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, err)
	}

	conn, err := newConnection(vc, guildID, channelID)
	if err != nil {
		_ = vc.Disconnect()
		return nil, fmt.Errorf("discord: create connection: %w", err)
	}
	return conn, nil
}
