// Package audio defines the interfaces and types for voice platform
// connectivity within SourSound.
//
// The two primary abstractions are:
//
//   - [Platform]: joins a voice channel and returns a [Connection].
//   - [Connection]: an active voice session on that channel that accepts a
//     stream of PCM [AudioFrame] values for playback.
//
// SourSound only ever speaks into a channel; it never listens. The
// interfaces are send-only and keep the playback layer free of the
// Discord SDK.
//
// This package lives under pkg/ because other voice transports are expected
// to implement [Platform] and [Connection].
package audio

import (
	"context"
)

// Connection represents an active session on a voice channel.
//
// A Connection is obtained by calling [Platform.Connect] and remains valid
// until [Connection.Disconnect] is called.
//
// Implementations must be safe for concurrent use.
type Connection interface {
	// OutputStream returns the write-only channel for playback audio.
	// Frames written here are encoded and sent to the voice channel.
	// The channel is buffered; writers should select on their own
	// cancellation signal so that a stalled transport never blocks them
	// forever.
	//
	// Ownership: the platform does NOT close this channel on Disconnect.
	// Writing after Disconnect results in dropped frames (not a panic).
	OutputStream() chan<- AudioFrame

	// ChannelID returns the voice channel this connection is joined to.
	ChannelID() string

	// Disconnect tears down the voice connection. It is safe to call more
	// than once; subsequent calls are no-ops and return nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel channelID in guild guildID and returns
	// an active [Connection]. The supplied ctx governs the connection attempt
	// only; once connected, the Connection stays alive until
	// [Connection.Disconnect] is called.
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}
