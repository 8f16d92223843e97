// Package mock provides in-memory mock implementations of the
// [audio.Platform] and [audio.Connection] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	platform := &mock.Platform{}
//	conn, err := platform.Connect(ctx, "guild-1", "voice-42")
//	frame := <-platform.LastConnection().Output()
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/soursound/pkg/audio"
)

// ─── Connection ───────────────────────────────────────────────────────────────

// Connection is a mock implementation of [audio.Connection]. When no
// OutputStreamResult is provided, a buffered channel is created on first use;
// read it back with [Connection.Output].
type Connection struct {
	mu sync.Mutex

	// Channel is returned by [Connection.ChannelID].
	Channel string

	// OutputStreamResult is returned by [Connection.OutputStream].
	OutputStreamResult chan audio.AudioFrame

	// DisconnectError is returned by [Connection.Disconnect].
	DisconnectError error

	// CallCountDisconnect records how many times Disconnect was called.
	CallCountDisconnect int
}

// OutputStream implements [audio.Connection].
func (c *Connection) OutputStream() chan<- audio.AudioFrame {
	return c.Output()
}

// Output returns the read side of the output stream for assertions.
func (c *Connection) Output() chan audio.AudioFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.OutputStreamResult == nil {
		c.OutputStreamResult = make(chan audio.AudioFrame, 256)
	}
	return c.OutputStreamResult
}

// ChannelID implements [audio.Connection].
func (c *Connection) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Channel
}

// Disconnect implements [audio.Connection]. Returns DisconnectError.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountDisconnect++
	return c.DisconnectError
}

// Disconnects returns the number of Disconnect calls.
func (c *Connection) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCountDisconnect
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// ConnectCall records the arguments of a single [Platform.Connect] invocation.
type ConnectCall struct {
	GuildID   string
	ChannelID string
}

// Platform is a mock implementation of [audio.Platform]. Unless
// ConnectResult is set, every Connect returns a fresh [Connection] bound to
// the requested channel.
type Platform struct {
	mu sync.Mutex

	// ConnectResult, when non-nil, is returned by every Connect call.
	ConnectResult audio.Connection

	// ConnectError is the error returned by Connect.
	ConnectError error

	// ConnectCalls records all Connect invocations.
	ConnectCalls []ConnectCall

	// Connections records the connections created by Connect, in order.
	Connections []*Connection
}

// Connect implements [audio.Platform].
func (p *Platform) Connect(_ context.Context, guildID, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{GuildID: guildID, ChannelID: channelID})
	if p.ConnectError != nil {
		return nil, p.ConnectError
	}
	if p.ConnectResult != nil {
		return p.ConnectResult, nil
	}
	c := &Connection{Channel: channelID}
	p.Connections = append(p.Connections, c)
	return c, nil
}

// Calls returns a copy of the recorded Connect calls.
func (p *Platform) Calls() []ConnectCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConnectCall, len(p.ConnectCalls))
	copy(out, p.ConnectCalls)
	return out
}

// LastConnection returns the most recently created connection, or nil.
func (p *Platform) LastConnection() *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Connections) == 0 {
		return nil
	}
	return p.Connections[len(p.Connections)-1]
}
