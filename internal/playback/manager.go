// Package playback ties generators to voice connections.
//
// The [Manager] owns one [Player] per session. PlayCurrent makes the session's
// current settings audible: it (re)joins the issuer's voice channel when
// needed, replaces the session's generator and points the player at the new
// PCM stream. Callers serialise calls per session (see session.Registry.Do).
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/soursound/internal/generator"
	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/observe"
	"github.com/MrWong99/soursound/internal/session"
	"github.com/MrWong99/soursound/pkg/audio"
)

// Generators is the subset of [generator.Supervisor] the manager drives.
type Generators interface {
	Start(ctx context.Context, key string, s noise.Settings) (*generator.Handle, error)
	Terminate(ctx context.Context, key string)
}

var _ Generators = (*generator.Supervisor)(nil)

// Manager attaches generator output to per-session voice players. All
// methods are safe for concurrent use across sessions.
type Manager struct {
	platform audio.Platform
	gens     Generators
	metrics  *observe.Metrics

	mu      sync.Mutex
	players map[string]*Player
}

// NewManager creates a Manager. A nil metrics uses [observe.DefaultMetrics].
func NewManager(platform audio.Platform, gens Generators, metrics *observe.Metrics) *Manager {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Manager{
		platform: platform,
		gens:     gens,
		metrics:  metrics,
		players:  make(map[string]*Player),
	}
}

// PlayCurrent clamps st.Settings in place and starts playing them in
// channelID. The session's voice connection is created on first use and
// moved when channelID differs from the joined channel. Errors from joining
// or from the generator are returned unchanged in kind.
func (m *Manager) PlayCurrent(ctx context.Context, st *session.State, channelID string) (err error) {
	ctx, span := observe.StartSessionSpan(ctx, "playback.PlayCurrent", st.Key, channelID)
	defer func() { observe.EndSpan(span, err) }()

	st.Settings = st.Settings.Clamped()

	player, err := m.ensurePlayer(ctx, st.Key, channelID)
	if err != nil {
		return err
	}
	// Detach first: Start closes the old generator's stdout.
	player.Stop()
	h, err := m.gens.Start(ctx, st.Key, st.Settings)
	if err != nil {
		return err
	}
	player.Play(h.Stdout())
	return nil
}

func (m *Manager) ensurePlayer(ctx context.Context, key, channelID string) (*Player, error) {
	m.mu.Lock()
	p := m.players[key]
	m.mu.Unlock()

	if p != nil && p.Connection().ChannelID() == channelID {
		return p, nil
	}
	if p != nil {
		slog.Info("playback: moving voice connection", "guild", key,
			"from", p.Connection().ChannelID(), "to", channelID)
		if err := m.detach(ctx, key, p); err != nil {
			slog.Warn("playback: failed to leave previous channel", "guild", key, "err", err)
		}
	}

	conn, err := m.platform.Connect(ctx, key, channelID)
	if err != nil {
		return nil, fmt.Errorf("playback: join voice channel %s: %w", channelID, err)
	}
	m.metrics.VoiceConnections.Add(ctx, 1)

	p = newPlayer(key, conn)
	m.mu.Lock()
	m.players[key] = p
	m.mu.Unlock()
	return p, nil
}

// detach stops p, disconnects its connection and forgets it.
func (m *Manager) detach(ctx context.Context, key string, p *Player) error {
	p.Stop()
	m.mu.Lock()
	if m.players[key] == p {
		delete(m.players, key)
	}
	m.mu.Unlock()
	m.metrics.VoiceConnections.Add(ctx, -1)
	if err := p.Connection().Disconnect(); err != nil {
		return fmt.Errorf("playback: disconnect %s: %w", key, err)
	}
	return nil
}

// Stop silences the session and kills its generator. The voice connection
// stays open. Stopping an idle session is a no-op.
func (m *Manager) Stop(ctx context.Context, key string) {
	if p := m.player(key); p != nil {
		p.Stop()
	}
	m.gens.Terminate(ctx, key)
}

// Leave stops the session, leaves the voice channel and kills the generator.
// Session settings are untouched.
func (m *Manager) Leave(ctx context.Context, key string) error {
	var err error
	if p := m.player(key); p != nil {
		err = m.detach(ctx, key, p)
	}
	m.gens.Terminate(ctx, key)
	return err
}

// Close leaves every session concurrently.
func (m *Manager) Close(ctx context.Context) error {
	var g errgroup.Group
	for _, key := range m.Keys() {
		g.Go(func() error { return m.Leave(ctx, key) })
	}
	return g.Wait()
}

// Status describes the playback side of one session.
type Status struct {
	Connected bool
	ChannelID string
	Playing   bool
}

// Status reports whether key is joined to a voice channel and playing.
func (m *Manager) Status(key string) Status {
	p := m.player(key)
	if p == nil {
		return Status{}
	}
	return Status{
		Connected: true,
		ChannelID: p.Connection().ChannelID(),
		Playing:   p.Playing(),
	}
}

// Keys returns the sessions with a voice connection, sorted.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.players))
	for k := range m.players {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Manager) player(key string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[key]
}
