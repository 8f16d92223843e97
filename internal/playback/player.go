package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/soursound/pkg/audio"
)

// Player pumps PCM from one source at a time into a voice connection. The
// connection outlives individual sources: [Player.Play] swaps the source in
// place when a generator is replaced.
//
// Once Play or Stop returns, no frame from the previous source is written to
// the connection.
type Player struct {
	conn audio.Connection
	key  string

	mu      sync.Mutex
	cancel  context.CancelFunc
	playing bool
	gen     uint64

	// sendMu is held for the duration of every frame hand-off so that a swap
	// can wait out an in-flight send.
	sendMu sync.Mutex
}

func newPlayer(key string, conn audio.Connection) *Player {
	return &Player{key: key, conn: conn}
}

// Connection returns the voice connection the player writes to.
func (p *Player) Connection() audio.Connection { return p.conn }

// Playing reports whether a source is attached and still producing audio.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Play detaches the current source, if any, and starts streaming src.
func (p *Player) Play(src io.Reader) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	old := p.cancel
	p.cancel = cancel
	p.playing = true
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	p.detach(old)
	go p.pump(ctx, gen, src)
}

// Stop detaches the current source. The connection stays open.
func (p *Player) Stop() {
	p.mu.Lock()
	old := p.cancel
	p.cancel = nil
	p.playing = false
	p.gen++
	p.mu.Unlock()

	p.detach(old)
}

func (p *Player) detach(cancel context.CancelFunc) {
	if cancel == nil {
		return
	}
	cancel()
	// Barrier: an in-flight send of the old pump either completes or aborts
	// before we return.
	p.sendMu.Lock()
	p.sendMu.Unlock() //nolint:staticcheck // SA2001 barrier
}

func (p *Player) pump(ctx context.Context, gen uint64, src io.Reader) {
	out := p.conn.OutputStream()
	var offset time.Duration
	for {
		buf := make([]byte, audio.FrameBytes)
		if _, err := io.ReadFull(src, buf); err != nil {
			p.sourceEnded(ctx, gen, err)
			return
		}
		frame := audio.AudioFrame{
			Data:       buf,
			SampleRate: audio.SampleRate,
			Channels:   audio.Channels,
			Timestamp:  offset,
		}
		offset += audio.FrameDuration

		if !p.send(ctx, out, frame) {
			return
		}
	}
}

func (p *Player) send(ctx context.Context, out chan<- audio.AudioFrame, f audio.AudioFrame) bool {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Player) sourceEnded(ctx context.Context, gen uint64, err error) {
	if ctx.Err() != nil {
		// Superseded or stopped; the generator was torn down on purpose.
		return
	}
	p.mu.Lock()
	if p.gen == gen {
		p.playing = false
	}
	p.mu.Unlock()

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		slog.Warn("playback: generator stream ended", "guild", p.key)
		return
	}
	slog.Warn("playback: generator stream failed", "guild", p.key, "err", err)
}
