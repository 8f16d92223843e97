package discord

import (
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/soursound/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

const outputChannelBuffer = 64

// silenceFrame is the Opus encoding of 20 ms of silence. Discord expects a
// few of them before a sender goes quiet so clients stop interpolating.
var silenceFrame = []byte{0xF8, 0xFF, 0xFE}

const silenceFrames = 5

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. Outgoing PCM frames are encoded to Opus and
// handed to discordgo, whose sender paces them at real time.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc        *discordgo.VoiceConnection
	guildID   string
	channelID string

	output chan audio.AudioFrame

	done      chan struct{}
	closeOnce sync.Once

	// disconnectVC is called during Disconnect to tear down the voice connection.
	// Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts the send loop.
func newConnection(vc *discordgo.VoiceConnection, guildID, channelID string) (*Connection, error) {
	c := &Connection{
		vc:           vc,
		guildID:      guildID,
		channelID:    channelID,
		output:       make(chan audio.AudioFrame, outputChannelBuffer),
		done:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
	}

	enc, err := newOpusEncoder()
	if err != nil {
		return nil, err
	}
	go c.sendLoop(enc)
	return c, nil
}

// OutputStream returns the write-only channel for playback audio.
func (c *Connection) OutputStream() chan<- audio.AudioFrame {
	return c.output
}

// ChannelID returns the voice channel this connection was created for.
func (c *Connection) ChannelID() string {
	return c.channelID
}

// Disconnect tears down the voice connection and stops the send loop. It is
// safe to call more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}

// sendLoop reads PCM frames from the output channel, encodes each one to
// Opus, and sends it through the Discord voice connection. Frames that are
// not exactly one 20 ms frame long are accumulated until they are.
func (c *Connection) sendLoop(enc *opusEncoder) {
	speaking := false
	var buf []byte

	for {
		select {
		case <-c.done:
			if speaking {
				c.trailSilence()
				c.setSpeaking(false)
			}
			return
		case frame, ok := <-c.output:
			if !ok {
				return
			}
			if !speaking {
				c.setSpeaking(true)
				speaking = true
			}

			buf = append(buf, frame.Data...)
			for len(buf) >= audio.FrameBytes {
				opus, err := enc.encode(buf[:audio.FrameBytes])
				buf = buf[audio.FrameBytes:]
				if err != nil {
					slog.Warn("discord: opus encode error", "guild", c.guildID, "err", err)
					continue
				}

				select {
				case c.vc.OpusSend <- opus:
				case <-c.done:
					return
				}
			}
		}
	}
}

// trailSilence queues the closing silence frames without blocking on a
// sender that is already gone.
func (c *Connection) trailSilence() {
	for range silenceFrames {
		select {
		case c.vc.OpusSend <- silenceFrame:
		default:
			return
		}
	}
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (c *Connection) setSpeaking(b bool) {
	if err := c.vc.Speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "guild", c.guildID, "speaking", b, "err", err)
	}
}
