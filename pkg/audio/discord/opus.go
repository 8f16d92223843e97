package discord

import (
	"fmt"

	"layeh.com/gopus"

	"github.com/MrWong99/soursound/pkg/audio"
)

// maxOpusPacket bounds the encoded size of one 20 ms frame.
const maxOpusPacket = audio.FrameBytes

// opusEncoder wraps a gopus Opus encoder for the output stream.
type opusEncoder struct {
	enc *gopus.Encoder
}

// newOpusEncoder creates a new Opus encoder configured for Discord audio.
func newOpusEncoder() (*opusEncoder, error) {
	enc, err := gopus.NewEncoder(audio.SampleRate, audio.Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("discord: create opus encoder: %w", err)
	}
	return &opusEncoder{enc: enc}, nil
}

// encode encodes exactly one frame of interleaved s16le PCM into an Opus packet.
func (e *opusEncoder) encode(pcmBytes []byte) ([]byte, error) {
	if len(pcmBytes) != audio.FrameBytes {
		return nil, fmt.Errorf("discord: opus encode: frame is %d bytes, want %d", len(pcmBytes), audio.FrameBytes)
	}
	opus, err := e.enc.Encode(bytesToInt16s(pcmBytes), audio.FrameSamples, maxOpusPacket)
	if err != nil {
		return nil, fmt.Errorf("discord: opus encode: %w", err)
	}
	return opus, nil
}

// bytesToInt16s converts little-endian bytes to a slice of int16 PCM samples.
func bytesToInt16s(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}
