package audio

import "time"

// Discord voice expects 48 kHz stereo audio in 20 ms frames.
const (
	// SampleRate is the PCM sample rate in Hz.
	SampleRate = 48000

	// Channels is the number of interleaved PCM channels.
	Channels = 2

	// FrameDuration is the playback length of one frame.
	FrameDuration = 20 * time.Millisecond

	// FrameSamples is the number of samples per channel in one frame (960).
	FrameSamples = SampleRate * int(FrameDuration/time.Millisecond) / 1000

	// FrameBytes is the size of one s16le frame: 960 × 2 channels × 2 bytes.
	FrameBytes = FrameSamples * Channels * 2
)

// AudioFrame is a single frame of signed 16-bit little-endian PCM audio.
type AudioFrame struct {
	// PCM audio data, interleaved by channel.
	Data []byte

	// SampleRate in Hz.
	SampleRate int

	// Channels: 2 for Discord output.
	Channels int

	// Timestamp marks the frame position relative to the start of its source.
	Timestamp time.Duration
}
