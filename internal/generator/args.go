package generator

import (
	"fmt"
	"strconv"

	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/pkg/audio"
)

// SourceSpec returns the lavfi noise source description for s.
func SourceSpec(s noise.Settings) string {
	return fmt.Sprintf("anoisesrc=color=%s:sample_rate=%d", s.Color, audio.SampleRate)
}

// FilterSpec returns the audio filter chain for s.
func FilterSpec(s noise.Settings) string {
	return fmt.Sprintf("lowpass=f=%d,highpass=f=%d,volume=%s",
		s.LowpassHz, s.HighpassHz, strconv.FormatFloat(s.Volume, 'f', -1, 64))
}

// Args builds the ffmpeg argument list that renders s as raw signed 16-bit
// little-endian stereo PCM at 48 kHz on stdout. When realtime is set, ffmpeg
// paces its output to wall-clock time.
func Args(s noise.Settings, realtime bool) []string {
	args := make([]string, 0, 20)
	if realtime {
		args = append(args, "-re")
	}
	return append(args,
		"-f", "lavfi",
		"-i", SourceSpec(s),
		"-af", FilterSpec(s),
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
}
