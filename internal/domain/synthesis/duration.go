package synthesis

import (
	"bytes"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// fallbackBytesPerSecond approximates 128 kbps MP3 when decoding fails or
// the payload is not MP3.
const fallbackBytesPerSecond = 16000.0

// MeasureDuration returns the play time of an audio payload in seconds.
// MP3 payloads are decoded for an exact answer; anything else is estimated
// from the byte count at a 128 kbps equivalent rate.
func MeasureDuration(audio []byte, format string) float64 {
	if format == "mp3" {
		if d, err := mp3.NewDecoder(bytes.NewReader(audio)); err == nil {
			// Length is decoded PCM bytes: 2 channels x 2 bytes per sample.
			return float64(d.Length()) / float64(d.SampleRate()*4)
		}
	}
	return float64(len(audio)) / fallbackBytesPerSecond
}
