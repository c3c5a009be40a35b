// Package audio provides the tone sources behind the machine's beeper: an
// infinite sine stream in the PCM format ebiten players consume, and a
// recorder that captures the beep timeline to a WAV file.
package audio

import (
	"io"
	"math"
)

// Sine is an endless 16-bit little-endian stereo PCM stream of a fixed
// frequency, suitable for feeding an ebiten audio player.
type Sine struct {
	freq       float64
	sampleRate int
	pos        int64 // frames generated so far
}

func NewSine(freq float64, sampleRate int) *Sine {
	return &Sine{freq: freq, sampleRate: sampleRate}
}

func (s *Sine) Read(buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, io.ErrShortBuffer
	}
	frames := len(buf) / 4

	const amplitude = 0.3 * math.MaxInt16
	for i := 0; i < frames; i++ {
		v := math.Sin(2 * math.Pi * s.freq * float64(s.pos) / float64(s.sampleRate))
		sample := int16(amplitude * v)
		lo, hi := byte(sample), byte(uint16(sample)>>8)
		buf[4*i] = lo
		buf[4*i+1] = hi
		buf[4*i+2] = lo
		buf[4*i+3] = hi
		s.pos++
	}
	return frames * 4, nil
}
