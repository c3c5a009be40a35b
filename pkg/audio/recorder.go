package audio

import (
	"math"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recorderSampleRate = 44100

// Beeper is the play/stop contract a recorder wraps and satisfies itself.
type Beeper interface {
	Play(freq float64)
	Stop()
}

type segment struct {
	start time.Duration
	end   time.Duration
	freq  float64
}

// Recorder is a Beeper that captures the play/stop timeline and renders it
// to a mono 16-bit WAV file on Close. An optional inner Beeper is forwarded
// every call so the machine can beep audibly while being recorded.
type Recorder struct {
	path  string
	inner Beeper

	now     func() time.Time
	started time.Time

	segments []segment
	open     bool
	openAt   time.Duration
	openFreq float64
}

// NewRecorder prepares a recording that will be written to path. inner may
// be nil.
func NewRecorder(path string, inner Beeper) *Recorder {
	r := &Recorder{
		path:  path,
		inner: inner,
		now:   time.Now,
	}
	r.started = r.now()
	return r
}

func (r *Recorder) elapsed() time.Duration {
	return r.now().Sub(r.started)
}

func (r *Recorder) Play(freq float64) {
	if r.inner != nil {
		r.inner.Play(freq)
	}
	if r.open && r.openFreq == freq {
		return
	}
	if r.open {
		r.closeSegment()
	}
	r.open = true
	r.openAt = r.elapsed()
	r.openFreq = freq
}

func (r *Recorder) Stop() {
	if r.inner != nil {
		r.inner.Stop()
	}
	if r.open {
		r.closeSegment()
	}
}

func (r *Recorder) closeSegment() {
	r.segments = append(r.segments, segment{
		start: r.openAt,
		end:   r.elapsed(),
		freq:  r.openFreq,
	})
	r.open = false
}

// Close renders the captured timeline and writes the WAV file. The recording
// runs from construction to the last event.
func (r *Recorder) Close() error {
	if r.open {
		r.closeSegment()
	}

	var total time.Duration
	for _, seg := range r.segments {
		if seg.end > total {
			total = seg.end
		}
	}

	data := make([]int, int(total.Seconds()*recorderSampleRate)+1)
	const amplitude = 0.3 * math.MaxInt16
	for _, seg := range r.segments {
		lo := int(seg.start.Seconds() * recorderSampleRate)
		hi := int(seg.end.Seconds() * recorderSampleRate)
		for i := lo; i < hi && i < len(data); i++ {
			v := math.Sin(2 * math.Pi * seg.freq * float64(i-lo) / recorderSampleRate)
			data[i] = int(amplitude * v)
		}
	}

	f, err := os.Create(r.path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, recorderSampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: recorderSampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
