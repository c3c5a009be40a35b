package chip8

import (
	"errors"
	"time"
)

// ToneHz is the frequency handed to the beeper while the sound timer is
// nonzero.
const ToneHz = 600.0

// Keypad supplies the 16 pressed/released key states once per cycle, plus a
// host exit condition checked between instructions. The host-key-to-hex-key
// mapping lives behind this interface; it is configuration, not core logic.
type Keypad interface {
	Poll() [NumKeys]bool
	Quit() bool
}

// Beeper is the audio collaborator. Play and Stop are invoked once per timer
// tick depending on whether the sound timer is nonzero.
type Beeper interface {
	Play(freq float64)
	Stop()
}

// Config carries the Runner's rate and policy settings. Zero rates fall back
// to the canonical defaults.
type Config struct {
	CycleHz   int
	TimerHz   int
	DisplayHz int

	// ShiftQuirk selects the SHR/SHL compatibility variant.
	ShiftQuirk bool

	// SkipInvalidOpcode makes unknown opcodes execute as no-ops instead
	// of halting the run. PC has already advanced past the bad word, so
	// skipping is simply ignoring the decode error.
	SkipInvalidOpcode bool
}

func (c Config) withDefaults() Config {
	if c.CycleHz <= 0 {
		c.CycleHz = CycleHz
	}
	if c.TimerHz <= 0 {
		c.TimerHz = TimerHz
	}
	if c.DisplayHz <= 0 {
		c.DisplayHz = DisplayHz
	}
	return c
}

// Runner drives the machine at three independently paced rates: the
// instruction cycle, the timer countdown and the display flush gate. It is
// single-threaded; all three domains share one thread of control via
// elapsed-time polling once per loop iteration.
type Runner struct {
	M *Machine

	keypad Keypad
	beeper Beeper
	clock  Clock

	skipInvalid bool

	cycleDur   time.Duration
	timerDur   time.Duration
	displayDur time.Duration

	cycleStart   time.Time
	timerStart   time.Time
	displayStart time.Time
}

// NewRunner wires a machine to its input and audio collaborators. A nil
// beeper is replaced with a silent one.
func NewRunner(m *Machine, keypad Keypad, beeper Beeper, cfg Config) *Runner {
	return newRunner(m, keypad, beeper, cfg, realClock{})
}

func newRunner(m *Machine, keypad Keypad, beeper Beeper, cfg Config, clock Clock) *Runner {
	cfg = cfg.withDefaults()
	m.ShiftQuirk = cfg.ShiftQuirk
	if beeper == nil {
		beeper = nullBeeper{}
	}
	r := &Runner{
		M:           m,
		keypad:      keypad,
		beeper:      beeper,
		clock:       clock,
		skipInvalid: cfg.SkipInvalidOpcode,
		cycleDur:    time.Second / time.Duration(cfg.CycleHz),
		timerDur:    time.Second / time.Duration(cfg.TimerHz),
		displayDur:  time.Second / time.Duration(cfg.DisplayHz),
	}
	r.Sync()
	return r
}

// Sync resets all three rate-domain timestamps to now. Call it after any
// long pause (ROM loading, terminal setup) so the first iterations don't
// see a huge elapsed time.
func (r *Runner) Sync() {
	now := r.clock.Now()
	r.cycleStart = now
	r.timerStart = now
	r.displayStart = now
}

// Cycle performs one loop iteration: refresh keys, run one
// fetch-decode-execute step, then tick the timers if their interval has
// elapsed. An in-flight instruction always completes; exit conditions are
// the caller's business between cycles.
func (r *Runner) Cycle() error {
	r.M.UpdateKeys(r.keypad.Poll())

	if err := r.M.Step(); err != nil {
		if !r.skipInvalid || !errors.Is(err, ErrInvalidOpcode) {
			return err
		}
	}

	r.tickTimers()
	return nil
}

// tickTimers decrements the delay and sound timers when the timer interval
// has elapsed, and drives the beeper off the sound timer's state.
func (r *Runner) tickTimers() {
	if r.clock.Now().Sub(r.timerStart) < r.timerDur {
		return
	}
	r.timerStart = r.clock.Now()

	r.M.TickTimers()
	if r.M.SoundTimer > 0 {
		r.beeper.Play(ToneHz)
	} else {
		r.beeper.Stop()
	}
}

// CanFlush reports whether the framebuffer may be handed to the renderer:
// a draw has happened since the last flush and the display interval has
// elapsed.
func (r *Runner) CanFlush() bool {
	return r.M.DrawPending() && r.clock.Now().Sub(r.displayStart) >= r.displayDur
}

// MarkFlushed clears the dirty flag and restarts the display interval. The
// renderer calls it after consuming a frame.
func (r *Runner) MarkFlushed() {
	r.M.drawPending = false
	r.displayStart = r.clock.Now()
}

// WaitCycle sleeps out whatever remains of the per-instruction budget. The
// sleep is always bounded by the budget, never indefinite.
func (r *Runner) WaitCycle() {
	elapsed := r.clock.Now().Sub(r.cycleStart)
	if elapsed < r.cycleDur {
		r.clock.Sleep(r.cycleDur - elapsed)
	}
	r.cycleStart = r.clock.Now()
}

// Advance runs as many cycles as the elapsed wall time allows, at most max,
// without sleeping. Front-ends that own their own frame loop (ebiten) call
// this once per frame instead of Run. If the machine has fallen further
// behind than max cycles the backlog is dropped.
func (r *Runner) Advance(max int) error {
	for i := 0; i < max; i++ {
		if r.clock.Now().Sub(r.cycleStart) < r.cycleDur {
			return nil
		}
		r.cycleStart = r.cycleStart.Add(r.cycleDur)
		if err := r.Cycle(); err != nil {
			return err
		}
	}
	r.cycleStart = r.clock.Now()
	return nil
}

// Run drives the main loop until the keypad reports the exit condition or a
// fatal machine error surfaces. flush receives a framebuffer snapshot
// whenever the display gate opens.
func (r *Runner) Run(flush func(screen [DisplaySize]byte) error) error {
	r.Sync()
	for {
		if r.keypad.Quit() {
			return nil
		}
		if err := r.Cycle(); err != nil {
			return err
		}
		if r.CanFlush() {
			if err := flush(r.M.Screen()); err != nil {
				return err
			}
			r.MarkFlushed()
		}
		r.WaitCycle()
	}
}

type nullBeeper struct{}

func (nullBeeper) Play(freq float64) {}
func (nullBeeper) Stop()             {}
