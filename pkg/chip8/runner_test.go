package chip8

import (
	"errors"
	"testing"
	"time"
)

// fakeClock advances only when told to, or when the runner sleeps.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Sleep(d time.Duration)   { c.t = c.t.Add(d) }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeKeypad struct {
	keys [NumKeys]bool
	quit bool
}

func (k *fakeKeypad) Poll() [NumKeys]bool { return k.keys }
func (k *fakeKeypad) Quit() bool          { return k.quit }

type fakeBeeper struct {
	playing bool
	plays   int
	stops   int
}

func (b *fakeBeeper) Play(freq float64) { b.playing = true; b.plays++ }
func (b *fakeBeeper) Stop()             { b.playing = false; b.stops++ }

func testRunner(rom []byte, cfg Config) (*Runner, *fakeClock, *fakeKeypad, *fakeBeeper) {
	m := NewMachine()
	copy(m.Memory[ROMStart:], rom)
	clock := &fakeClock{t: time.Unix(0, 0)}
	keypad := &fakeKeypad{}
	beeper := &fakeBeeper{}
	return newRunner(m, keypad, beeper, cfg, clock), clock, keypad, beeper
}

// infinite loop at 0x200: jump to self.
var loopROM = []byte{0x12, 0x00}

func TestTimerDecay(t *testing.T) {
	r, clock, _, _ := testRunner(loopROM, Config{TimerHz: 60})
	r.M.DelayTimer = 2

	tick := time.Second / 60
	for i := 0; i < 4; i++ {
		clock.advance(tick)
		if err := r.Cycle(); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	// Two tick intervals bring the timer to zero; further ticks must not
	// wrap below it.
	if r.M.DelayTimer != 0 {
		t.Errorf("delay timer: expected 0, got %d", r.M.DelayTimer)
	}
}

func TestTimersGatedByInterval(t *testing.T) {
	r, clock, _, _ := testRunner(loopROM, Config{TimerHz: 60})
	r.M.DelayTimer = 10

	// Many cycles inside one timer interval decrement at most once.
	for i := 0; i < 20; i++ {
		clock.advance(time.Millisecond / 2)
		if err := r.Cycle(); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	if r.M.DelayTimer < 9 {
		t.Errorf("timer ticked faster than its rate: DT=%d", r.M.DelayTimer)
	}
}

func TestBeeperFollowsSoundTimer(t *testing.T) {
	r, clock, _, beeper := testRunner(loopROM, Config{TimerHz: 60})
	r.M.SoundTimer = 2

	tick := time.Second / 60
	clock.advance(tick)
	if err := r.Cycle(); err != nil {
		t.Fatal(err)
	}
	if !beeper.playing {
		t.Errorf("expected tone while sound timer > 0")
	}

	clock.advance(tick)
	if err := r.Cycle(); err != nil {
		t.Fatal(err)
	}
	if beeper.playing {
		t.Errorf("expected tone stopped once sound timer reached 0")
	}
}

func TestDisplayGate(t *testing.T) {
	// ROM: draw a sprite, then loop.
	rom := []byte{
		0xD0, 0x11, // DRW V0, V0, 1
		0x12, 0x02, // JP 0x202
	}
	r, clock, _, _ := testRunner(rom, Config{DisplayHz: 50})

	if err := r.Cycle(); err != nil {
		t.Fatal(err)
	}
	if r.CanFlush() {
		t.Errorf("dirty framebuffer must not flush before the display interval elapses")
	}

	clock.advance(time.Second / 50)
	if !r.CanFlush() {
		t.Errorf("expected flush eligibility after the interval with a pending draw")
	}

	r.MarkFlushed()
	if r.CanFlush() {
		t.Errorf("MarkFlushed must clear the dirty flag")
	}

	// Interval elapsing with no new draw keeps the gate shut.
	clock.advance(time.Second)
	if r.CanFlush() {
		t.Errorf("no draw since flush: gate must stay shut")
	}
}

func TestWaitCycleSleepsOutBudget(t *testing.T) {
	r, clock, _, _ := testRunner(loopROM, Config{CycleHz: 100})

	start := clock.Now()
	r.WaitCycle()
	if got := clock.Now().Sub(start); got != time.Second/100 {
		t.Errorf("expected sleep of %v, got %v", time.Second/100, got)
	}

	// A slow iteration leaves nothing to sleep.
	start = clock.Now()
	clock.advance(time.Second / 10)
	r.WaitCycle()
	if got := clock.Now().Sub(start); got != time.Second/10 {
		t.Errorf("over-budget iteration must not sleep, elapsed %v", got)
	}
}

func TestInvalidOpcodeHaltsByDefault(t *testing.T) {
	r, _, _, _ := testRunner([]byte{0x50, 0x01}, Config{})
	if err := r.Cycle(); !errors.Is(err, ErrInvalidOpcode) {
		t.Errorf("expected ErrInvalidOpcode, got %v", err)
	}
}

func TestInvalidOpcodeSkipPolicy(t *testing.T) {
	// Invalid word, then LD V1, 0x42.
	rom := []byte{0x50, 0x01, 0x61, 0x42}
	r, _, _, _ := testRunner(rom, Config{SkipInvalidOpcode: true})

	if err := r.Cycle(); err != nil {
		t.Fatalf("skip policy: unexpected error: %v", err)
	}
	if err := r.Cycle(); err != nil {
		t.Fatal(err)
	}
	if r.M.V[1] != 0x42 {
		t.Errorf("expected execution to continue past the bad opcode, V1=0x%02X", r.M.V[1])
	}

	// Memory faults stay fatal regardless of the policy.
	r2, _, _, _ := testRunner(loopROM, Config{SkipInvalidOpcode: true})
	r2.M.PC = MemorySize - 1
	if err := r2.Cycle(); !errors.Is(err, ErrMemoryFault) {
		t.Errorf("expected ErrMemoryFault, got %v", err)
	}
}

func TestKeysRefreshedEachCycle(t *testing.T) {
	r, _, keypad, _ := testRunner(loopROM, Config{})
	keypad.keys[0x4] = true
	if err := r.Cycle(); err != nil {
		t.Fatal(err)
	}
	if !r.M.Keys[0x4] {
		t.Errorf("key state not pushed into the machine")
	}

	keypad.keys[0x4] = false
	if err := r.Cycle(); err != nil {
		t.Fatal(err)
	}
	if r.M.Keys[0x4] {
		t.Errorf("stale key state survived a cycle")
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	r, _, keypad, _ := testRunner(loopROM, Config{})
	keypad.quit = true
	err := r.Run(func(screen [DisplaySize]byte) error {
		t.Errorf("no flush expected before the first cycle")
		return nil
	})
	if err != nil {
		t.Errorf("quit: expected nil error, got %v", err)
	}
}

func TestRunFlushesWhenGateOpens(t *testing.T) {
	rom := []byte{
		0xD0, 0x11, // DRW V0, V0, 1
		0x12, 0x00, // JP 0x200: redraw forever
	}
	m := NewMachine()
	copy(m.Memory[ROMStart:], rom)
	clock := &fakeClock{t: time.Unix(0, 0)}
	keypad := &fakeKeypad{}
	r := newRunner(m, keypad, nil, Config{CycleHz: 100, DisplayHz: 100}, clock)

	flushes := 0
	err := r.Run(func(screen [DisplaySize]byte) error {
		flushes++
		if flushes >= 2 {
			keypad.quit = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if flushes != 2 {
		t.Errorf("expected 2 flushes, got %d", flushes)
	}
}

func TestAdvanceRunsElapsedCycles(t *testing.T) {
	r, clock, _, _ := testRunner(loopROM, Config{CycleHz: 100})
	pcBefore := r.M.PC

	// No time elapsed: nothing runs.
	if err := r.Advance(100); err != nil {
		t.Fatal(err)
	}
	if r.M.PC != pcBefore {
		t.Errorf("Advance with no elapsed time must not run cycles")
	}

	// 50 ms at 100 Hz allows 5 cycles.
	clock.advance(50 * time.Millisecond)
	if err := r.Advance(100); err != nil {
		t.Fatal(err)
	}
	// The loop ROM jumps to itself, so PC sits at 0x200 after each full
	// cycle; use the cycle timestamps instead.
	if got := clock.Now().Sub(r.cycleStart); got >= 10*time.Millisecond {
		t.Errorf("Advance left more than one cycle of backlog: %v", got)
	}
}
