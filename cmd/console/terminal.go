package main

import (
	"bufio"
	"os"
	"time"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"

	"gochip8/pkg/chip8"
	"gochip8/pkg/grid"
	"gochip8/pkg/keypad"
)

// holdWindow is how long a key counts as held after its last byte arrived.
// Terminals deliver repeats, not key-up events, so presses must decay.
const holdWindow = 150 * time.Millisecond

const (
	enterAltScreen = "\x1b[?1049h\x1b[?25l"
	leaveAltScreen = "\x1b[?25h\x1b[?1049l"
	cursorHome     = "\x1b[H"
)

// terminal owns the raw-mode tty. It serves as the runner's keypad (raw
// nonblocking keyboard reads), its renderer (block characters on the
// alternate screen) and its beeper (the terminal bell).
type terminal struct {
	input  *os.File
	out    *bufio.Writer
	layout keypad.Layout

	savedAttr unix.Termios

	pressedAt [chip8.NumKeys]time.Time
	quit      bool
	beeping   bool
}

func newTerminal(input, output *os.File, layout keypad.Layout) (*terminal, error) {
	t := &terminal{
		input:  input,
		out:    bufio.NewWriterSize(output, chip8.DisplaySize*4),
		layout: layout,
	}

	if err := termios.Tcgetattr(input.Fd(), &t.savedAttr); err != nil {
		return nil, err
	}

	// Raw mode with VMIN=0 VTIME=0 so reads return immediately whether or
	// not bytes are waiting.
	raw := t.savedAttr
	termios.Cfmakeraw(&raw)
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 0
	if err := termios.Tcsetattr(input.Fd(), termios.TCIFLUSH, &raw); err != nil {
		return nil, err
	}

	t.out.WriteString(enterAltScreen)
	t.out.Flush()
	return t, nil
}

// Restore puts the tty back into its saved mode and leaves the alternate
// screen.
func (t *terminal) Restore() {
	t.out.WriteString(leaveAltScreen)
	t.out.Flush()
	termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.savedAttr)
}

// Poll drains the input buffer, stamps any mapped key as freshly pressed and
// reports which keys are inside their hold window.
func (t *terminal) Poll() [chip8.NumKeys]bool {
	var buf [32]byte
	for {
		n, err := t.input.Read(buf[:])
		if n <= 0 || err != nil {
			break
		}
		for _, b := range buf[:n] {
			if b == 0x1b { // Escape
				t.quit = true
				continue
			}
			if k, ok := t.layout.Key(rune(b)); ok {
				t.pressedAt[k] = time.Now()
			}
		}
	}

	var state [chip8.NumKeys]bool
	now := time.Now()
	for k, at := range t.pressedAt {
		state[k] = !at.IsZero() && now.Sub(at) < holdWindow
	}
	return state
}

func (t *terminal) Quit() bool { return t.quit }

// Render redraws the whole framebuffer from the home position. Every pixel
// is two columns wide so the aspect ratio roughly matches a square pixel.
func (t *terminal) Render(screen [chip8.DisplaySize]byte) error {
	t.out.WriteString(cursorHome)
	for i, p := range screen {
		if p != 0 {
			t.out.WriteString("██")
		} else {
			t.out.WriteString("  ")
		}
		if x, _ := grid.Coords(i, chip8.DisplayWidth); x == chip8.DisplayWidth-1 {
			t.out.WriteString("\r\n")
		}
	}
	return t.out.Flush()
}

// Play rings the terminal bell once per beep. The bell has no pitch control,
// so freq is ignored.
func (t *terminal) Play(freq float64) {
	if t.beeping {
		return
	}
	t.beeping = true
	t.out.WriteByte(0x07)
	t.out.Flush()
}

func (t *terminal) Stop() {
	t.beeping = false
}
