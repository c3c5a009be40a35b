package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	eaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	chipaudio "gochip8/pkg/audio"
	"gochip8/pkg/chip8"
	"gochip8/pkg/keypad"
)

const (
	pixelScale = 10
	hudHeight  = 20
	sampleRate = 44100
)

// ebitenKey translates a layout rune to the ebiten key constant for the same
// physical key.
func ebitenKey(r rune) ebiten.Key {
	switch {
	case r >= 'a' && r <= 'z':
		return ebiten.KeyA + ebiten.Key(r-'a')
	case r >= '0' && r <= '9':
		return ebiten.KeyDigit0 + ebiten.Key(r-'0')
	}
	panic(fmt.Sprintf("unmappable layout rune %q", r))
}

// pad polls the keyboard through ebiten's input API.
type pad struct {
	keys [chip8.NumKeys]ebiten.Key
}

func newPad(layout keypad.Layout) *pad {
	p := &pad{}
	for r, hex := range layout {
		p.keys[hex] = ebitenKey(r)
	}
	return p
}

func (p *pad) Poll() [chip8.NumKeys]bool {
	var state [chip8.NumKeys]bool
	for hex, key := range p.keys {
		state[hex] = ebiten.IsKeyPressed(key)
	}
	return state
}

// Quit is unused here: the window close button and the Escape key are
// handled in Update, where ebiten.Termination can be returned.
func (p *pad) Quit() bool { return false }

// beeper plays an endless sine through an ebiten audio player. Players are
// cached per frequency since creating one allocates a streaming goroutine.
type beeper struct {
	ctx     *eaudio.Context
	players map[float64]*eaudio.Player
	current *eaudio.Player
}

func newBeeper() *beeper {
	return &beeper{
		ctx:     eaudio.NewContext(sampleRate),
		players: make(map[float64]*eaudio.Player),
	}
}

func (b *beeper) Play(freq float64) {
	player, ok := b.players[freq]
	if !ok {
		var err error
		player, err = b.ctx.NewPlayer(chipaudio.NewSine(freq, sampleRate))
		if err != nil {
			return
		}
		b.players[freq] = player
	}
	if b.current != nil && b.current != player {
		b.current.Pause()
	}
	b.current = player
	if !player.IsPlaying() {
		player.Play()
	}
}

func (b *beeper) Stop() {
	if b.current != nil {
		b.current.Pause()
	}
}

type Game struct {
	runner *chip8.Runner
	hud    string

	frame *ebiten.Image // reused 64×32 canvas
	pix   []byte        // RGBA backing for frame
}

func (g *Game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	// Catch up on the instruction budget accumulated since the last frame.
	// The cap bounds the work done after a stall (window drag, suspend).
	return g.runner.Advance(chip8.CycleHz / 10)
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.frame == nil {
		g.frame = ebiten.NewImage(chip8.DisplayWidth, chip8.DisplayHeight)
		g.pix = make([]byte, chip8.DisplaySize*4)
	}

	if g.runner.CanFlush() {
		fb := g.runner.M.Screen()
		for i, on := range fb {
			v := byte(0)
			if on != 0 {
				v = 0xFF
			}
			g.pix[4*i] = v
			g.pix[4*i+1] = v
			g.pix[4*i+2] = v
			g.pix[4*i+3] = 0xFF
		}
		g.frame.WritePixels(g.pix)
		g.runner.MarkFlushed()
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(pixelScale, pixelScale)
	screen.DrawImage(g.frame, op)

	text.Draw(screen, g.hud, basicfont.Face7x13,
		4, chip8.DisplayHeight*pixelScale+14, color.White)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return chip8.DisplayWidth * pixelScale, chip8.DisplayHeight*pixelScale + hudHeight
}

func main() {
	quirk := flag.Bool("quirk", false, "8XY6/8XYE shift Vx in place instead of copying Vy")
	cycleHz := flag.Int("cycle-hz", chip8.CycleHz, "instruction rate")
	skipInvalid := flag.Bool("skip-invalid", false, "treat unknown opcodes as no-ops instead of halting")
	wavPath := flag.String("wav", "", "record the beep timeline to a WAV file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [flags] rom.ch8")
		flag.Usage()
		os.Exit(2)
	}
	romPath := flag.Arg(0)

	rom, err := os.ReadFile(romPath)
	if err != nil {
		log.Fatalf("Failed to read ROM file: %v", err)
	}

	m := chip8.NewMachine()
	if err := m.LoadROM(rom); err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	var bp chip8.Beeper = newBeeper()
	var rec *chipaudio.Recorder
	if *wavPath != "" {
		rec = chipaudio.NewRecorder(*wavPath, bp)
		bp = rec
	}

	runner := chip8.NewRunner(m, newPad(keypad.QWERTY), bp, chip8.Config{
		CycleHz:           *cycleHz,
		ShiftQuirk:        *quirk,
		SkipInvalidOpcode: *skipInvalid,
	})

	game := &Game{
		runner: runner,
		hud:    fmt.Sprintf("%s  %d Hz  ESC quits", filepath.Base(romPath), *cycleHz),
	}

	ebiten.SetWindowSize(chip8.DisplayWidth*pixelScale, chip8.DisplayHeight*pixelScale+hudHeight)
	ebiten.SetWindowTitle("CHIP-8 " + filepath.Base(romPath))

	runner.Sync()
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}

	if rec != nil {
		if err := rec.Close(); err != nil {
			log.Fatalf("Failed to write %s: %v", *wavPath, err)
		}
	}
}
