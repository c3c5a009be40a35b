// Command console runs a ROM inside the terminal. The framebuffer is drawn
// with block characters on the alternate screen and the keyboard is read in
// raw mode, so no window system is needed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	chipaudio "gochip8/pkg/audio"
	"gochip8/pkg/chip8"
	"gochip8/pkg/keypad"
)

func main() {
	quirk := flag.Bool("quirk", false, "8XY6/8XYE shift Vx in place instead of copying Vy")
	cycleHz := flag.Int("cycle-hz", chip8.CycleHz, "instruction rate")
	skipInvalid := flag.Bool("skip-invalid", false, "treat unknown opcodes as no-ops instead of halting")
	wavPath := flag.String("wav", "", "record the beep timeline to a WAV file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: console [flags] rom.ch8")
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

	term, err := newTerminal(os.Stdin, os.Stdout, keypad.QWERTY)
	if err != nil {
		log.Fatalf("Failed to set up terminal: %v", err)
	}

	var bp chip8.Beeper = term
	var rec *chipaudio.Recorder
	if *wavPath != "" {
		rec = chipaudio.NewRecorder(*wavPath, bp)
		bp = rec
	}

	runner := chip8.NewRunner(m, term, bp, chip8.Config{
		CycleHz:           *cycleHz,
		ShiftQuirk:        *quirk,
		SkipInvalidOpcode: *skipInvalid,
	})

	runErr := runner.Run(term.Render)
	term.Restore()

	if rec != nil {
		if err := rec.Close(); err != nil {
			log.Fatalf("Failed to write %s: %v", *wavPath, err)
		}
	}
	if runErr != nil {
		log.Fatalf("Machine halted: %v", runErr)
	}
}
