//go:build !js

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gochip8/pkg/asm"
	"gochip8/pkg/chip8"
)

func main() {
	inPath := flag.String("in", "", "input assembly file path")
	outPath := flag.String("out", "", "output ROM file path (default: input with .ch8 extension)")
	disPath := flag.String("dis", "", "disassemble a ROM file to stdout")
	runPath := flag.String("run", "", "run a ROM headless and print final machine state")
	cycles := flag.Int("cycles", 1000, "number of instructions to execute with -run")
	quirk := flag.Bool("quirk", false, "8XY6/8XYE shift Vx in place instead of copying Vy")
	flag.Parse()

	if *disPath != "" {
		if err := disassemble(*disPath); err != nil {
			fmt.Fprintf(os.Stderr, "disassembly failed for %q: %v\n", *disPath, err)
			os.Exit(1)
		}
		return
	}

	if *inPath != "" {
		source, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
			os.Exit(1)
		}

		code, _, err := asm.Assemble(string(source))
		if err != nil {
			fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
			os.Exit(1)
		}

		output := *outPath
		if output == "" {
			output = defaultOutputPath(*inPath)
		}

		if err := os.WriteFile(output, code, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write ROM file %q: %v\n", output, err)
			os.Exit(1)
		}

		fmt.Printf("assembled %d bytes -> %s\n", len(code), output)
	}

	if *runPath != "" {
		if err := runROM(*runPath, *cycles, *quirk); err != nil {
			fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", *runPath, err)
			os.Exit(1)
		}
		return
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to assemble, -dis to disassemble, or -run to execute a ROM")
		flag.Usage()
		os.Exit(2)
	}
}

func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ".ch8"
	}
	return strings.TrimSuffix(inPath, ext) + ".ch8"
}

func disassemble(path string) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, line := range asm.Disassemble(rom) {
		fmt.Println(line)
	}
	return nil
}

// runROM executes a fixed number of instructions without a display or
// keypad, then dumps the register file. Useful for checking a ROM's
// arithmetic without opening a window.
func runROM(path string, cycles int, quirk bool) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	m := chip8.NewMachine()
	m.ShiftQuirk = quirk
	if err := m.LoadROM(rom); err != nil {
		return err
	}

	executed := 0
	var stepErr error
	for ; executed < cycles; executed++ {
		if stepErr = m.Step(); stepErr != nil {
			break
		}
	}

	fmt.Printf("run complete (%s): %d cycles, PC=0x%04X I=0x%04X SP=%d DT=%d ST=%d\n",
		path, executed, m.PC, m.I, m.SP, m.DelayTimer, m.SoundTimer)
	for i := 0; i < len(m.V); i += 4 {
		fmt.Printf("  V%X=0x%02X V%X=0x%02X V%X=0x%02X V%X=0x%02X\n",
			i, m.V[i], i+1, m.V[i+1], i+2, m.V[i+2], i+3, m.V[i+3])
	}

	return stepErr
}
