package asm

import (
	"testing"

	"gochip8/pkg/chip8"
)

// runSteps assembles src, loads it and executes n machine steps.
func runSteps(t *testing.T, src string, n int) *chip8.Machine {
	t.Helper()
	code, _, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	m := chip8.NewMachine()
	if err := m.LoadROM(code); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	for i := 0; i < n; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return m
}

func TestAssembledArithmetic(t *testing.T) {
	src := `
    LD V0, 200
    LD V1, 100
    ADD V0, V1 ; wraps, sets the carry flag
    LD V2, VF
`
	m := runSteps(t, src, 4)

	if m.V[0] != 44 {
		t.Errorf("V0: expected 44 (300 mod 256), got %d", m.V[0])
	}
	if m.V[2] != 1 {
		t.Errorf("V2: expected saved carry 1, got %d", m.V[2])
	}
}

func TestAssembledSubroutine(t *testing.T) {
	src := `
    CALL setv5
    JP done

setv5:
    LD V5, 0x42
    RET

done:
    JP done
`
	m := runSteps(t, src, 4)

	if m.V[5] != 0x42 {
		t.Errorf("V5: expected 0x42, got 0x%02X", m.V[5])
	}
	if m.SP != 0 {
		t.Errorf("SP: expected 0 after return, got %d", m.SP)
	}
	if m.PC != 0x208 {
		t.Errorf("PC: expected spin at done (0x208), got 0x%04X", m.PC)
	}
}

func TestAssembledSpriteDraw(t *testing.T) {
	src := `
    LD I, square
    LD V0, 10
    LD V1, 5
    DRW V0, V1, 2

square:
    DB 0b11000000, 0b11000000
`
	m := runSteps(t, src, 4)

	for _, p := range [][2]int{{10, 5}, {11, 5}, {10, 6}, {11, 6}} {
		if m.Display[p[1]*chip8.DisplayWidth+p[0]] != 1 {
			t.Errorf("expected pixel at (%d,%d)", p[0], p[1])
		}
	}
	if m.V[0xF] != 0 {
		t.Errorf("draw on empty screen: expected VF=0, got %d", m.V[0xF])
	}
}

func TestAssembledFontAndBCD(t *testing.T) {
	src := `
    LD V0, 123
    LD I, 0x300
    LD B, V0
    LD V1, [I]  ; loads V0..V1 from memory
`
	m := runSteps(t, src, 4)

	if m.Memory[0x300] != 1 || m.Memory[0x301] != 2 || m.Memory[0x302] != 3 {
		t.Errorf("BCD of 123: got %d %d %d", m.Memory[0x300], m.Memory[0x301], m.Memory[0x302])
	}
	if m.V[0] != 1 || m.V[1] != 2 {
		t.Errorf("block load: expected V0=1 V1=2, got %d %d", m.V[0], m.V[1])
	}
}
