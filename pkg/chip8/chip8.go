// Package chip8 implements a CHIP-8 virtual machine: a 4 KiB memory space,
// sixteen 8-bit registers, a 16-entry call stack, two countdown timers and a
// 64×32 monochrome framebuffer, driven one fetch-decode-execute step at a
// time.
package chip8

import (
	"fmt"
	"math/rand"
)

const (
	// Default clock rates. ROMs assume an instruction rate in the
	// 500-750 Hz range and a timer rate near 60 Hz; rendering is gated
	// separately because terminal/GPU I/O is far too expensive to do once
	// per instruction.
	CycleHz   = 750
	TimerHz   = 15
	DisplayHz = 45

	MemorySize    = 4096
	StackSize     = 16
	NumRegisters  = 16
	NumKeys       = 16
	DisplayWidth  = 64
	DisplayHeight = 32
	DisplaySize   = DisplayWidth * DisplayHeight

	// ROMStart is where ROM bytes are loaded and where PC points after
	// reset.
	ROMStart = 0x200

	// GlyphSize is the height in bytes of one hex-digit font sprite. The
	// sixteen glyphs occupy memory from address 0.
	GlyphSize = 5
)

// fonts holds the sixteen fixed 5-byte glyphs for hex digits 0-F.
var fonts = [80]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Machine is the complete CHIP-8 machine state. It is mutated exclusively by
// Step and by the Runner's key-refresh and timer steps; there is exactly one
// owner for its entire lifetime.
type Machine struct {
	Memory  [MemorySize]byte
	V       [NumRegisters]uint8
	I       uint16
	PC      uint16
	SP      uint8
	Stack   [StackSize]uint16
	Display [DisplaySize]byte
	Keys    [NumKeys]bool

	DelayTimer uint8
	SoundTimer uint8

	// ShiftQuirk selects the historical SHR/SHL variant that copies Vy
	// into Vx before shifting.
	ShiftQuirk bool

	// Rand supplies the byte for the RND instruction. Tests replace it
	// with a deterministic source.
	Rand func() uint8

	// drawPending is set by every draw/clear-affecting instruction and
	// cleared when the Runner hands the framebuffer to the renderer.
	drawPending bool
}

// NewMachine returns a machine with zeroed registers, the font table at
// address 0 and PC at the ROM start address.
func NewMachine() *Machine {
	m := &Machine{
		PC:   ROMStart,
		Rand: func() uint8 { return uint8(rand.Intn(256)) },
	}
	copy(m.Memory[:], fonts[:])
	return m
}

// LoadROM copies rom into memory starting at the ROM start address. The ROM
// format is raw big-endian opcode words with no header; length is simply the
// byte count.
func (m *Machine) LoadROM(rom []byte) error {
	if len(rom) > MemorySize-ROMStart {
		return fmt.Errorf("%w: %d bytes > %d", ErrROMTooLarge, len(rom), MemorySize-ROMStart)
	}
	copy(m.Memory[ROMStart:], rom)
	return nil
}

// Step runs one fetch-decode-execute cycle. PC advances by 2 on fetch before
// the instruction executes; control-transfer instructions then overwrite it.
func (m *Machine) Step() error {
	pc := m.PC
	opcode, err := m.fetch()
	if err != nil {
		return err
	}
	in, err := Decode(opcode)
	if err != nil {
		return fmt.Errorf("at PC 0x%04X: %w", pc, err)
	}
	if err := m.execute(in); err != nil {
		return fmt.Errorf("%s (opcode 0x%04X at PC 0x%04X): %w", in.Op, opcode, pc, err)
	}
	return nil
}

func (m *Machine) fetch() (uint16, error) {
	pc := int(m.PC)
	if pc+1 >= MemorySize {
		return 0, fmt.Errorf("fetch at PC 0x%04X: %w", m.PC, ErrMemoryFault)
	}
	opcode := uint16(m.Memory[pc])<<8 | uint16(m.Memory[pc+1])
	m.PC += 2
	return opcode, nil
}

// Screen returns a copy of the 64×32 framebuffer, row-major with one byte
// per pixel valued 0 or 1. Renderers get a snapshot, never the machine's own
// buffer.
func (m *Machine) Screen() [DisplaySize]byte {
	return m.Display
}

// DrawPending reports whether a draw instruction has executed since the last
// MarkFlushed on the owning Runner.
func (m *Machine) DrawPending() bool {
	return m.drawPending
}

// UpdateKeys replaces the 16-key state array. Called once per cycle with
// fresh host input.
func (m *Machine) UpdateKeys(keys [NumKeys]bool) {
	m.Keys = keys
}

// TickTimers decrements both countdown timers toward zero. The caller is
// responsible for invoking it at the timer rate, not per instruction.
func (m *Machine) TickTimers() {
	if m.DelayTimer > 0 {
		m.DelayTimer--
	}
	if m.SoundTimer > 0 {
		m.SoundTimer--
	}
}
