package asm

import (
	"bytes"
	"strings"
	"testing"
)

func assemble(t *testing.T, src string) []byte {
	t.Helper()
	code, _, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return code
}

func TestInstructionEncoding(t *testing.T) {
	tests := []struct {
		src  string
		want uint16
	}{
		{"CLS", 0x00E0},
		{"RET", 0x00EE},
		{"JP 0x234", 0x1234},
		{"JP V0, 0x045", 0xB045},
		{"JP V3, 0x345", 0xB345},
		{"CALL 0x456", 0x2456},
		{"SE V1, 0x20", 0x3120},
		{"SE V1, V2", 0x5120},
		{"SNE V1, 0x20", 0x4120},
		{"SNE V1, V2", 0x9120},
		{"LD V1, 0xAB", 0x61AB},
		{"LD V1, V2", 0x8120},
		{"ADD V1, 0x05", 0x7105},
		{"ADD V1, V2", 0x8124},
		{"ADD I, V1", 0xF11E},
		{"OR V1, V2", 0x8121},
		{"AND V1, V2", 0x8122},
		{"XOR V1, V2", 0x8123},
		{"SUB V1, V2", 0x8125},
		{"SUBN V1, V2", 0x8127},
		{"SHR V1", 0x8116},
		{"SHR V1, V2", 0x8126},
		{"SHL V1", 0x811E},
		{"SHL V1, V2", 0x812E},
		{"LD I, 0x300", 0xA300},
		{"RND V1, 0x0F", 0xC10F},
		{"DRW V1, V2, 0x5", 0xD125},
		{"SKP V1", 0xE19E},
		{"SKNP V1", 0xE1A1},
		{"LD V1, DT", 0xF107},
		{"LD V1, K", 0xF10A},
		{"LD DT, V1", 0xF115},
		{"LD ST, V1", 0xF118},
		{"LD F, V1", 0xF129},
		{"LD B, V1", 0xF133},
		{"LD [I], V3", 0xF355},
		{"LD V3, [I]", 0xF365},

		// lowercase and decimal immediates work too
		{"ld v1, 171", 0x61AB},
		{"drw va, vb, 15", 0xDABF},
	}

	for _, tc := range tests {
		code := assemble(t, tc.src)
		if len(code) != 2 {
			t.Errorf("%q: expected 2 bytes, got %d", tc.src, len(code))
			continue
		}
		got := uint16(code[0])<<8 | uint16(code[1])
		if got != tc.want {
			t.Errorf("%q: expected 0x%04X, got 0x%04X", tc.src, tc.want, got)
		}
	}
}

func TestLabels(t *testing.T) {
	src := `
; wait for a key, then loop forever
start:
    LD V1, K
    JP start

blink:
    JP blink
`
	code := assemble(t, src)

	want := []byte{
		0xF1, 0x0A, // LD V1, K       at 0x200
		0x12, 0x00, // JP 0x200
		0x12, 0x04, // JP 0x204
	}
	if !bytes.Equal(code, want) {
		t.Errorf("expected % X, got % X", want, code)
	}
}

func TestDataDirectives(t *testing.T) {
	src := `
    LD I, sprite
    DRW V0, V0, 2
sprite:
    DB 0xF0, 0x90
    DW 0x1234
`
	code := assemble(t, src)
	want := []byte{
		0xA2, 0x04, // LD I, 0x204
		0xD0, 0x02,
		0xF0, 0x90,
		0x12, 0x34,
	}
	if !bytes.Equal(code, want) {
		t.Errorf("expected % X, got % X", want, code)
	}
}

func TestSourceMap(t *testing.T) {
	src := "CLS\n\nRET ; comment\n"
	code, sourceMap, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(code) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(code))
	}
	if sourceMap[0] != 1 || sourceMap[2] != 3 {
		t.Errorf("source map: expected {0:1, 2:3}, got %v", sourceMap)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		src     string
		wantMsg string
	}{
		{"FROB V1", "unknown instruction on line 1"},
		{"JP nowhere", "undefined label 'nowhere' on line 1"},
		{"LD V1, 0x100", "immediate out of range on line 1"},
		{"LD VX, 0x10", "invalid LD destination"},
		{"x: JP x\nx: RET", "duplicate label 'x' on line 2"},
		{"DB", "DB expects at least one operand on line 1"},
		{"JP V1, 0x200", "JP V1 offset needs an address in the 0x100 page"},
	}

	for _, tc := range tests {
		_, _, err := Assemble(tc.src)
		if err == nil {
			t.Errorf("%q: expected error", tc.src)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Errorf("%q: expected error containing %q, got %q", tc.src, tc.wantMsg, err)
		}
	}
}

func TestProgramTooLarge(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < (4096-0x200)/2+1; i++ {
		sb.WriteString("CLS\n")
	}
	if _, _, err := Assemble(sb.String()); err == nil {
		t.Errorf("expected program-too-large error")
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	rom := []byte{
		0x00, 0xE0, // CLS
		0x61, 0xAB, // LD V1, 0xAB
		0xA3, 0x00, // LD I, 0x300
		0xD1, 0x25, // DRW V1, V2, 5
		0xF1, 0x0A, // LD V1, K
		0xB3, 0x45, // JP V3, 0x345
		0x50, 0x01, // not an instruction -> DW
		0x12, 0x00, // JP 0x200
		0xFF, // odd trailing byte -> DB
	}

	lines := Disassemble(rom)
	if len(lines) != 9 {
		t.Fatalf("expected 9 lines, got %d: %v", len(lines), lines)
	}
	if lines[5] != "JP V3, 0x345" {
		t.Errorf("jump offset: expected the register nibble kept, got %q", lines[5])
	}
	if lines[6] != "DW 0x5001" {
		t.Errorf("invalid word: expected DW fallback, got %q", lines[6])
	}
	if lines[8] != "DB 0xFF" {
		t.Errorf("odd byte: expected DB fallback, got %q", lines[8])
	}

	// Disassembler output is valid assembler input and reproduces the
	// ROM exactly.
	back := assemble(t, strings.Join(lines, "\n"))
	if !bytes.Equal(back, rom) {
		t.Errorf("round trip mismatch:\n in  % X\n out % X", rom, back)
	}
}
