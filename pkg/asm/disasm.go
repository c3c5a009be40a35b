package asm

import (
	"fmt"

	"gochip8/pkg/chip8"
)

// Disassemble renders ROM bytes back into assembler source, one line per
// 16-bit word. Words that decode to no known instruction are emitted as DW
// directives and a trailing odd byte as DB, so the output always
// re-assembles to the input.
func Disassemble(rom []byte) []string {
	lines := make([]string, 0, len(rom)/2+1)

	for i := 0; i+1 < len(rom); i += 2 {
		opcode := uint16(rom[i])<<8 | uint16(rom[i+1])
		in, err := chip8.Decode(opcode)
		if err != nil {
			lines = append(lines, fmt.Sprintf("DW 0x%04X", opcode))
			continue
		}
		lines = append(lines, format(in))
	}

	if len(rom)%2 == 1 {
		lines = append(lines, fmt.Sprintf("DB 0x%02X", rom[len(rom)-1]))
	}

	return lines
}

func format(in chip8.Instruction) string {
	switch in.Op {
	case chip8.OpClear:
		return "CLS"
	case chip8.OpReturn:
		return "RET"
	case chip8.OpJump:
		return fmt.Sprintf("JP 0x%03X", in.NNN)
	case chip8.OpCall:
		return fmt.Sprintf("CALL 0x%03X", in.NNN)
	case chip8.OpSkipEqByte:
		return fmt.Sprintf("SE V%X, 0x%02X", in.X, in.NN)
	case chip8.OpSkipNeqByte:
		return fmt.Sprintf("SNE V%X, 0x%02X", in.X, in.NN)
	case chip8.OpSkipEqReg:
		return fmt.Sprintf("SE V%X, V%X", in.X, in.Y)
	case chip8.OpLoadByte:
		return fmt.Sprintf("LD V%X, 0x%02X", in.X, in.NN)
	case chip8.OpAddByte:
		return fmt.Sprintf("ADD V%X, 0x%02X", in.X, in.NN)
	case chip8.OpLoadReg:
		return fmt.Sprintf("LD V%X, V%X", in.X, in.Y)
	case chip8.OpOr:
		return fmt.Sprintf("OR V%X, V%X", in.X, in.Y)
	case chip8.OpAnd:
		return fmt.Sprintf("AND V%X, V%X", in.X, in.Y)
	case chip8.OpXor:
		return fmt.Sprintf("XOR V%X, V%X", in.X, in.Y)
	case chip8.OpAdd:
		return fmt.Sprintf("ADD V%X, V%X", in.X, in.Y)
	case chip8.OpSub:
		return fmt.Sprintf("SUB V%X, V%X", in.X, in.Y)
	case chip8.OpShr:
		return fmt.Sprintf("SHR V%X, V%X", in.X, in.Y)
	case chip8.OpSubRev:
		return fmt.Sprintf("SUBN V%X, V%X", in.X, in.Y)
	case chip8.OpShl:
		return fmt.Sprintf("SHL V%X, V%X", in.X, in.Y)
	case chip8.OpSkipNeqReg:
		return fmt.Sprintf("SNE V%X, V%X", in.X, in.Y)
	case chip8.OpLoadI:
		return fmt.Sprintf("LD I, 0x%03X", in.NNN)
	case chip8.OpJumpOffset:
		return fmt.Sprintf("JP V%X, 0x%03X", in.X, in.NNN)
	case chip8.OpRandom:
		return fmt.Sprintf("RND V%X, 0x%02X", in.X, in.NN)
	case chip8.OpDraw:
		return fmt.Sprintf("DRW V%X, V%X, 0x%X", in.X, in.Y, in.N)
	case chip8.OpSkipKeyPressed:
		return fmt.Sprintf("SKP V%X", in.X)
	case chip8.OpSkipKeyReleased:
		return fmt.Sprintf("SKNP V%X", in.X)
	case chip8.OpLoadDelayTimer:
		return fmt.Sprintf("LD V%X, DT", in.X)
	case chip8.OpGetKey:
		return fmt.Sprintf("LD V%X, K", in.X)
	case chip8.OpSetDelayTimer:
		return fmt.Sprintf("LD DT, V%X", in.X)
	case chip8.OpSetSoundTimer:
		return fmt.Sprintf("LD ST, V%X", in.X)
	case chip8.OpAddI:
		return fmt.Sprintf("ADD I, V%X", in.X)
	case chip8.OpLoadFont:
		return fmt.Sprintf("LD F, V%X", in.X)
	case chip8.OpLoadBCD:
		return fmt.Sprintf("LD B, V%X", in.X)
	case chip8.OpStoreMemory:
		return fmt.Sprintf("LD [I], V%X", in.X)
	case chip8.OpLoadMemory:
		return fmt.Sprintf("LD V%X, [I]", in.X)
	}
	return fmt.Sprintf("DW 0x%X%03X", in.Op, in.NNN) // unreachable
}
