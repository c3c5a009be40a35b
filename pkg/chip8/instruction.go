package chip8

import "fmt"

// Op identifies one instruction of the fixed CHIP-8 set.
type Op uint8

const (
	OpClear           Op = iota // 00E0
	OpReturn                    // 00EE
	OpJump                      // 1NNN
	OpCall                      // 2NNN
	OpSkipEqByte                // 3XNN
	OpSkipNeqByte               // 4XNN
	OpSkipEqReg                 // 5XY0
	OpLoadByte                  // 6XNN
	OpAddByte                   // 7XNN
	OpLoadReg                   // 8XY0
	OpOr                        // 8XY1
	OpAnd                       // 8XY2
	OpXor                       // 8XY3
	OpAdd                       // 8XY4
	OpSub                       // 8XY5
	OpShr                       // 8XY6
	OpSubRev                    // 8XY7
	OpShl                       // 8XYE
	OpSkipNeqReg                // 9XY0
	OpLoadI                     // ANNN
	OpJumpOffset                // BNNN
	OpRandom                    // CXNN
	OpDraw                      // DXYN
	OpSkipKeyPressed            // EX9E
	OpSkipKeyReleased           // EXA1
	OpLoadDelayTimer            // FX07
	OpGetKey                    // FX0A
	OpSetDelayTimer             // FX15
	OpSetSoundTimer             // FX18
	OpAddI                      // FX1E
	OpLoadFont                  // FX29
	OpLoadBCD                   // FX33
	OpStoreMemory               // FX55
	OpLoadMemory                // FX65
)

var opNames = [...]string{
	OpClear:           "CLS",
	OpReturn:          "RET",
	OpJump:            "JP",
	OpCall:            "CALL",
	OpSkipEqByte:      "SE",
	OpSkipNeqByte:     "SNE",
	OpSkipEqReg:       "SE",
	OpLoadByte:        "LD",
	OpAddByte:         "ADD",
	OpLoadReg:         "LD",
	OpOr:              "OR",
	OpAnd:             "AND",
	OpXor:             "XOR",
	OpAdd:             "ADD",
	OpSub:             "SUB",
	OpShr:             "SHR",
	OpSubRev:          "SUBN",
	OpShl:             "SHL",
	OpSkipNeqReg:      "SNE",
	OpLoadI:           "LD",
	OpJumpOffset:      "JP",
	OpRandom:          "RND",
	OpDraw:            "DRW",
	OpSkipKeyPressed:  "SKP",
	OpSkipKeyReleased: "SKNP",
	OpLoadDelayTimer:  "LD",
	OpGetKey:          "LD",
	OpSetDelayTimer:   "LD",
	OpSetSoundTimer:   "LD",
	OpAddI:            "ADD",
	OpLoadFont:        "LD",
	OpLoadBCD:         "LD",
	OpStoreMemory:     "LD",
	OpLoadMemory:      "LD",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Instruction is the decoded form of one 16-bit opcode: the operation tag
// plus every operand field extracted from the word. Only the fields the
// operation uses are meaningful.
type Instruction struct {
	Op  Op
	X   uint8  // second nibble: register selector
	Y   uint8  // third nibble: register selector
	N   uint8  // low nibble: 4-bit immediate
	NN  uint8  // low byte: 8-bit immediate
	NNN uint16 // low 12 bits: address immediate
}

// Decode maps a raw opcode word to its instruction, deterministically and
// with no side effects. Opcode layout, most-significant nibble first:
//
//	0000            0000           0000           0000
//	|-family------| |-x-register-| |-y-register-| |-n immediate-|
//	                               |------nn immediate----------|
//	                |-----------nnn immediate------------------|
//
// An opcode matching no known family/sub-opcode combination returns
// ErrInvalidOpcode; nothing ever decodes to a default instruction.
func Decode(opcode uint16) (Instruction, error) {
	in := Instruction{
		X:   uint8(opcode >> 8 & 0xF),
		Y:   uint8(opcode >> 4 & 0xF),
		N:   uint8(opcode & 0xF),
		NN:  uint8(opcode & 0xFF),
		NNN: opcode & 0xFFF,
	}

	switch opcode >> 12 {
	case 0x0:
		switch in.NN {
		case 0xE0:
			in.Op = OpClear
		case 0xEE:
			in.Op = OpReturn
		default:
			return Instruction{}, invalid(opcode)
		}
	case 0x1:
		in.Op = OpJump
	case 0x2:
		in.Op = OpCall
	case 0x3:
		in.Op = OpSkipEqByte
	case 0x4:
		in.Op = OpSkipNeqByte
	case 0x5:
		if in.N != 0 {
			return Instruction{}, invalid(opcode)
		}
		in.Op = OpSkipEqReg
	case 0x6:
		in.Op = OpLoadByte
	case 0x7:
		in.Op = OpAddByte
	case 0x8:
		switch in.N {
		case 0x0:
			in.Op = OpLoadReg
		case 0x1:
			in.Op = OpOr
		case 0x2:
			in.Op = OpAnd
		case 0x3:
			in.Op = OpXor
		case 0x4:
			in.Op = OpAdd
		case 0x5:
			in.Op = OpSub
		case 0x6:
			in.Op = OpShr
		case 0x7:
			in.Op = OpSubRev
		case 0xE:
			in.Op = OpShl
		default:
			return Instruction{}, invalid(opcode)
		}
	case 0x9:
		if in.N != 0 {
			return Instruction{}, invalid(opcode)
		}
		in.Op = OpSkipNeqReg
	case 0xA:
		in.Op = OpLoadI
	case 0xB:
		in.Op = OpJumpOffset
	case 0xC:
		in.Op = OpRandom
	case 0xD:
		in.Op = OpDraw
	case 0xE:
		switch in.NN {
		case 0x9E:
			in.Op = OpSkipKeyPressed
		case 0xA1:
			in.Op = OpSkipKeyReleased
		default:
			return Instruction{}, invalid(opcode)
		}
	case 0xF:
		switch in.NN {
		case 0x07:
			in.Op = OpLoadDelayTimer
		case 0x0A:
			in.Op = OpGetKey
		case 0x15:
			in.Op = OpSetDelayTimer
		case 0x18:
			in.Op = OpSetSoundTimer
		case 0x1E:
			in.Op = OpAddI
		case 0x29:
			in.Op = OpLoadFont
		case 0x33:
			in.Op = OpLoadBCD
		case 0x55:
			in.Op = OpStoreMemory
		case 0x65:
			in.Op = OpLoadMemory
		default:
			return Instruction{}, invalid(opcode)
		}
	}
	return in, nil
}

func invalid(opcode uint16) error {
	return fmt.Errorf("%w: 0x%04X", ErrInvalidOpcode, opcode)
}
