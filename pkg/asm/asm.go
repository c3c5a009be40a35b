// Package asm implements a two-pass assembler and a disassembler for the
// CHIP-8 instruction set, using the conventional mnemonics (CLS, RET, JP,
// CALL, SE, SNE, LD, ADD, OR, AND, XOR, SUB, SHR, SUBN, SHL, RND, DRW, SKP,
// SKNP) plus DB/DW data directives. The origin is fixed at 0x200, the
// machine's ROM start address.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gochip8/pkg/chip8"
)

type Assembler struct {
	labels map[string]uint16
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint16),
	}
}

// Assemble translates source into ROM bytes ready for loading at 0x200. The
// second return value maps each instruction's ROM offset to its source line.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]byte, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

// pass1 walks the source counting emitted bytes so every label gets its
// final address. Label addresses include the 0x200 origin.
func (a *Assembler) pass1(lines []string) error {
	address := uint32(chip8.ROMStart)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = uint16(address)
		}

		if p.mnemonic == "" {
			continue
		}

		length, err := lineLength(p)
		if err != nil {
			return err
		}
		address += uint32(length)
		if address > chip8.MemorySize {
			return fmt.Errorf("program too large near line %d", lineNo)
		}
	}

	return nil
}

func lineLength(p parsedLine) (int, error) {
	switch p.mnemonic {
	case "DB":
		if len(p.operands) == 0 {
			return 0, fmt.Errorf("DB expects at least one operand on line %d", p.lineNo)
		}
		return len(p.operands), nil
	case "DW":
		if len(p.operands) == 0 {
			return 0, fmt.Errorf("DW expects at least one operand on line %d", p.lineNo)
		}
		return 2 * len(p.operands), nil
	}
	if !mnemonics[p.mnemonic] {
		return 0, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}
	return 2, nil
}

func (a *Assembler) pass2(lines []string) ([]byte, map[uint16]int, error) {
	program := make([]byte, 0)
	sourceMap := make(map[uint16]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		sourceMap[uint16(len(program))] = lineNo

		switch p.mnemonic {
		case "DB":
			for _, op := range p.operands {
				v, err := a.parseImmediate(op, 0xFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				program = append(program, byte(v))
			}
		case "DW":
			for _, op := range p.operands {
				v, err := a.parseImmediate(op, 0xFFFF, lineNo)
				if err != nil {
					return nil, nil, err
				}
				// big-endian, matching opcode byte order
				program = append(program, byte(v>>8), byte(v))
			}
		default:
			opcode, err := a.encode(p)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, byte(opcode>>8), byte(opcode))
		}
	}

	return program, sourceMap, nil
}

// encode turns one parsed instruction line into its 16-bit opcode word.
func (a *Assembler) encode(p parsedLine) (uint16, error) {
	ops := p.operands
	lineNo := p.lineNo

	badOperands := func() (uint16, error) {
		return 0, fmt.Errorf("%s: unsupported operands %v on line %d", p.mnemonic, ops, lineNo)
	}

	switch p.mnemonic {
	case "CLS":
		if len(ops) != 0 {
			return badOperands()
		}
		return 0x00E0, nil

	case "RET":
		if len(ops) != 0 {
			return badOperands()
		}
		return 0x00EE, nil

	case "JP":
		// JP addr -> 1NNN; JP Vx, addr -> BNNN with x in the high
		// address nibble
		switch len(ops) {
		case 1:
			nnn, err := a.parseAddress(ops[0], lineNo)
			if err != nil {
				return 0, err
			}
			return 0x1000 | nnn, nil
		case 2:
			x, ok := parseRegister(ops[0])
			if !ok {
				return 0, fmt.Errorf("invalid register '%s' on line %d", ops[0], lineNo)
			}
			nnn, err := a.parseAddress(ops[1], lineNo)
			if err != nil {
				return 0, err
			}
			// The offset register is the high nibble of the address, so
			// the two operands must agree.
			if uint8(nnn>>8) != x {
				return 0, fmt.Errorf("JP V%X offset needs an address in the 0x%X00 page, got 0x%03X on line %d", x, x, nnn, lineNo)
			}
			return 0xB000 | nnn, nil
		}
		return badOperands()

	case "CALL":
		if len(ops) != 1 {
			return badOperands()
		}
		nnn, err := a.parseAddress(ops[0], lineNo)
		if err != nil {
			return 0, err
		}
		return 0x2000 | nnn, nil

	case "SE", "SNE":
		if len(ops) != 2 {
			return badOperands()
		}
		x, ok := parseRegister(ops[0])
		if !ok {
			return 0, fmt.Errorf("invalid register '%s' on line %d", ops[0], lineNo)
		}
		if y, ok := parseRegister(ops[1]); ok {
			if p.mnemonic == "SE" {
				return 0x5000 | regXY(x, y), nil
			}
			return 0x9000 | regXY(x, y), nil
		}
		nn, err := a.parseImmediate(ops[1], 0xFF, lineNo)
		if err != nil {
			return 0, err
		}
		if p.mnemonic == "SE" {
			return 0x3000 | regX(x) | nn, nil
		}
		return 0x4000 | regX(x) | nn, nil

	case "ADD":
		if len(ops) != 2 {
			return badOperands()
		}
		if strings.EqualFold(ops[0], "I") {
			x, ok := parseRegister(ops[1])
			if !ok {
				return 0, fmt.Errorf("invalid register '%s' on line %d", ops[1], lineNo)
			}
			return 0xF01E | regX(x), nil
		}
		x, ok := parseRegister(ops[0])
		if !ok {
			return 0, fmt.Errorf("invalid register '%s' on line %d", ops[0], lineNo)
		}
		if y, ok := parseRegister(ops[1]); ok {
			return 0x8004 | regXY(x, y), nil
		}
		nn, err := a.parseImmediate(ops[1], 0xFF, lineNo)
		if err != nil {
			return 0, err
		}
		return 0x7000 | regX(x) | nn, nil

	case "OR", "AND", "XOR", "SUB", "SUBN":
		if len(ops) != 2 {
			return badOperands()
		}
		x, okX := parseRegister(ops[0])
		y, okY := parseRegister(ops[1])
		if !okX || !okY {
			return badOperands()
		}
		n := map[string]uint16{"OR": 0x1, "AND": 0x2, "XOR": 0x3, "SUB": 0x5, "SUBN": 0x7}[p.mnemonic]
		return 0x8000 | regXY(x, y) | n, nil

	case "SHR", "SHL":
		// The Vy operand is optional; plain SHR Vx encodes y=x so the
		// quirk variant behaves the same as the literal one.
		if len(ops) != 1 && len(ops) != 2 {
			return badOperands()
		}
		x, ok := parseRegister(ops[0])
		if !ok {
			return 0, fmt.Errorf("invalid register '%s' on line %d", ops[0], lineNo)
		}
		y := x
		if len(ops) == 2 {
			y, ok = parseRegister(ops[1])
			if !ok {
				return 0, fmt.Errorf("invalid register '%s' on line %d", ops[1], lineNo)
			}
		}
		if p.mnemonic == "SHR" {
			return 0x8006 | regXY(x, y), nil
		}
		return 0x800E | regXY(x, y), nil

	case "RND":
		if len(ops) != 2 {
			return badOperands()
		}
		x, ok := parseRegister(ops[0])
		if !ok {
			return 0, fmt.Errorf("invalid register '%s' on line %d", ops[0], lineNo)
		}
		nn, err := a.parseImmediate(ops[1], 0xFF, lineNo)
		if err != nil {
			return 0, err
		}
		return 0xC000 | regX(x) | nn, nil

	case "DRW":
		if len(ops) != 3 {
			return badOperands()
		}
		x, okX := parseRegister(ops[0])
		y, okY := parseRegister(ops[1])
		if !okX || !okY {
			return badOperands()
		}
		n, err := a.parseImmediate(ops[2], 0xF, lineNo)
		if err != nil {
			return 0, err
		}
		return 0xD000 | regXY(x, y) | n, nil

	case "SKP", "SKNP":
		if len(ops) != 1 {
			return badOperands()
		}
		x, ok := parseRegister(ops[0])
		if !ok {
			return badOperands()
		}
		if p.mnemonic == "SKP" {
			return 0xE09E | regX(x), nil
		}
		return 0xE0A1 | regX(x), nil

	case "LD":
		return a.encodeLoad(p)
	}

	return 0, fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
}

// encodeLoad handles the many LD forms, dispatching on the shape of both
// operands.
func (a *Assembler) encodeLoad(p parsedLine) (uint16, error) {
	ops := p.operands
	lineNo := p.lineNo
	if len(ops) != 2 {
		return 0, fmt.Errorf("LD expects 2 operands on line %d", lineNo)
	}

	needReg := func(token string) (uint8, error) {
		x, ok := parseRegister(token)
		if !ok {
			return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
		}
		return x, nil
	}

	switch strings.ToUpper(ops[0]) {
	case "I": // LD I, addr -> ANNN
		nnn, err := a.parseAddress(ops[1], lineNo)
		if err != nil {
			return 0, err
		}
		return 0xA000 | nnn, nil
	case "DT": // LD DT, Vx -> FX15
		x, err := needReg(ops[1])
		if err != nil {
			return 0, err
		}
		return 0xF015 | regX(x), nil
	case "ST": // LD ST, Vx -> FX18
		x, err := needReg(ops[1])
		if err != nil {
			return 0, err
		}
		return 0xF018 | regX(x), nil
	case "F": // LD F, Vx -> FX29
		x, err := needReg(ops[1])
		if err != nil {
			return 0, err
		}
		return 0xF029 | regX(x), nil
	case "B": // LD B, Vx -> FX33
		x, err := needReg(ops[1])
		if err != nil {
			return 0, err
		}
		return 0xF033 | regX(x), nil
	case "[I]": // LD [I], Vx -> FX55
		x, err := needReg(ops[1])
		if err != nil {
			return 0, err
		}
		return 0xF055 | regX(x), nil
	}

	x, err := needReg(ops[0])
	if err != nil {
		return 0, fmt.Errorf("invalid LD destination '%s' on line %d", ops[0], lineNo)
	}

	switch strings.ToUpper(ops[1]) {
	case "DT": // LD Vx, DT -> FX07
		return 0xF007 | regX(x), nil
	case "K": // LD Vx, K -> FX0A
		return 0xF00A | regX(x), nil
	case "[I]": // LD Vx, [I] -> FX65
		return 0xF065 | regX(x), nil
	}

	if y, ok := parseRegister(ops[1]); ok {
		return 0x8000 | regXY(x, y), nil
	}

	nn, err := a.parseImmediate(ops[1], 0xFF, lineNo)
	if err != nil {
		return 0, err
	}
	return 0x6000 | regX(x) | nn, nil
}

func regX(x uint8) uint16 {
	return uint16(x) << 8
}

func regXY(x, y uint8) uint16 {
	return uint16(x)<<8 | uint16(y)<<4
}

var mnemonics = map[string]bool{
	"CLS": true, "RET": true, "JP": true, "CALL": true,
	"SE": true, "SNE": true, "LD": true, "ADD": true,
	"OR": true, "AND": true, "XOR": true, "SUB": true,
	"SHR": true, "SUBN": true, "SHL": true, "RND": true,
	"DRW": true, "SKP": true, "SKNP": true,
}

// parseRegister accepts V0-VF (any case) and returns the register index.
func parseRegister(token string) (uint8, bool) {
	if len(token) != 2 {
		return 0, false
	}
	if token[0] != 'V' && token[0] != 'v' {
		return 0, false
	}
	d := token[1]
	switch {
	case d >= '0' && d <= '9':
		return d - '0', true
	case d >= 'A' && d <= 'F':
		return d - 'A' + 10, true
	case d >= 'a' && d <= 'f':
		return d - 'a' + 10, true
	}
	return 0, false
}

// parseImmediate accepts decimal, 0x-prefixed hex, #-prefixed hex, or a
// label, bounded by max.
func (a *Assembler) parseImmediate(token string, max uint16, lineNo int) (uint16, error) {
	num := token
	if strings.HasPrefix(num, "#") {
		num = "0x" + num[1:]
	}
	if value, err := strconv.ParseUint(num, 0, 32); err == nil {
		if value > uint64(max) {
			return 0, fmt.Errorf("immediate out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	label := normalizeLabel(token)
	if addr, ok := a.labels[label]; ok {
		if addr > max {
			return 0, fmt.Errorf("label '%s' out of range on line %d", token, lineNo)
		}
		return addr, nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

func (a *Assembler) parseAddress(token string, lineNo int) (uint16, error) {
	return a.parseImmediate(token, 0xFFF, lineNo)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := stripComments(raw)
	line = strings.TrimSpace(line)
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if beforeColon == "" || strings.ContainsAny(beforeColon, " \t") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	line = strings.ReplaceAll(line, ",", " ")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
