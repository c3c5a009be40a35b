package chip8

import (
	"fmt"

	"gochip8/pkg/grid"
)

// execute applies the semantics of one decoded instruction to the machine.
// All 8-bit arithmetic wraps modulo 256. Every instruction variant is
// handled here; Decode guarantees no other tag can reach the default case.
func (m *Machine) execute(in Instruction) error {
	switch in.Op {
	case OpClear:
		m.clear()
	case OpReturn:
		return m.ret()
	case OpJump:
		m.jump(in.NNN)
	case OpCall:
		return m.call(in.NNN)
	case OpSkipEqByte:
		m.skipIf(m.V[in.X] == in.NN)
	case OpSkipNeqByte:
		m.skipIf(m.V[in.X] != in.NN)
	case OpSkipEqReg:
		m.skipIf(m.V[in.X] == m.V[in.Y])
	case OpLoadByte:
		m.V[in.X] = in.NN
	case OpAddByte:
		m.V[in.X] += in.NN
	case OpLoadReg:
		m.V[in.X] = m.V[in.Y]
	case OpOr:
		m.V[in.X] |= m.V[in.Y]
	case OpAnd:
		m.V[in.X] &= m.V[in.Y]
	case OpXor:
		m.V[in.X] ^= m.V[in.Y]
	case OpAdd:
		m.add(in.X, in.Y)
	case OpSub:
		m.sub(in.X, in.Y)
	case OpShr:
		m.shr(in.X, in.Y)
	case OpSubRev:
		m.subRev(in.X, in.Y)
	case OpShl:
		m.shl(in.X, in.Y)
	case OpSkipNeqReg:
		m.skipIf(m.V[in.X] != m.V[in.Y])
	case OpLoadI:
		m.I = in.NNN
	case OpJumpOffset:
		// BXNN: the offset register is the high nibble of the address.
		m.jump(uint16(m.V[in.X]) + in.NNN)
	case OpRandom:
		m.V[in.X] = m.Rand() & in.NN
	case OpDraw:
		return m.draw(in.X, in.Y, in.N)
	case OpSkipKeyPressed:
		m.skipIf(m.Keys[m.V[in.X]&0xF])
	case OpSkipKeyReleased:
		m.skipIf(!m.Keys[m.V[in.X]&0xF])
	case OpLoadDelayTimer:
		m.V[in.X] = m.DelayTimer
	case OpGetKey:
		m.getKey(in.X)
	case OpSetDelayTimer:
		m.DelayTimer = m.V[in.X]
	case OpSetSoundTimer:
		m.SoundTimer = m.V[in.X]
	case OpAddI:
		m.addI(in.X)
	case OpLoadFont:
		m.I = uint16(m.V[in.X]) * GlyphSize
	case OpLoadBCD:
		return m.loadBCD(in.X)
	case OpStoreMemory:
		return m.storeMemory(in.X)
	case OpLoadMemory:
		return m.loadMemory(in.X)
	default:
		return fmt.Errorf("%w: unhandled op %d", ErrInvalidOpcode, in.Op)
	}
	return nil
}

func (m *Machine) clear() {
	m.Display = [DisplaySize]byte{}
	m.drawPending = true
}

func (m *Machine) ret() error {
	if m.SP == 0 {
		return ErrStackUnderflow
	}
	m.SP--
	m.PC = m.Stack[m.SP]
	return nil
}

func (m *Machine) jump(addr uint16) {
	m.PC = addr
}

func (m *Machine) call(addr uint16) error {
	if m.SP >= StackSize {
		return ErrStackOverflow
	}
	m.Stack[m.SP] = m.PC
	m.SP++
	m.PC = addr
	return nil
}

func (m *Machine) skipIf(cond bool) {
	if cond {
		m.PC += 2
	}
}

func (m *Machine) add(x, y uint8) {
	sum := uint16(m.V[x]) + uint16(m.V[y])
	m.V[x] = uint8(sum)
	m.V[0xF] = uint8(sum >> 8) // carry out of bit 7
}

func (m *Machine) sub(x, y uint8) {
	// VF=1 means no borrow, i.e. Vx >= Vy before the subtract.
	noBorrow := m.V[x] >= m.V[y]
	m.V[x] -= m.V[y]
	m.V[0xF] = flag(noBorrow)
}

func (m *Machine) subRev(x, y uint8) {
	noBorrow := m.V[y] >= m.V[x]
	m.V[x] = m.V[y] - m.V[x]
	m.V[0xF] = flag(noBorrow)
}

func (m *Machine) shr(x, y uint8) {
	if m.ShiftQuirk {
		m.V[x] = m.V[y]
	}
	bit := m.V[x] & 0x1
	m.V[x] >>= 1
	m.V[0xF] = bit
}

func (m *Machine) shl(x, y uint8) {
	if m.ShiftQuirk {
		m.V[x] = m.V[y]
	}
	bit := m.V[x] >> 7
	m.V[x] <<= 1
	m.V[0xF] = bit
}

// draw XORs an n-row sprite at (Vx, Vy) into the display. Coordinates wrap
// on entry only; rows past the bottom edge and columns past the right edge
// are clipped, not wrapped. VF is latched to 1 if any set pixel is turned
// off by the XOR. The dirty flag is set whether or not any pixel changed.
func (m *Machine) draw(x, y, n uint8) error {
	m.drawPending = true

	col := int(m.V[x]) % DisplayWidth
	row := int(m.V[y]) % DisplayHeight
	m.V[0xF] = 0

	for spriteY := 0; spriteY < int(n); spriteY++ {
		targetY := row + spriteY
		if targetY >= DisplayHeight {
			break
		}

		addr := int(m.I) + spriteY
		if addr >= MemorySize {
			return fmt.Errorf("sprite read at 0x%04X: %w", addr, ErrMemoryFault)
		}
		sprite := m.Memory[addr]

		for spriteX := 0; spriteX < 8; spriteX++ {
			targetX := col + spriteX
			if targetX >= DisplayWidth {
				break
			}
			if sprite>>(7-spriteX)&1 == 0 {
				continue
			}

			idx := grid.Index(targetX, targetY, DisplayWidth)
			if m.Display[idx] == 1 {
				m.Display[idx] = 0
				m.V[0xF] = 1 // collision
			} else {
				m.Display[idx] = 1
			}
		}
	}
	return nil
}

// getKey implements the busy-poll key wait. With no key down it rewinds PC
// by 2, undoing the fetch advance so the same instruction decodes again next
// cycle; input latency is therefore coupled to the instruction-cycle rate.
// With keys down, the lowest-indexed pressed key is latched into Vx and PC
// is left alone.
func (m *Machine) getKey(x uint8) {
	for key := 0; key < NumKeys; key++ {
		if m.Keys[key] {
			m.V[x] = uint8(key)
			return
		}
	}
	m.PC -= 2
}

func (m *Machine) addI(x uint8) {
	sum := uint32(m.I) + uint32(m.V[x])
	m.I = uint16(sum)
	m.V[0xF] = flag(sum > 0xFFFF)
}

func (m *Machine) loadBCD(x uint8) error {
	if int(m.I)+2 >= MemorySize {
		return fmt.Errorf("bcd write at 0x%04X: %w", m.I, ErrMemoryFault)
	}
	v := m.V[x]
	m.Memory[m.I] = v / 100
	m.Memory[m.I+1] = v % 100 / 10
	m.Memory[m.I+2] = v % 10
	return nil
}

func (m *Machine) storeMemory(x uint8) error {
	if int(m.I)+int(x) >= MemorySize {
		return fmt.Errorf("register store at 0x%04X..0x%04X: %w", m.I, int(m.I)+int(x), ErrMemoryFault)
	}
	for r := uint8(0); r <= x; r++ {
		m.Memory[m.I+uint16(r)] = m.V[r]
	}
	return nil
}

func (m *Machine) loadMemory(x uint8) error {
	if int(m.I)+int(x) >= MemorySize {
		return fmt.Errorf("register load at 0x%04X..0x%04X: %w", m.I, int(m.I)+int(x), ErrMemoryFault)
	}
	for r := uint8(0); r <= x; r++ {
		m.V[r] = m.Memory[m.I+uint16(r)]
	}
	return nil
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
