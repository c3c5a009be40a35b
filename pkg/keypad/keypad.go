// Package keypad holds the host-key-to-hex-key mapping tables shared by the
// front-ends. The mapping is configuration data, not core logic; the machine
// only ever sees 16 boolean key states indexed by nibble.
package keypad

// Layout maps a host key rune to a CHIP-8 hex key (0x0-0xF).
type Layout map[rune]uint8

// QWERTY is the conventional mapping of the COSMAC VIP 4×4 pad onto the
// left-hand block of a QWERTY keyboard:
//
//	1 2 3 4        1 2 3 C
//	Q W E R   ->   4 5 6 D
//	A S D F        7 8 9 E
//	Z X C V        A 0 B F
var QWERTY = Layout{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// Key returns the hex key bound to a host rune. Uppercase input is treated
// as its lowercase key.
func (l Layout) Key(r rune) (uint8, bool) {
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	k, ok := l[r]
	return k, ok
}
