package chip8

import "errors"

// Error taxonomy for the machine. Decode/execute errors are fatal to the
// run; callers match them with errors.Is and add their own policy on top
// (the Runner can optionally treat invalid opcodes as no-ops).
var (
	// ErrInvalidOpcode marks an opcode matching no known instruction.
	ErrInvalidOpcode = errors.New("invalid opcode")

	// ErrStackOverflow marks a CALL with all 16 stack slots in use.
	ErrStackOverflow = errors.New("stack overflow")

	// ErrStackUnderflow marks a RET with an empty stack.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrMemoryFault marks a read or write outside [0, 4096).
	ErrMemoryFault = errors.New("memory access out of bounds")

	// ErrROMTooLarge marks a ROM longer than the 3584 bytes available
	// above the reset address.
	ErrROMTooLarge = errors.New("rom too large for memory")
)
