package intcode

// Parameter is a resolved operand. It is either a Position or an Immediate.
type Parameter interface {
	// Value reads the operand against mem.
	Value(mem Memory) int64
	isParameter()
}

// Position refers to a memory cell (mode 0). Only positions can be written.
type Position Address

// Value returns the cell the position refers to.
func (p Position) Value(mem Memory) int64 { return mem.Read(Address(p)) }

// Index returns the referenced address.
func (p Position) Index() Address { return Address(p) }

func (Position) isParameter() {}

// Immediate is a literal operand (mode 1).
type Immediate int64

// Value returns the literal.
func (i Immediate) Value(Memory) int64 { return int64(i) }

func (Immediate) isParameter() {}

// Parameter modes.
const (
	ModePosition  = 0
	ModeImmediate = 1
)

// resolveParameter consumes the operand word at *cursor and classifies it by
// mode. n is the operand's 0-based role index within the instruction.
func resolveParameter(mem Memory, cursor *Address, mode int64, n int, opcode int64) (Parameter, error) {
	word, ok := mem.word(*cursor)
	if !ok {
		return nil, &MissingParameterError{Parameter: n, Opcode: opcode, Position: *cursor}
	}
	*cursor++

	switch mode {
	case ModePosition:
		if word < 0 {
			return nil, &NegativePositionalParameterError{Value: word, Parameter: n, Opcode: opcode, Position: *cursor}
		}
		return Position(word), nil
	case ModeImmediate:
		return Immediate(word), nil
	default:
		return nil, &InvalidParameterModeError{Mode: mode, Parameter: n, Opcode: opcode, Position: *cursor}
	}
}

// resolvePosition is resolveParameter for write targets: an immediate operand
// cannot be written to and is rejected.
func resolvePosition(mem Memory, cursor *Address, mode int64, n int, opcode int64) (Position, error) {
	p, err := resolveParameter(mem, cursor, mode, n, opcode)
	if err != nil {
		return 0, err
	}
	pos, ok := p.(Position)
	if !ok {
		return 0, &InvalidParameterModeError{Mode: mode, Parameter: n, Opcode: opcode, Position: *cursor}
	}
	return pos, nil
}
