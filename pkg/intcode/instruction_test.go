package intcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecode tests decoding of every instruction shape.
func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		mem  Memory
		ip   Address
		want Instruction
		next Address
	}{
		{
			name: "add positional",
			mem:  Memory{1, 5, 6, 7},
			want: Add{N1: Position(5), N2: Position(6), To: Position(7)},
			next: 4,
		},
		{
			name: "multiply mixed modes",
			mem:  Memory{1002, 4, 3, 4, 33},
			want: Multiply{N1: Position(4), N2: Immediate(3), To: Position(4)},
			next: 4,
		},
		{
			name: "input",
			mem:  Memory{3, 0},
			want: Input{To: Position(0)},
			next: 2,
		},
		{
			name: "output immediate",
			mem:  Memory{104, -7},
			want: Output{From: Immediate(-7)},
			next: 2,
		},
		{
			name: "jump if true",
			mem:  Memory{1105, 1, 9},
			want: JumpIfTrue{Test: Immediate(1), Goto: Immediate(9)},
			next: 3,
		},
		{
			name: "jump if false",
			mem:  Memory{6, 1, 2},
			want: JumpIfFalse{Test: Position(1), Goto: Position(2)},
			next: 3,
		},
		{
			name: "less than",
			mem:  Memory{1107, 3, 8, 9},
			want: LessThan{N1: Immediate(3), N2: Immediate(8), To: Position(9)},
			next: 4,
		},
		{
			name: "equals",
			mem:  Memory{8, 9, 10, 9},
			want: Equals{N1: Position(9), N2: Position(10), To: Position(9)},
			next: 4,
		},
		{
			name: "halt",
			mem:  Memory{99},
			want: Halt{},
			next: 1,
		},
		{
			name: "decode from offset",
			mem:  Memory{99, 104, 5},
			ip:   1,
			want: Output{From: Immediate(5)},
			next: 3,
		},
		{
			name: "end of memory",
			mem:  Memory{1, 0, 0, 0},
			ip:   4,
			want: End{},
			next: 4,
		},
		{
			name: "empty memory",
			mem:  Memory{},
			want: End{},
			next: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, next, err := Decode(tt.mem, tt.ip)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.next, next)
		})
	}
}

// TestDecodeErrors tests operand resolution and opcode failures.
func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		mem     Memory
		want    error
		errKind error
	}{
		{
			name:    "missing write target",
			mem:     Memory{1, 0, 0},
			want:    &MissingParameterError{Parameter: 2, Opcode: 1, Position: 3},
			errKind: ErrMissingParameter,
		},
		{
			name:    "missing first operand",
			mem:     Memory{4},
			want:    &MissingParameterError{Parameter: 0, Opcode: 4, Position: 1},
			errKind: ErrMissingParameter,
		},
		{
			name:    "negative position",
			mem:     Memory{1, -1, 0, 0},
			want:    &NegativePositionalParameterError{Value: -1, Parameter: 0, Opcode: 1, Position: 2},
			errKind: ErrNegativePositionalParameter,
		},
		{
			name:    "unknown mode",
			mem:     Memory{201, 0, 0, 0},
			want:    &InvalidParameterModeError{Mode: 2, Parameter: 0, Opcode: 1, Position: 2},
			errKind: ErrInvalidParameterMode,
		},
		{
			name:    "immediate write target",
			mem:     Memory{10001, 0, 0, 0},
			want:    &InvalidParameterModeError{Mode: 1, Parameter: 2, Opcode: 1, Position: 4},
			errKind: ErrInvalidParameterMode,
		},
		{
			name:    "immediate input target",
			mem:     Memory{103, 0},
			want:    &InvalidParameterModeError{Mode: 1, Parameter: 0, Opcode: 3, Position: 2},
			errKind: ErrInvalidParameterMode,
		},
		{
			name:    "unknown opcode",
			mem:     Memory{42},
			want:    &InvalidOpcodeError{Opcode: 42, Position: 1},
			errKind: ErrInvalidOpcode,
		},
		{
			name:    "zero opcode",
			mem:     Memory{0, 0},
			want:    &InvalidOpcodeError{Opcode: 0, Position: 1},
			errKind: ErrInvalidOpcode,
		},
		{
			name:    "negative word",
			mem:     Memory{-1},
			want:    &InvalidOpcodeError{Opcode: -1, Position: 1},
			errKind: ErrInvalidOpcode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.mem, 0)
			require.Error(t, err)
			assert.Equal(t, tt.want, err)
			assert.ErrorIs(t, err, tt.errKind)
		})
	}
}

func TestModeDigits(t *testing.T) {
	word := int64(10298)
	assert.Equal(t, int64(98), word%100)
	assert.Equal(t, int64(2), mode(word, 0))
	assert.Equal(t, int64(0), mode(word, 1))
	assert.Equal(t, int64(1), mode(word, 2))
	assert.Equal(t, int64(0), mode(word, 3))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `Invalid opcode "42" at position 1`,
		(&InvalidOpcodeError{Opcode: 42, Position: 1}).Error())
	assert.Equal(t, `Missing parameter 2 for opcode "1" at position 3`,
		(&MissingParameterError{Parameter: 2, Opcode: 1, Position: 3}).Error())
	assert.Equal(t, `Negative value -1 for positional parameter 1 for opcode "5" at position 3`,
		(&NegativePositionalParameterError{Value: -1, Parameter: 1, Opcode: 5, Position: 3}).Error())
	assert.Equal(t, `Invalid parameter mode "2" for parameter 0 of opcode "1" at position 2`,
		(&InvalidParameterModeError{Mode: 2, Parameter: 0, Opcode: 1, Position: 2}).Error())
}
