package intcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compareToEight outputs 999 below 8, 1000 at 8 and 1001 above 8.
const compareToEight = "3,21,1008,21,8,20,1005,20,22,107,8,21,20,1006,20,31," +
	"1106,0,36,98,0,0,1002,21,125,20,4,20,1105,1,46,104," +
	"999,1105,1,46,1101,1000,1,20,4,20,1105,1,46,98,99"

func mustParse(t *testing.T, text string) Memory {
	t.Helper()
	mem, err := Parse(text)
	require.NoError(t, err)
	return mem
}

func TestEvalMemory(t *testing.T) {
	tests := []struct {
		name    string
		program string
		want    Memory
	}{
		{name: "add", program: "1,0,0,0,99", want: Memory{2, 0, 0, 0, 99}},
		{name: "multiply", program: "2,3,0,3,99", want: Memory{2, 3, 0, 6, 99}},
		{name: "multiply past code", program: "2,4,4,5,99,0", want: Memory{2, 4, 4, 5, 99, 9801}},
		{name: "self modifying", program: "1,1,1,4,99,5,6,0,99", want: Memory{30, 1, 1, 4, 2, 5, 6, 0, 99}},
		{name: "immediate negative", program: "1101,100,-1,4,0", want: Memory{1101, 100, -1, 4, 99}},
		{name: "mixed modes", program: "1002,4,3,4,33", want: Memory{1002, 4, 3, 4, 99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Eval(mustParse(t, tt.program), nil)
			require.NoError(t, err)
			assert.True(t, res.Completed)
			assert.Equal(t, Halted, res.State)
			assert.Equal(t, tt.want, res.Memory)
		})
	}
}

func TestEvalDoesNotModifyProgram(t *testing.T) {
	program := Memory{1, 0, 0, 0, 99}
	_, err := Eval(program, nil)
	require.NoError(t, err)
	assert.Equal(t, Memory{1, 0, 0, 0, 99}, program)
}

func TestEvalEcho(t *testing.T) {
	res, err := Eval(Memory{3, 0, 4, 0, 99}, []int64{7})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, []int64{7}, res.Output)
	assert.Equal(t, 1, res.UsedInput)
	assert.Equal(t, uint64(3), res.Steps)
}

func TestEvalComparisons(t *testing.T) {
	tests := []struct {
		name    string
		program string
		input   int64
		want    int64
	}{
		{name: "equal position", program: "3,9,8,9,10,9,4,9,99,-1,8", input: 8, want: 1},
		{name: "not equal position", program: "3,9,8,9,10,9,4,9,99,-1,8", input: 7, want: 0},
		{name: "less position", program: "3,9,7,9,10,9,4,9,99,-1,8", input: 5, want: 1},
		{name: "not less position", program: "3,9,7,9,10,9,4,9,99,-1,8", input: 8, want: 0},
		{name: "equal immediate", program: "3,3,1108,-1,8,3,4,3,99", input: 8, want: 1},
		{name: "less immediate", program: "3,3,1107,-1,8,3,4,3,99", input: 9, want: 0},
		{name: "jump position zero", program: "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", input: 0, want: 0},
		{name: "jump position nonzero", program: "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", input: 5, want: 1},
		{name: "jump immediate zero", program: "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", input: 0, want: 0},
		{name: "jump immediate nonzero", program: "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", input: -3, want: 1},
		{name: "below eight", program: compareToEight, input: 7, want: 999},
		{name: "eight", program: compareToEight, input: 8, want: 1000},
		{name: "above eight", program: compareToEight, input: 9, want: 1001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Eval(mustParse(t, tt.program), []int64{tt.input})
			require.NoError(t, err)
			assert.True(t, res.Completed)
			assert.Equal(t, []int64{tt.want}, res.Output)
		})
	}
}

// twoInputs reads a value, echoes it, reads a second value and prints the sum.
var twoInputs = Memory{3, 15, 4, 15, 3, 16, 1, 15, 16, 17, 4, 17, 99, 0, 0, 0, 0, 0}

func TestEvalSuspends(t *testing.T) {
	res, err := Eval(twoInputs, []int64{5})
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, Suspended, res.State)
	assert.Equal(t, Address(4), res.IP)
	assert.Equal(t, 1, res.UsedInput)
	assert.Equal(t, []int64{5}, res.Output)

	ins, _, err := Decode(res.Memory, res.IP)
	require.NoError(t, err)
	assert.IsType(t, Input{}, ins)
}

func TestContinueMatchesSingleEval(t *testing.T) {
	full, err := Eval(twoInputs, []int64{5, 7})
	require.NoError(t, err)
	require.True(t, full.Completed)
	assert.Equal(t, []int64{5, 12}, full.Output)

	first, err := Eval(twoInputs, []int64{5})
	require.NoError(t, err)
	require.False(t, first.Completed)

	second, err := Continue(first.Memory, first.IP, []int64{7})
	require.NoError(t, err)
	require.True(t, second.Completed)

	combined := append(append([]int64{}, first.Output...), second.Output...)
	assert.Equal(t, full.Output, combined)
	assert.Equal(t, full.Memory, second.Memory)
}

func TestContinueSplitsEverywhere(t *testing.T) {
	program := mustParse(t, compareToEight)
	for _, input := range []int64{3, 8, 42} {
		full, err := Eval(program, []int64{input})
		require.NoError(t, err)

		suspended, err := Eval(program, nil)
		require.NoError(t, err)
		require.Equal(t, Suspended, suspended.State)
		assert.Empty(t, suspended.Output)
		assert.Equal(t, Address(0), suspended.IP)

		resumed, err := Continue(suspended.Memory, suspended.IP, []int64{input})
		require.NoError(t, err)
		assert.Equal(t, full.Output, resumed.Output)
	}
}

func TestEvalEmptyInputOnPureProgram(t *testing.T) {
	res, err := Eval(Memory{104, 1, 104, 2, 99}, nil)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, []int64{1, 2}, res.Output)
}

func TestEvalEnd(t *testing.T) {
	res, err := Eval(Memory{1101, 1, 1, 0}, nil)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, Memory{2, 1, 1, 0}, res.Memory)
	assert.Equal(t, Address(4), res.IP)

	res, err = Eval(Memory{}, nil)
	require.NoError(t, err)
	assert.True(t, res.Completed)
}

func TestEvalNegativeJump(t *testing.T) {
	tests := []struct {
		name    string
		program Memory
	}{
		{name: "immediate target", program: Memory{1105, 1, -1}},
		{name: "position target", program: Memory{5, 0, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Eval(tt.program, nil)
			require.Error(t, err)

			var neg *NegativePositionalParameterError
			require.True(t, errors.As(err, &neg))
			assert.Equal(t, int64(-1), neg.Value)
			assert.Equal(t, 1, neg.Parameter)
			assert.Equal(t, int64(5), neg.Opcode)
			assert.Equal(t, Address(3), neg.Position)
		})
	}
}

func TestEvalKeepsOutputOnError(t *testing.T) {
	res, err := Eval(Memory{104, 7, 42}, nil)
	require.Error(t, err)
	assert.Equal(t, &InvalidOpcodeError{Opcode: 42, Position: 3}, err)
	require.NotNil(t, res)
	assert.Equal(t, []int64{7}, res.Output)
	assert.False(t, res.Completed)
}

func TestEvalGrowsMemory(t *testing.T) {
	res, err := Eval(Memory{1101, 2, 3, 20, 99}, nil)
	require.NoError(t, err)
	require.Equal(t, 21, res.Memory.Len())
	assert.Equal(t, int64(5), res.Memory[20])
	assert.Equal(t, int64(0), res.Memory[10])

	// Reads past the end see zero.
	res, err = Eval(Memory{4, 50, 99}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, res.Output)
}

func TestEvalMemoryLimit(t *testing.T) {
	_, err := Eval(Memory{1101, 1, 1, MaxMemory, 99}, nil)
	assert.ErrorIs(t, err, ErrMemoryLimit)
}

func TestEvalStepLimit(t *testing.T) {
	loop := Memory{1105, 1, 0}

	res, err := Eval(loop, nil, WithMaxSteps(10))
	assert.ErrorIs(t, err, ErrStepLimitExceeded)
	require.NotNil(t, res)
	assert.False(t, res.Completed)

	res, err = Eval(Memory{104, 1, 99}, nil, WithMaxSteps(2))
	require.NoError(t, err)
	assert.True(t, res.Completed)
}

func TestSuspendedInputCostsNoStep(t *testing.T) {
	res, err := Eval(twoInputs, []int64{5})
	require.NoError(t, err)
	require.Equal(t, Suspended, res.State)
	assert.Equal(t, uint64(2), res.Steps)

	// a budget that runs out exactly at the pending Input still suspends
	res, err = Eval(twoInputs, []int64{5}, WithMaxSteps(2))
	require.NoError(t, err)
	assert.Equal(t, Suspended, res.State)
	assert.Equal(t, Address(4), res.IP)

	resumed, err := Continue(res.Memory, res.IP, []int64{7}, WithMaxSteps(4))
	require.NoError(t, err)
	assert.True(t, resumed.Completed)
	assert.Equal(t, []int64{12}, resumed.Output)
	assert.Equal(t, uint64(4), resumed.Steps)

	_, err = Continue(res.Memory, res.IP, []int64{7}, WithMaxSteps(3))
	assert.ErrorIs(t, err, ErrStepLimitExceeded)
}

func TestStepMeter(t *testing.T) {
	sm := NewStepMeter(3)
	require.NoError(t, sm.Consume(2))
	assert.Equal(t, uint64(1), sm.Remaining())
	require.NoError(t, sm.Consume(1))
	assert.ErrorIs(t, sm.Consume(1), ErrStepLimitExceeded)
	assert.Equal(t, uint64(4), sm.Used())

	unlimited := NewStepMeter(0)
	require.NoError(t, unlimited.Consume(1<<40))
	assert.Equal(t, uint64(0), unlimited.Remaining())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "halted", Halted.String())
	assert.Equal(t, "suspended", Suspended.String())
	assert.Equal(t, "State(9)", State(9).String())
}
