package intcode

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEcho(t *testing.T) {
	var out bytes.Buffer
	in := NewLineReader(strings.NewReader("abc\n42\n"), &out, "> ")

	res, err := Run(Memory{3, 0, 4, 0, 99}, 0, in, &out)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "> Invalid integer \"abc\", try again\n> 42\n", out.String())
}

func TestRunSuspendsOnEOF(t *testing.T) {
	var out bytes.Buffer
	in := NewLineReader(strings.NewReader("5\n"), &out, "")

	res, err := Run(twoInputs, 0, in, &out)
	require.NoError(t, err)
	assert.Equal(t, Suspended, res.State)
	assert.Equal(t, Address(4), res.IP)
	assert.Equal(t, "5\n", out.String())
}

func TestRunFromOffset(t *testing.T) {
	var out bytes.Buffer
	program := Memory{99, 3, 0, 4, 0, 99}
	in := NewLineReader(strings.NewReader(" 9 \n"), nil, "")

	res, err := Run(program, 1, in, &out)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "9\n", out.String())
	assert.Equal(t, program[0], int64(99), "Run must not modify its argument")
}

func TestRunWithLineReaderFunc(t *testing.T) {
	lines := []string{"8"}
	in := LineReaderFunc(func() (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	})

	var out bytes.Buffer
	res, err := Run(mustParse(t, compareToEight), 0, in, &out)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "1000\n", out.String())
}

func TestRunReaderError(t *testing.T) {
	boom := errors.New("boom")
	in := LineReaderFunc(func() (string, error) { return "", boom })

	res, err := Run(Memory{3, 0, 99}, 0, in, io.Discard)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Address(0), res.IP)
}
