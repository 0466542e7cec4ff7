package intcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Memory
	}{
		{name: "valid", input: "-2,-1,0,1,2", want: Memory{-2, -1, 0, 1, 2}},
		{name: "trailing newline", input: "1,0,0,0,99\n", want: Memory{1, 0, 0, 0, 99}},
		{name: "crlf inside tokens", input: "1,\r\n2,3\r\n", want: Memory{1, 2, 3}},
		{name: "single", input: "99", want: Memory{99}},
		{name: "wide values", input: "9223372036854775807,-9223372036854775808", want: Memory{1<<63 - 1, -1 << 63}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *InvalidInputError
	}{
		{name: "word", input: "-2,-1,zero,1,2", want: &InvalidInputError{Token: "zero", Position: 2}},
		{name: "empty token", input: "1,,2", want: &InvalidInputError{Token: "", Position: 1}},
		{name: "empty text", input: "", want: &InvalidInputError{Token: "", Position: 0}},
		{name: "inner space", input: "1, 2", want: &InvalidInputError{Token: " 2", Position: 1}},
		{name: "trailing comma", input: "1,2,", want: &InvalidInputError{Token: "", Position: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.want, invalid)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestInvalidInputMessage(t *testing.T) {
	_, err := Parse("-2,-1,zero,1,2")
	require.Error(t, err)
	assert.Equal(t, `Invalid token "zero" at position 2`, err.Error())
}

func TestFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"1,0,0,0,99",
		"3,9,8,9,10,9,4,9,99,-1,8\n",
		"1101,100,-1,4,0",
		"-5",
	}

	for _, text := range inputs {
		mem, err := Parse(text)
		require.NoError(t, err)

		again, err := Parse(Format(mem))
		require.NoError(t, err)
		assert.Equal(t, mem, again, "round trip of %q", text)
	}
}

func TestParseInput(t *testing.T) {
	got, err := ParseInput("1, 2\n-3\t4,5\n")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, -3, 4, 5}, got)

	got, err = ParseInput("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseInput("1 two 3")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
