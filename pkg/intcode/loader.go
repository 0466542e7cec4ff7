package intcode

import (
	"strconv"
	"strings"
)

var lineBreaks = strings.NewReplacer("\n", "", "\r", "")

// Parse turns comma-separated program text into a memory image. Line breaks
// around tokens are ignored; any other non-integer token fails with an
// *InvalidInputError naming the token and its index.
func Parse(text string) (Memory, error) {
	tokens := strings.Split(text, ",")
	mem := make(Memory, 0, len(tokens))
	for i, tok := range tokens {
		clean := lineBreaks.Replace(tok)
		v, err := strconv.ParseInt(clean, 10, 64)
		if err != nil {
			return nil, &InvalidInputError{Token: tok, Position: i}
		}
		mem = append(mem, v)
	}
	return mem, nil
}

// ParseInput parses whitespace or comma separated input values.
func ParseInput(text string) ([]int64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]int64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, &InvalidInputError{Token: f, Position: i}
		}
		out = append(out, v)
	}
	return out, nil
}

// Format renders mem as program text accepted by Parse.
func Format(mem Memory) string {
	var b strings.Builder
	for i, v := range mem {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String()
}
