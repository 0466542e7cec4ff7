package intcode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LineReader supplies lines of interactive input. ReadLine returns io.EOF when
// no more input will arrive.
type LineReader interface {
	ReadLine() (string, error)
}

// LineReaderFunc adapts a function to LineReader.
type LineReaderFunc func() (string, error)

// ReadLine calls f.
func (f LineReaderFunc) ReadLine() (string, error) { return f() }

type promptReader struct {
	scanner *bufio.Scanner
	w       io.Writer
	prompt  string
}

// NewLineReader reads lines from r, writing prompt to w before each read.
func NewLineReader(r io.Reader, w io.Writer, prompt string) LineReader {
	return &promptReader{scanner: bufio.NewScanner(r), w: w, prompt: prompt}
}

func (p *promptReader) ReadLine() (string, error) {
	if p.prompt != "" && p.w != nil {
		fmt.Fprint(p.w, p.prompt)
	}
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Run executes program from start, reading input from in and writing each
// output value to out on its own line as soon as it is produced. Unparseable
// lines are reported on out and the read is retried. When in reports io.EOF
// the machine suspends at the pending Input instruction and Run returns
// without error.
func Run(program Memory, start Address, in LineReader, out io.Writer, opts ...Option) (*Result, error) {
	m := NewMachine(program.Clone(), start, opts...)
	next := func() (int64, bool, error) {
		for {
			line, err := in.ReadLine()
			if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
				return 0, false, nil
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return 0, false, err
			}
			v, perr := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
			if perr != nil {
				fmt.Fprintf(out, "Invalid integer %q, try again\n", strings.TrimSpace(line))
				if err != nil {
					return 0, false, nil
				}
				continue
			}
			return v, true, nil
		}
	}
	emit := func(v int64) error {
		_, err := fmt.Fprintln(out, v)
		return err
	}
	err := m.run(next, emit)
	return m.Result(), err
}
