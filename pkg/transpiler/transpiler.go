// Package transpiler turns a partially evaluated Intcode program into a
// freestanding Go program.
//
// The program is evaluated against the supplied input first. A run that
// completed becomes a trivial program printing the captured output. A run
// that suspended on input becomes the captured output, the residual memory
// image and resume pointer, and the interpreter runtime merged into a single
// main package that continues interactively on stdin.
package transpiler

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// Header is the first line of every generated file.
const Header = "Code generated by intcode transpile. DO NOT EDIT."

// Options configures transpilation.
type Options struct {
	// MaxSteps bounds the pre-evaluation. Zero means no bound.
	MaxSteps uint64

	// Prompt is printed by the generated program before each input read.
	Prompt string
}

// Option mutates Options.
type Option func(*Options)

// WithMaxSteps sets Options.MaxSteps.
func WithMaxSteps(n uint64) Option {
	return func(o *Options) { o.MaxSteps = n }
}

// WithPrompt sets Options.Prompt.
func WithPrompt(p string) Option {
	return func(o *Options) { o.Prompt = p }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Transpile evaluates program against input and renders the result as Go
// source. Evaluation errors are returned unchanged so callers can classify
// them with errors.Is.
func Transpile(program intcode.Memory, input []int64, opts ...Option) (string, error) {
	o := buildOptions(opts)
	res, err := intcode.Eval(program, input, intcode.WithMaxSteps(o.MaxSteps))
	if err != nil {
		return "", err
	}
	return Render(res, opts...)
}

// Render renders an existing evaluation result as Go source.
func Render(res *intcode.Result, opts ...Option) (string, error) {
	if res == nil {
		return "", fmt.Errorf("render: nil result")
	}
	o := buildOptions(opts)

	if res.Completed {
		f := jen.NewFile("main")
		f.HeaderComment(Header)
		f.Func().Id("main").Params().Block(outputStmt(res.Output)...)
		return renderFile(f)
	}

	driver := jen.NewFile("main")
	driver.Func().Id("main").Params().Block(
		append(outputStmt(res.Output),
			memoryStmt(res.Memory),
			resumeStmt(res.IP),
			runStmt(o.Prompt),
			jen.If(jen.Err().Op("!=").Nil()).Block(
				jen.Qual("fmt", "Fprintln").Call(jen.Qual("os", "Stderr"), jen.Err()),
				jen.Qual("os", "Exit").Call(jen.Lit(1)),
			),
		)...,
	)

	src, err := renderFile(driver)
	if err != nil {
		return "", err
	}
	runtime, err := intcode.RuntimeSource()
	if err != nil {
		return "", err
	}
	return merge([]byte(src), runtime)
}

// outputStmt prints the output captured before suspension, one value per
// line. It is empty when nothing was captured.
func outputStmt(output []int64) []jen.Code {
	if len(output) == 0 {
		return nil
	}
	lines := make([]string, len(output))
	for i, v := range output {
		lines[i] = strconv.FormatInt(v, 10)
	}
	return []jen.Code{
		jen.Qual("fmt", "Println").Call(jen.Lit(strings.Join(lines, "\n"))),
	}
}

// memoryStmt declares the residual memory image as a fixed-size array.
func memoryStmt(mem intcode.Memory) jen.Code {
	words := make([]jen.Code, len(mem))
	for i, v := range mem {
		// jen.Lit would render int64(v) for every cell.
		words[i] = jen.Op(strconv.FormatInt(v, 10))
	}
	return jen.Id("code").Op(":=").Index(jen.Lit(len(mem))).Int64().Values(words...)
}

// resumeStmt declares the address of the pending Input instruction.
func resumeStmt(ip intcode.Address) jen.Code {
	return jen.Var().Id("start").Id("Address").Op("=").Lit(int(ip))
}

func runStmt(prompt string) jen.Code {
	return jen.List(jen.Id("_"), jen.Err()).Op(":=").Id("Run").Call(
		jen.Id("Memory").Call(jen.Id("code").Index(jen.Empty(), jen.Empty())),
		jen.Id("start"),
		jen.Id("NewLineReader").Call(jen.Qual("os", "Stdin"), jen.Qual("os", "Stdout"), jen.Lit(prompt)),
		jen.Qual("os", "Stdout"),
	)
}

func renderFile(f *jen.File) (string, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", fmt.Errorf("render driver: %w", err)
	}
	return buf.String(), nil
}
