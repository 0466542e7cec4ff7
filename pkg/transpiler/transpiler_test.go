package transpiler

import (
	"bytes"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// twoInputs reads a value, echoes it, reads a second value and prints the sum.
var twoInputs = intcode.Memory{3, 15, 4, 15, 3, 16, 1, 15, 16, 17, 4, 17, 99, 0, 0, 0, 0, 0}

func parseSource(t *testing.T, src string) map[string]int {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "main.go", src, 0)
	require.NoError(t, err, src)
	assert.Equal(t, "main", f.Name.Name)

	imports := make(map[string]int)
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		require.NoError(t, err)
		imports[path]++
	}
	return imports
}

func TestTranspileCompleted(t *testing.T) {
	src, err := Transpile(intcode.Memory{104, 1, 104, -2, 99}, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(src, "// "+Header))
	assert.Contains(t, src, `fmt.Println("1\n-2")`)
	assert.NotContains(t, src, "func Run(")
	assert.NotContains(t, src, "int64{")

	imports := parseSource(t, src)
	assert.Equal(t, map[string]int{"fmt": 1}, imports)
}

func TestTranspileCompletedWithoutOutput(t *testing.T) {
	src, err := Transpile(intcode.Memory{1, 0, 0, 0, 99}, nil)
	require.NoError(t, err)
	assert.NotContains(t, src, "Println")

	imports := parseSource(t, src)
	assert.Empty(t, imports)
}

func TestTranspileSuspended(t *testing.T) {
	src, err := Transpile(twoInputs, []int64{5})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(src, "// "+Header))
	assert.Equal(t, 1, strings.Count(src, "package main"))
	assert.NotContains(t, src, "package intcode")
	assert.Contains(t, src, `fmt.Println("5")`)
	assert.Contains(t, src, "code := [18]int64{3, 15, 4, 15, 3, 16, 1, 15, 16, 17, 4, 17, 99, 0, 0, 5, 0, 0}")
	assert.Contains(t, src, "var start Address = 4")
	assert.Contains(t, src, "func Run(")
	assert.Contains(t, src, "func Decode(")

	imports := parseSource(t, src)
	for path, n := range imports {
		assert.Equal(t, 1, n, "import %s repeated", path)
		assert.NotContains(t, path, ".", "generated code imports %s", path)
	}
	assert.Contains(t, imports, "os")
	assert.Contains(t, imports, "bufio")
}

func TestTranspileSuspendedAtStart(t *testing.T) {
	src, err := Transpile(intcode.Memory{3, 0, 4, 0, 99}, nil)
	require.NoError(t, err)

	assert.NotContains(t, src, "fmt.Println(\"")
	assert.Contains(t, src, "code := [5]int64{3, 0, 4, 0, 99}")
	assert.Contains(t, src, "var start Address = 0")
	parseSource(t, src)
}

func TestTranspileNegativeWords(t *testing.T) {
	program := intcode.Memory{3, 7, 1, 7, 8, 7, 99, -9223372036854775808, -4}
	src, err := Transpile(program, nil)
	require.NoError(t, err)
	assert.Contains(t, src, "-9223372036854775808, -4}")
	parseSource(t, src)
}

func TestTranspilePrompt(t *testing.T) {
	src, err := Transpile(intcode.Memory{3, 0, 99}, nil, WithPrompt("> "))
	require.NoError(t, err)
	assert.Contains(t, src, `NewLineReader(os.Stdin, os.Stdout, "> ")`)
}

func TestTranspileErrors(t *testing.T) {
	_, err := Transpile(intcode.Memory{42}, nil)
	assert.ErrorIs(t, err, intcode.ErrInvalidOpcode)

	_, err = Transpile(intcode.Memory{1105, 1, 0}, nil, WithMaxSteps(5))
	assert.ErrorIs(t, err, intcode.ErrStepLimitExceeded)

	_, err = Render(nil)
	assert.Error(t, err)
}

func TestRenderMatchesTranspile(t *testing.T) {
	res, err := intcode.Eval(twoInputs, []int64{5})
	require.NoError(t, err)

	rendered, err := Render(res)
	require.NoError(t, err)

	transpiled, err := Transpile(twoInputs, []int64{5})
	require.NoError(t, err)
	assert.Equal(t, transpiled, rendered)
}

// TestGeneratedProgramRuns builds and runs generated programs with the local
// Go toolchain.
func TestGeneratedProgramRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping toolchain test in short mode")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}

	tests := []struct {
		name    string
		program intcode.Memory
		input   []int64
		stdin   string
		want    string
	}{
		{name: "completed", program: intcode.Memory{104, 1, 104, 2, 99}, want: "1\n2\n"},
		{name: "suspended", program: twoInputs, input: []int64{5}, stdin: "7\n", want: "5\n12\n"},
		{name: "suspended at start", program: twoInputs, stdin: "1\n2\n", want: "1\n3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Transpile(tt.program, tt.input)
			require.NoError(t, err)

			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module intcodeprog\n\ngo 1.22\n"), 0o644))

			cmd := exec.Command(goBin, "run", ".")
			cmd.Dir = dir
			cmd.Stdin = strings.NewReader(tt.stdin)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			require.NoError(t, cmd.Run(), stderr.String())
			assert.Equal(t, tt.want, stdout.String())
		})
	}
}
