package intcode

import (
	"embed"
	"fmt"
)

// runtimeFiles are the files a transpiled program needs to keep executing on
// its own. They must import only the standard library.
var runtimeFiles = []string{
	"errors.go",
	"memory.go",
	"parameter.go",
	"instruction.go",
	"meter.go",
	"machine.go",
	"terminal.go",
}

//go:embed errors.go memory.go parameter.go instruction.go meter.go machine.go terminal.go
var runtimeFS embed.FS

// SourceFile is one embedded runtime file.
type SourceFile struct {
	Name string
	Data []byte
}

// RuntimeSource returns the interpreter source, in dependency order, for
// re-emission into generated programs.
func RuntimeSource() ([]SourceFile, error) {
	files := make([]SourceFile, 0, len(runtimeFiles))
	for _, name := range runtimeFiles {
		data, err := runtimeFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", name, err)
		}
		files = append(files, SourceFile{Name: name, Data: data})
	}
	return files, nil
}
