package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/fortiblox/intcode/internal/types"
)

// archivePattern matches checkpoint-<base58 id>.icp.zst
var archivePattern = regexp.MustCompile(`^checkpoint-([1-9A-HJ-NP-Za-km-z]+)\.icp\.zst$`)

// ArchiveInfo describes a checkpoint file on disk.
type ArchiveInfo struct {
	Path    string
	ID      types.Digest
	Size    int64
	ModTime time.Time
}

// FileName returns the archive file name for a checkpoint ID.
func FileName(id types.Digest) string {
	return "checkpoint-" + id.String() + ".icp.zst"
}

// WriteFile writes cp into dir and returns the file path. The file is
// written to a temporary name first and renamed into place.
func WriteFile(dir string, cp *Checkpoint) (string, error) {
	data, err := Marshal(cp)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	path := filepath.Join(dir, FileName(cp.ID()))
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename checkpoint: %w", err)
	}
	return path, nil
}

// ReadFile reads a checkpoint file. When the file name carries an ID it must
// match the decoded checkpoint.
func ReadFile(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	cp, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if m := archivePattern.FindStringSubmatch(filepath.Base(path)); m != nil {
		if got := cp.ID().String(); got != m[1] {
			return nil, fmt.Errorf("%w: file name says %s, content is %s", ErrCorrupt, m[1], got)
		}
	}
	return cp, nil
}

// FindCheckpoints lists checkpoint files in dir, newest first. A missing
// directory yields no files.
func FindCheckpoints(dir string) ([]ArchiveInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var files []ArchiveInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := archivePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, err := types.DigestFromBase58(m[1])
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ArchiveInfo{
			Path:    filepath.Join(dir, entry.Name()),
			ID:      id,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}
