package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Staged is a set of output files written to temporary paths and moved
// into place together by Commit. Nothing appears at a destination path
// unless every write succeeded.
type Staged struct {
	dir   string
	files []stagedFile
}

type stagedFile struct {
	tmp  string
	dest string
}

// NewStaged creates the output directory if needed and returns an empty stage.
func NewStaged(dir string) (*Staged, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Staged{dir: dir}, nil
}

// Write stages a file named name, with content produced by fn.
func (s *Staged) Write(name string, fn func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", name, err)
	}
	_ = os.Chmod(tmpPath, 0644)

	s.files = append(s.files, stagedFile{tmp: tmpPath, dest: filepath.Join(s.dir, name)})
	return nil
}

// Commit renames every staged file to its destination and returns the
// destination paths.
func (s *Staged) Commit() ([]string, error) {
	paths := make([]string, 0, len(s.files))
	for i, f := range s.files {
		if err := os.Rename(f.tmp, f.dest); err != nil {
			s.discard(s.files[i:])
			return paths, fmt.Errorf("move %s into place: %w", f.dest, err)
		}
		paths = append(paths, f.dest)
	}
	s.files = nil
	return paths, nil
}

// Abort removes every staged temporary file.
func (s *Staged) Abort() {
	s.discard(s.files)
	s.files = nil
}

func (s *Staged) discard(files []stagedFile) {
	for _, f := range files {
		os.Remove(f.tmp)
	}
}
