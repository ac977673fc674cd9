package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ravitez/vinu/internal/transcript"
)

// File appends one caption line per utterance to a text file.
type File struct {
	f    *os.File
	opts transcript.Options
}

// NewFile opens (or creates) the append-only transcript file.
func NewFile(path string, opts transcript.Options) (*File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create transcript dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open transcript file %q: %w", path, err)
	}
	return &File{f: f, opts: opts}, nil
}

func (s *File) Write(_ context.Context, u Utterance) error {
	line := transcript.FormatLine(u.Text, u.Start, s.opts)
	if _, err := fmt.Fprintln(s.f, line); err != nil {
		return fmt.Errorf("append transcript line: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync transcript file: %w", err)
	}
	return nil
}

func (s *File) Close() error {
	return s.f.Close()
}
