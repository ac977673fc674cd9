package sink

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// clipboardTools lists known clipboard writers in preference order.
var clipboardTools = [][]string{
	{"wl-copy"},
	{"xclip", "-selection", "clipboard"},
	{"xsel", "--clipboard", "--input"},
}

const clipboardTimeout = 2 * time.Second

// Clipboard copies the latest utterance text to the system clipboard using
// the first available clipboard tool.
type Clipboard struct {
	argv []string
}

// NewClipboard resolves a clipboard tool from PATH.
func NewClipboard() (*Clipboard, error) {
	for _, argv := range clipboardTools {
		if _, err := exec.LookPath(argv[0]); err == nil {
			return &Clipboard{argv: argv}, nil
		}
	}
	return nil, fmt.Errorf("no clipboard tool found (tried wl-copy, xclip, xsel)")
}

func (s *Clipboard) Write(ctx context.Context, u Utterance) error {
	cmdCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runWithStdin(cmdCtx, s.argv, u.Text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

func (s *Clipboard) Close() error {
	return nil
}

// runWithStdin executes argv and writes input to its stdin.
func runWithStdin(ctx context.Context, argv []string, input string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
