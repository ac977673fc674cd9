package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/ravitez/vinu/internal/transcript"
)

// Console prints caption lines to the live terminal.
type Console struct {
	out  io.Writer
	opts transcript.Options
}

// NewConsole builds the caption printer.
func NewConsole(out io.Writer, opts transcript.Options) *Console {
	return &Console{out: out, opts: opts}
}

func (c *Console) Write(_ context.Context, u Utterance) error {
	line := transcript.FormatLine(u.Text, u.Start, c.opts)
	if _, err := fmt.Fprintln(c.out, line); err != nil {
		return fmt.Errorf("write caption: %w", err)
	}
	return nil
}

func (c *Console) Close() error {
	return nil
}
