package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdoutPublisher prints each message to a writer, stdout by default.
type StdoutPublisher struct {
	out io.Writer
}

func NewStdoutPublisher(out io.Writer) *StdoutPublisher {
	if out == nil {
		out = os.Stdout
	}
	return &StdoutPublisher{out: out}
}

func (p *StdoutPublisher) Publish(_ context.Context, content string) error {
	if _, err := fmt.Fprintf(p.out, "%s\n%s\n", content, strings.Repeat("-", 72)); err != nil {
		return fmt.Errorf("stdout: write failed: %w", err)
	}
	return nil
}
