// Package console provides the terminal collaborators of the chat programs:
// a display sink and a line source.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Writer is a display sink that prints one line per call.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter builds a display sink on out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Display prints line followed by a newline.
func (w *Writer) Display(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.out, line)
}

// ReadLines feeds every line from r to handle until end of input or ctx is
// cancelled. It returns nil on end of input.
func ReadLines(ctx context.Context, r io.Reader, handle func(line string)) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					return err
				default:
					return ctx.Err()
				}
			}
			handle(line)
		}
	}
}
