package fit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// TraceLog records every parameter combination a fit evaluates, one line
// each. Residuals are evaluated concurrently while the Jacobian is
// estimated, so writes are serialised. A nil *TraceLog discards everything.
type TraceLog struct {
	mu sync.Mutex
	w  *bufio.Writer
	c  io.Closer
}

// CreateTrace truncates the log at path and opens it for writing.
func CreateTrace(
	path string,
) (
	*TraceLog, error,
) {

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: fit log: %v", nixerr.ErrIO, err)
	}
	return &TraceLog{w: bufio.NewWriter(f), c: f}, nil
}

// NewTrace writes to w; Close flushes but does not close w.
func NewTrace(w io.Writer) *TraceLog {
	return &TraceLog{w: bufio.NewWriter(w)}
}

func (t *TraceLog) Printf(format string, args ...interface{}) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
	t.w.WriteByte('\n')
}

func (t *TraceLog) Flush() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Flush()
}

func (t *TraceLog) Close() error {
	if t == nil {
		return nil
	}
	err := t.Flush()
	if t.c != nil {
		if cerr := t.c.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("%w: fit log: %v", nixerr.ErrIO, err)
	}
	return nil
}
