// Package report writes what a session produced: the run folder with its
// log and the fit and Argand figures.
package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// RunDir is the folder of one run: <root>/<date>/<time>: <note>, or
// <root>/<date>/<time> without a note.
func RunDir(
	root, note string,
	now time.Time,
) string {

	name := now.Format("15:04:05")
	if note != "" {
		name += ": " + note
	}
	return filepath.Join(root, now.Format("2006-Jan-02"), name)
}

// Log collects the lines of a session log. Every line is echoed to
// stdout as it is added.
type Log struct {
	lines []string
}

func (l *Log) Printf(format string, args ...interface{}) {

	s := fmt.Sprintf(format, args...)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		s += "\n"
	}
	fmt.Print(s)
	l.lines = append(l.lines, s)
}

// Section starts a titled block.
func (l *Log) Section(title string) {
	l.Printf("\n*%s*", title)
}

func (l *Log) Lines() []string { return l.lines }

// Write creates dir if needed and writes the log into dir/log.txt.
func (l *Log) Write(dir string) error {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	txt, err := os.Create(filepath.Join(dir, "log.txt"))
	if err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	defer txt.Close()

	w := bufio.NewWriter(txt)
	for _, s := range l.lines {
		if _, err := w.WriteString(s); err != nil {
			return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	return nil
}
