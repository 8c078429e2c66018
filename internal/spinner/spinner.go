// Package spinner shows batch parsing progress on a terminal.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var frames = []string{"◜", "◠", "◝", "◞", "◡", "◟"}

const frameDelay = 100 * time.Millisecond

// Spinner redraws one status line, "<frame> <message> (done/total)", until
// it is stopped or its context ends.
type Spinner struct {
	w       io.Writer
	message string
	ctx     context.Context
	cancel  context.CancelFunc

	mu          sync.Mutex
	done, total int
	exited      chan struct{} // nil until Start
	stopOnce    sync.Once
}

// New returns a stopped spinner bound to ctx.
func New(ctx context.Context, w io.Writer, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{w: w, message: message, ctx: ctx, cancel: cancel}
}

// Start launches the animation. It does nothing once the spinner has been
// started or stopped.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited != nil || s.ctx.Err() != nil {
		return
	}
	s.exited = make(chan struct{})
	go s.run(s.exited)
}

// Stop ends the animation and clears the line. Later calls are no-ops.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		exited := s.exited
		s.mu.Unlock()
		if exited == nil {
			return
		}
		<-exited

		if Enabled(s.w) {
			fmt.Fprint(s.w, "\r\033[2K")
		} else {
			fmt.Fprint(s.w, "\r")
		}
	})
}

// SetProgress records how many of total cards are done.
func (s *Spinner) SetProgress(done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done, s.total = done, total
}

// label renders the message with the progress count. Callers hold s.mu.
func (s *Spinner) label() string {
	if s.total <= 0 {
		return s.message
	}
	return fmt.Sprintf("%s (%d/%d)", s.message, s.done, s.total)
}

// Enabled reports whether w is a terminal worth animating on.
func Enabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (s *Spinner) run(exited chan<- struct{}) {
	defer close(exited)

	ticker := time.NewTicker(frameDelay)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			line := s.label()
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], line)
		}
	}
}
