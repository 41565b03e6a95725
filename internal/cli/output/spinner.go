package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// DefaultSpinnerInterval is the delay between animation frames.
const DefaultSpinnerInterval = 100 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while a call is in flight.
//
// On writers that are not terminals the animation is suppressed and only
// the final Success or Fail line is written.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration
	animate  bool

	mu       sync.Mutex
	started  bool
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		interval: DefaultSpinnerInterval,
		animate:  IsTerminal(w),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start begins the animation. It returns immediately.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	if !s.animate {
		close(s.finished)
		return
	}

	go func() {
		defer close(s.finished)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and clears the line. Safe to call repeatedly.
func (s *Spinner) Stop() {
	s.finish("")
}

// Success stops the spinner with a success line.
func (s *Spinner) Success(message string) {
	s.finish("✓ " + message)
}

// Fail stops the spinner with a failure line.
func (s *Spinner) Fail(message string) {
	s.finish("✗ " + message)
}

func (s *Spinner) finish(line string) {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.finished
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if started && s.animate {
			fmt.Fprint(s.w, "\r\033[K")
		}
		if line != "" {
			fmt.Fprintln(s.w, line)
		}
	})
}
