package repl

import (
	"errors"
	"io"

	"github.com/peterh/liner"
)

// LineReader reads one line of input per prompt.
type LineReader interface {
	// Prompt shows prompt and returns the entered line. io.EOF ends the shell.
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// linerReader is a LineReader with line editing, history recall and tab
// completion on a terminal.
type linerReader struct {
	state *liner.State
}

// NewTerminalReader creates a LineReader on the process terminal. Previous
// history entries become available through the arrow keys.
func NewTerminalReader(history []string, complete func(string) []string) LineReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetTabCompletionStyle(liner.TabPrints)
	if complete != nil {
		state.SetCompleter(complete)
	}
	for _, line := range history {
		state.AppendHistory(line)
	}
	return &linerReader{state: state}
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return line, err
}

func (r *linerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

func (r *linerReader) Close() error {
	return r.state.Close()
}
