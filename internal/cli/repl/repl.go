package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/core/service"
	"github.com/yndnr/prodadmin-go/internal/telemetry/logger"
)

// Dispatcher runs a command line that is not a shell built-in.
type Dispatcher func(ctx context.Context, args []string) error

// ViewHook runs when the shell enters a view.
type ViewHook func(ctx context.Context) error

// Checker re-evaluates the session against the current view after the
// user navigates on their own. *service.RouteGuard satisfies it.
type Checker interface {
	Check(ctx context.Context) error
}

// Config configures a Shell.
type Config struct {
	Reader   LineReader
	Output   io.Writer
	Dispatch Dispatcher
	History  *History

	// Commands lists the dispatchable command lines for completion.
	Commands []string

	// Initial is the starting view. Defaults to the landing view.
	Initial domain.View

	Logger logger.Logger
}

// Shell is the interactive read-eval-print loop. It implements
// service.Navigator.
type Shell struct {
	reader    LineReader
	out       io.Writer
	dispatch  Dispatcher
	history   *History
	completer *Completer
	log       logger.Logger

	mu      sync.RWMutex
	view    domain.View
	checker Checker
	hooks   map[domain.View]ViewHook

	outMu     sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

var _ service.Navigator = (*Shell)(nil)

// New creates a Shell.
func New(cfg Config) *Shell {
	if cfg.Initial == "" {
		cfg.Initial = domain.LandingView
	}
	if cfg.History == nil {
		cfg.History = NewHistory("")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}

	return &Shell{
		reader:    cfg.Reader,
		out:       cfg.Output,
		dispatch:  cfg.Dispatch,
		history:   cfg.History,
		completer: NewCompleter(cfg.Commands...),
		log:       cfg.Logger,
		view:      cfg.Initial,
		hooks:     make(map[domain.View]ViewHook),
	}
}

// SetChecker installs the guard consulted after manual navigation.
func (s *Shell) SetChecker(c Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checker = c
}

// OnEnter registers fn to run after a command line leaves the shell on
// view v, having started elsewhere.
func (s *Shell) OnEnter(v domain.View, fn ViewHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[v] = fn
}

// ============================================================================
// Navigator
// ============================================================================

// Current returns the current view.
func (s *Shell) Current() domain.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Navigate switches the current view.
func (s *Shell) Navigate(_ context.Context, to domain.View) error {
	switch to {
	case domain.ViewSignIn, domain.ViewDashboard, domain.ViewProducts:
	default:
		return fmt.Errorf("unknown view %q", to)
	}

	s.mu.Lock()
	from := s.view
	s.view = to
	s.mu.Unlock()

	if from != to {
		s.log.Debug("navigated", "from", string(from), "to", string(to))
	}
	return nil
}

// ============================================================================
// Loop
// ============================================================================

// Printf writes a line to the shell output. Safe for use from other
// goroutines while the loop runs.
func (s *Shell) Printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// Prompt returns the prompt for the current view.
func (s *Shell) Prompt() string {
	return fmt.Sprintf("prodadmin [%s]> ", s.Current().Title())
}

// Run reads and executes lines until exit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := s.reader.Prompt(s.Prompt())
		if errors.Is(err, io.EOF) {
			s.Printf("\n")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.reader.AppendHistory(line)
		s.history.Add(line)

		before := s.Current()
		quit, err := s.Execute(ctx, line)
		if err != nil {
			s.Printf("Error: %s\n", domain.UserMessage(err))
		}
		if quit {
			return nil
		}
		s.enter(ctx, before)
	}
}

// Execute runs one line. quit is true when the line ends the shell.
func (s *Shell) Execute(ctx context.Context, line string) (quit bool, err error) {
	args, err := splitArgs(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}

	switch args[0] {
	case "exit", "quit":
		return true, nil
	case "help":
		s.help(args[1:])
		return false, nil
	case "history":
		for i, entry := range s.history.Entries() {
			s.Printf("%4d  %s\n", i+1, entry)
		}
		return false, nil
	case "signin":
		return false, s.goTo(ctx, domain.ViewSignIn)
	case "dashboard":
		return false, s.goTo(ctx, domain.ViewDashboard)
	case "products":
		return false, s.goTo(ctx, domain.ViewProducts)
	}

	if !s.completer.Known(args[0]) || s.dispatch == nil {
		msg := fmt.Sprintf("unknown command %q", args[0])
		if suggestions := s.completer.Suggest(args[0]); len(suggestions) > 0 {
			msg += " (did you mean: " + strings.Join(suggestions, ", ") + "?)"
		}
		return false, errors.New(msg)
	}
	return false, s.dispatch(ctx, args)
}

// goTo navigates on the user's request and lets the guard correct it.
func (s *Shell) goTo(ctx context.Context, v domain.View) error {
	if err := s.Navigate(ctx, v); err != nil {
		return err
	}
	s.mu.RLock()
	checker := s.checker
	s.mu.RUnlock()
	if checker != nil {
		return checker.Check(ctx)
	}
	return nil
}

// enter runs the hook of the current view when the last line moved the
// shell there.
func (s *Shell) enter(ctx context.Context, before domain.View) {
	now := s.Current()
	if now == before {
		return
	}
	s.Printf("-> %s\n", now.Title())

	s.mu.RLock()
	hook := s.hooks[now]
	s.mu.RUnlock()
	if hook == nil {
		return
	}
	if err := hook(ctx); err != nil {
		s.Printf("Error: %s\n", domain.UserMessage(err))
	}
}

func (s *Shell) help(args []string) {
	prefix := strings.Join(args, " ")
	lines := s.completer.Complete(prefix)
	if len(lines) == 0 {
		s.Printf("No commands match %q\n", prefix)
		return
	}
	for _, line := range lines {
		s.Printf("  %s\n", line)
	}
}

// Close saves the history and releases the terminal. Safe to call
// more than once.
func (s *Shell) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.history.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save history: %w", err))
		}
		if s.reader != nil {
			if err := s.reader.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func builtinCommands() []string {
	return []string{"dashboard", "products", "signin", "history", "help", "exit", "quit"}
}
