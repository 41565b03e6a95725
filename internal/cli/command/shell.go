package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/prodadmin-go/internal/cli/config"
	"github.com/yndnr/prodadmin-go/internal/cli/output"
	"github.com/yndnr/prodadmin-go/internal/cli/repl"
	"github.com/yndnr/prodadmin-go/internal/core/domain"
	"github.com/yndnr/prodadmin-go/internal/core/service"
	"github.com/yndnr/prodadmin-go/internal/infra/buildinfo"
	"github.com/yndnr/prodadmin-go/internal/infra/confloader"
	"github.com/yndnr/prodadmin-go/internal/infra/shutdown"
	"github.com/yndnr/prodadmin-go/internal/telemetry/logger"
	"github.com/yndnr/prodadmin-go/internal/telemetry/metric"
)

// shutdownTimeout bounds the shell's cleanup hooks.
const shutdownTimeout = 5 * time.Second

// newLineReader opens the shell input. Replaced in tests.
var newLineReader = repl.NewTerminalReader

// ShellCommand returns the shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start the interactive shell",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address (e.g., 127.0.0.1:9464)",
				EnvVars: []string{"PRODADMIN_METRICS_ADDR"},
			},
			&cli.StringFlag{
				Name:  "history-file",
				Usage: "Shell history file (default ~/.prodadmin/history)",
			},
		},
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if rt.inShell {
		return errors.New("already in the shell")
	}

	ctx, stop := shutdown.WithSignals(c.Context)
	defer stop()

	store, err := rt.OpenMemorySession(ctx)
	if err != nil {
		return err
	}
	rt.inShell = true
	defer func() { rt.inShell = false }()

	handler := shutdown.NewHandler(shutdownTimeout)
	handler.OnShutdown("session", func(context.Context) error {
		store.Wait()
		return nil
	})

	sh := newShell(c, rt)
	handler.OnShutdown("shell", func(context.Context) error { return sh.Close() })

	guard := service.NewRouteGuard(store, sh, service.WithLogger(rt.Log))
	guard.Start()
	sh.SetChecker(guard)
	handler.OnShutdown("route guard", func(context.Context) error {
		guard.Stop()
		return nil
	})

	expiry := repl.WatchExpiry(store, rt.Log)
	unsubscribe := store.Subscribe(func(ch domain.Change) {
		if ch.Cause == domain.CauseExpired {
			sh.Printf("\nYour session has expired. Please sign in again.\n")
		}
	})
	handler.OnShutdown("session expiry", func(context.Context) error {
		unsubscribe()
		expiry.Stop()
		return nil
	})

	registerViews(sh, rt, store)

	if addr := firstNonEmpty(c.String("metrics-addr"), rt.Config.Shell.MetricsAddr); addr != "" {
		srv, err := serveMetrics(rt, store, addr)
		if err != nil {
			return err
		}
		handler.OnShutdown("metrics server", srv.Shutdown)
	}

	if w := watchConfig(rt); w != nil {
		handler.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
	}

	fmt.Fprintf(rt.Out, "prodadmin %s, server %s. Type 'help' for commands, 'exit' to quit.\n",
		buildinfo.Version, rt.client.BaseURL())
	if err := guard.Check(ctx); err != nil {
		rt.Log.Warn("initial route check failed", "error", err)
	}
	if sh.Current() == domain.ViewSignIn {
		fmt.Fprintln(rt.Out, "Sign in with: login [-u USERNAME]")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- sh.Run(ctx) }()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		sh.Printf("\n")
	}

	if err := handler.Shutdown(); err != nil {
		rt.Log.Warn("shell shutdown", "error", err)
	}
	return runErr
}

func newShell(c *cli.Context, rt *Runtime) *repl.Shell {
	historyFile := firstNonEmpty(c.String("history-file"), rt.Config.Shell.HistoryFile, repl.DefaultHistoryFile())
	history := repl.NewHistory(historyFile)
	if err := history.Load(); err != nil {
		rt.Log.Warn("loading shell history failed", "file", historyFile, "error", err)
	}

	app := c.App
	commands := commandLines(app)
	reader := newLineReader(history.Entries(), repl.NewCompleter(commands...).Complete)

	return repl.New(repl.Config{
		Reader:   reader,
		Output:   rt.Out,
		History:  history,
		Commands: commands,
		Logger:   rt.Log,
		Dispatch: func(ctx context.Context, args []string) error {
			return app.RunContext(ctx, append([]string{app.Name}, args...))
		},
	})
}

// registerViews renders each view when the shell enters it.
func registerViews(sh *repl.Shell, rt *Runtime, store *service.Store) {
	sh.OnEnter(domain.ViewSignIn, func(context.Context) error {
		sh.Printf("Sign in with: login [-u USERNAME]\n")
		return nil
	})
	sh.OnEnter(domain.ViewDashboard, func(context.Context) error {
		return rt.Render(rt.status(store.Snapshot()))
	})
	sh.OnEnter(domain.ViewProducts, func(ctx context.Context) error {
		list, err := rt.Products.List(ctx, false)
		if err != nil {
			return err
		}
		if len(list) == 0 && rt.Format == output.FormatTable {
			sh.Printf("No products found.\n")
			return nil
		}
		return rt.Render(list)
	})
}

// serveMetrics exposes the client's metrics registry over HTTP.
func serveMetrics(rt *Runtime, store *service.Store, addr string) (*http.Server, error) {
	if err := rt.Metrics.Register(metric.NewSessionCollector(store.Snapshot)); err != nil {
		return nil, fmt.Errorf("register session metrics: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.Metrics.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Log.Warn("metrics server stopped", "error", err)
		}
	}()

	fmt.Fprintf(rt.Out, "Serving metrics on http://%s/metrics\n", ln.Addr())
	return srv, nil
}

// watchConfig re-applies the log level when the config file changes.
func watchConfig(rt *Runtime) *confloader.Watcher {
	if _, err := os.Stat(filepath.Dir(rt.ConfigPath)); err != nil {
		return nil
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.Log.Slog()))
	if err != nil {
		rt.Log.Debug("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(rt.ConfigPath); err != nil {
		w.Stop()
		return nil
	}

	w.OnChange(func(path string) {
		cfg, err := config.Load(path, nil)
		if err != nil {
			rt.Log.Warn("config reload failed", "file", path, "error", err)
			return
		}
		if !rt.Verbose {
			logger.SetLevel(cfg.Log.Level)
		}
		rt.Log.Info("config reloaded", "file", path, "log_level", logger.GetLevel())
	})
	w.StartAsync()
	return w
}

// commandLines lists the dispatchable commands for completion.
func commandLines(app *cli.App) []string {
	var lines []string
	for _, cmd := range app.Commands {
		if cmd.Hidden || cmd.Name == "shell" || cmd.Name == "help" {
			continue
		}
		lines = append(lines, cmd.Name)
		for _, sub := range cmd.Subcommands {
			if sub.Name != "help" {
				lines = append(lines, cmd.Name+" "+sub.Name)
			}
		}
	}
	return lines
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
