package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yndnr/prodadmin-go/internal/cli/config"
	"github.com/yndnr/prodadmin-go/internal/cli/connection"
	"github.com/yndnr/prodadmin-go/internal/cli/output"
	"github.com/yndnr/prodadmin-go/internal/core/service"
	"github.com/yndnr/prodadmin-go/internal/infra/buildinfo"
	"github.com/yndnr/prodadmin-go/internal/storage"
	"github.com/yndnr/prodadmin-go/internal/storage/memory"
	"github.com/yndnr/prodadmin-go/internal/telemetry/logger"
	"github.com/yndnr/prodadmin-go/internal/telemetry/metric"
)

// Runtime holds everything a command needs: configuration, logging, the
// backend client and, once opened, the session.
type Runtime struct {
	Config     *config.CLIConfig
	ConfigPath string
	Log        logger.Logger
	Metrics    *metric.Registry
	Format     output.Format
	Wide       bool
	Verbose    bool

	In  io.Reader
	Out io.Writer
	Err io.Writer

	client   *connection.HTTPClient
	storage  storage.Storage
	Store    *service.Store
	Gateway  *service.Gateway
	Products *service.ProductService

	inShell bool
	depth   int
}

// NewRuntime loads the configuration with flag overrides applied and sets
// up logging and the backend client. The session is opened lazily.
func NewRuntime(flags *GlobalFlags, in io.Reader, out, errOut io.Writer) (*Runtime, error) {
	cfg, err := config.Load(flags.ConfigFile, flags.overrides())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	if errOut == nil {
		errOut = os.Stderr
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: errOut,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	path := flags.ConfigFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: path,
		Log:        log,
		Metrics:    metric.NewRegistry(),
		Format:     format,
		Wide:       flags.Wide,
		Verbose:    flags.Verbose,
		In:         in,
		Out:        out,
		Err:        errOut,
		client: connection.NewHTTPClient(cfg.Server,
			connection.WithUserAgent(buildinfo.UserAgent()),
			connection.WithTimeout(cfg.Gateway.RequestTimeout),
		),
	}
	log.Debug("runtime ready", "server", rt.client.BaseURL(), "config", path)
	return rt, nil
}

// Session returns the session store, opening the persistent session on
// first use.
func (rt *Runtime) Session(ctx context.Context) (*service.Store, error) {
	if rt.Store != nil {
		return rt.Store, nil
	}

	st, err := storage.NewBadgerStorage(storage.BadgerConfig{
		Dir:      rt.sessionDir(),
		InMemory: rt.Config.Storage.InMemory,
		TTL:      rt.Config.Storage.SessionTTL,
	}, rt.Log.Slog())
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	if err := rt.open(ctx, st); err != nil {
		st.Close()
		return nil, err
	}
	return rt.Store, nil
}

// OpenMemorySession opens a session that ends with the process.
func (rt *Runtime) OpenMemorySession(ctx context.Context) (*service.Store, error) {
	if rt.Store != nil {
		return nil, errors.New("session already open")
	}
	if err := rt.open(ctx, memory.New()); err != nil {
		return nil, err
	}
	return rt.Store, nil
}

func (rt *Runtime) open(ctx context.Context, st storage.Storage) error {
	opts := []service.Option{
		service.WithLogger(rt.Log),
		service.WithMetrics(rt.Metrics),
	}

	store := service.NewStore(st, service.NewAuthAPI(rt.client, opts...), service.StoreConfig{
		LoginTimeout:  rt.Config.Auth.LoginTimeout,
		LogoutTimeout: rt.Config.Auth.LogoutTimeout,
	}, opts...)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	gw := service.NewGateway(rt.client, store, service.GatewayConfig{
		RequestTimeout: rt.Config.Gateway.RequestTimeout,
		RateLimit:      rt.Config.Gateway.RateLimit,
		RateBurst:      rt.Config.Gateway.RateBurst,
	}, opts...)

	rt.storage = st
	rt.Store = store
	rt.Gateway = gw
	rt.Products = service.NewProductService(gw)
	return nil
}

func (rt *Runtime) sessionDir() string {
	if rt.Config.Storage.Dir != "" {
		return rt.Config.Storage.Dir
	}
	return storage.DefaultSessionDir()
}

// Formatter returns the formatter selected by --output and --wide.
func (rt *Runtime) Formatter() output.Formatter {
	return output.NewFormatter(rt.Format, rt.Wide)
}

// Render writes data in the selected output format.
func (rt *Runtime) Render(data any) error {
	return rt.Formatter().Format(rt.Out, data)
}

// Close waits for background logout notifications and closes the storage.
func (rt *Runtime) Close() error {
	if rt.Store != nil {
		rt.Store.Wait()
	}
	if rt.storage != nil {
		err := rt.storage.Close()
		rt.storage = nil
		return err
	}
	return nil
}
