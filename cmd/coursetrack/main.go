package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/alexanderramin/coursetrack/internal/catalog"
	"github.com/alexanderramin/coursetrack/internal/cli"
	"github.com/alexanderramin/coursetrack/internal/clock"
	"github.com/alexanderramin/coursetrack/internal/config"
	"github.com/alexanderramin/coursetrack/internal/db"
	"github.com/alexanderramin/coursetrack/internal/graphql"
	"github.com/alexanderramin/coursetrack/internal/notify"
	"github.com/alexanderramin/coursetrack/internal/progress"
	"github.com/alexanderramin/coursetrack/internal/repository"
	"github.com/alexanderramin/coursetrack/internal/service"
	"github.com/alexanderramin/coursetrack/internal/session"
	"github.com/alexanderramin/coursetrack/internal/telemetry"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.App{Boot: boot}

	// Detect interactive terminal for prompts and the lesson picker.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}
	// Cobra skips post-run hooks on error, so pending syncs are flushed here.
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}()

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}

func boot(ctx context.Context, cfg *config.Config, out io.Writer) (*cli.Deps, error) {
	log, err := telemetry.NewLogger(telemetry.LogConfig{
		Env:      cfg.Env,
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	// closers run in reverse order on shutdown and on any failed boot step.
	var closers []func() error
	closeAll := func() error {
		errs := make([]error, 0, len(closers))
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	closers = append(closers, func() error {
		_ = log.Sync()
		return nil
	})
	fail := func(err error) (*cli.Deps, error) {
		log.Debug("boot failed, releasing resources", zap.Int("resources", len(closers)), zap.Error(err))
		_ = closeAll()
		return nil, err
	}

	provider, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:   cfg.Telemetry.Enabled,
		Version:   version,
		TraceFile: cfg.Telemetry.TraceFile,
	}, log)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(shutdownCtx)
	})
	metrics, err := telemetry.NewMetrics(provider.MeterProvider)
	if err != nil {
		return fail(err)
	}

	// Open database
	database, err := db.OpenDB(cfg.Storage.Path)
	if err != nil {
		return fail(fmt.Errorf("opening database: %w", err))
	}
	closers = append(closers, database.Close)

	var kv repository.KVStore
	switch cfg.Storage.Driver {
	case "redis":
		r := cfg.Storage.Redis
		rdb, err := repository.DialRedis(ctx, r.Addr, r.Password, r.DB)
		if err != nil {
			return fail(fmt.Errorf("connecting to redis: %w", err))
		}
		closers = append(closers, rdb.Close)
		kv = repository.NewRedisKVStore(rdb, r.Prefix)
	default:
		kv = repository.NewSQLiteKVStore(database)
	}

	clk := clock.Real()
	uow := db.NewSQLiteUnitOfWork(database)

	// The client authenticates with the stored session, and the session
	// manager logs in through the client.
	var sessions *session.Manager
	gqlCfg := graphql.DefaultConfig()
	gqlCfg.Endpoint = cfg.API.Endpoint
	gqlCfg.Timeout = cfg.API.Timeout
	client := graphql.NewClient(gqlCfg,
		graphql.TokenFunc(func(ctx context.Context) (string, error) { return sessions.Token(ctx) }),
		graphql.NewLogObserver(log.Named("lms")),
		graphql.WithTracer(provider.Tracer()),
	)
	sessions = session.NewManager(uow, repository.NewSQLiteSessionRepo(database), client, clk, log.Named("session"))

	var catalogs catalog.Source
	switch cfg.Catalog.Source {
	case "file":
		catalogs = catalog.FileSource{Dir: cfg.Catalog.Dir}
	default:
		catalogs = catalog.RemoteSource{Client: client}
	}

	hub := notify.NewHub(0)
	console := cli.NewConsole(out)
	svc := service.NewProgressService(service.ProgressDeps{
		Catalogs:       catalogs,
		Enrollments:    client,
		Store:          progress.NewCompletedStore(kv, log.Named("storage"), metrics),
		Remote:         client,
		Notifier:       notify.Multi{hub, console, notify.NewLog(log)},
		Logger:         log.Named("progress"),
		Metrics:        metrics,
		Tracer:         provider.Tracer(),
		Clock:          clk,
		DebounceWindow: cfg.Sync.Debounce,
	}, service.NewLogUseCaseObserver(log.Named("usecase")))

	log.Debug("booted",
		zap.String("storage.driver", cfg.Storage.Driver),
		zap.String("catalog.source", cfg.Catalog.Source),
		zap.String("api.endpoint", cfg.API.Endpoint),
	)

	return &cli.Deps{
		Log:      log,
		Sessions: sessions,
		Progress: svc,
		Catalogs: catalogs,
		Hub:      hub,
		Console:  console,
		Store:    kv,
		Clock:    clk,
		Close: func() error {
			svc.Close()
			hub.Close()
			return closeAll()
		},
	}, nil
}
