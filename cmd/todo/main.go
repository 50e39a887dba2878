package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/valyala/fasthttp"

	"github.com/idilsaglam/todolocal/internal/cli"
	"github.com/idilsaglam/todolocal/internal/config"
	"github.com/idilsaglam/todolocal/internal/logging"
	"github.com/idilsaglam/todolocal/internal/metrics"
	"github.com/idilsaglam/todolocal/internal/query"
	"github.com/idilsaglam/todolocal/internal/repo"
	"github.com/idilsaglam/todolocal/internal/seed"
	"github.com/idilsaglam/todolocal/internal/store"
	"github.com/idilsaglam/todolocal/internal/store/jsonstore"
	"github.com/idilsaglam/todolocal/internal/store/memstore"
	"github.com/idilsaglam/todolocal/internal/store/sqlitestore"
	"github.com/idilsaglam/todolocal/internal/todos"
	"github.com/idilsaglam/todolocal/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Root flags (apply to every subcommand)
	groupPending := flag.Bool("group", false, "group output by pending/done")
	configPath := flag.String("config", "", "config file (TOML or YAML)")
	theme := flag.String("theme", "", "color theme: classic, neon or mono")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flag.Parse()

	// Hand the remaining args to the CLI runner.
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		return 2
	}

	cfg, err := config.Load(*configPath, ".")
	if err != nil {
		ui.Fail(os.Stderr, "config: "+err.Error())
		return 2
	}
	if *theme != "" {
		cfg.Theme = *theme
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	ui.SetTheme(cfg.Theme)

	logger, closeLog, err := newLogger(cfg, args[0] == "tui")
	if err != nil {
		ui.Fail(os.Stderr, "log: "+err.Error())
		return 1
	}
	defer closeLog.Close()
	if cfg.Source != "" {
		logger.Debug("loaded config", "path", cfg.Source)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		ui.Fail(os.Stderr, "store: "+err.Error())
		return 1
	}
	defer st.Close()

	reg := metrics.NewRegistry()
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(reg, logger)
		if err := srv.Start(cfg.MetricsAddr); err != nil {
			ui.Fail(os.Stderr, "metrics: "+err.Error())
			return 1
		}
		defer srv.Close()
	}

	snapshot := jsonstore.New(cfg.SnapshotPath)
	remote := seed.NewHTTPSource(cfg.SeedURL, newSeedClient())
	loader := seed.NewLoader(st, remote,
		seed.WithLimit(cfg.SeedLimit),
		seed.WithFallback(snapshot),
		seed.WithLogger(logger),
	)
	cache := query.New(
		query.WithMetrics(query.NewMetrics(reg)),
		query.WithLogger(logger),
	)
	svc := todos.New(
		repo.New(st, loader, repo.WithRemote(remote), repo.WithLogger(logger)),
		cache,
		todos.WithSnapshot(snapshot),
		todos.WithLogger(logger),
	)

	code := cli.New(svc, cli.Options{
		Group:   *groupPending,
		PerPage: cfg.PageSize,
		Logger:  logger,
	}).Run(ctx, args)
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	return code
}

// newLogger logs to stderr, except for the TUI which owns the terminal and
// only logs when a log file is configured.
func newLogger(cfg *config.Config, tui bool) (*log.Logger, io.Closer, error) {
	opts := logging.DefaultOptions()
	opts.Level = cfg.LogLevel
	switch {
	case cfg.LogFile != "":
		return logging.OpenFile(cfg.LogFile, opts)
	case tui:
		return logging.Discard(), io.NopCloser(nil), nil
	}
	l, err := logging.New(os.Stderr, opts)
	return l, io.NopCloser(nil), err
}

// newSeedClient has no I/O timeouts. A hung fetch stays loading; callers
// stop waiting when ctx ends.
func newSeedClient() *fasthttp.Client {
	return &fasthttp.Client{Name: "todolocal"}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		return memstore.New(), nil
	}
	st, err := sqlitestore.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return st, nil
}
