package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/services/portfolio"
	"github.com/bobmcallan/folio/internal/storage"
)

// app holds the top-level flags shared by every subcommand
type app struct {
	configPath  string
	portfolioID string
	quiet       bool

	stdout io.Writer
	stderr io.Writer

	// err is the failure of the last command, if any
	err error
}

// env is everything a command needs once the config is loaded
type env struct {
	config      *common.Config
	logger      *common.Logger
	store       *storage.FileStore
	service     *portfolio.Service
	stdout      io.Writer
	portfolioID string
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) run(ctx context.Context, args []string) subcommands.ExitStatus {
	top := flag.NewFlagSet("folio", flag.ContinueOnError)
	top.SetOutput(a.stderr)
	top.StringVar(&a.configPath, "config", envOr("FOLIO_CONFIG", "folio.toml"), "Path to the TOML config file.")
	top.StringVar(&a.portfolioID, "portfolio", "", "Portfolio ID. Defaults to the configured portfolio.")
	top.BoolVar(&a.quiet, "quiet", false, "Skip the startup banner.")

	commander := subcommands.NewCommander(top, "folio")
	commander.Output = a.stdout
	commander.Error = a.stderr

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&valuationCmd{app: a}, "reports")
	commander.Register(&returnsCmd{app: a}, "reports")
	commander.Register(&chartCmd{app: a}, "reports")

	commander.Register(&syncCmd{app: a}, "prices")
	commander.Register(&reportCmd{app: a}, "prices")

	commander.Register(&importCmd{app: a}, "ledger")

	commander.ImportantFlag("config")
	commander.ImportantFlag("portfolio")

	if err := top.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	return commander.Execute(ctx)
}

// exec loads the config and storage, then runs fn. Failures are printed to
// stderr and kept on the app.
func (a *app) exec(ctx context.Context, fn func(context.Context, *env) error) subcommands.ExitStatus {
	if err := a.execE(ctx, fn); err != nil {
		a.err = err
		fmt.Fprintf(a.stderr, "folio: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *app) execE(ctx context.Context, fn func(context.Context, *env) error) error {
	common.LoadVersionFromFile()
	config, err := common.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	logger, closer, err := common.NewLoggerFromConfig(config.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	if !a.quiet && !config.IsProduction() {
		common.PrintBanner(a.stderr, config, logger)
	}

	store, err := storage.NewFileStore(logger, &config.Storage)
	if err != nil {
		return err
	}

	e := &env{
		config:      config,
		logger:      logger,
		store:       store,
		service:     portfolio.NewService(logger, config),
		stdout:      a.stdout,
		portfolioID: orDefault(a.portfolioID, config.Portfolio),
	}
	return fn(ctx, e)
}

func (e *env) writeJSON(v interface{}) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
