package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/services/pricesync"
)

// syncCmd refreshes quotes, FX rates and history from EODHD
type syncCmd struct {
	app *app
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "refresh prices, FX rates and history from EODHD" }
func (*syncCmd) Usage() string {
	return `folio sync

  Fetches FX rates, latest quotes and new daily bars for every symbol in the
  workspace, then saves the workspace and a sync report. Needs an EODHD API
  key in EODHD_API_KEY or [clients.eodhd] api_key.
`
}

func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.exec(ctx, c.run)
}

func (c *syncCmd) run(ctx context.Context, e *env) error {
	cfg := e.config.Clients.EODHD
	if cfg.APIKey == "" {
		return errors.New("no EODHD API key: set EODHD_API_KEY or [clients.eodhd] api_key")
	}

	data, err := e.store.LoadWorkspace(ctx)
	if err != nil {
		return err
	}

	opts := []eodhd.ClientOption{eodhd.WithLogger(e.logger), eodhd.WithTimeout(cfg.GetTimeout())}
	if cfg.BaseURL != "" {
		opts = append(opts, eodhd.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, eodhd.WithRateLimit(cfg.RateLimit))
	}
	client := eodhd.NewClient(cfg.APIKey, opts...)
	dispatcher := pricesync.NewDispatcher(e.config.Sync.GetMinRequestDelay(), e.logger)
	defer dispatcher.Close()

	syncer := pricesync.NewSyncer(client, dispatcher, e.logger, pricesync.Options{
		ReportingCurrency: e.config.ReportingCurrency,
		RequestTimeout:    e.config.Sync.GetRequestTimeout(),
		HistoryDays:       e.config.Sync.HistoryDays,
	})

	res, syncErr := syncer.Sync(ctx, data)
	if res == nil {
		return syncErr
	}

	// keep whatever was fetched before a cancellation
	res.ApplyTo(data)
	if err := e.store.SaveWorkspace(ctx, data); err != nil {
		return err
	}
	if err := e.store.SaveSyncReport(ctx, res.Report); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to save sync report")
	}

	fmt.Fprintln(e.stdout, res.String())
	return syncErr
}

// reportCmd prints the latest sync report
type reportCmd struct {
	app *app
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "show the latest sync report" }
func (*reportCmd) Usage() string {
	return `folio report

  Prints the most recent sync report as JSON.
`
}

func (*reportCmd) SetFlags(*flag.FlagSet) {}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.exec(ctx, func(ctx context.Context, e *env) error {
		r, err := e.store.LatestSyncReport(ctx)
		if err != nil {
			return err
		}
		return e.writeJSON(r)
	})
}
