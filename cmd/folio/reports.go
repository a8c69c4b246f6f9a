package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// valuationCmd prints the current valuation
type valuationCmd struct {
	app *app
}

func (*valuationCmd) Name() string     { return "valuation" }
func (*valuationCmd) Synopsis() string { return "value current holdings against sleeves and rules" }
func (*valuationCmd) Usage() string {
	return `folio [-portfolio <id>] valuation

  Prints the portfolio valuation as JSON: holdings, sleeve allocations
  against their bands, concentration violations and price health.
`
}

func (*valuationCmd) SetFlags(*flag.FlagSet) {}

func (c *valuationCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.exec(ctx, func(ctx context.Context, e *env) error {
		data, err := e.store.LoadWorkspace(ctx)
		if err != nil {
			return err
		}
		val, err := e.service.GetPortfolioValuation(ctx, data, e.portfolioID)
		if err != nil {
			return err
		}
		return e.writeJSON(val)
	})
}

// returnsCmd prints money-weighted returns for every window
type returnsCmd struct {
	app *app
}

func (*returnsCmd) Name() string     { return "returns" }
func (*returnsCmd) Synopsis() string { return "money-weighted returns for every window" }
func (*returnsCmd) Usage() string {
	return `folio [-portfolio <id>] returns

  Prints annualised money-weighted and time-weighted returns for each
  period, with per-asset returns, as JSON.
`
}

func (*returnsCmd) SetFlags(*flag.FlagSet) {}

func (c *returnsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.exec(ctx, func(ctx context.Context, e *env) error {
		data, err := e.store.LoadWorkspace(ctx)
		if err != nil {
			return err
		}
		hist, err := e.service.GetHistoricalReturns(ctx, data, e.portfolioID)
		if err != nil {
			return err
		}
		return e.writeJSON(hist)
	})
}

// chartCmd prints or renders the value time series
type chartCmd struct {
	app *app

	rangeKey string
	out      string
	png      bool
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "value time series (JSON, or PNG with -out / -png)" }
func (*chartCmd) Usage() string {
	return `folio [-portfolio <id>] chart [-range <1m|3m|6m|1y|all>] [-out <file> | -png]

  Prints the value and cost basis series as JSON. With -out the chart is
  rendered to that PNG file; with -png it is written under the data directory.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rangeKey, "range", "", "Chart range: 1m, 3m, 6m, 1y or all. Defaults to the configured range.")
	f.StringVar(&c.out, "out", "", "Write the chart PNG to this path.")
	f.BoolVar(&c.png, "png", false, "Write the chart PNG under the data directory.")
}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.exec(ctx, c.run)
}

func (c *chartCmd) run(ctx context.Context, e *env) error {
	data, err := e.store.LoadWorkspace(ctx)
	if err != nil {
		return err
	}

	if c.out == "" && !c.png {
		series, err := e.service.GetChartData(ctx, data, e.portfolioID, c.rangeKey)
		if err != nil {
			return err
		}
		return e.writeJSON(series)
	}

	png, err := e.service.RenderChart(ctx, data, e.portfolioID, c.rangeKey)
	if err != nil {
		return err
	}

	path := c.out
	if path != "" {
		if err := os.WriteFile(path, png, 0644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
	} else {
		key := fmt.Sprintf("%s-%s.png", e.portfolioID, orDefault(c.rangeKey, e.config.Chart.DefaultRange))
		if path, err = e.store.WriteRaw("charts", key, png); err != nil {
			return err
		}
	}
	e.logger.Info().Str("path", path).Int("bytes", len(png)).Msg("Chart written")
	fmt.Fprintln(e.stdout, path)
	return nil
}
