package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/folio/internal/models"
)

// importCmd merges orders from a JSON file into the ledger
type importCmd struct {
	app *app
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "merge orders from a JSON array into the ledger" }
func (*importCmd) Usage() string {
	return `folio import <file>

  Reads a JSON array of orders and merges it into the ledger. An order whose
  reference is already in the ledger replaces that row.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(c.app.stderr, "Error: import needs exactly one file.")
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)

	return c.app.exec(ctx, func(ctx context.Context, e *env) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		var orders []models.Order
		if err := json.Unmarshal(raw, &orders); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		n, err := e.store.ImportOrders(ctx, orders)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "imported %d orders, ledger has %d\n", len(orders), n)
		return nil
	})
}
