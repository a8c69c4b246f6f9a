package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner writes the CLI startup banner and logs the run context.
func PrintBanner(w io.Writer, config *Config, logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 56
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	fmt.Fprintf(w, "\n%s\n", hr)
	fmt.Fprintf(w, "%s  FOLIO  valuation & returns%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "%s\n", hr)

	kvPad := 12
	kvLines := [][2]string{
		{"Version", GetFullVersion()},
		{"Environment", config.Environment},
		{"Workspace", config.Storage.WorkspaceFile()},
		{"Currency", config.ReportingCurrency},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "%s\n\n", hr)

	logger.Debug().
		Str("version", GetVersion()).
		Str("environment", config.Environment).
		Str("workspace", config.Storage.WorkspaceFile()).
		Msg("Folio started")
}
