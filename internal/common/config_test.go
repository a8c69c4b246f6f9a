package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.ReportingCurrency != "EUR" {
		t.Errorf("ReportingCurrency default = %q, want %q", cfg.ReportingCurrency, "EUR")
	}
	if cfg.Returns.LookbackDays != 5 {
		t.Errorf("Returns.LookbackDays default = %d, want 5", cfg.Returns.LookbackDays)
	}
	if cfg.Valuation.DefaultBands.RelativeTolerance != 20 {
		t.Errorf("DefaultBands.RelativeTolerance = %v, want 20", cfg.Valuation.DefaultBands.RelativeTolerance)
	}
	if got := cfg.Valuation.StaleAfter(); got != 24*time.Hour {
		t.Errorf("StaleAfter = %v, want 24h", got)
	}
	if cfg.Storage.Versions != 5 {
		t.Errorf("Storage.Versions default = %d, want 5", cfg.Storage.Versions)
	}
	if cfg.Sync.HistoryDays != 365 {
		t.Errorf("Sync.HistoryDays default = %d, want 365", cfg.Sync.HistoryDays)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FOLIO_DATA_PATH", "/tmp/folio")
	t.Setenv("FOLIO_REPORTING_CURRENCY", "usd")
	t.Setenv("FOLIO_LOOKBACK_DAYS", "9")
	t.Setenv("FOLIO_STALE_PRICE_HOURS", "6")
	t.Setenv("FOLIO_PORTFOLIO", "core")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Storage.Path != "/tmp/folio" {
		t.Errorf("Storage.Path = %q, want /tmp/folio", cfg.Storage.Path)
	}
	if cfg.ReportingCurrency != "USD" {
		t.Errorf("ReportingCurrency = %q, want USD", cfg.ReportingCurrency)
	}
	if cfg.Returns.LookbackDays != 9 {
		t.Errorf("LookbackDays = %d, want 9", cfg.Returns.LookbackDays)
	}
	if cfg.Valuation.StaleAfter() != 6*time.Hour {
		t.Errorf("StaleAfter = %v, want 6h", cfg.Valuation.StaleAfter())
	}
	if cfg.Portfolio != "core" {
		t.Errorf("Portfolio = %q, want core", cfg.Portfolio)
	}
}

func TestConfig_EODHDAPIKeyFromEnv(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "")
	t.Setenv("FOLIO_EODHD_API_KEY", "k-123")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.EODHD.APIKey != "k-123" {
		t.Errorf("EODHD.APIKey = %q, want k-123", cfg.Clients.EODHD.APIKey)
	}
	if cfg.Clients.EODHD.GetTimeout() != 30*time.Second {
		t.Errorf("EODHD.GetTimeout = %v, want 30s", cfg.Clients.EODHD.GetTimeout())
	}
}

func TestLoadConfig_NegativeVersionsTreatedAsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.toml")
	if err := os.WriteFile(path, []byte("[storage]\nversions = -2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Versions != 0 {
		t.Errorf("Storage.Versions = %d, want 0", cfg.Storage.Versions)
	}
	if cfg.Storage.Workspace != "workspace.json" {
		t.Errorf("Storage.Workspace = %q, want workspace.json", cfg.Storage.Workspace)
	}
}

func TestLoadConfig_MergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	if err := os.WriteFile(base, []byte(`
environment = "production"
[returns]
lookback_days = 3
[valuation.default_bands]
relative_tolerance = 25
absolute_floor = 1
absolute_cap = 8
`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(local, []byte(`
[returns]
lookback_days = 7
`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(base, local, filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.IsProduction() {
		t.Errorf("expected production environment, got %q", cfg.Environment)
	}
	if cfg.Returns.LookbackDays != 7 {
		t.Errorf("LookbackDays = %d, want 7 (later file wins)", cfg.Returns.LookbackDays)
	}
	if cfg.Valuation.DefaultBands.AbsoluteCap != 8 {
		t.Errorf("DefaultBands.AbsoluteCap = %v, want 8", cfg.Valuation.DefaultBands.AbsoluteCap)
	}
}

func TestLoadConfig_ZeroDefaultBandsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.toml")
	if err := os.WriteFile(path, []byte(`
[valuation.default_bands]
relative_tolerance = 0
absolute_floor = 0
absolute_cap = 0
`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Valuation.DefaultBands.IsZero() {
		t.Errorf("DefaultBands = %+v, want explicit zero kept", cfg.Valuation.DefaultBands)
	}
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("environment = ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error for malformed TOML")
	}
}

func TestSyncConfig_Durations(t *testing.T) {
	c := SyncConfig{MinRequestDelay: "500ms", RequestTimeout: "bogus"}
	if c.GetMinRequestDelay() != 500*time.Millisecond {
		t.Errorf("GetMinRequestDelay = %v, want 500ms", c.GetMinRequestDelay())
	}
	if c.GetRequestTimeout() != 30*time.Second {
		t.Errorf("GetRequestTimeout fallback = %v, want 30s", c.GetRequestTimeout())
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-10", "2024-01-10"},
		{"2024-01-10T15:04:05", "2024-01-10"},
		{"2024-01-10T23:30:00+02:00", "2024-01-10"},
		{" 2024-03-01 ", "2024-03-01"},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		if FormatDate(got) != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, FormatDate(got), tt.want)
		}
	}
	if !ParseDate("not-a-date").IsZero() {
		t.Error("expected zero time for garbage input")
	}
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if !IsFresh(now.Add(-time.Hour), now, FreshnessPriceCache) {
		t.Error("1h old quote should be fresh")
	}
	if IsFresh(now.Add(-25*time.Hour), now, FreshnessPriceCache) {
		t.Error("25h old quote should be stale")
	}
	if IsFresh(time.Time{}, now, FreshnessPriceCache) {
		t.Error("zero time is never fresh")
	}
	if HoursStale(now.Add(-30*time.Hour), now) != 30 {
		t.Errorf("HoursStale = %d, want 30", HoursStale(now.Add(-30*time.Hour), now))
	}
}
