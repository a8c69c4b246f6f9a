// Package storage persists the Folio workspace as JSON files.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/holdings"
	"github.com/bobmcallan/folio/internal/services/rules"
)

// ErrWorkspaceNotFound is returned by LoadWorkspace before the first save
var ErrWorkspaceNotFound = errors.New("workspace not found")

// FileStore provides file-based JSON storage with optional versioning.
type FileStore struct {
	basePath  string
	workspace string
	versions  int
	logger    *common.Logger

	mu sync.Mutex // serialises read-modify-write of the workspace
}

var _ interfaces.SnapshotStore = (*FileStore)(nil)

// subdirectories defines the directory layout under basePath.
var subdirectories = []string{"reports", "charts"}

// NewFileStore creates a new FileStore and ensures all subdirectories exist.
func NewFileStore(logger *common.Logger, config *common.StorageConfig) (*FileStore, error) {
	versions := config.Versions
	if versions < 0 {
		versions = 0
	}
	workspace := config.Workspace
	if workspace == "" {
		workspace = "workspace.json"
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	fs := &FileStore{
		basePath:  config.Path,
		workspace: strings.TrimSuffix(workspace, ".json"),
		versions:  versions,
		logger:    logger,
	}

	for _, sub := range subdirectories {
		dir := filepath.Join(fs.basePath, sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger.Debug().Str("path", config.Path).Int("versions", versions).Msg("FileStore opened")
	return fs, nil
}

// sanitizeKey makes a key safe for use as a filename.
// Replaces /, \, : with _ and collapses ".." to "_" to prevent path traversal.
// Preserves single dots (common in symbols like VWCE.XETRA).
func (fs *FileStore) sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

// filePath returns the full path for a key in a directory.
func (fs *FileStore) filePath(dir, key string) string {
	return filepath.Join(dir, fs.sanitizeKey(key)+".json")
}

// readJSON reads and unmarshals a JSON file.
func (fs *FileStore) readJSON(dir, key string, dest interface{}) error {
	path := fs.filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s': %w", key, os.ErrNotExist)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("'%s' is empty", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals data to indented JSON and writes it atomically.
// When versioned and fs.versions > 0, previous versions are rotated first.
func (fs *FileStore) writeJSON(dir, key string, data interface{}, versioned bool) error {
	target := fs.filePath(dir, key)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	if versioned && fs.versions > 0 {
		fs.rotateVersions(target)
	}

	return writeAtomic(dir, target, jsonData)
}

// writeAtomic writes to a temp file in the same directory, then renames
func writeAtomic(dir, target string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// rotateVersions shifts existing versions up and moves current to v1.
// v{N} -> deleted, v{N-1} -> v{N}, ..., v1 -> v2, current -> v1
func (fs *FileStore) rotateVersions(target string) {
	os.Remove(fmt.Sprintf("%s.v%d", target, fs.versions))

	for i := fs.versions; i > 1; i-- {
		src := fmt.Sprintf("%s.v%d", target, i-1)
		dst := fmt.Sprintf("%s.v%d", target, i)
		os.Rename(src, dst) // may not exist yet
	}

	if _, err := os.Stat(target); err == nil {
		os.Rename(target, target+".v1")
	}
}

// listKeys returns all keys in a directory (excluding version files and temp files).
func (fs *FileStore) listKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".tmp-") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// WriteRaw writes arbitrary binary data atomically.
// The key is sanitized for safe filenames (e.g. "core-6m.png").
func (fs *FileStore) WriteRaw(subdir, key string, data []byte) (string, error) {
	dir := filepath.Join(fs.basePath, fs.sanitizeKey(subdir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	target := filepath.Join(dir, fs.sanitizeKey(key))
	if err := writeAtomic(dir, target, data); err != nil {
		return "", err
	}
	return target, nil
}

// --- Workspace ---

// LoadWorkspace reads the workspace snapshot
func (fs *FileStore) LoadWorkspace(ctx context.Context) (*models.PortfolioData, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.loadWorkspace()
}

// workspaceFile holds rules raw so each config is validated against its type
type workspaceFile struct {
	models.PortfolioData
	Rules []json.RawMessage `json:"rules"`
}

func (fs *FileStore) loadWorkspace() (*models.PortfolioData, error) {
	var file workspaceFile
	if err := fs.readJSON(fs.basePath, fs.workspace, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}

	decoded, err := decodeRules(file.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	data := file.PortfolioData
	data.Rules = decoded
	return &data, nil
}

func decodeRules(raw []json.RawMessage) ([]models.Rule, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	out := make([]models.Rule, 0, len(raw))
	for i, msg := range raw {
		var r models.Rule
		if err := json.Unmarshal(msg, &r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if r.Type == models.RuleTypeConcentrationLimit {
			var stored struct {
				Config json.RawMessage `json:"config"`
			}
			if err := json.Unmarshal(msg, &stored); err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.ID, err)
			}
			cfg, err := rules.ParseRuleConfig(stored.Config)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.ID, err)
			}
			r.Concentration = cfg
		}
		out = append(out, r)
	}
	return out, nil
}

// SaveWorkspace replaces the workspace snapshot, keeping prior versions
func (fs *FileStore) SaveWorkspace(ctx context.Context, data *models.PortfolioData) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.saveWorkspace(data)
}

func (fs *FileStore) saveWorkspace(data *models.PortfolioData) error {
	if err := fs.writeJSON(fs.basePath, fs.workspace, data, true); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}
	fs.logger.Debug().
		Int("orders", len(data.Orders)).
		Int("assets", len(data.Assets)).
		Msg("Workspace saved")
	return nil
}

// ImportOrders merges orders into the ledger. An order whose reference
// already exists replaces that row and keeps its ID; new rows get a fresh ID.
func (fs *FileStore) ImportOrders(ctx context.Context, orders []models.Order) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := fs.loadWorkspace()
	if errors.Is(err, ErrWorkspaceNotFound) {
		data = &models.PortfolioData{}
	} else if err != nil {
		return 0, err
	}

	known := data.AssetMap()
	incoming := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if _, ok := known[o.AssetID]; !ok {
			return 0, fmt.Errorf("order %q references unknown asset %q", o.Reference, o.AssetID)
		}
		incoming = append(incoming, o)
	}

	before := len(data.Orders)
	data.Orders = holdings.MergeOrders(data.Orders, incoming)
	for i := range data.Orders {
		if data.Orders[i].ID == "" {
			data.Orders[i].ID = uuid.New().String()
		}
	}
	if err := fs.saveWorkspace(data); err != nil {
		return 0, err
	}

	fs.logger.Info().
		Int("received", len(orders)).
		Int("added", len(data.Orders)-before).
		Int("ledger", len(data.Orders)).
		Msg("Orders imported")
	return len(data.Orders), nil
}

// --- Sync reports ---

func (fs *FileStore) reportsDir() string {
	return filepath.Join(fs.basePath, "reports")
}

func reportKey(r *models.SyncReport) string {
	return fmt.Sprintf("sync-%s-%d", r.StartedAt.UTC().Format("20060102T150405Z"), r.JobID)
}

// SaveSyncReport writes a sync report. Reports are derived data and are not versioned.
func (fs *FileStore) SaveSyncReport(ctx context.Context, report *models.SyncReport) error {
	if err := fs.writeJSON(fs.reportsDir(), reportKey(report), report, false); err != nil {
		return fmt.Errorf("failed to save sync report: %w", err)
	}
	return nil
}

// LatestSyncReport returns the most recently started sync report
func (fs *FileStore) LatestSyncReport(ctx context.Context) (*models.SyncReport, error) {
	keys, err := fs.listKeys(fs.reportsDir())
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no sync reports: %w", os.ErrNotExist)
	}

	var report models.SyncReport
	if err := fs.readJSON(fs.reportsDir(), keys[len(keys)-1], &report); err != nil {
		return nil, err
	}
	return &report, nil
}
