package reconcile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	derrors "github.com/sharedash/sharedash/internal/errors"
	"github.com/sharedash/sharedash/internal/metadata"
	"github.com/sharedash/sharedash/internal/pathsafe"
	"github.com/sharedash/sharedash/internal/scanner"
)

// Notifier receives the post-reconcile analytics refresh.
type Notifier interface {
	Sync(ctx context.Context) error
}

// Result reports one reconciliation.
type Result struct {
	Created   int               `json:"created"`
	Updated   int               `json:"updated"`
	Deleted   int               `json:"deleted"`
	Unchanged int               `json:"unchanged"`
	Warnings  []scanner.Warning `json:"warnings,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

// Config wires an Engine.
type Config struct {
	Sandbox   *pathsafe.Sandbox
	Scanner   *scanner.Scanner
	Store     metadata.Store
	Analytics Notifier // optional
	ScanOpts  scanner.Options
	// LockDir holds the cross-process rescan lock (the data dir).
	LockDir string
	Logger  *slog.Logger
}

// Engine is the reconciliation engine. At most one reconciliation runs
// at a time per shared root; concurrent requests fail fast.
type Engine struct {
	sandbox   *pathsafe.Sandbox
	scanner   *scanner.Scanner
	store     metadata.Store
	analytics Notifier
	scanOpts  scanner.Options
	lockPath  string
	logger    *slog.Logger

	running atomic.Bool
}

// New creates an Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sandbox:   cfg.Sandbox,
		scanner:   cfg.Scanner,
		store:     cfg.Store,
		analytics: cfg.Analytics,
		scanOpts:  cfg.ScanOpts,
		lockPath:  filepath.Join(cfg.LockDir, "rescan.lock"),
		logger:    logger,
	}
}

// Reconcile walks the shared root, diffs it against the metadata store,
// applies the changes as one batch, and refreshes the analytics
// snapshot. Idempotent: a second run with no filesystem change in
// between applies nothing.
func (e *Engine) Reconcile(ctx context.Context) (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, derrors.New(derrors.ErrCodeRescanInProgress, "a rescan is already running", nil)
	}
	defer e.running.Store(false)

	if err := os.MkdirAll(filepath.Dir(e.lockPath), 0o755); err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeFilePermission, err)
	}
	fl := flock.New(e.lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, derrors.InternalError("acquire rescan lock", err)
	}
	if !locked {
		return nil, derrors.New(derrors.ErrCodeRescanInProgress,
			"a rescan is already running in another process", nil)
	}
	defer func() { _ = fl.Unlock() }()

	start := time.Now()
	result := &Result{}

	// Symlink targets may have changed since the last rescan.
	e.sandbox.Invalidate()

	inventory, warnings, err := e.buildInventory(ctx)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings

	records, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}

	recordMap := make(map[string]*metadata.FileRecord, len(records))
	var invalid []*metadata.FileRecord
	for _, rec := range records {
		// A record whose stored path no longer resolves inside the
		// root must not be retained.
		if _, err := e.sandbox.Resolve(rec.RelativePath); err != nil {
			invalid = append(invalid, rec)
			result.Warnings = append(result.Warnings, scanner.Warning{
				Path:   rec.RelativePath,
				Reason: "stored path fails sandbox check: " + err.Error(),
			})
			continue
		}
		recordMap[Key(rec.RelativePath)] = rec
	}

	plan := Diff(inventory, recordMap)
	plan.Deletes = append(plan.Deletes, invalid...)

	batch := e.buildBatch(plan, time.Now().UTC())
	if err := e.store.Apply(ctx, batch); err != nil {
		return nil, err
	}

	result.Created = len(plan.Creates)
	result.Updated = len(plan.Updates)
	result.Deleted = len(plan.Deletes)
	result.Unchanged = len(plan.Unchanged)
	result.Duration = time.Since(start)

	e.logger.Info("reconcile complete",
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("deleted", result.Deleted),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("duration", result.Duration))

	// The snapshot a caller reads after a rescan must reflect it.
	if e.analytics != nil {
		if err := e.analytics.Sync(ctx); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// buildInventory consumes the scan stream into a keyed map.
func (e *Engine) buildInventory(ctx context.Context) (map[string]*scanner.FileInfo, []scanner.Warning, error) {
	results, err := e.scanner.Scan(ctx, &e.scanOpts)
	if err != nil {
		return nil, nil, derrors.Wrap(derrors.ErrCodeFilePermission, err)
	}

	inventory := make(map[string]*scanner.FileInfo)
	var warnings []scanner.Warning
	for res := range results {
		if res.Warn != nil {
			warnings = append(warnings, *res.Warn)
			continue
		}
		if res.File != nil {
			inventory[Key(res.File.Path)] = res.File
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return inventory, warnings, nil
}

// buildBatch turns a plan into store mutations. Rescan-driven changes
// carry the external sentinel; access counts and team ownership are
// never touched.
func (e *Engine) buildBatch(plan *Plan, now time.Time) *metadata.Batch {
	batch := &metadata.Batch{}

	for _, file := range plan.Creates {
		batch.Creates = append(batch.Creates, &metadata.FileRecord{
			ID:           uuid.NewString(),
			RelativePath: file.Path,
			FileType:     file.FileType,
			SizeBytes:    file.Size,
			ModifiedAt:   file.ModTime,
			UploadedBy:   metadata.ExternalActor(),
			ModifiedBy:   metadata.ExternalActor(),
			CreatedAt:    now,
		})
	}

	for _, pair := range plan.Updates {
		batch.Updates = append(batch.Updates, metadata.PathUpdate{
			RelativePath: pair.Record.RelativePath,
			Fields: metadata.FieldUpdate{
				FileType:   pair.File.FileType,
				SizeBytes:  pair.File.Size,
				ModifiedAt: pair.File.ModTime,
				ModifiedBy: metadata.ExternalActor(),
			},
		})
	}

	for _, rec := range plan.Deletes {
		batch.Deletes = append(batch.Deletes, rec.RelativePath)
	}

	return batch
}
