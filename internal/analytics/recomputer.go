package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sharedash/sharedash/internal/metadata"
)

// RecordLister is the slice of the metadata store the recomputer needs.
type RecordLister interface {
	List(ctx context.Context) ([]*metadata.FileRecord, error)
}

// Recomputer coalesces snapshot recomputation requests.
//
// Access events arrive far more often than rescans; writing one
// snapshot per event would hammer the analytics store. Notify marks the
// snapshot dirty and a worker flushes at a fixed interval. Sync forces
// an immediate recomputation (used after rescans and content writes so
// callers observe their own effect). Stop flushes pending work and
// shuts the worker down.
type Recomputer struct {
	records  RecordLister
	sink     Store
	agg      *Aggregator
	interval time.Duration
	logger   *slog.Logger

	notifyCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}

	// mu serializes recomputations between the worker and Sync.
	mu sync.Mutex

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewRecomputer creates a Recomputer. Call Start to launch the worker.
func NewRecomputer(records RecordLister, sink Store, agg *Aggregator, interval time.Duration, logger *slog.Logger) *Recomputer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recomputer{
		records:  records,
		sink:     sink,
		agg:      agg,
		interval: interval,
		logger:   logger,
		notifyCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the coalescing worker. Safe to call once.
func (r *Recomputer) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Notify marks the snapshot dirty. Never blocks; back-to-back calls
// within one flush interval coalesce into a single recomputation.
func (r *Recomputer) Notify() {
	select {
	case r.notifyCh <- struct{}{}:
	default:
	}
}

// Sync recomputes and replaces the snapshot immediately.
func (r *Recomputer) Sync(ctx context.Context) error {
	// Drain a pending notify; this recomputation covers it.
	select {
	case <-r.notifyCh:
	default:
	}
	return r.recompute(ctx)
}

// Stop flushes pending work and waits for the worker to exit. Safe to
// call without Start and safe to call more than once.
func (r *Recomputer) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	// If Start never ran there is no worker to close doneCh.
	r.startOnce.Do(func() { close(r.doneCh) })
	<-r.doneCh
}

func (r *Recomputer) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case <-r.notifyCh:
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			if err := r.recompute(context.Background()); err != nil {
				r.logger.Warn("snapshot recompute failed", slog.String("error", err.Error()))
				continue
			}
			dirty = false
		case <-r.stopCh:
			// Final flush so shutdown never drops a pending update.
			select {
			case <-r.notifyCh:
				dirty = true
			default:
			}
			if dirty {
				if err := r.recompute(context.Background()); err != nil {
					r.logger.Warn("final snapshot recompute failed", slog.String("error", err.Error()))
				}
			}
			return
		}
	}
}

func (r *Recomputer) recompute(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.records.List(ctx)
	if err != nil {
		return err
	}
	snap := r.agg.Compute(records, time.Now().UTC())
	if err := r.sink.ReplaceSnapshot(ctx, snap); err != nil {
		return err
	}
	r.logger.Debug("analytics snapshot replaced",
		slog.Int64("total_files", snap.TotalFiles),
		slog.Int64("total_size_bytes", snap.TotalSizeBytes))
	return nil
}
