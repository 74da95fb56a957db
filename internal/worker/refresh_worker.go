package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"complaints/internal/amqp"
	"complaints/internal/core"
	"complaints/internal/sheets"
)

// RefreshWorker copies the worksheet into the local snapshot store.
type RefreshWorker struct {
	source sheets.SnapshotReader
	store  sheets.SnapshotWriter

	mu         sync.Mutex // serializes imports
	lastImport time.Time  // start of the last successful import
	lastID     string
}

func NewRefreshWorker(source sheets.SnapshotReader, store sheets.SnapshotWriter) *RefreshWorker {
	return &RefreshWorker{source: source, store: store}
}

// Import reads a fresh snapshot and replaces the stored one. A snapshot
// that fails to load leaves the stored one untouched.
func (w *RefreshWorker) Import(ctx context.Context) (*core.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.importLocked(ctx)
}

func (w *RefreshWorker) importLocked(ctx context.Context) (*core.Snapshot, error) {
	started := time.Now()
	snap, err := w.source.ReadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if snap == nil {
		return nil, errors.New("read source: no snapshot")
	}
	if err := w.store.ReplaceSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	w.lastImport = started
	w.lastID = snap.ID

	slog.InfoContext(ctx, "Snapshot imported",
		"snapshot_id", snap.ID,
		"source", snap.Source,
		"records", snap.Len(),
		"duration", time.Since(started).Round(time.Millisecond))
	return snap, nil
}

// HandleRefreshMessage imports unless a successful import started after
// the request was made.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lastImport.IsZero() && !msg.RequestedAt.IsZero() && msg.RequestedAt.Before(w.lastImport) {
		slog.InfoContext(ctx, "Refresh request already satisfied",
			"request_id", msg.RequestID,
			"requested_at", msg.RequestedAt.Format(time.RFC3339),
			"snapshot_id", w.lastID)
		return nil
	}
	_, err := w.importLocked(ctx)
	return err
}

// RunPeriodic imports every interval until ctx is done. Failures are logged
// and retried on the next tick.
func (w *RefreshWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := w.Import(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic import failed", "error", err)
				continue
			}
			slog.DebugContext(ctx, "Periodic import complete",
				"next_import", now.Add(interval).Format("15:04:05"))
		}
	}
}

// LastImport reports when the last successful import started.
func (w *RefreshWorker) LastImport() (time.Time, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastImport, w.lastID
}
