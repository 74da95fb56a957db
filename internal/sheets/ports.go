package sheets

import (
	"context"

	"complaints/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotReader materializes the complaints worksheet as one snapshot.
	SnapshotReader interface {
		ReadSnapshot(ctx context.Context) (*core.Snapshot, error)
	}

	// SnapshotWriter replaces the stored snapshot with a new one.
	SnapshotWriter interface {
		ReplaceSnapshot(ctx context.Context, snap *core.Snapshot) error
	}
)
