package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"complaints/internal/core"
	ports "complaints/internal/sheets"
)

// Observer receives cache and load events. A nil Observer is ignored.
type Observer interface {
	CacheHit()
	CacheMiss()
	SnapshotLoaded(d time.Duration, records int, err error)
}

// SnapshotOptions configures a SnapshotCache.
type SnapshotOptions struct {
	Key      string        // identifies the source; defaults to "snapshot"
	TTL      time.Duration // zero disables caching
	Timeout  time.Duration // bound for one load; zero means no bound
	Observer Observer
}

// SnapshotCache serves snapshots from reader, keeping the last one for TTL.
// Concurrent misses share a single load.
type SnapshotCache struct {
	reader  ports.SnapshotReader
	opts    SnapshotOptions
	entries *LRUCache[*core.Snapshot]
	group   singleflight.Group
}

var _ ports.SnapshotReader = (*SnapshotCache)(nil)

func NewSnapshotCache(reader ports.SnapshotReader, opts SnapshotOptions) *SnapshotCache {
	if opts.Key == "" {
		opts.Key = "snapshot"
	}
	return &SnapshotCache{
		reader:  reader,
		opts:    opts,
		entries: NewLRUCache[*core.Snapshot](1, opts.TTL),
	}
}

// Entries exposes the underlying cache so a Manager can clean it.
func (c *SnapshotCache) Entries() *LRUCache[*core.Snapshot] { return c.entries }

// ReadSnapshot returns the cached snapshot or loads a fresh one.
func (c *SnapshotCache) ReadSnapshot(ctx context.Context) (*core.Snapshot, error) {
	if c.opts.TTL > 0 {
		if snap, ok := c.entries.Get(c.opts.Key); ok {
			c.hit()
			return snap, nil
		}
	}
	c.miss()

	ch := c.group.DoChan(c.opts.Key, func() (interface{}, error) {
		return c.load(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached snapshot; the next read reloads.
func (c *SnapshotCache) Invalidate() {
	c.entries.Delete(c.opts.Key)
	c.group.Forget(c.opts.Key)
}

func (c *SnapshotCache) load(ctx context.Context) (*core.Snapshot, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := c.reader.ReadSnapshot(ctx)
	if err == nil && snap == nil {
		err = fmt.Errorf("reader returned no snapshot")
	}
	records := 0
	if err == nil {
		records = snap.Len()
	}
	if c.opts.Observer != nil {
		c.opts.Observer.SnapshotLoaded(time.Since(start), records, err)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Snapshot load failed", "key", c.opts.Key, "error", err)
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if c.opts.TTL > 0 {
		c.entries.Set(c.opts.Key, snap)
	}
	slog.DebugContext(ctx, "Snapshot loaded",
		"key", c.opts.Key,
		"snapshot_id", snap.ID,
		"records", records,
		"duration", time.Since(start))
	return snap, nil
}

func (c *SnapshotCache) hit() {
	if c.opts.Observer != nil {
		c.opts.Observer.CacheHit()
	}
}

func (c *SnapshotCache) miss() {
	if c.opts.Observer != nil {
		c.opts.Observer.CacheMiss()
	}
}
