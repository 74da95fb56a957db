package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"complaints/internal/amqp"
	"complaints/internal/core"
	"complaints/internal/sheets/memory"
)

type fakeSource struct {
	calls int
	err   error
}

func (f *fakeSource) ReadSnapshot(context.Context) (*core.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return core.NewSnapshot("fake", nil, []core.Complaint{{State: "CO", Count: int64(f.calls)}}), nil
}

func TestImport_ReplacesStoredSnapshot(t *testing.T) {
	src := &fakeSource{}
	store := memory.New(nil)
	w := NewRefreshWorker(src, store)

	snap, err := w.Import(context.Background())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	got, err := store.ReadSnapshot(context.Background())
	if err != nil || got.ID != snap.ID {
		t.Fatalf("stored snapshot mismatch: %v %v", got, err)
	}
	if at, id := w.LastImport(); at.IsZero() || id != snap.ID {
		t.Fatalf("last import not recorded: %v %s", at, id)
	}
}

func TestImport_SourceFailureKeepsStore(t *testing.T) {
	store := memory.NewFromRecords(core.Complaint{State: "TX", Count: 9})
	before, _ := store.ReadSnapshot(context.Background())

	w := NewRefreshWorker(&fakeSource{err: core.ErrConfiguration}, store)
	_, err := w.Import(context.Background())
	if !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	after, _ := store.ReadSnapshot(context.Background())
	if after.ID != before.ID {
		t.Fatal("store changed after failed import")
	}
}

func TestHandleRefreshMessage_SkipsSatisfiedRequests(t *testing.T) {
	src := &fakeSource{}
	w := NewRefreshWorker(src, memory.New(nil))

	old := &amqp.RefreshMessage{RequestID: "old", RequestedAt: time.Now().Add(-time.Minute)}
	if err := w.HandleRefreshMessage(context.Background(), old); err != nil {
		t.Fatalf("first message: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("first message should import, calls=%d", src.calls)
	}

	// requested before the import above started
	if err := w.HandleRefreshMessage(context.Background(), old); err != nil {
		t.Fatalf("stale message: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("stale message should be skipped, calls=%d", src.calls)
	}

	fresh := amqp.NewRefreshMessage("test")
	if err := w.HandleRefreshMessage(context.Background(), fresh); err != nil {
		t.Fatalf("fresh message: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("fresh message should import, calls=%d", src.calls)
	}
}

func TestHandleRefreshMessage_PropagatesFailure(t *testing.T) {
	w := NewRefreshWorker(&fakeSource{err: errors.New("quota")}, memory.New(nil))
	if err := w.HandleRefreshMessage(context.Background(), amqp.NewRefreshMessage("test")); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestRunPeriodic_StopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	w := NewRefreshWorker(src, memory.New(nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunPeriodic(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
	if _, id := w.LastImport(); id == "" {
		t.Fatal("expected at least one periodic import")
	}

	// zero interval returns immediately
	w.RunPeriodic(context.Background(), 0)
}
