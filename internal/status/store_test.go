package status_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shodh/internal/api"
	"shodh/internal/status"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestMergeCreatesEntry(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	changed := store.Merge("2401.12345", status.Patch{
		State:    api.StateDownloading,
		Progress: intPtr(10),
		Step:     strPtr("Downloading PDF"),
		Title:    "Attention Is All You Need",
	})
	require.True(t, changed, "first merge should report a change")

	got, ok := store.Get("2401.12345")
	require.True(t, ok)
	assert.Equal(t, api.StateDownloading, got.State)
	assert.Equal(t, 10, got.Progress)
	assert.Equal(t, "Downloading PDF", got.Step)
	assert.Equal(t, "Attention Is All You Need", got.Title)
}

func TestMergeIdempotent(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	patch := status.Patch{State: api.StateParsing, Progress: intPtr(40), Step: strPtr("Parsing")}

	require.True(t, store.Merge("p1", patch), "first application should change the entry")
	assert.False(t, store.Merge("p1", patch), "second application of the same patch should be a no-op")
}

func TestMergePartialPatchKeepsOtherFields(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	store.Merge("p1", status.Patch{
		State:    api.StateIndexing,
		Progress: intPtr(70),
		Step:     strPtr("Indexing chunks"),
		Title:    "Some Paper",
	})

	// Progress-only update leaves state, step, and title untouched.
	store.Merge("p1", status.Patch{Progress: intPtr(80)})

	got, _ := store.Get("p1")
	assert.Equal(t, api.StateIndexing, got.State)
	assert.Equal(t, 80, got.Progress)
	assert.Equal(t, "Indexing chunks", got.Step)
	assert.Equal(t, "Some Paper", got.Title)
}

func TestMergeTitleSticky(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	store.Merge("p1", status.Patch{State: api.StateQueued, Title: "Real Title"})
	store.Merge("p1", status.Patch{State: api.StateDownloading})

	got, _ := store.Get("p1")
	assert.Equal(t, "Real Title", got.Title, "update without a title should not blank the cached one")
}

func TestMergeTerminalNotRegressed(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	store.Merge("p1", status.Patch{State: api.StateCompleted, Progress: intPtr(100)})

	// A late in-flight update must not reopen a finished job.
	store.Merge("p1", status.Patch{State: api.StateIndexing})

	got, _ := store.Get("p1")
	assert.Equal(t, api.StateCompleted, got.State)
}

func TestMergeRestartReopensTerminal(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	store.Merge("p1", status.Patch{
		State:      api.StateFailed,
		Error:      strPtr("parse error"),
		Progress:   intPtr(55),
		Step:       strPtr("Parsing"),
		Title:      "Kept Title",
		ChunkCount: intPtr(12),
	})

	changed := store.Merge("p1", status.Patch{State: api.StateQueued})
	require.True(t, changed, "a fresh queued record should restart the entry")

	got, _ := store.Get("p1")
	assert.Equal(t, api.StateQueued, got.State)
	assert.Equal(t, 0, got.Progress, "restart should reset progress")
	assert.Empty(t, got.Step, "restart should reset step")
	assert.Empty(t, got.Error, "restart should clear the old error")
	assert.Zero(t, got.ChunkCount, "restart should clear the old chunk count")
	assert.Equal(t, "Kept Title", got.Title, "title survives a restart")
}

func TestMergeEmptyPaperID(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	assert.False(t, store.Merge("", status.Patch{State: api.StateQueued}))
	assert.Empty(t, store.All())
}

func TestSeed(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	store.Seed("p1", "New Paper")

	got, ok := store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, api.StateQueued, got.State)
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, "New Paper", got.Title)

	// Seeding again must not clobber real data.
	store.Merge("p1", status.Patch{State: api.StateParsing, Progress: intPtr(30)})
	store.Seed("p1", "New Paper")
	got, _ = store.Get("p1")
	assert.Equal(t, api.StateParsing, got.State, "seed is a no-op for known papers")
	assert.Equal(t, 30, got.Progress)
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	ch, unsubscribe := store.Subscribe()
	defer unsubscribe()

	store.Merge("p1", status.Patch{State: api.StateDownloading, Progress: intPtr(5)})

	update := <-ch
	assert.Equal(t, "p1", update.PaperID)
	assert.Equal(t, api.StateDownloading, update.Status.State)
}

func TestSubscribeNoNotificationForNoOp(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	patch := status.Patch{State: api.StateParsing, Progress: intPtr(50)}
	store.Merge("p1", patch)

	ch, unsubscribe := store.Subscribe()
	defer unsubscribe()

	store.Merge("p1", patch)

	select {
	case update := <-ch:
		t.Fatalf("unexpected notification for no-op merge: %+v", update)
	default:
	}
}

func TestMergeConcurrentWithSubscriberChurn(t *testing.T) {
	store := status.NewStore(nil)
	defer store.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		progress := 0
		for {
			select {
			case <-stop:
				return
			default:
			}
			progress++
			p := progress
			store.Merge("p1", status.Patch{State: api.StateIndexing, Progress: &p})
		}
	}()

	// Subscribers coming and going while merges notify must never crash the
	// merging goroutine.
	for i := 0; i < 10000; i++ {
		ch, unsubscribe := store.Subscribe()
		select {
		case <-ch:
		default:
		}
		unsubscribe()
	}

	close(stop)
	<-done
}

func TestCloseClosesSubscribers(t *testing.T) {
	store := status.NewStore(nil)

	ch, _ := store.Subscribe()
	store.Close()

	_, ok := <-ch
	assert.False(t, ok, "subscriber channel should be closed")

	// Subscribing after close yields an already-closed channel.
	ch2, _ := store.Subscribe()
	_, ok = <-ch2
	assert.False(t, ok)
}
