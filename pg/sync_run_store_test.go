package pg

import (
	"context"
	"testing"
	"time"

	"github.com/go-test/deep"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/pg/pgtest"
)

func TestSyncRunStoreInit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	runStore := &SyncRunStore{DB: dbx}
	if err := runStore.Init(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSyncRunStoreCreate(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	runStore := &SyncRunStore{DB: dbx}
	if err := runStore.Init(ctx); err != nil {
		t.Fatalf("SyncRunStore.Init: %v", err)
	}

	started := time.Date(2025, 6, 25, 3, 0, 0, 0, time.UTC)
	run, err := runStore.Create(ctx, chqcal.SyncRun{
		Start: time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 8, 24, 0, 0, 0, 0, time.UTC),
		Result: chqcal.SyncResult{
			Success:         true,
			StartedAt:       started,
			EventsProcessed: 120,
			EventsCreated:   5,
			EventsUpdated:   3,
			EventsDeleted:   1,
			Errors:          []string{"event 99: record has no title"},
			Duration:        42 * time.Second,
		},
	})
	if err != nil {
		t.Fatalf("SyncRunStore.Create: %v", err)
	}

	if run.ID == "" {
		t.Fatal("created run has no id")
	}
	if run.CreatedAt.IsZero() {
		t.Fatal("created run has no creation time")
	}

	got, err := runStore.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("SyncRunStore.Get: %v", err)
	}
	if diff := deep.Equal(got, run); diff != nil {
		t.Fatal(diff)
	}
	if got, want := got.Result.EventsProcessed, 120; got != want {
		t.Fatalf("round-tripped EventsProcessed = %d, want %d", got, want)
	}
}

func TestSyncRunStoreLatest(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	runStore := &SyncRunStore{DB: dbx}
	if err := runStore.Init(ctx); err != nil {
		t.Fatalf("SyncRunStore.Init: %v", err)
	}

	if _, err := runStore.Latest(ctx); !errors.Is(errors.NotExist, err) {
		t.Fatalf("Latest() on empty store: err = %v, want NotExist", err)
	}

	for i := 0; i < 3; i++ {
		_, err := runStore.Create(ctx, chqcal.SyncRun{
			Result: chqcal.SyncResult{Success: true, EventsProcessed: i},
		})
		if err != nil {
			t.Fatalf("SyncRunStore.Create: %v", err)
		}
	}

	latest, err := runStore.Latest(ctx)
	if err != nil {
		t.Fatalf("SyncRunStore.Latest: %v", err)
	}
	if got, want := latest.Result.EventsProcessed, 2; got != want {
		t.Fatalf("Latest().Result.EventsProcessed = %d, want %d", got, want)
	}
}

func TestSyncRunStoreList(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	runStore := &SyncRunStore{DB: dbx}
	if err := runStore.Init(ctx); err != nil {
		t.Fatalf("SyncRunStore.Init: %v", err)
	}

	var savedRuns []chqcal.SyncRun

	for i := 0; i < 25; i++ {
		run, err := runStore.Create(ctx, chqcal.SyncRun{
			Result: chqcal.SyncResult{Success: true, EventsProcessed: i},
		})
		if err != nil {
			t.Fatalf("SyncRunStore.Create: %v", err)
		}

		savedRuns = append([]chqcal.SyncRun{run}, savedRuns...)
	}

	runs, err := runStore.List(ctx, chqcal.SyncRunListRequest{})
	if err != nil {
		t.Fatalf("SyncRunStore.List: %v", err)
	}

	expected := savedRuns[:20]
	if diff := deep.Equal(runs, expected); diff != nil {
		t.Fatalf("SyncRunStore.List(): %v", diff)
	}

	second, err := runStore.List(ctx, chqcal.SyncRunListRequest{Page: 1})
	if err != nil {
		t.Fatalf("SyncRunStore.List page 1: %v", err)
	}
	if got, want := len(second), 5; got != want {
		t.Fatalf("page 1 has %d runs, want %d", got, want)
	}
}
