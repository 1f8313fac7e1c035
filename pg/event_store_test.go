package pg

import (
	"context"
	"testing"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/pg/pgtest"

	"github.com/go-test/deep"
)

func storedEvent(id int64, title string, start time.Time, dur time.Duration) chqcal.Event {
	return chqcal.Event{
		ID:         chqcal.EventID(id),
		UID:        chqcal.UIDFor(chqcal.SourceTribe, chqcal.EventID(id)),
		Title:      title,
		StartDate:  start,
		EndDate:    start.Add(dur),
		Timezone:   "America/New_York",
		Category:   "Lecture",
		Status:     chqcal.StatusPublished,
		Confidence: chqcal.ConfidenceConfirmed,
		SyncStatus: chqcal.SyncSynced,
		Source:     chqcal.SourceTribe,
	}
}

func TestEventSave(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	eventStore := &EventStore{DB: dbx}
	if err := eventStore.Init(ctx); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 7, 1, 10, 45, 0, 0, getTZ("America/New_York"))
	event := storedEvent(10289, "Morning Lecture", start, 75*time.Minute)
	event.Venue = &chqcal.Venue{ID: 7, Name: "Amphitheater", ShowMap: true}
	event.Tags = []string{"lecture", "morning-lecture-series"}
	event.Categories = []chqcal.Category{
		{ID: 3, Name: "Lecture", Slug: "lecture", Taxonomy: "category"},
	}

	saved, err := eventStore.Save(ctx, event)
	if err != nil {
		t.Fatalf("save event: %v", err)
	}
	if diff := deep.Equal(saved, event); diff != nil {
		t.Fatal(diff)
	}

	// The stored timestamps must come back in the event's own zone, not
	// the connection's.
	_, wantOffset := event.StartDate.Zone()
	_, gotOffset := saved.StartDate.Zone()
	if wantOffset != gotOffset {
		t.Fatalf("startDate offset = %d, want %d", gotOffset, wantOffset)
	}

	// Saving again with changes must update in place, not duplicate.
	event.Title = "Morning Lecture, Retitled"
	event.SyncStatus = chqcal.SyncOutdated
	updated, err := eventStore.Save(ctx, event)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if got, want := updated.Title, event.Title; got != want {
		t.Fatalf("after update: title = %q, want %q", got, want)
	}

	all, err := eventStore.Search(ctx, chqcal.EventSearchRequest{IncludeOutdated: true})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(all), 1; got != want {
		t.Fatalf("after update: %d rows, want %d", got, want)
	}
}

func TestEventSaveNoUID(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	eventStore := &EventStore{DB: dbx}
	if err := eventStore.Init(ctx); err != nil {
		t.Fatal(err)
	}

	event := storedEvent(1, "No ID", time.Now(), time.Hour)
	event.UID = ""

	_, err := eventStore.Save(ctx, event)
	if !errors.Is(errors.Invalid, err) {
		t.Fatalf("Save() without uid: err = %v, want Invalid", err)
	}
}

func TestEventGet(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	eventStore := &EventStore{DB: dbx}
	if err := eventStore.Init(ctx); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 7, 1, 10, 45, 0, 0, getTZ("America/New_York"))
	saved, err := eventStore.Save(ctx, storedEvent(10289, "Morning Lecture", start, time.Hour))
	if err != nil {
		t.Fatalf("save event: %v", err)
	}

	for _, test := range []struct {
		UID       chqcal.EventUID
		WantEvent chqcal.Event
		WantErr   error
	}{
		{
			UID:     "nonexistent@chqcalendar.org",
			WantErr: errors.E(errors.NotExist),
		},
		{
			UID:       saved.UID,
			WantEvent: saved,
			WantErr:   nil,
		},
	} {
		event, err := eventStore.GetByUID(ctx, test.UID)
		if test.WantErr == nil {
			if got, want := err, test.WantErr; got != want {
				t.Fatalf("get event: err=%v, want %v", got, want)
			}
		} else if got, want := err, test.WantErr; !errors.Match(got, want) {
			t.Fatalf("get event: err=%v, want %v", got, want)
		}

		if diff := deep.Equal(event, test.WantEvent); diff != nil {
			t.Fatalf("get event: %v", diff)
		}
	}
}

func TestEventSearch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ny := getTZ("America/New_York")
	day := func(d, hour int) time.Time {
		return time.Date(2025, 7, d, hour, 0, 0, 0, ny)
	}

	for _, test := range []struct {
		Name     string
		Events   []chqcal.Event
		Search   chqcal.EventSearchRequest
		WantUIDs []int64
	}{
		{
			Name:   "inside window",
			Events: []chqcal.Event{storedEvent(1, "a", day(1, 10), time.Hour)},
			Search: chqcal.EventSearchRequest{
				Start: day(1, 0),
				End:   day(2, 0),
			},
			WantUIDs: []int64{1},
		},
		{
			Name:   "ends before window",
			Events: []chqcal.Event{storedEvent(1, "a", day(1, 10), time.Hour)},
			Search: chqcal.EventSearchRequest{
				Start: day(2, 0),
				End:   day(3, 0),
			},
			WantUIDs: nil,
		},
		{
			Name:   "starts after window",
			Events: []chqcal.Event{storedEvent(1, "a", day(5, 10), time.Hour)},
			Search: chqcal.EventSearchRequest{
				Start: day(1, 0),
				End:   day(2, 0),
			},
			WantUIDs: nil,
		},
		{
			Name:   "straddles window start",
			Events: []chqcal.Event{storedEvent(1, "a", day(1, 10), 4*time.Hour)},
			Search: chqcal.EventSearchRequest{
				Start: day(1, 12),
				End:   day(1, 13),
			},
			WantUIDs: []int64{1},
		},
		{
			Name:     "open bounds return everything",
			Events:   []chqcal.Event{storedEvent(1, "a", day(1, 10), time.Hour)},
			Search:   chqcal.EventSearchRequest{},
			WantUIDs: []int64{1},
		},
		{
			Name: "ordered by start time",
			Events: []chqcal.Event{
				storedEvent(2, "later", day(2, 10), time.Hour),
				storedEvent(1, "earlier", day(1, 10), time.Hour),
			},
			Search:   chqcal.EventSearchRequest{},
			WantUIDs: []int64{1, 2},
		},
	} {
		dbx := pgtest.NewDB(t)
		store := &EventStore{DB: dbx}
		if err := store.Init(ctx); err != nil {
			t.Fatal(err)
		}

		for _, e := range test.Events {
			if _, err := store.Save(ctx, e); err != nil {
				t.Fatalf("event save: %v", err)
			}
		}

		res, err := store.Search(ctx, test.Search)
		if err != nil {
			t.Fatalf("event search: %v", err)
		}
		var ids []int64
		for _, e := range res {
			ids = append(ids, int64(e.ID))
		}

		if diff := deep.Equal(ids, test.WantUIDs); diff != nil {
			t.Fatalf("search (%v): %v", test.Name, diff)
		}
	}
}

func TestEventSearchOutdated(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	store := &EventStore{DB: dbx}
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 7, 1, 10, 0, 0, 0, getTZ("America/New_York"))

	kept := storedEvent(1, "kept", start, time.Hour)
	gone := storedEvent(2, "gone", start.Add(2*time.Hour), time.Hour)
	gone.SyncStatus = chqcal.SyncOutdated

	for _, e := range []chqcal.Event{kept, gone} {
		if _, err := store.Save(ctx, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	res, err := store.Search(ctx, chqcal.EventSearchRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(res), 1; got != want {
		t.Fatalf("default search returned %d events, want %d", got, want)
	}
	if got, want := res[0].ID, kept.ID; got != want {
		t.Fatalf("default search returned event %d, want %d", got, want)
	}

	res, err = store.Search(ctx, chqcal.EventSearchRequest{IncludeOutdated: true})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(res), 2; got != want {
		t.Fatalf("IncludeOutdated search returned %d events, want %d", got, want)
	}
}

func TestEventInWindow(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	store := &EventStore{DB: dbx}
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}

	ny := getTZ("America/New_York")
	start := time.Date(2025, 7, 1, 10, 0, 0, 0, ny)

	tribeEvent := storedEvent(1, "from feed", start, time.Hour)

	outdated := storedEvent(2, "soft deleted", start.Add(time.Hour), time.Hour)
	outdated.SyncStatus = chqcal.SyncOutdated

	manual := storedEvent(3, "hand entered", start.Add(2*time.Hour), time.Hour)
	manual.Source = chqcal.SourceManual
	manual.UID = chqcal.UIDFor(chqcal.SourceManual, 3)

	for _, e := range []chqcal.Event{tribeEvent, outdated, manual} {
		if _, err := store.Save(ctx, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := store.InWindow(ctx, chqcal.SourceTribe,
		time.Date(2025, 7, 1, 0, 0, 0, 0, ny),
		time.Date(2025, 7, 2, 0, 0, 0, 0, ny))
	if err != nil {
		t.Fatal(err)
	}

	// The reconciler needs outdated events (they may come back) but must
	// not see other sources' events.
	var ids []int64
	for _, e := range got {
		ids = append(ids, int64(e.ID))
	}
	if diff := deep.Equal(ids, []int64{1, 2}); diff != nil {
		t.Fatal(diff)
	}
}

func TestLockWindow(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbx := pgtest.NewDB(t)
	store := &EventStore{DB: dbx}
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 24, 0, 0, 0, 0, time.UTC)

	release, ok, err := store.LockWindow(ctx, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("first LockWindow() = false, want true")
	}

	// Same range: must lose.
	_, ok, err = store.LockWindow(ctx, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("concurrent LockWindow() on the same range = true, want false")
	}

	// Different range: independent lock.
	release2, ok, err := store.LockWindow(ctx, start, end.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("LockWindow() on a different range = false, want true")
	}
	release2()

	release()

	// Released: can lock again.
	release3, ok, err := store.LockWindow(ctx, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("LockWindow() after release = false, want true")
	}
	release3()
}

func getTZ(location string) *time.Location {
	l, err := time.LoadLocation(location)
	if err != nil {
		panic(err)
	}
	return l
}
