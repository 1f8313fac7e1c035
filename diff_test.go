package chqcal

import (
	"testing"
	"time"

	"github.com/go-test/deep"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 25, 3, 0, 0, 0, time.UTC)

	prev := testEvent()
	next := testEvent()
	next.Title = "Morning Lecture: Rivers, Revisited"
	next.Venue = &Venue{ID: 12, Name: "Hall of Philosophy"}
	next.Cost = "$15"

	got := Diff(&prev, &next, now, SourceTribe)

	want := []Change{
		{
			Timestamp: now,
			Field:     FieldTitle,
			OldValue:  StrValue("Morning Lecture: The Future of Rivers"),
			NewValue:  StrValue("Morning Lecture: Rivers, Revisited"),
			Source:    SourceTribe,
		},
		{
			Timestamp: now,
			Field:     FieldVenue,
			OldValue:  VenueValue(&Venue{ID: 7, Name: "Amphitheater"}),
			NewValue:  VenueValue(&Venue{ID: 12, Name: "Hall of Philosophy"}),
			Source:    SourceTribe,
		},
		{
			Timestamp: now,
			Field:     FieldCost,
			OldValue:  StrValue("Included with gate pass"),
			NewValue:  StrValue("$15"),
			Source:    SourceTribe,
		},
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Fatal(diff)
	}
}

// The change log must come out in the same order no matter how the inputs
// were built, or consecutive syncs would disagree about history.
func TestDiffOrderIsStable(t *testing.T) {
	t.Parallel()

	now := time.Now()

	prev := testEvent()
	next := testEvent()
	next.Cost = "$10"
	next.Title = "Changed"
	next.StartDate = next.StartDate.Add(time.Hour)
	next.EndDate = next.EndDate.Add(time.Hour)

	wantOrder := []Field{FieldTitle, FieldStartDate, FieldEndDate, FieldCost}

	for i := 0; i < 3; i++ {
		var gotOrder []Field
		for _, c := range Diff(&prev, &next, now, SourceTribe) {
			gotOrder = append(gotOrder, c.Field)
		}
		if diff := deep.Equal(gotOrder, wantOrder); diff != nil {
			t.Fatal(diff)
		}
	}
}

func TestDiffIdentical(t *testing.T) {
	t.Parallel()

	prev := testEvent()
	next := testEvent()

	if got := Diff(&prev, &next, time.Now(), SourceTribe); len(got) != 0 {
		t.Fatalf("Diff() of identical events = %v, want none", got)
	}
}

func TestDiffNewEvent(t *testing.T) {
	t.Parallel()

	next := testEvent()
	if got := Diff(nil, &next, time.Now(), SourceTribe); got != nil {
		t.Fatalf("Diff(nil, event) = %v, want nil", got)
	}
}

// Sync bookkeeping churns on every run. If it leaked into the diff, every
// event would log a no-op change each sync.
func TestDiffSkipsBookkeeping(t *testing.T) {
	t.Parallel()

	prev := testEvent()
	next := testEvent()
	next.MissingSyncs = 3
	next.LastModified = time.Now()
	next.UpdatedAt = time.Now()
	next.ChangeLog = []Change{{Field: FieldTitle}}

	if got := Diff(&prev, &next, time.Now(), SourceTribe); len(got) != 0 {
		t.Fatalf("Diff() = %v, want none", got)
	}
}

// Instants that are the same moment in different zones are equal, not
// changed. The feed flips between offset forms routinely.
func TestDiffTimeEqualAcrossZones(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	prev := testEvent()
	next := testEvent()
	next.StartDate = prev.StartDate.In(time.UTC)
	next.EndDate = prev.EndDate.In(loc)

	if got := Diff(&prev, &next, time.Now(), SourceTribe); len(got) != 0 {
		t.Fatalf("Diff() = %v, want none", got)
	}
}
