package chqcal

import (
	"reflect"
	"time"
)

// Field names one diffable Event field. The values double as the JSON keys
// used in change log entries.
type Field string

const (
	FieldID          Field = "id"
	FieldUID         Field = "uid"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldStartDate   Field = "startDate"
	FieldEndDate     Field = "endDate"
	FieldTimezone    Field = "timezone"
	FieldVenue       Field = "venue"
	FieldLocation    Field = "location"
	FieldCategories  Field = "categories"
	FieldCategory    Field = "category"
	FieldTags        Field = "tags"
	FieldCost        Field = "cost"
	FieldURL         Field = "url"
	FieldImage       Field = "image"
	FieldStatus      Field = "status"
	FieldFeatured    Field = "featured"
	FieldDayOfWeek   Field = "dayOfWeek"
	FieldWeek        Field = "week"
	FieldConfidence  Field = "confidence"
	FieldSyncStatus  Field = "syncStatus"
	FieldSource      Field = "source"
	FieldCreatedAt   Field = "createdAt"
)

// Value carries one side (old or new) of a changed field. Exactly one member
// is set, chosen by the field's shape. The one-of keeps change log entries
// typed instead of flattening everything to strings.
type Value struct {
	Str        *string    `json:"str,omitempty"`
	Int        *int64     `json:"int,omitempty"`
	Bool       *bool      `json:"bool,omitempty"`
	Time       *time.Time `json:"time,omitempty"`
	Venue      *Venue     `json:"venue,omitempty"`
	Image      *Image     `json:"image,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Strs       []string   `json:"strs,omitempty"`
}

func StrValue(s string) Value        { return Value{Str: &s} }
func IntValue(i int64) Value         { return Value{Int: &i} }
func BoolValue(b bool) Value         { return Value{Bool: &b} }
func TimeValue(t time.Time) Value    { return Value{Time: &t} }
func VenueValue(v *Venue) Value      { return Value{Venue: v} }
func ImageValue(im *Image) Value     { return Value{Image: im} }
func CatsValue(cs []Category) Value  { return Value{Categories: cs} }
func StrsValue(ss []string) Value    { return Value{Strs: ss} }

// Change is one entry in an event's change log: which field moved, from what
// to what, when, and which source reported it.
type Change struct {
	Timestamp time.Time `json:"timestamp"`
	Field     Field     `json:"field"`
	OldValue  Value     `json:"oldValue"`
	NewValue  Value     `json:"newValue"`
	Source    Source    `json:"source"`
}

// fieldDiffs drives Diff. The table order is the order changes are emitted
// in, so two runs over the same pair of events always produce the same log.
// MissingSyncs, ChangeLog and the bookkeeping timestamps are deliberately
// absent: they churn every sync and would drown the signal.
var fieldDiffs = []struct {
	field Field
	equal func(a, b *Event) bool
	value func(e *Event) Value
}{
	{FieldID,
		func(a, b *Event) bool { return a.ID == b.ID },
		func(e *Event) Value { return IntValue(int64(e.ID)) }},
	{FieldUID,
		func(a, b *Event) bool { return a.UID == b.UID },
		func(e *Event) Value { return StrValue(string(e.UID)) }},
	{FieldTitle,
		func(a, b *Event) bool { return a.Title == b.Title },
		func(e *Event) Value { return StrValue(e.Title) }},
	{FieldDescription,
		func(a, b *Event) bool { return a.Description == b.Description },
		func(e *Event) Value { return StrValue(e.Description) }},
	{FieldStartDate,
		func(a, b *Event) bool { return a.StartDate.Equal(b.StartDate) },
		func(e *Event) Value { return TimeValue(e.StartDate) }},
	{FieldEndDate,
		func(a, b *Event) bool { return a.EndDate.Equal(b.EndDate) },
		func(e *Event) Value { return TimeValue(e.EndDate) }},
	{FieldTimezone,
		func(a, b *Event) bool { return a.Timezone == b.Timezone },
		func(e *Event) Value { return StrValue(e.Timezone) }},
	{FieldVenue,
		func(a, b *Event) bool { return venueEqual(a.Venue, b.Venue) },
		func(e *Event) Value { return VenueValue(e.Venue) }},
	{FieldLocation,
		func(a, b *Event) bool { return a.Location == b.Location },
		func(e *Event) Value { return StrValue(e.Location) }},
	{FieldCategories,
		func(a, b *Event) bool { return categoriesEqual(a.Categories, b.Categories) },
		func(e *Event) Value { return CatsValue(e.Categories) }},
	{FieldCategory,
		func(a, b *Event) bool { return a.Category == b.Category },
		func(e *Event) Value { return StrValue(e.Category) }},
	{FieldTags,
		func(a, b *Event) bool { return strsEqual(a.Tags, b.Tags) },
		func(e *Event) Value { return StrsValue(e.Tags) }},
	{FieldCost,
		func(a, b *Event) bool { return a.Cost == b.Cost },
		func(e *Event) Value { return StrValue(e.Cost) }},
	{FieldURL,
		func(a, b *Event) bool { return a.URL == b.URL },
		func(e *Event) Value { return StrValue(e.URL) }},
	{FieldImage,
		func(a, b *Event) bool { return imageEqual(a.Image, b.Image) },
		func(e *Event) Value { return ImageValue(e.Image) }},
	{FieldStatus,
		func(a, b *Event) bool { return a.Status == b.Status },
		func(e *Event) Value { return StrValue(string(e.Status)) }},
	{FieldFeatured,
		func(a, b *Event) bool { return a.Featured == b.Featured },
		func(e *Event) Value { return BoolValue(e.Featured) }},
	{FieldDayOfWeek,
		func(a, b *Event) bool { return a.DayOfWeek == b.DayOfWeek },
		func(e *Event) Value { return IntValue(int64(e.DayOfWeek)) }},
	{FieldWeek,
		func(a, b *Event) bool { return a.Week == b.Week },
		func(e *Event) Value { return IntValue(int64(e.Week)) }},
	{FieldConfidence,
		func(a, b *Event) bool { return a.Confidence == b.Confidence },
		func(e *Event) Value { return StrValue(string(e.Confidence)) }},
	{FieldSyncStatus,
		func(a, b *Event) bool { return a.SyncStatus == b.SyncStatus },
		func(e *Event) Value { return StrValue(string(e.SyncStatus)) }},
	{FieldSource,
		func(a, b *Event) bool { return a.Source == b.Source },
		func(e *Event) Value { return StrValue(string(e.Source)) }},
	{FieldCreatedAt,
		func(a, b *Event) bool { return a.CreatedAt.Equal(b.CreatedAt) },
		func(e *Event) Value { return TimeValue(e.CreatedAt) }},
}

// Diff compares two versions of an event field by field and returns one
// Change per difference, stamped with now and src. A nil prev means the event
// is new, which is a creation rather than a change, so the result is empty.
func Diff(prev, next *Event, now time.Time, src Source) []Change {
	if prev == nil || next == nil {
		return nil
	}
	var changes []Change
	for _, fd := range fieldDiffs {
		if fd.equal(prev, next) {
			continue
		}
		changes = append(changes, Change{
			Timestamp: now,
			Field:     fd.field,
			OldValue:  fd.value(prev),
			NewValue:  fd.value(next),
			Source:    src,
		})
	}
	return changes
}

func venueEqual(a, b *Venue) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// imageEqual falls back to reflect because of the Sizes map.
func imageEqual(a, b *Image) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(*a, *b)
}

func categoriesEqual(a, b []Category) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
