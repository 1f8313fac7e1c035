// Package normalize converts raw feed records into canonical events. It is
// the only place feed quirks are allowed to leak: date layout drift, HTML in
// text fields, WordPress taxonomy names, and the several spellings of "not
// set" all stop here.
package normalize

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/errors"
	"github.com/bbernstein/chq-calendar/season"
	"github.com/bbernstein/chq-calendar/tribe"
)

// dateLayouts are the wall-clock forms seen in feed date fields, tried in
// order. The first is what current plugin versions emit.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// A Normalizer turns tribe feed records into canonical events.
type Normalizer struct {
	// Tagger derives extra tags and synthetic taxonomy terms. Nil means
	// DefaultTagger.
	Tagger *Tagger

	// DefaultTimezone is used when a record carries no usable zone.
	// Empty means the season default.
	DefaultTimezone string
}

// Event normalizes one raw feed record. The returned error is always of kind
// Normalization (or Other for programming mistakes); callers log it against
// the record and move on to the next one.
func (n *Normalizer) Event(raw json.RawMessage) (*chqcal.Event, error) {
	const op errors.Op = "normalize.Event"

	var te tribe.Event
	if err := json.Unmarshal(raw, &te); err != nil {
		return nil, errors.E(op, errors.Normalization, err)
	}

	if te.ID == 0 {
		return nil, errors.E(op, errors.Normalization, chqcal.FieldID, errors.Str("record has no id"))
	}

	uid := chqcal.UIDFor(chqcal.SourceTribe, chqcal.EventID(te.ID))

	title := cleanText(te.Title)
	if title == "" {
		return nil, errors.E(op, uid, errors.Normalization, chqcal.FieldTitle, errors.Str("record has no title"))
	}

	loc := n.location(te.Timezone)

	start, err := parseDate(te.StartDate, te.UTCStartDate, loc)
	if err != nil {
		return nil, errors.E(op, uid, errors.Normalization, chqcal.FieldStartDate, err)
	}
	end, err := parseDate(te.EndDate, te.UTCEndDate, loc)
	if err != nil {
		return nil, errors.E(op, uid, errors.Normalization, chqcal.FieldEndDate, err)
	}
	if end.Before(start) {
		return nil, errors.E(op, uid, errors.Normalization, chqcal.FieldEndDate,
			errors.Errorf("event ends %v before it starts", start.Sub(end)))
	}

	event := &chqcal.Event{
		ID:          chqcal.EventID(te.ID),
		UID:         uid,
		Title:       title,
		Description: cleanText(te.Description),
		StartDate:   start,
		EndDate:     end,
		Timezone:    loc.String(),
		Cost:        strings.TrimSpace(te.Cost),
		URL:         te.URL,
		Status:      normalizeStatus(te.Status),
		Featured:    te.Featured,
		Source:      chqcal.SourceTribe,
		SyncStatus:  chqcal.SyncSynced,
	}
	if event.URL == "" {
		event.URL = te.Website
	}

	if te.Venue.Venue != "" {
		event.Venue = &chqcal.Venue{
			ID:      te.Venue.ID,
			Name:    cleanText(te.Venue.Venue),
			Address: venueAddress(te.Venue),
			ShowMap: te.Venue.ShowMap,
		}
		event.Location = event.Venue.Name
	}

	if te.Image.URL != "" {
		event.Image = normalizeImage(te.Image)
	}

	event.Categories = normalizeTerms(te.Categories)
	for _, o := range te.Organizers {
		if o.Organizer == "" {
			continue
		}
		event.Categories = append(event.Categories, chqcal.Category{
			ID:       o.ID,
			Name:     cleanText(o.Organizer),
			Slug:     slugOr(o.Slug, o.Organizer),
			Taxonomy: "presenter",
		})
	}

	event.Tags = collectTags(te, event.Categories)

	tagger := n.Tagger
	if tagger == nil {
		tagger = DefaultTagger()
	}
	tagger.Apply(event)

	event.Category = primaryCategory(event.Categories)
	event.DayOfWeek = start.In(loc).Weekday()
	event.Week = season.For(start.In(loc).Year(), loc).WeekOf(start)
	event.Confidence = classify(te, title)

	return event, nil
}

func (n *Normalizer) location(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if n.DefaultTimezone != "" {
		if loc, err := time.LoadLocation(n.DefaultTimezone); err == nil {
			return loc
		}
	}
	return season.DefaultLocation()
}

// parseDate turns a feed date pair into an instant. The wall-clock field is
// authoritative; the UTC twin is the fallback for records that omit it. The
// result is rehomed into loc either way so downstream wall-clock logic
// (day-of-week, time-of-day buckets) sees grounds time.
func parseDate(wall, utc string, loc *time.Location) (time.Time, error) {
	if wall != "" {
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, wall, loc); err == nil {
				return t, nil
			}
		}
	}
	if utc != "" {
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, utc, time.UTC); err == nil {
				return t.In(loc), nil
			}
		}
	}
	if wall == "" && utc == "" {
		return time.Time{}, errors.Str("record has no date")
	}
	return time.Time{}, errors.Errorf("unparseable date %q", wall)
}

func normalizeStatus(s string) chqcal.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "publish", "published":
		return chqcal.StatusPublished
	case "draft", "pending":
		return chqcal.StatusDraft
	case "private":
		return chqcal.StatusPrivate
	}
	return chqcal.Status(strings.ToLower(s))
}

// taxonomyNames maps WordPress taxonomy identifiers to the canonical ones.
// Unknown taxonomies pass through with the tribe_ prefix stripped, which is
// how site-specific taxonomies like discipline arrive.
var taxonomyNames = map[string]string{
	"tribe_events_cat": "category",
	"post_tag":         "tag",
}

func normalizeTerms(terms []tribe.Term) []chqcal.Category {
	var cats []chqcal.Category
	for _, t := range terms {
		tax := taxonomyNames[t.Taxonomy]
		if tax == "" {
			tax = strings.TrimPrefix(t.Taxonomy, "tribe_")
		}
		if tax == "tag" {
			continue // tags are flattened into Event.Tags
		}
		cats = append(cats, chqcal.Category{
			ID:       t.ID,
			Name:     cleanText(t.Name),
			Slug:     slugOr(t.Slug, t.Name),
			Taxonomy: tax,
			Parent:   t.Parent,
		})
	}
	return cats
}

// collectTags flattens post tags and every term slug into one deduplicated,
// sorted list. Sorting isn't cosmetic: the tag list feeds the field differ,
// so its order has to be reproducible.
func collectTags(te tribe.Event, cats []chqcal.Category) []string {
	seen := map[string]bool{}
	for _, t := range te.Tags {
		if slug := slugOr(t.Slug, t.Name); slug != "" {
			seen[slug] = true
		}
	}
	for _, c := range cats {
		if c.Slug != "" {
			seen[c.Slug] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// primaryCategory picks the legacy single-category value: the first term of
// the category taxonomy, or General when the record has none.
func primaryCategory(cats []chqcal.Category) string {
	for _, c := range cats {
		if c.Taxonomy == "category" && c.Name != "" {
			return c.Name
		}
	}
	return "General"
}

func normalizeImage(im tribe.Image) *chqcal.Image {
	out := &chqcal.Image{
		URL:    im.URL,
		Width:  im.Width,
		Height: im.Height,
	}
	if len(im.Sizes) > 0 {
		out.Sizes = make(map[string]chqcal.ImageSize, len(im.Sizes))
		for name, s := range im.Sizes {
			out.Sizes[name] = chqcal.ImageSize{URL: s.URL, Width: s.Width, Height: s.Height}
		}
	}
	return out
}

func venueAddress(v tribe.Venue) string {
	var parts []string
	for _, p := range []string{v.Address, v.City, v.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// classify grades how settled a record's data is. The grading is heuristic
// and errs toward confirmed: a wrong "tentative" hides a real event from
// people filtering on confidence.
func classify(te tribe.Event, title string) chqcal.Confidence {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "placeholder"):
		return chqcal.ConfidencePlaceholder
	case tbaTitle(lower):
		return chqcal.ConfidenceTBA
	}
	switch strings.ToLower(te.Status) {
	case "draft", "pending":
		return chqcal.ConfidenceTentative
	}
	return chqcal.ConfidenceConfirmed
}

// tbaTitle spots announced-later stand-in titles.
func tbaTitle(lower string) bool {
	for _, marker := range []string{"tba", "tbd", "to be announced", "to be determined"} {
		if lower == marker {
			return true
		}
		for _, affix := range []string{": ", " - ", " — "} {
			if strings.HasSuffix(lower, affix+marker) {
				return true
			}
		}
	}
	return false
}
