package tribe

import (
	"bytes"
	"encoding/json"
)

// Event is one raw record from the events feed. Optional members arrive
// unevenly depending on plugin version: an absent image is the JSON literal
// false, an absent venue is an empty array, organizers may be an object or a
// list. The odd-shaped ones get custom unmarshalling so one site's quirks
// don't break decoding.
type Event struct {
	ID       int64  `json:"id"`
	GlobalID string `json:"global_id"`
	Status   string `json:"status"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Excerpt     string `json:"excerpt"`

	URL     string `json:"url"`
	RestURL string `json:"rest_url"`

	// StartDate and EndDate are wall-clock strings in the event's own
	// timezone; the UTC pair is the same instants rehomed. Several layouts
	// appear in the wild, so parsing lives in normalize.
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	UTCStartDate string `json:"utc_start_date"`
	UTCEndDate   string `json:"utc_end_date"`
	Timezone     string `json:"timezone"`
	TimezoneAbbr string `json:"timezone_abbr"`
	AllDay       bool   `json:"all_day"`

	Cost     string `json:"cost"`
	Website  string `json:"website"`
	Featured bool   `json:"featured"`

	Image      Image       `json:"image"`
	Venue      Venue       `json:"venue"`
	Organizers []Organizer `json:"organizer"`

	Categories []Term `json:"categories"`
	Tags       []Term `json:"tags"`
}

// Term is one taxonomy term attached to an event.
type Term struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Taxonomy string `json:"taxonomy"`
	Parent   int64  `json:"parent"`
}

// Venue is the feed's venue record. The name lives in the Venue member, a
// WordPress-ism the canonical model doesn't repeat.
type Venue struct {
	ID      int64  `json:"id"`
	Venue   string `json:"venue"`
	Slug    string `json:"slug"`
	Address string `json:"address"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	ShowMap bool   `json:"show_map"`
}

// UnmarshalJSON tolerates the feed's empty forms: null, false, [] and {}.
func (v *Venue) UnmarshalJSON(data []byte) error {
	if isEmptyValue(data) {
		*v = Venue{}
		return nil
	}
	type plain Venue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = Venue(p)
	return nil
}

// Organizer is one entry of the feed's organizer list.
type Organizer struct {
	ID        int64  `json:"id"`
	Organizer string `json:"organizer"`
	Slug      string `json:"slug"`
}

// Image is the feed's cover image record.
type Image struct {
	URL    string               `json:"url"`
	Width  int                  `json:"width"`
	Height int                  `json:"height"`
	Sizes  map[string]ImageSize `json:"sizes"`
}

// ImageSize is one resized variant in an Image's size map.
type ImageSize struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// UnmarshalJSON tolerates `"image": false`, which is how the feed spells "no
// image".
func (im *Image) UnmarshalJSON(data []byte) error {
	if isEmptyValue(data) {
		*im = Image{}
		return nil
	}
	type plain Image
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*im = Image(p)
	return nil
}

// isEmptyValue reports whether data is one of the feed's spellings of "not
// set".
func isEmptyValue(data []byte) bool {
	switch string(bytes.TrimSpace(data)) {
	case "null", "false", "[]", "{}", `""`:
		return true
	}
	return false
}
