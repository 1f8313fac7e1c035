// package main provides a utility for rendering the upstream feed as an ICS
// file, without a database or a server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/calendar"
	"github.com/bbernstein/chq-calendar/normalize"
	"github.com/bbernstein/chq-calendar/season"
	"github.com/bbernstein/chq-calendar/tribe"
)

func main() {
	var (
		feedURL  = flag.String("feed-url", "", "base URL of a tribe events API, overriding the institution's feed")
		tz       = flag.String("tz", "", "render event times in this zone instead of their own")
		startStr = flag.String("start", "", "start of the window (YYYY-MM-DD), defaults to the season start")
		endStr   = flag.String("end", "", "end of the window (YYYY-MM-DD), defaults to the season end")
		perPage  = flag.Int("per-page", chqcal.DefaultPerPage, "feed page size")
		tagRules = flag.String("tag-rules", "", "path to a YAML keyword tag rules file")
		out      = flag.String("o", "", "write the calendar here instead of stdout")
	)
	flag.Parse()

	ctx := context.Background()

	loc := season.DefaultLocation()
	ssn := season.Current(time.Now(), loc)
	start, end := ssn.Start, ssn.End

	var err error
	if *startStr != "" {
		start, err = time.ParseInLocation("2006-01-02", *startStr, loc)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *endStr != "" {
		end, err = time.ParseInLocation("2006-01-02", *endStr, loc)
		if err != nil {
			log.Fatal(err)
		}
	}

	var tagger *normalize.Tagger
	if *tagRules != "" {
		tagger, err = normalize.LoadTagger(*tagRules)
		if err != nil {
			log.Fatal(err)
		}
	}

	feed := &tribe.Client{
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		BaseURL: *feedURL,
	}
	norm := &normalize.Normalizer{Tagger: tagger}

	var events []chqcal.Event
	next := ""
	for page := 1; ; page++ {
		var resp *tribe.EventsResponse
		if next == "" {
			resp, err = feed.Events(ctx, tribe.EventsRequest{
				Start:   start,
				End:     end,
				Page:    page,
				PerPage: *perPage,
			})
		} else {
			resp, err = feed.EventsPage(ctx, next)
		}
		if tribe.IsPastEnd(err) {
			break
		}
		if err != nil {
			log.Fatal(err)
		}

		for _, raw := range resp.Events {
			event, err := norm.Event(raw)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			events = append(events, *event)
		}

		if resp.NextRestURL == "" || page >= resp.TotalPages {
			break
		}
		next = resp.NextRestURL
	}

	ics, err := calendar.ICS(events, *tz)
	if err != nil {
		log.Fatal(err)
	}

	if *out == "" {
		fmt.Print(ics)
		return
	}
	if err := os.WriteFile(*out, []byte(ics), 0o644); err != nil {
		log.Fatal(err)
	}
}
