package normalize

import (
	"os"
	"path/filepath"
	"testing"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/go-test/deep"
)

func TestTaggerApply(t *testing.T) {
	t.Parallel()

	tagger := NewTagger([]Rule{
		{
			Match:      []string{"symphony orchestra"},
			Tags:       []string{"music"},
			Series:     "CSO Season",
			Discipline: "Symphony",
		},
	})

	event := chqcal.Event{Title: "Chautauqua Symphony Orchestra: Beethoven's Fifth"}
	tagger.Apply(&event)

	wantTags := []string{"cso-season", "music", "symphony"}
	if diff := deep.Equal(event.Tags, wantTags); diff != nil {
		t.Error(diff)
	}

	wantCats := []chqcal.Category{
		{Name: "CSO Season", Slug: "cso-season", Taxonomy: "series"},
		{Name: "Symphony", Slug: "symphony", Taxonomy: "discipline"},
	}
	if diff := deep.Equal(event.Categories, wantCats); diff != nil {
		t.Error(diff)
	}

	// Applying again must change nothing.
	before := event
	tagger.Apply(&event)
	if diff := deep.Equal(event, before); diff != nil {
		t.Error("second Apply changed the event:", diff)
	}
}

func TestTaggerNoMatch(t *testing.T) {
	t.Parallel()

	tagger := NewTagger([]Rule{
		{Match: []string{"opera"}, Tags: []string{"opera"}},
	})

	event := chqcal.Event{Title: "Porch Discussion"}
	tagger.Apply(&event)

	if len(event.Tags) != 0 || len(event.Categories) != 0 {
		t.Errorf("tagger decorated a non-matching event: tags=%v cats=%v",
			event.Tags, event.Categories)
	}
}

func TestTaggerKeepsTagsSorted(t *testing.T) {
	t.Parallel()

	tagger := NewTagger([]Rule{
		{Match: []string{"concert"}, Tags: []string{"zydeco", "acoustic", "music"}},
	})

	event := chqcal.Event{
		Title: "Evening Concert",
		Tags:  []string{"amphitheater", "evening"},
	}
	tagger.Apply(&event)

	want := []string{"acoustic", "amphitheater", "evening", "music", "zydeco"}
	if diff := deep.Equal(event.Tags, want); diff != nil {
		t.Error(diff)
	}
}

func TestLoadTagger(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tags.yaml")
	doc := `rules:
  - match: ["morning lecture"]
    tags: [lecture]
    series: Morning Lecture Series
  - match: ["cinema"]
    tags: [film]
    discipline: Film
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	tagger, err := LoadTagger(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(tagger.rules), 2; got != want {
		t.Fatalf("loaded %d rules, want %d", got, want)
	}

	event := chqcal.Event{Title: "Chautauqua Cinema: Night Screening"}
	tagger.Apply(&event)

	if diff := deep.Equal(event.Tags, []string{"film"}); diff != nil {
		t.Error(diff)
	}
}

func TestLoadTaggerBadFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadTagger(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadTagger() on a missing file succeeded, want error")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("rules: [:::"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTagger(path); err == nil {
		t.Error("LoadTagger() on broken YAML succeeded, want error")
	}
}
