package normalize

import (
	"fmt"
	"os"
	"sort"
	"strings"

	chqcal "github.com/bbernstein/chq-calendar"
	"gopkg.in/yaml.v3"
)

// A Rule decorates events whose title contains a keyword. Beyond plain tags
// it can attach synthetic taxonomy terms, which is how the recurring program
// slate gets series/discipline/audience classification the feed itself
// doesn't carry.
type Rule struct {
	// Match lists case-insensitive substrings. The rule fires when any of
	// them appears in the event title.
	Match []string `yaml:"match"`

	Tags []string `yaml:"tags,omitempty"`

	Series     string `yaml:"series,omitempty"`
	Discipline string `yaml:"discipline,omitempty"`
	Audience   string `yaml:"audience,omitempty"`
}

func (r Rule) matches(lowerTitle string) bool {
	for _, m := range r.Match {
		if m != "" && strings.Contains(lowerTitle, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// A Tagger runs keyword rules over normalized events. Applying it twice is a
// no-op: everything it adds is deduplicated against what's already there.
type Tagger struct {
	rules []Rule
}

func NewTagger(rules []Rule) *Tagger {
	return &Tagger{rules: rules}
}

// LoadTagger reads rules from a YAML file shaped like:
//
//	rules:
//	  - match: ["morning lecture"]
//	    tags: [lecture]
//	    series: Morning Lecture Series
func LoadTagger(path string) (*Tagger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tag rules %s: %v", path, err)
	}
	return NewTagger(doc.Rules), nil
}

// defaultRules covers the recurring program slate. Sites with their own
// slate override these with a rules file.
var defaultRules = []Rule{
	{
		Match:      []string{"morning lecture"},
		Tags:       []string{"lecture"},
		Series:     "Morning Lecture Series",
		Discipline: "Lectures",
	},
	{
		Match:      []string{"interfaith lecture"},
		Tags:       []string{"lecture", "interfaith"},
		Series:     "Interfaith Lecture Series",
		Discipline: "Religion",
	},
	{
		Match:      []string{"morning worship", "sunday service"},
		Tags:       []string{"worship"},
		Series:     "Morning Worship",
		Discipline: "Religion",
	},
	{
		Match:      []string{"sacred song"},
		Tags:       []string{"worship", "music"},
		Series:     "Sacred Song Service",
		Discipline: "Religion",
	},
	{
		Match:      []string{"symphony orchestra"},
		Tags:       []string{"music", "symphony"},
		Discipline: "Symphony",
	},
	{
		Match:      []string{"opera"},
		Tags:       []string{"music", "opera"},
		Discipline: "Opera",
	},
	{
		Match:      []string{"theater company", "theatre"},
		Tags:       []string{"theater"},
		Discipline: "Theater",
	},
	{
		Match:      []string{"chamber music"},
		Tags:       []string{"music", "chamber-music"},
		Discipline: "Chamber Music",
	},
	{
		Match:      []string{"ballet", "dance"},
		Tags:       []string{"dance"},
		Discipline: "Dance",
	},
	{
		Match:      []string{"visual arts", "gallery"},
		Tags:       []string{"visual-arts"},
		Discipline: "Visual Arts",
	},
	{
		Match:    []string{"children's school", "boys' and girls' club", "youth"},
		Tags:     []string{"youth"},
		Audience: "Families",
	},
	{
		Match: []string{"master class", "masterclass"},
		Tags:  []string{"masterclass"},
	},
}

// DefaultTagger returns a tagger loaded with the built-in rule slate.
func DefaultTagger() *Tagger {
	return NewTagger(defaultRules)
}

// Apply decorates the event in place with the tags and synthetic terms of
// every matching rule.
func (t *Tagger) Apply(e *chqcal.Event) {
	lower := strings.ToLower(e.Title)
	for _, r := range t.rules {
		if !r.matches(lower) {
			continue
		}
		for _, tag := range r.Tags {
			e.Tags = insertTag(e.Tags, tag)
		}
		if r.Series != "" {
			addTerm(e, "series", r.Series)
		}
		if r.Discipline != "" {
			addTerm(e, "discipline", r.Discipline)
		}
		if r.Audience != "" {
			addTerm(e, "audience", r.Audience)
		}
	}
}

// addTerm appends a synthetic taxonomy term unless an equivalent one is
// already attached, and mirrors its slug into the tag list.
func addTerm(e *chqcal.Event, taxonomy, name string) {
	slug := slugify(name)
	for _, c := range e.Categories {
		if c.Taxonomy == taxonomy && c.Slug == slug {
			return
		}
	}
	e.Categories = append(e.Categories, chqcal.Category{
		Name:     name,
		Slug:     slug,
		Taxonomy: taxonomy,
	})
	e.Tags = insertTag(e.Tags, slug)
}

// insertTag keeps the tag list sorted and unique; the differ depends on tag
// order being reproducible.
func insertTag(tags []string, tag string) []string {
	tag = slugify(tag)
	if tag == "" {
		return tags
	}
	i := sort.SearchStrings(tags, tag)
	if i < len(tags) && tags[i] == tag {
		return tags
	}
	tags = append(tags, "")
	copy(tags[i+1:], tags[i:])
	tags[i] = tag
	return tags
}
