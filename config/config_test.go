package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/bbernstein/chq-calendar/errors"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	doc := `
port: 9090
environment: production
corsOrigins:
  - https://www.chqcalendar.org
feed:
  baseUrl: https://example.org/wp-json/tribe/events/v1
  timeout: 90s
  timezone: America/New_York
  tagRules: /etc/chq/tags.yaml
sync:
  schedule: "0 */6 * * *"
  perPage: 50
  deleteAfterMisses: 2
ics:
  feedUrl: https://api.chqcalendar.org/calendar/feed.ics
`
	path := writeConfig(t, doc)

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := Config{
		Port:        9090,
		Environment: "production",
		CORSOrigins: []string{"https://www.chqcalendar.org"},
		Feed: FeedConfig{
			BaseURL:  "https://example.org/wp-json/tribe/events/v1",
			Timeout:  Duration(90 * time.Second),
			Timezone: "America/New_York",
			TagRules: "/etc/chq/tags.yaml",
		},
		Sync: SyncConfig{
			Schedule:          "0 */6 * * *",
			PerPage:           50,
			DeleteAfterMisses: 2,
		},
		ICS: ICSConfig{
			FeedURL: "https://api.chqcalendar.org/calendar/feed.ics",
		},
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Fatal(diff)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	got, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, Default()); diff != nil {
		t.Fatal(diff)
	}
}

func TestLoadPartial(t *testing.T) {
	t.Parallel()

	got, err := Load(writeConfig(t, "port: 3000\n"))
	if err != nil {
		t.Fatal(err)
	}

	if got.Port != 3000 {
		t.Errorf("Port = %d, want 3000", got.Port)
	}
	// Everything else keeps its default.
	if got, want := got.Feed.Timeout.Std(), 30*time.Second; got != want {
		t.Errorf("Feed.Timeout = %v, want %v", got, want)
	}
	if got, want := got.Environment, "development"; got != want {
		t.Errorf("Environment = %q, want %q", got, want)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		Name string
		Doc  string
	}{
		{Name: "bad environment", Doc: "environment: staging\n"},
		{Name: "bad port", Doc: "port: 700000\n"},
		{Name: "bad timezone", Doc: "feed:\n  timezone: Mars/Olympus\n"},
		{Name: "bad timeout", Doc: "feed:\n  timeout: ninety\n"},
		{Name: "not yaml", Doc: "{{{\n"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, test.Doc))
			if !errors.Match(errors.E(errors.Invalid), err) {
				t.Fatalf("got %v, want Invalid", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func writeConfig(t *testing.T, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
