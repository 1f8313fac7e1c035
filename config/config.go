// Package config loads service configuration from a YAML file. Every field
// has a sensible default; a missing file is not an error, so deployments that
// configure everything through flags and environment variables can skip the
// file entirely.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bbernstein/chq-calendar/errors"
)

var validate = validator.New()

// Config is the top-level service configuration.
type Config struct {
	// Port is where the REST API listens for connections.
	Port int `yaml:"port" validate:"min=0,max=65535"`

	// DatabaseURL is a PostgreSQL connection URL. Deployments usually set
	// this through the DB environment variable instead of the file.
	DatabaseURL string `yaml:"databaseUrl"`

	// Environment controls log verbosity.
	Environment string `yaml:"environment" validate:"omitempty,oneof=development production"`

	// CORSOrigins lists request origins where CORS requests are allowed.
	CORSOrigins []string `yaml:"corsOrigins"`

	Feed FeedConfig `yaml:"feed"`
	Sync SyncConfig `yaml:"sync"`
	ICS  ICSConfig  `yaml:"ics"`
}

// FeedConfig points the sync pipeline at an upstream events feed.
type FeedConfig struct {
	// BaseURL is a site's tribe/events/v1 mount. Empty uses the
	// institution's public feed.
	BaseURL string `yaml:"baseUrl" validate:"omitempty,url"`

	// Timeout bounds each feed page fetch.
	Timeout Duration `yaml:"timeout"`

	// Timezone applies to records that carry no usable zone of their own,
	// and anchors season defaulting. Empty means the grounds' zone.
	Timezone string `yaml:"timezone" validate:"omitempty,timezone"`

	// TagRules is the path of a YAML keyword-rules file for the tagger.
	// Empty uses the built-in rules.
	TagRules string `yaml:"tagRules"`
}

// SyncConfig tunes sync runs. Zero values fall through to the service
// defaults.
type SyncConfig struct {
	// Schedule is a cron expression for the sync daemon. Empty disables
	// scheduled syncs.
	Schedule string `yaml:"schedule"`

	PerPage  int `yaml:"perPage" validate:"min=0,max=100"`
	MaxPages int `yaml:"maxPages" validate:"min=0"`

	// DeleteAfterMisses is how many consecutive syncs an event must be
	// missing from the feed before it is marked outdated.
	DeleteAfterMisses int `yaml:"deleteAfterMisses" validate:"min=0"`
}

// ICSConfig configures the subscribable calendar feed.
type ICSConfig struct {
	// FeedURL is the public URL of the ICS feed, advertised as the
	// subscription link in export responses.
	FeedURL string `yaml:"feedUrl" validate:"omitempty,url"`
}

// Default returns the configuration used when no file and no flags are
// given.
func Default() Config {
	return Config{
		Port:        8080,
		Environment: "development",
		Feed: FeedConfig{
			Timeout: Duration(30 * time.Second),
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	const op errors.Op = "config.Load"

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.E(op, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.E(op, errors.Invalid, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return cfg, errors.E(op, errors.Invalid, err)
	}
	return cfg, nil
}

// A Duration is a time.Duration that unmarshals from a YAML string like
// "90s" or "5m".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
