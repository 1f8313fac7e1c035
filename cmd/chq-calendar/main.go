// package main provides a command line interface for starting the calendar
// REST API and its sync daemon.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	chqcal "github.com/bbernstein/chq-calendar"
	"github.com/bbernstein/chq-calendar/config"
	"github.com/bbernstein/chq-calendar/log"
	"github.com/bbernstein/chq-calendar/normalize"
	"github.com/bbernstein/chq-calendar/pg"
	"github.com/bbernstein/chq-calendar/prom"
	"github.com/bbernstein/chq-calendar/rest"
	"github.com/bbernstein/chq-calendar/service"
	"github.com/bbernstein/chq-calendar/tribe"
)

func main() {
	godotenv.Load()

	var (
		configPath   = flag.String("config", os.Getenv("CONFIG"), "path to a YAML config file")
		corsOrigins  = flag.String("cors-origins", "", "comma-separated list of request origins where CORS requests are allowed")
		dbURL        = flag.String("db", os.Getenv("DB"), "a database connection URL for the PostgreSQL database")
		environment  = flag.String("environment", os.Getenv("ENV"), "development or production, controls log verbosity")
		feedURL      = flag.String("feed-url", os.Getenv("FEED_URL"), "base URL of a tribe events API, overriding the institution's feed")
		icsFeedURL   = flag.String("ics-feed-url", "", "public URL of the ICS feed, advertised in export responses")
		port         = flag.Int("port", 0, "the port where the REST API listens for connections")
		syncOnce     = flag.Bool("sync-once", false, "run one feed sync and exit")
		syncSchedule = flag.String("sync-schedule", "", "cron expression for scheduled feed syncs")
		tagRules     = flag.String("tag-rules", "", "path to a YAML keyword tag rules file")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Flags and environment variables win over the file.
	if *corsOrigins != "" {
		cfg.CORSOrigins = strings.Split(*corsOrigins, ",")
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}
	if *environment != "" {
		cfg.Environment = *environment
	}
	if *feedURL != "" {
		cfg.Feed.BaseURL = *feedURL
	}
	if *icsFeedURL != "" {
		cfg.ICS.FeedURL = *icsFeedURL
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *syncSchedule != "" {
		cfg.Sync.Schedule = *syncSchedule
	}
	if *tagRules != "" {
		cfg.Feed.TagRules = *tagRules
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open postgres failed", zap.Error(err))
	}
	db.SetMaxOpenConns(5)

	eventStore := &pg.EventStore{DB: db}
	if err = eventStore.Init(ctx); err != nil {
		logger.Fatal("init event store failed", zap.Error(err))
	}

	syncRunStore := &pg.SyncRunStore{DB: db}
	if err = syncRunStore.Init(ctx); err != nil {
		logger.Fatal("init sync run store failed", zap.Error(err))
	}

	var location *time.Location
	if cfg.Feed.Timezone != "" {
		location, err = time.LoadLocation(cfg.Feed.Timezone)
		if err != nil {
			logger.Fatal("bad feed timezone", zap.Error(err))
		}
	}

	var tagger *normalize.Tagger
	if cfg.Feed.TagRules != "" {
		tagger, err = normalize.LoadTagger(cfg.Feed.TagRules)
		if err != nil {
			logger.Fatal("load tag rules failed", zap.Error(err))
		}
	}

	feed := &tribe.Client{
		HTTP:    &http.Client{Timeout: cfg.Feed.Timeout.Std()},
		BaseURL: cfg.Feed.BaseURL,
	}

	svc := &service.Service{
		EventStore:   eventStore,
		SyncRunStore: syncRunStore,

		Feed: feed,
		Normalizer: &normalize.Normalizer{
			Tagger:          tagger,
			DefaultTimezone: cfg.Feed.Timezone,
		},

		ICSFeedURL: cfg.ICS.FeedURL,
		Location:   location,
	}

	runSync := func() {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()
		ctx = log.Named(log.ToContext(ctx, logger), "sync")

		result, err := svc.Sync(ctx, chqcal.SyncRequest{
			PerPage:           cfg.Sync.PerPage,
			MaxPages:          cfg.Sync.MaxPages,
			DeleteAfterMisses: cfg.Sync.DeleteAfterMisses,
		})
		if err != nil {
			logger.Error("sync failed", zap.Error(err))
			return
		}
		if !result.Success {
			logger.Warn("sync incomplete", zap.Strings("errors", result.Errors))
		}
	}

	if *syncOnce {
		runSync()
		return
	}

	if cfg.Sync.Schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.Sync.Schedule, runSync); err != nil {
			logger.Fatal("bad sync schedule", zap.Error(err))
		}
		c.Start()
		defer c.Stop()
		logger.Info("sync daemon scheduled", zap.String("schedule", cfg.Sync.Schedule))
	}

	var handler http.Handler
	handler = rest.New(svc)
	handler = log.WrapHandler(handler, logger)
	handler = handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "OPTIONS", "HEAD"}),
		handlers.AllowedOrigins(cfg.CORSOrigins),
	)(handler)
	http.Handle("/", handler)

	http.Handle("/metrics", prom.Handler())

	addr := fmt.Sprint(":", cfg.Port)
	logger.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}
