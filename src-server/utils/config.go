package utils

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
)

type Config struct {
	port string

	databaseURL string
	seedFile    string

	location       *time.Location
	eventDetailURL string
	venueCollation language.Tag

	metricCollectionInterval time.Duration
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),

		databaseURL: func() string {
			databaseURL := os.Getenv("DATABASE_URL")
			if databaseURL == "" {
				slog.Warn("DATABASE_URL is not set, using ./sqlite.db")
				databaseURL = "sqlite://./sqlite.db"
			}
			scheme, _, _ := strings.Cut(databaseURL, "://")
			slog.Debug("env", "DATABASE_URL", scheme+"://...")
			return databaseURL
		}(),
		seedFile: func() string {
			seedFile := os.Getenv("SEED_FILE")
			if seedFile == "" {
				return ""
			}
			info, err := os.Stat(seedFile)
			if err != nil {
				slog.Error("can't get info of SEED_FILE", "error", err)
				os.Exit(1)
			}
			if info.IsDir() {
				slog.Error("SEED_FILE is a directory", "path", seedFile)
				os.Exit(1)
			}
			slog.Debug("env", "SEED_FILE", seedFile)
			return seedFile
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),
		eventDetailURL: func() string {
			eventDetailURL := os.Getenv("EVENT_DETAIL_URL")
			if eventDetailURL == "" {
				eventDetailURL = "/event-details.html?id=%s"
			}
			if strings.Count(eventDetailURL, "%s") != 1 {
				slog.Error("EVENT_DETAIL_URL must contain exactly one %s", "value", eventDetailURL)
				os.Exit(1)
			}
			slog.Debug("env", "EVENT_DETAIL_URL", eventDetailURL)
			return eventDetailURL
		}(),
		venueCollation: func() language.Tag {
			venueCollation := os.Getenv("VENUE_COLLATION")
			if venueCollation == "" {
				venueCollation = "en"
			}
			tag, err := language.Parse(venueCollation)
			if err != nil {
				slog.Error("invalid VENUE_COLLATION", "value", venueCollation, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "VENUE_COLLATION", tag)
			return tag
		}(),

		metricCollectionInterval: func() time.Duration {
			interval := os.Getenv("METRIC_COLLECTION_INTERVAL")
			if interval == "" {
				interval = "15s"
			}
			duration, err := time.ParseDuration(interval)
			if err != nil || duration <= 0 {
				slog.Error("invalid METRIC_COLLECTION_INTERVAL", "value", interval, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "METRIC_COLLECTION_INTERVAL", duration)
			return duration
		}(),
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DATABASE_URL env, default to sqlite://./sqlite.db
func (c *Config) GetDatabaseURL() string {
	return c.databaseURL
}

// Get SEED_FILE env, empty when seeding is off
func (c *Config) GetSeedFile() string {
	return c.seedFile
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get EVENT_DETAIL_URL env
func (c *Config) GetEventDetailURL() string {
	return c.eventDetailURL
}

// EventDetailLink builds the detail page URL of one event.
func (c *Config) EventDetailLink(eventID string) string {
	return fmt.Sprintf(c.eventDetailURL, url.QueryEscape(eventID))
}

// Get VENUE_COLLATION env, default to en
func (c *Config) GetVenueCollation() language.Tag {
	return c.venueCollation
}

// Get METRIC_COLLECTION_INTERVAL env, default to 15s
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}
