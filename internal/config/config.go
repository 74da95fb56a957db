package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"complaints/internal/analytics"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string
	DataDir     string

	// Database
	SQLiteDBPath string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID        string
	GoogleSpreadsheetURL       string
	GoogleWorksheet            string
	GoogleServiceAccountJSON   string
	GoogleServiceAccountFile   string
	GoogleApplicationCredsFile string

	// Snapshot loading
	SnapshotTTL     time.Duration
	LoadTimeout     time.Duration
	RefreshInterval time.Duration

	// Aggregation
	ClosedStatus   string
	ClosedMatch    string
	TimeseriesSort string

	LogLevel string
}

var validBackends = []string{"memory", "sheets", "sqlite"}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     getEnv("DATA_DIR", "data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/complaints.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "complaints"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_snapshot"),

		GoogleSpreadsheetID:        getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSpreadsheetURL:       getEnv("GOOGLE_SPREADSHEET_URL", ""),
		GoogleWorksheet:            getEnv("GOOGLE_WORKSHEET", "Data"),
		GoogleServiceAccountJSON:   getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:   getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		SnapshotTTL:     getEnvDuration("SNAPSHOT_TTL", 5*time.Minute),
		LoadTimeout:     getEnvDuration("LOAD_TIMEOUT", 30*time.Second),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 0),

		ClosedStatus:   getEnv("CLOSED_STATUS", "Closed"),
		ClosedMatch:    getEnv("CLOSED_MATCH", string(analytics.MatchPrefix)),
		TimeseriesSort: getEnv("TIMESERIES_SORT", string(analytics.SortByValue)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ServiceAccountFile returns GOOGLE_SERVICE_ACCOUNT_FILE, falling back to
// GOOGLE_APPLICATION_CREDENTIALS.
func (c *Config) ServiceAccountFile() string {
	if c.GoogleServiceAccountFile != "" {
		return c.GoogleServiceAccountFile
	}
	return c.GoogleApplicationCredsFile
}

// AMQPEnabled reports whether refresh requests can be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// EngineOptions derives aggregation options. Call after Validate.
func (c *Config) EngineOptions() analytics.Options {
	opts := analytics.DefaultOptions()
	opts.Closed.Marker = c.ClosedStatus
	if p, err := analytics.ParseMatchPolicy(c.ClosedMatch); err == nil {
		opts.Closed.Policy = p
	}
	if o, err := analytics.ParseSortOrder(c.TimeseriesSort); err == nil {
		opts.TimelineOrder = o
	}
	return opts
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		errors = append(errors, c.sqliteErrors()...)
	case "sheets":
		errors = append(errors, c.sheetsErrors()...)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SnapshotTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid snapshot TTL %v: must not be negative", c.SnapshotTTL))
	}
	if c.LoadTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must be at least 1 second", c.LoadTimeout))
	} else if c.LoadTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must be at most 10 minutes", c.LoadTimeout))
	}
	if c.RefreshInterval != 0 && c.RefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be 0 or at least 1 minute", c.RefreshInterval))
	}

	if strings.TrimSpace(c.ClosedStatus) == "" {
		errors = append(errors, "closed status marker cannot be empty")
	}
	if _, err := analytics.ParseMatchPolicy(c.ClosedMatch); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := analytics.ParseSortOrder(c.TimeseriesSort); err != nil {
		errors = append(errors, err.Error())
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateSheets checks only the Google Sheets settings. Used by binaries
// that always read the worksheet regardless of DATA_BACKEND.
func (c *Config) ValidateSheets() error {
	if errs := c.sheetsErrors(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) sqliteErrors() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) sheetsErrors() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" && c.GoogleSpreadsheetURL == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID or GOOGLE_SPREADSHEET_URL is required when reading Google Sheets")
	}
	if c.GoogleWorksheet == "" {
		errors = append(errors, "Google worksheet name is required when reading Google Sheets")
	}
	file := c.ServiceAccountFile()
	if c.GoogleServiceAccountJSON == "" && file == "" {
		errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided")
	}
	if c.GoogleServiceAccountJSON == "" && file != "" {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", file))
		}
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
