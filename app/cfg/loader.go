package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./tracker.db" description:"Path to the SQLite index database"`
	TrackerFile string `long:"tracker-file" env:"TRACKER_FILE" default:"./tracker.yml" description:"Tracker definition file (upstream URLs, display settings)"`

	// Content store configuration
	ContentBackend   string `long:"content-backend" env:"CONTENT_BACKEND" default:"pebble" choice:"pebble" choice:"sanity" description:"Content store backend"`
	ContentDir       string `long:"content-dir" env:"CONTENT_DIR" default:"./content" description:"Directory for the local Pebble content store"`
	SanityProjectID  string `long:"sanity-project-id" env:"SANITY_PROJECT_ID" description:"Sanity project ID"`
	SanityDataset    string `long:"sanity-dataset" env:"SANITY_DATASET" default:"production" description:"Sanity dataset"`
	SanityAPIVersion string `long:"sanity-api-version" env:"SANITY_API_VERSION" default:"v2021-11-23" description:"Sanity API version"`
	SanityToken      string `long:"sanity-token" env:"SANITY_TOKEN" description:"Sanity API token with write access"`

	// Notification configuration
	SMSEnabled       bool   `long:"sms-enabled" env:"SMS_ENABLED" description:"Text new posts to subscribers"`
	TwilioAccountSID string `long:"twilio-account-sid" env:"TWILIO_ACCOUNT_SID" description:"Twilio account SID"`
	TwilioAuthToken  string `long:"twilio-auth-token" env:"TWILIO_AUTH_TOKEN" description:"Twilio auth token"`
	TwilioFrom       string `long:"twilio-from" env:"TWILIO_FROM_PHONE" description:"Sending phone number"`
	SMSCountryPrefix string `long:"sms-country-prefix" env:"SMS_COUNTRY_PREFIX" default:"+1" description:"Prefix for subscriber numbers stored without one"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://tracker.example.com)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	IngestInterval    int    `long:"ingest-interval" env:"INGEST_INTERVAL" default:"600" description:"Ingestion cycle interval in seconds"`
	ReconcileInterval int    `long:"reconcile-interval" env:"RECONCILE_INTERVAL" default:"3600" description:"Reconciliation cycle interval in seconds"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	TaskTimeout       int    `long:"task-timeout" env:"TASK_TIMEOUT" default:"300" description:"Maximum run time of one cycle in seconds"`
	WriteStaggerMs    int    `long:"write-stagger-ms" env:"WRITE_STAGGER_MS" default:"100" description:"Delay between content store writes in milliseconds"`
	FetchCacheTTL     int    `long:"fetch-cache-ttl" env:"FETCH_CACHE_TTL" default:"30" description:"Seconds an upstream response is reused across cycles"`
	TraceEndpoint     string `long:"trace-endpoint" env:"TRACE_ENDPOINT" description:"OTLP/HTTP endpoint for traces (disabled when empty)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Tracker Relay/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads an optional .env file, then flags and environment variables.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return LoadArgs(nil)
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		TrackerFile:       raw.TrackerFile,
		ContentBackend:    raw.ContentBackend,
		ContentDir:        raw.ContentDir,
		SanityProjectID:   raw.SanityProjectID,
		SanityDataset:     raw.SanityDataset,
		SanityAPIVersion:  raw.SanityAPIVersion,
		SanityToken:       raw.SanityToken,
		SMSEnabled:        raw.SMSEnabled,
		TwilioAccountSID:  raw.TwilioAccountSID,
		TwilioAuthToken:   raw.TwilioAuthToken,
		TwilioFrom:        raw.TwilioFrom,
		SMSCountryPrefix:  raw.SMSCountryPrefix,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		APIAccessKey:      raw.APIAccessKey,
		IngestInterval:    raw.IngestInterval,
		ReconcileInterval: raw.ReconcileInterval,
		WorkerCount:       raw.WorkerCount,
		TaskTimeout:       raw.TaskTimeout,
		WriteStaggerMs:    raw.WriteStaggerMs,
		FetchCacheTTL:     raw.FetchCacheTTL,
		TraceEndpoint:     raw.TraceEndpoint,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.IngestInterval <= 0 {
		return fmt.Errorf("ingest interval must be positive")
	}
	if cfg.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile interval must be positive")
	}
	if cfg.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if cfg.TaskTimeout <= 0 {
		return fmt.Errorf("task timeout must be positive")
	}
	if cfg.WriteStaggerMs < 0 {
		return fmt.Errorf("write stagger must be non-negative")
	}
	if cfg.FetchCacheTTL < 0 {
		return fmt.Errorf("fetch cache TTL must be non-negative")
	}

	if cfg.ContentBackend == "sanity" && cfg.SanityProjectID == "" {
		return fmt.Errorf("sanity project ID is required for the sanity content backend")
	}

	if cfg.SMSEnabled {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFrom == "" {
			return fmt.Errorf("twilio account SID, auth token and sending number are required when SMS is enabled")
		}
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
