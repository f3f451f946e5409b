package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Application configuration
	DataDir          string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding sources, topics and report files"`
	DBPath           string `long:"db-path" env:"DB_PATH" default:"./data/daybrief.db" description:"Path to the sqlite state database"`
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey     string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for mutating endpoints (optional)"`
	SchedulerEnabled bool   `long:"scheduler" env:"SCHEDULER_ENABLED" description:"Enable the twice-daily aggregation scheduler"`
	ScheduleTimes    string `long:"schedule-times" env:"SCHEDULE_TIMES" default:"10:00,18:00" description:"Comma-separated local times (HH:MM) for scheduled runs"`
	ItemsPerSource   int    `long:"items-per-source" env:"ITEMS_PER_SOURCE" default:"3" description:"Maximum entries harvested per source"`
	TranslateBatch   int    `long:"translate-batch" env:"TRANSLATE_BATCH" default:"3" description:"Concurrent enrichment calls per batch"`
	SourcesSeedFile  string `long:"sources-seed" env:"SOURCES_SEED" default:"./configs/sources.yml" description:"YAML file used to seed the source store when empty"`

	// LLM provider credentials
	KimiAPIKey   string `long:"kimi-api-key" env:"KIMI_API_KEY" description:"Moonshot (Kimi) API key"`
	OpenAIAPIKey string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key (used when no Kimi key is set)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for outbound HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Asia/Shanghai" description:"Timezone for report dates and scheduled runs"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DataDir:          raw.DataDir,
		DBPath:           raw.DBPath,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		SchedulerEnabled: raw.SchedulerEnabled,
		ScheduleTimes:    raw.ScheduleTimes,
		ItemsPerSource:   raw.ItemsPerSource,
		TranslateBatch:   raw.TranslateBatch,
		SourcesSeedFile:  raw.SourcesSeedFile,
		KimiAPIKey:       raw.KimiAPIKey,
		OpenAIAPIKey:     raw.OpenAIAPIKey,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
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

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
