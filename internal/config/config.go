package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Shanghai"

	configPathEnv    = "ARXIV_DIGEST_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	redisAddrEnv     = "REDIS_ADDR"
	oracleAPIKeyEnv  = "ORACLE_API_KEY"
	oracleModelEnv   = "ORACLE_MODEL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Daily         DailyConfig        `yaml:"daily"`
	Oracle        OracleConfig       `yaml:"oracle"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig selects the decision-log backend. Backend is one of
// "postgres", "redis" or "none".
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SchedulerConfig defines when the daily run fires. At is a local
// wall-clock time in HH:MM form, interpreted in Timezone.
type SchedulerConfig struct {
	At       string `yaml:"at"`
	Timezone string `yaml:"timezone"`

	location *time.Location
}

// Location returns the bound timezone, defaulting to UTC.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// DailyConfig tunes the triage pipeline for one calendar day.
type DailyConfig struct {
	Timezone           string      `yaml:"timezone"`
	MaxResults         int         `yaml:"maxResults"`
	MinRecallHits      int         `yaml:"minRecallHits"`
	RelevanceThreshold float64     `yaml:"relevanceThreshold"`
	Rubric             string      `yaml:"rubric"`
	TopicLimits        map[int]int `yaml:"topicLimits"`
	OutputDir          string      `yaml:"outputDir"`
	SkipIntermediates  bool        `yaml:"skipIntermediates"`
	SkipAdjudicated    bool        `yaml:"skipAdjudicated"`

	location *time.Location
}

// Location returns the bound timezone, defaulting to UTC.
func (d DailyConfig) Location() *time.Location {
	if d.location != nil {
		return d.location
	}
	return time.UTC
}

// OracleConfig configures the scoring model pair. The zero value means
// adjudication is enabled and a failed batch aborts the run.
type OracleConfig struct {
	Disabled          bool    `yaml:"disabled"`
	Provider          string  `yaml:"provider"`
	Endpoint          string  `yaml:"endpoint"`
	Model             string  `yaml:"model"`
	VoteModel         string  `yaml:"voteModel"`
	Temperature       float64 `yaml:"temperature"`
	TimeoutSeconds    int     `yaml:"timeoutSeconds"`
	APIKey            string  `yaml:"apiKey"`
	APIKeyEnv         string  `yaml:"apiKeyEnv"`
	APIKeyFile        string  `yaml:"apiKeyFile"`
	BatchSize         int     `yaml:"batchSize"`
	BatchRetries      int     `yaml:"batchRetries"`
	ParallelWorkers   int     `yaml:"parallelWorkers"`
	Scope             string  `yaml:"scope"`
	AllowRuleFallback bool    `yaml:"allowRuleFallback"`
}

// NotificationConfig wires outbound notification channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig keeps courier bot credentials.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SiteConfig links a source name with scanner strategy and categories.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig describes a single category to fetch.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads the YAML config from path, falling back to the
// ARXIV_DIGEST_CONFIG environment variable when path is empty. Missing
// or unreadable files leave the defaults in place.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("config: cannot read %s, using defaults: %v", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s, using defaults: %v", path, err)
			} else {
				mergeConfig(&cfg, fileCfg)
			}
		}
	}

	applyEnvOverrides(&cfg)
	bindTimezones(&cfg)

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultSites()
	}

	return cfg
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{Backend: "none"},
		Scheduler: SchedulerConfig{
			At:       "08:30",
			Timezone: defaultTimezone,
		},
		Daily: DailyConfig{
			MaxResults:         2000,
			MinRecallHits:      1,
			RelevanceThreshold: 0.55,
			OutputDir:          "data/index",
		},
		Oracle: OracleConfig{
			Provider:        "openai",
			Endpoint:        "https://api.openai.com/v1/chat/completions",
			Model:           "gpt-4o",
			Temperature:     0.2,
			TimeoutSeconds:  60,
			BatchSize:       15,
			BatchRetries:    1,
			ParallelWorkers: 1,
			Scope:           "all",
		},
	}
}

func defaultSites() []SiteConfig {
	return []SiteConfig{
		{
			Name:    "arxiv",
			Scanner: "arxiv-api",
			Categories: []CategoryConfig{
				{Name: "cs.AI"},
				{Name: "cs.CV"},
				{Name: "cs.IR"},
				{Name: "cs.HC"},
				{Name: "cs.CL"},
				{Name: "cs.LG"},
			},
		},
	}
}

func mergeConfig(dst *Config, src Config) {
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Storage.Backend != "" {
		dst.Storage.Backend = src.Storage.Backend
	}
	if src.Database.DSN != "" {
		dst.Database.DSN = src.Database.DSN
	}
	if src.Redis.Addr != "" {
		dst.Redis.Addr = src.Redis.Addr
	}
	if src.Redis.Password != "" {
		dst.Redis.Password = src.Redis.Password
	}
	if src.Redis.DB != 0 {
		dst.Redis.DB = src.Redis.DB
	}
	if src.Scheduler.At != "" {
		dst.Scheduler.At = src.Scheduler.At
	}
	if src.Scheduler.Timezone != "" {
		dst.Scheduler.Timezone = src.Scheduler.Timezone
	}
	mergeDaily(&dst.Daily, src.Daily)
	mergeOracle(&dst.Oracle, src.Oracle)
	if src.Notifications.Telegram.BotToken != "" {
		dst.Notifications.Telegram.BotToken = src.Notifications.Telegram.BotToken
	}
	if src.Notifications.Telegram.ChatID != "" {
		dst.Notifications.Telegram.ChatID = src.Notifications.Telegram.ChatID
	}
	if len(src.Sites) > 0 {
		dst.Sites = src.Sites
	}
}

func mergeDaily(dst *DailyConfig, src DailyConfig) {
	if src.Timezone != "" {
		dst.Timezone = src.Timezone
	}
	if src.MaxResults != 0 {
		dst.MaxResults = src.MaxResults
	}
	if src.MinRecallHits != 0 {
		dst.MinRecallHits = src.MinRecallHits
	}
	if src.RelevanceThreshold != 0 {
		dst.RelevanceThreshold = src.RelevanceThreshold
	}
	if src.Rubric != "" {
		dst.Rubric = src.Rubric
	}
	if len(src.TopicLimits) > 0 {
		dst.TopicLimits = src.TopicLimits
	}
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
	if src.SkipIntermediates {
		dst.SkipIntermediates = true
	}
	if src.SkipAdjudicated {
		dst.SkipAdjudicated = true
	}
}

func mergeOracle(dst *OracleConfig, src OracleConfig) {
	if src.Disabled {
		dst.Disabled = true
	}
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.VoteModel != "" {
		dst.VoteModel = src.VoteModel
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
	if src.TimeoutSeconds != 0 {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.APIKeyEnv != "" {
		dst.APIKeyEnv = src.APIKeyEnv
	}
	if src.APIKeyFile != "" {
		dst.APIKeyFile = src.APIKeyFile
	}
	if src.BatchSize != 0 {
		dst.BatchSize = src.BatchSize
	}
	if src.BatchRetries != 0 {
		dst.BatchRetries = src.BatchRetries
	}
	if src.ParallelWorkers != 0 {
		dst.ParallelWorkers = src.ParallelWorkers
	}
	if src.Scope != "" {
		dst.Scope = src.Scope
	}
	if src.AllowRuleFallback {
		dst.AllowRuleFallback = true
	}
}

func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv(databaseDSNEnv); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if addr := os.Getenv(redisAddrEnv); addr != "" {
		cfg.Redis.Addr = addr
	}
	if key := os.Getenv(oracleAPIKeyEnv); key != "" {
		cfg.Oracle.APIKey = key
	}
	if model := os.Getenv(oracleModelEnv); model != "" {
		cfg.Oracle.Model = model
	}
	if token := os.Getenv(telegramTokenEnv); token != "" {
		cfg.Notifications.Telegram.BotToken = token
	}
	if chatID := os.Getenv(telegramChatEnv); chatID != "" {
		cfg.Notifications.Telegram.ChatID = chatID
	}
}

func bindTimezones(cfg *Config) {
	cfg.Scheduler.location = loadLocation(cfg.Scheduler.Timezone)
	if cfg.Daily.Timezone == "" {
		cfg.Daily.Timezone = cfg.Scheduler.Timezone
	}
	cfg.Daily.location = loadLocation(cfg.Daily.Timezone)
}

func loadLocation(name string) *time.Location {
	if name == "" {
		name = defaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("config: invalid timezone %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}
