package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ArxivDigest/internal/config"
	"ArxivDigest/internal/infrastructure/llm"
	"ArxivDigest/internal/infrastructure/parser"
	"ArxivDigest/internal/infrastructure/scheduler"
	"ArxivDigest/internal/infrastructure/storage"
	"ArxivDigest/internal/infrastructure/telegram"
	"ArxivDigest/internal/logging"
	"ArxivDigest/internal/ports"
	"ArxivDigest/internal/scanner"
	"ArxivDigest/internal/triage"
	"ArxivDigest/internal/usecase"
)

// Options carries command-line overrides applied on top of the config.
type Options struct {
	Day             string
	Timezone        string
	NoOracle        bool
	NoIntermediates bool
	OutPath         string
	MaxResults      int
	Schedule        bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	opts     Options
	pipeline *usecase.Pipeline
	sched    *usecase.Scheduler
	db       *sql.DB
	redis    *storage.RedisRepository
	logger   *slog.Logger
	location *time.Location
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, opts Options, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	loc := cfg.Daily.Location()
	tzName := cfg.Daily.Timezone
	if opts.Timezone != "" {
		parsed, err := time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", opts.Timezone, err)
		}
		loc = parsed
		tzName = opts.Timezone
	}

	maxResults := cfg.Daily.MaxResults
	if opts.MaxResults > 0 {
		maxResults = opts.MaxResults
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewAPIScanner(nil, baseLogger.With("component", "scanner.arxiv-api")))
	registry.Register(parser.NewListingScanner(nil))

	source := parser.NewStrategySource(registry, cfg.Sites, parser.SourceOptions{
		Location:   loc,
		MaxResults: maxResults,
	}, baseLogger.With("component", "source"))

	a := &Application{
		cfg:      cfg,
		opts:     opts,
		logger:   baseLogger,
		location: loc,
	}

	repository, err := a.buildRepository(ctx)
	if err != nil {
		return nil, err
	}

	oracleEnabled := !cfg.Oracle.Disabled && !opts.NoOracle
	primary, secondary := buildOracles(ctx, cfg.Oracle, oracleEnabled, baseLogger)

	adjudicator := triage.NewAdjudicator(triage.AdjudicatorConfig{
		Enabled:           oracleEnabled,
		Scope:             cfg.Oracle.Scope,
		BatchSize:         cfg.Oracle.BatchSize,
		BatchRetries:      cfg.Oracle.BatchRetries,
		ParallelWorkers:   cfg.Oracle.ParallelWorkers,
		AllowRuleFallback: cfg.Oracle.AllowRuleFallback,
	}, primary, secondary, cfg.Daily.Rubric, baseLogger.With("component", "adjudicator"))

	artifacts := storage.NewFileStore(cfg.Daily.OutputDir, opts.OutPath)

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:      source,
		Repository:  repository,
		Artifacts:   artifacts,
		Notifier:    notifier,
		Adjudicator: adjudicator,
		Options: usecase.PipelineOptions{
			Timezone:           loc,
			TimezoneName:       tzName,
			MinRecallHits:      cfg.Daily.MinRecallHits,
			Rubric:             cfg.Daily.Rubric,
			RelevanceThreshold: cfg.Daily.RelevanceThreshold,
			TopicLimits:        cfg.Daily.TopicLimits,
			SaveIntermediates:  !cfg.Daily.SkipIntermediates && !opts.NoIntermediates,
			SkipAdjudicated:    cfg.Daily.SkipAdjudicated,
		},
		Logger: baseLogger.With("component", "pipeline"),
	})

	if opts.Schedule {
		driver := scheduler.NewDailyScheduler(cfg.Scheduler.At, cfg.Scheduler.Location())
		a.sched = usecase.NewScheduler(driver, a.pipeline, baseLogger.With("component", "scheduler"))
	}

	return a, nil
}

// Run executes one triage day, or blocks serving the schedule when
// schedule mode is on.
func (a *Application) Run(ctx context.Context) error {
	if a.sched != nil {
		if err := a.sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("schedule active", "at", a.cfg.Scheduler.At, "timezone", a.cfg.Scheduler.Timezone)
		<-ctx.Done()
		return a.sched.Stop(context.Background())
	}

	day := time.Now().In(a.location)
	if a.opts.Day != "" {
		parsed, err := time.ParseInLocation("2006-01-02", a.opts.Day, a.location)
		if err != nil {
			return fmt.Errorf("invalid day %q, want YYYY-MM-DD: %w", a.opts.Day, err)
		}
		day = parsed
	}

	state, err := a.pipeline.ProcessDay(ctx, day)
	if err != nil {
		return err
	}
	a.logger.Info("run complete",
		"day", state.Day,
		"selected", state.Digest.TotalSelected(),
		"output", state.OutputPath)
	return nil
}

// Close releases storage connections.
func (a *Application) Close() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = err
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *Application) buildRepository(ctx context.Context) (ports.DigestRepository, error) {
	switch a.cfg.Storage.Backend {
	case "postgres":
		if a.cfg.Database.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a database DSN")
		}
		db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		return storage.NewPostgresRepository(db), nil
	case "redis":
		if a.cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		a.redis = storage.NewRedisRepository(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		return a.redis, nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

// buildOracles resolves credentials and constructs the scoring pair.
// Construction failures surface as a nil primary so the adjudicator can
// apply its strict or lenient policy.
func buildOracles(ctx context.Context, cfg config.OracleConfig, enabled bool, logger *slog.Logger) (primary, secondary triage.Oracle) {
	if !enabled {
		return nil, nil
	}

	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		if cfg.Provider == "gemini" {
			keyEnv = "GEMINI_API_KEY"
		} else {
			keyEnv = "OPENAI_API_KEY"
		}
	}

	apiKey, err := config.ResolveSecret(cfg.APIKey, keyEnv, cfg.APIKeyFile, true, "oracle API key")
	if err != nil {
		logger.Warn("oracle credentials unresolved", "error", err)
		return nil, nil
	}
	logger.Debug("oracle credentials resolved", "api_key", config.MaskSecret(apiKey))

	primary = buildOracle(ctx, cfg, cfg.Model, apiKey, logger)
	if primary == nil {
		return nil, nil
	}

	if cfg.VoteModel != "" && cfg.VoteModel != cfg.Model {
		secondary = buildOracle(ctx, cfg, cfg.VoteModel, apiKey, logger)
	}
	return primary, secondary
}

func buildOracle(ctx context.Context, cfg config.OracleConfig, model, apiKey string, logger *slog.Logger) triage.Oracle {
	if cfg.Provider == "gemini" {
		client, err := llm.NewGeminiClient(ctx, apiKey, model, cfg.Temperature)
		if err != nil {
			logger.Warn("gemini client unavailable", "model", model, "error", err)
			return nil
		}
		return client
	}

	return llm.NewOpenAIClient(llm.OpenAIOptions{
		Endpoint:    cfg.Endpoint,
		Model:       model,
		APIKey:      apiKey,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
}
