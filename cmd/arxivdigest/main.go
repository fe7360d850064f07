package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ArxivDigest/internal/app"
	"ArxivDigest/internal/config"
	"ArxivDigest/internal/logging"
)

func main() {
	var (
		configPath      = flag.String("config", "", "path to YAML config (default: $ARXIV_DIGEST_CONFIG)")
		day             = flag.String("day", "", "local calendar day YYYY-MM-DD (default: today in timezone)")
		timezone        = flag.String("timezone", "", "IANA timezone override")
		noOracle        = flag.Bool("no-oracle", false, "disable model adjudication and scoring")
		noIntermediates = flag.Bool("no-intermediates", false, "do not write stage snapshot files")
		outPath         = flag.String("out", "", "output JSON path (default: <outputDir>/<day>/daily_topics.json)")
		maxResults      = flag.Int("max-results", 0, "max results per category override")
		schedule        = flag.Bool("schedule", false, "keep running and trigger daily at the configured time")
	)
	flag.Parse()

	cfg := config.Load(*configPath)
	logger := logging.Init(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, app.Options{
		Day:             *day,
		Timezone:        *timezone,
		NoOracle:        *noOracle,
		NoIntermediates: *noIntermediates,
		OutPath:         *outPath,
		MaxResults:      *maxResults,
		Schedule:        *schedule,
	}, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
}
