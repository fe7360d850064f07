package parser

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"ArxivDigest/internal/config"
	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/ports"
	"ArxivDigest/internal/scanner"
)

// SourceOptions carry run-wide fetch parameters shared by all sites.
type SourceOptions struct {
	Location   *time.Location
	MaxResults int
}

// StrategySource implements PaperSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	opts     SourceOptions
	logger   *slog.Logger
}

var _ ports.PaperSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, opts SourceOptions, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		opts:     opts,
		logger:   log,
	}
}

// FetchDaily executes every configured site's scanner for the given local
// calendar day, de-duplicates across sites by arXiv id (first wins) and
// returns the union sorted by publication time descending.
func (s *StrategySource) FetchDaily(ctx context.Context, day time.Time) ([]domain.Paper, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch daily", "sites", len(s.sites), "day", day.Format("2006-01-02"))

	var aggregated []domain.Paper
	seen := map[string]struct{}{}
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "categories", len(site.Categories))
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		req := scanner.Request{
			Day:        day,
			Location:   s.opts.Location,
			SiteName:   site.Name,
			Options:    site.Options,
			Categories: toScannerCategories(site.Categories),
			MaxResults: s.opts.MaxResults,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
		}

		fresh := 0
		for _, paper := range results {
			if _, ok := seen[paper.ArxivID]; ok {
				continue
			}
			seen[paper.ArxivID] = struct{}{}
			aggregated = append(aggregated, paper)
			fresh++
		}
		s.debug("site produced papers", "site", site.Name, "count", len(results), "fresh", fresh)
	}

	sort.SliceStable(aggregated, func(i, j int) bool {
		return aggregated[i].Published.After(aggregated[j].Published)
	})

	s.debug("strategy source done", "total_papers", len(aggregated))
	return aggregated, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
