package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/ports"
	"ArxivDigest/internal/topics"
	"ArxivDigest/internal/triage"
)

// PipelineOptions tunes one daily triage run.
type PipelineOptions struct {
	// Timezone is the local calendar zone the day boundary is computed
	// in. TimezoneName overrides the reported zone name when set.
	Timezone     *time.Location
	TimezoneName string

	MinRecallHits      int
	Route              triage.RouteOptions
	Rubric             string
	RelevanceThreshold float64
	TopicLimits        map[int]int

	SaveIntermediates bool
	SkipAdjudicated   bool
}

// PipelineDeps wires all driven adapters into the triage pipeline.
// Repository, Artifacts and Notifier are optional; Source and
// Adjudicator are required.
type PipelineDeps struct {
	Source      ports.PaperSource
	Repository  ports.DigestRepository
	Artifacts   ports.ArtifactWriter
	Notifier    ports.Notifier
	Adjudicator *triage.Adjudicator
	Vocabulary  *triage.Vocabulary
	Options     PipelineOptions
	Logger      *slog.Logger
}

// DayState carries every stage of one daily run, from raw fetch to the
// grouped digest.
type DayState struct {
	RunID    string
	Day      string
	Timezone string

	Raw      []domain.Paper
	Recalled []triage.RecalledPaper
	Dropped  []triage.RecalledPaper
	Routed   []triage.RoutedPaper
	Scored   []triage.ScoredPaper
	Digest   *triage.Digest

	OutputPath string
}

// Pipeline implements the staged publication-triage workflow: fetch,
// recall, route, adjudicate, select, persist, notify.
type Pipeline struct {
	source      ports.PaperSource
	repository  ports.DigestRepository
	artifacts   ports.ArtifactWriter
	notifier    ports.Notifier
	adjudicator *triage.Adjudicator
	vocabulary  *triage.Vocabulary
	opts        PipelineOptions
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	vocab := deps.Vocabulary
	if vocab == nil {
		vocab = triage.DefaultVocabulary()
	}
	return &Pipeline{
		source:      deps.Source,
		repository:  deps.Repository,
		artifacts:   deps.Artifacts,
		notifier:    deps.Notifier,
		adjudicator: deps.Adjudicator,
		vocabulary:  vocab,
		opts:        deps.Options,
		logger:      logger,
	}
}

// ProcessDay runs the full triage for the local calendar day containing
// the given instant and returns the state of every stage.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) (*DayState, error) {
	if p.source == nil {
		return nil, fmt.Errorf("paper source is not configured")
	}
	if p.adjudicator == nil {
		return nil, fmt.Errorf("adjudicator is not configured")
	}

	loc := p.opts.Timezone
	if loc == nil {
		loc = time.UTC
	}
	localDay := day.In(loc)

	state := &DayState{
		Day:      localDay.Format("2006-01-02"),
		Timezone: p.opts.TimezoneName,
	}
	if state.Timezone == "" {
		state.Timezone = loc.String()
	}
	state.RunID = fmt.Sprintf("daily-%s-%s", state.Day, ulid.Make().String())

	logger := p.logger.With("run_id", state.RunID, "day", state.Day)
	logger.Info("daily run started", "timezone", state.Timezone)

	raw, err := p.source.FetchDaily(ctx, localDay)
	if err != nil {
		return nil, fmt.Errorf("fetch day: %w", err)
	}
	state.Raw = raw
	logger.Info("fetched papers", "count", len(raw))

	candidates := raw
	if p.opts.SkipAdjudicated && p.repository != nil && len(raw) > 0 {
		candidates, err = p.filterAdjudicated(ctx, raw, logger)
		if err != nil {
			return nil, fmt.Errorf("load decided papers: %w", err)
		}
	}

	state.Recalled, state.Dropped = triage.Recall(candidates, p.vocabulary, p.opts.MinRecallHits)
	logger.Info("recall filter applied", "kept", len(state.Recalled), "dropped", len(state.Dropped))

	route := p.opts.Route
	if route == (triage.RouteOptions{}) {
		route = triage.DefaultRouteOptions()
	}
	state.Routed = triage.RouteAll(state.Recalled, route)

	ambiguous := 0
	for _, r := range state.Routed {
		if r.RuleAmbiguous {
			ambiguous++
		}
	}
	logger.Info("rule routing applied", "routed", len(state.Routed), "ambiguous", ambiguous)

	state.Scored, err = p.adjudicator.Adjudicate(ctx, state.Routed)
	if err != nil {
		return nil, fmt.Errorf("adjudicate: %w", err)
	}
	logger.Info("papers scored", "count", len(state.Scored))

	rubric := p.opts.Rubric
	if rubric == "" {
		rubric = topics.DefaultRubric
	}
	meta := triage.DigestMeta{
		Day:           state.Day,
		Timezone:      state.Timezone,
		Rubric:        rubric,
		OracleEnabled: p.adjudicator.Enabled(),
	}
	state.Digest = triage.SelectAndGroup(state.Scored, meta, p.opts.RelevanceThreshold, p.opts.TopicLimits)
	logger.Info("digest selected", "papers", state.Digest.TotalSelected())

	if err := p.persist(ctx, state, logger); err != nil {
		return nil, err
	}

	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, buildDigestMessage(state.Digest)); err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		logger.Info("digest published")
	}

	logger.Info("daily run finished")
	return state, nil
}

// filterAdjudicated drops papers that already have a stored decision.
func (p *Pipeline) filterAdjudicated(ctx context.Context, papers []domain.Paper, logger *slog.Logger) ([]domain.Paper, error) {
	ids := make([]string, 0, len(papers))
	for _, paper := range papers {
		if paper.ArxivID != "" {
			ids = append(ids, paper.ArxivID)
		}
	}

	decided, err := p.repository.AlreadyAdjudicated(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(decided) == 0 {
		return papers, nil
	}

	fresh := make([]domain.Paper, 0, len(papers))
	for _, paper := range papers {
		if decided[paper.ArxivID] {
			continue
		}
		fresh = append(fresh, paper)
	}
	logger.Info("skipped decided papers", "skipped", len(papers)-len(fresh))
	return fresh, nil
}

func (p *Pipeline) persist(ctx context.Context, state *DayState, logger *slog.Logger) error {
	if p.artifacts != nil {
		path, err := p.artifacts.WriteDigest(ctx, state.Digest)
		if err != nil {
			return fmt.Errorf("write digest: %w", err)
		}
		state.OutputPath = path
		logger.Info("digest written", "path", path)

		if p.opts.SaveIntermediates {
			stages := []ports.StageSnapshot{
				{Stage: "raw", Rows: stageRows(state.Raw)},
				{Stage: "recalled", Rows: stageRows(state.Recalled)},
				{Stage: "dropped", Rows: stageRows(state.Dropped)},
				{Stage: "routed", Rows: stageRows(state.Routed)},
				{Stage: "scored", Rows: stageRows(state.Scored)},
			}
			if err := p.artifacts.WriteStages(ctx, state.Day, stages); err != nil {
				return fmt.Errorf("write stages: %w", err)
			}
		}
	}

	if p.repository != nil {
		if err := p.repository.SaveDecisions(ctx, state.Day, state.Scored); err != nil {
			return fmt.Errorf("save decisions: %w", err)
		}
		if err := p.repository.SaveDigest(ctx, state.Digest); err != nil {
			return fmt.Errorf("save digest: %w", err)
		}
	}

	return nil
}

// buildDigestMessage renders the plain-text digest pushed to chat
// channels: a dated header, then each topic with its ranked papers.
func buildDigestMessage(digest *triage.Digest) string {
	if digest == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 arXiv Topic Daily (%s, %s)\n", digest.Day, digest.Timezone)
	fmt.Fprintf(&b, "Threshold: %.2f\n", digest.Threshold)

	for _, group := range digest.Topics {
		fmt.Fprintf(&b, "\n【%s】\n", group.Topic)
		if len(group.Papers) == 0 {
			b.WriteString("- No selected papers today\n")
			continue
		}
		for i, paper := range group.Papers {
			fmt.Fprintf(&b, "- %d. %s (rel=%.2f)\n", i+1, paper.Title, paper.Relevance)
			if paper.EntryURL != "" {
				fmt.Fprintf(&b, "  %s\n", paper.EntryURL)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func stageRows[T any](items []T) []any {
	rows := make([]any, len(items))
	for i, item := range items {
		rows[i] = item
	}
	return rows
}
