package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ArxivDigest/internal/topics"
)

// Oracle is a chat-completion backend used for batch adjudication.
type Oracle interface {
	// Name identifies the backing model for logs.
	Name() string
	// Complete sends one system+user exchange and returns the raw text reply.
	Complete(ctx context.Context, system, user string) (string, error)
}

const defaultBatchSize = 15

// Decision provenance recorded on every scored paper.
const (
	SourceOracle          = "oracle"
	SourceRuleDisabled    = "rule:disabled"
	SourceRuleConfigError = "rule:config-error"
	SourceRuleUnambiguous = "rule:unambiguous-skip"
	SourceRuleMissing     = "rule:missing-in-response"
	SourceRuleBatchError  = "rule:batch-error"
	SourceRuleNoResult    = "rule:missing-result"
)

// Adjudication scopes.
const (
	ScopeAll           = "all"
	ScopeAmbiguousOnly = "ambiguous_only"
)

const (
	reasonDisabled          = "Fallback (no LLM): matched keywords + category priors."
	reasonConfigError       = "Fallback (LLM config error): matched keywords + category priors."
	reasonUnambiguous       = "Fallback (rule-only): unambiguous topic routing."
	reasonMissingInResponse = "Fallback (LLM missing paper result): matched keywords + category priors."
	reasonBatchError        = "Fallback (LLM batch error): matched keywords + category priors."
	reasonMissingFinal      = "Fallback: missing LLM result."
)

// ScoredPaper carries routing output plus the final adjudication verdict.
type ScoredPaper struct {
	RoutedPaper
	TopicID    int     `json:"topic_id"`
	TopicName  string  `json:"topic"`
	Subtopic   string  `json:"subtopic"`
	Relevance  float64 `json:"relevance"`
	Keep       bool    `json:"keep"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"one_sentence_summary"`
	Source     string  `json:"decision_source"`
}

// AdjudicatorConfig tunes the batch adjudication stage.
type AdjudicatorConfig struct {
	// Enabled gates oracle usage; a disabled oracle is fatal unless
	// AllowRuleFallback is set.
	Enabled bool
	// Scope is ScopeAll or ScopeAmbiguousOnly. Ambiguous-only scoping is
	// ignored in strict mode so every recalled paper gets a verdict.
	Scope string
	// BatchSize is the number of papers per oracle request.
	BatchSize int
	// BatchRetries is the extra attempts per batch against the primary.
	BatchRetries int
	// ParallelWorkers bounds concurrent in-flight batches.
	ParallelWorkers int
	// AllowRuleFallback turns oracle failures into rule-derived verdicts
	// instead of run-fatal errors.
	AllowRuleFallback bool
}

// Adjudicator sends routed papers to the oracle in fixed-size batches,
// optionally cross-checks a secondary oracle, and guarantees exactly one
// verdict per input paper.
type Adjudicator struct {
	cfg       AdjudicatorConfig
	scope     string
	primary   Oracle
	secondary Oracle
	prompt    string
	logger    *slog.Logger
}

// NewAdjudicator wires the oracles. primary may be nil when construction
// failed upstream; secondary is nil when consensus voting is off. An empty
// rubric falls back to the built-in interest statement.
func NewAdjudicator(cfg AdjudicatorConfig, primary, secondary Oracle, rubric string, logger *slog.Logger) *Adjudicator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchRetries < 0 {
		cfg.BatchRetries = 0
	}
	if cfg.ParallelWorkers < 1 {
		cfg.ParallelWorkers = 1
	}
	if rubric == "" {
		rubric = topics.DefaultRubric
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adjudicator{
		cfg:       cfg,
		scope:     normalizeScope(cfg.Scope),
		primary:   primary,
		secondary: secondary,
		prompt:    buildScoringPrompt(rubric),
		logger:    logger,
	}
}

func normalizeScope(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ambiguous", "ambiguous_only", "ambiguous-only":
		return ScopeAmbiguousOnly
	default:
		return ScopeAll
	}
}

// Enabled reports whether oracle scoring is active, meaning verdicts
// come from a model rather than rule fallbacks.
func (a *Adjudicator) Enabled() bool {
	return a != nil && a.cfg.Enabled && a.primary != nil
}

// Adjudicate produces exactly one ScoredPaper per input, in input order.
// In strict mode (AllowRuleFallback=false) any oracle failure aborts the
// run; otherwise failures degrade to rule-derived verdicts with a
// provenance tag naming the failure mode.
func (a *Adjudicator) Adjudicate(ctx context.Context, papers []RoutedPaper) ([]ScoredPaper, error) {
	if len(papers) == 0 {
		return []ScoredPaper{}, nil
	}

	if !a.cfg.Enabled {
		if !a.cfg.AllowRuleFallback {
			return nil, errors.New("oracle adjudication is required but disabled")
		}
		results, sources := a.fallbackAll(papers, reasonDisabled, SourceRuleDisabled, 0.2)
		return a.finalize(papers, results, sources)
	}
	if a.primary == nil {
		if !a.cfg.AllowRuleFallback {
			return nil, errors.New("oracle adjudication is enabled but no primary oracle is configured")
		}
		a.logger.Warn("primary oracle unavailable, scoring the whole day by rules")
		results, sources := a.fallbackAll(papers, reasonConfigError, SourceRuleConfigError, 0.2)
		return a.finalize(papers, results, sources)
	}

	toOracle := papers
	var ruleOnly []RoutedPaper
	if a.scope == ScopeAmbiguousOnly {
		if a.cfg.AllowRuleFallback {
			toOracle = nil
			for _, p := range papers {
				if p.RuleAmbiguous {
					toOracle = append(toOracle, p)
				} else {
					ruleOnly = append(ruleOnly, p)
				}
			}
		} else {
			a.logger.Info("strict mode active, scoring all recalled papers despite ambiguous-only scope")
		}
	}

	results := make(map[string]rawJudgment, len(papers))
	sources := make(map[string]string, len(papers))
	for _, p := range ruleOnly {
		pid := strings.TrimSpace(p.ArxivID)
		results[pid] = a.ruleFallback(p, reasonUnambiguous, 0.2)
		sources[pid] = SourceRuleUnambiguous
	}

	batches := chunk(toOracle, a.cfg.BatchSize)
	workers := a.cfg.ParallelWorkers
	if workers > len(batches) {
		workers = len(batches)
	}

	if workers <= 1 {
		for _, batch := range batches {
			res, src, err := a.runBatch(ctx, batch)
			if err != nil {
				return nil, err
			}
			mergeResults(results, sources, res, src)
		}
	} else {
		a.logger.Info("adjudicating batches in parallel", "batches", len(batches), "workers", workers)

		type slot struct {
			results map[string]rawJudgment
			sources map[string]string
		}
		slots := make([]slot, len(batches))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, batch := range batches {
			g.Go(func() error {
				res, src, err := a.runBatch(gctx, batch)
				if err != nil {
					return err
				}
				slots[i] = slot{results: res, sources: src}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, s := range slots {
			mergeResults(results, sources, s.results, s.sources)
		}
	}

	return a.finalize(papers, results, sources)
}

// runBatch resolves one batch: primary with retries, one best-effort
// secondary vote, and a primary rerun when the two disagree. The rerun
// verdicts are final even if the disagreement persists.
func (a *Adjudicator) runBatch(ctx context.Context, batch []RoutedPaper) (map[string]rawJudgment, map[string]string, error) {
	payload, err := json.Marshal(buildBatchInputs(batch))
	if err != nil {
		return a.batchFailure(batch, fmt.Errorf("marshal batch: %w", err))
	}
	user := a.prompt + "\n" + string(payload)

	primary, err := a.invokeWithRetries(ctx, a.primary, user, a.cfg.BatchRetries)
	if err != nil {
		return a.batchFailure(batch, err)
	}

	final := primary
	if a.secondary != nil {
		secondary, serr := a.invokeWithRetries(ctx, a.secondary, user, 0)
		switch {
		case serr != nil:
			a.logger.Warn("consensus vote skipped, secondary oracle failed",
				"oracle", a.secondary.Name(), "error", serr)
		case len(primary) > 0 && len(secondary) > 0 && !consistent(primary, secondary):
			rerun, rerr := a.invokeWithRetries(ctx, a.primary, user, a.cfg.BatchRetries)
			if rerr != nil {
				a.logger.Warn("consensus rerun failed, keeping first primary verdicts", "error", rerr)
			} else if len(rerun) > 0 {
				final = rerun
			}
		}
	}

	results := make(map[string]rawJudgment, len(batch))
	sources := make(map[string]string, len(batch))
	for _, item := range final {
		pid := strings.TrimSpace(item.str("paper_id"))
		if pid == "" {
			continue
		}
		results[pid] = item
		sources[pid] = SourceOracle
	}

	for _, p := range batch {
		pid := strings.TrimSpace(p.ArxivID)
		if pid == "" {
			continue
		}
		if _, ok := results[pid]; ok {
			continue
		}
		if !a.cfg.AllowRuleFallback {
			return nil, nil, fmt.Errorf("oracle response missed paper %s", pid)
		}
		results[pid] = a.ruleFallback(p, reasonMissingInResponse, 0.2)
		sources[pid] = SourceRuleMissing
	}
	return results, sources, nil
}

func (a *Adjudicator) batchFailure(batch []RoutedPaper, err error) (map[string]rawJudgment, map[string]string, error) {
	if !a.cfg.AllowRuleFallback {
		return nil, nil, fmt.Errorf("oracle batch failed: %w", err)
	}
	a.logger.Warn("oracle batch failed, using rule fallback for the batch",
		"batch_size", len(batch), "error", err)
	results := make(map[string]rawJudgment, len(batch))
	sources := make(map[string]string, len(batch))
	for _, p := range batch {
		pid := strings.TrimSpace(p.ArxivID)
		results[pid] = a.ruleFallback(p, reasonBatchError, 0.2)
		sources[pid] = SourceRuleBatchError
	}
	return results, sources, nil
}

// invokeWithRetries calls the oracle up to retries+1 times until a reply
// parses as a judgment array.
func (a *Adjudicator) invokeWithRetries(ctx context.Context, o Oracle, user string, retries int) ([]rawJudgment, error) {
	if retries < 0 {
		retries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		content, err := o.Complete(ctx, scoringSystemPrompt, user)
		if err != nil {
			lastErr = err
			continue
		}
		parsed, err := parseJudgments(content)
		if err != nil {
			lastErr = err
			continue
		}
		return parsed, nil
	}
	if lastErr == nil {
		lastErr = errors.New("oracle returned no parsable output")
	}
	return nil, lastErr
}

// consistent reports whether two batch outputs agree: every paper id of a
// is present in b, and each shared id carries the same topic and keep
// decision.
func consistent(a, b []rawJudgment) bool {
	am := judgmentsByID(a)
	bm := judgmentsByID(b)
	if len(am) == 0 || len(bm) == 0 {
		return false
	}

	shared := 0
	for pid, aj := range am {
		if pid == "" {
			continue
		}
		bj, ok := bm[pid]
		if !ok {
			continue
		}
		shared++
		at, aok := aj.integer("topic_id")
		bt, bok := bj.integer("topic_id")
		if !aok || !bok || at != bt {
			return false
		}
		if aj.boolean("keep") != bj.boolean("keep") {
			return false
		}
	}
	return shared == len(am)
}

func judgmentsByID(items []rawJudgment) map[string]rawJudgment {
	out := make(map[string]rawJudgment, len(items))
	for _, item := range items {
		out[strings.TrimSpace(item.str("paper_id"))] = item
	}
	return out
}

// ruleFallback builds a rule-derived verdict shaped like an oracle reply.
// The rule score (roughly 0..6) maps linearly onto relevance.
func (a *Adjudicator) ruleFallback(p RoutedPaper, reason string, confidence float64) rawJudgment {
	return rawJudgment{
		"paper_id":             p.ArxivID,
		"topic_id":             float64(p.RuleTopicID),
		"subtopic":             p.RuleSubtopic,
		"relevance":            math.Min(1.0, p.RuleScore/6.0),
		"keep":                 p.RuleScore >= 2.0,
		"reason":               reason,
		"confidence":           confidence,
		"one_sentence_summary": oneSentenceSummary(firstNonEmpty(p.Abstract, p.Title)),
	}
}

func (a *Adjudicator) fallbackAll(papers []RoutedPaper, reason, source string, confidence float64) (map[string]rawJudgment, map[string]string) {
	results := make(map[string]rawJudgment, len(papers))
	sources := make(map[string]string, len(papers))
	for _, p := range papers {
		pid := strings.TrimSpace(p.ArxivID)
		results[pid] = a.ruleFallback(p, reason, confidence)
		sources[pid] = source
	}
	return results, sources
}

// finalize normalizes raw verdicts into ScoredPapers, one per input in
// input order. Topic ids outside the taxonomy revert to the rule topic,
// relevance and confidence are clamped into [0,1], and a missing summary
// is synthesized from reason, abstract or title.
func (a *Adjudicator) finalize(papers []RoutedPaper, results map[string]rawJudgment, sources map[string]string) ([]ScoredPaper, error) {
	scored := make([]ScoredPaper, 0, len(papers))
	for _, p := range papers {
		pid := strings.TrimSpace(p.ArxivID)
		r, ok := results[pid]
		source := sources[pid]
		if !ok {
			if !a.cfg.AllowRuleFallback {
				return nil, fmt.Errorf("missing oracle result for paper %s", pid)
			}
			r = a.ruleFallback(p, reasonMissingFinal, 0.1)
			source = SourceRuleNoResult
		}
		if source == "" {
			source = SourceOracle
		}

		tid, tok := r.integer("topic_id")
		if !tok || !topics.Known(tid) {
			tid = p.RuleTopicID
		}
		if !topics.Known(tid) {
			tid = 1
		}

		relevance, _ := r.num("relevance")
		confidence, _ := r.num("confidence")
		reason := r.str("reason")

		summary := strings.TrimSpace(r.str("one_sentence_summary"))
		if summary == "" {
			summary = oneSentenceSummary(firstNonEmpty(reason, p.Abstract, p.Title))
		}

		scored = append(scored, ScoredPaper{
			RoutedPaper: p,
			TopicID:     tid,
			TopicName:   topics.Name(tid),
			Subtopic:    firstNonEmpty(strings.TrimSpace(r.str("subtopic")), p.RuleSubtopic),
			Relevance:   clamp01(relevance),
			Keep:        r.boolean("keep"),
			Reason:      reason,
			Confidence:  clamp01(confidence),
			Summary:     summary,
			Source:      source,
		})
	}
	return scored, nil
}

// batchInput is the per-paper request record sent to the oracle.
type batchInput struct {
	PaperID         string      `json:"paper_id"`
	Title           string      `json:"title"`
	Abstract        string      `json:"abstract"`
	Authors         []string    `json:"authors"`
	Comment         string      `json:"comment"`
	PrimaryCategory string      `json:"primary_category"`
	Categories      []string    `json:"categories"`
	Published       string      `json:"published"`
	Updated         string      `json:"updated"`
	JournalRef      string      `json:"journal_ref"`
	DOI             string      `json:"doi"`
	RuleTopicID     int         `json:"rule_topic_id"`
	RuleSubtopic    string      `json:"rule_subtopic"`
	RuleCandidates  []Candidate `json:"rule_candidates"`
	RecallHits      []string    `json:"recall_hits"`
}

func buildBatchInputs(batch []RoutedPaper) []batchInput {
	inputs := make([]batchInput, 0, len(batch))
	for _, p := range batch {
		inputs = append(inputs, batchInput{
			PaperID:         p.ArxivID,
			Title:           truncateRunes(p.Title, 300),
			Abstract:        truncateRunes(p.Abstract, 1600),
			Authors:         headStrings(p.Authors, 10),
			Comment:         truncateRunes(p.Comment, 400),
			PrimaryCategory: p.PrimaryCategory,
			Categories:      headStrings(p.Categories, len(p.Categories)),
			Published:       formatTime(p.Published),
			Updated:         formatTime(p.Updated),
			JournalRef:      p.JournalRef,
			DOI:             p.DOI,
			RuleTopicID:     p.RuleTopicID,
			RuleSubtopic:    p.RuleSubtopic,
			RuleCandidates:  headCandidates(p.RuleCandidates),
			RecallHits:      headStrings(p.RecallHits, 10),
		})
	}
	return inputs
}

func mergeResults(results map[string]rawJudgment, sources map[string]string, res map[string]rawJudgment, src map[string]string) {
	for pid, r := range res {
		results[pid] = r
	}
	for pid, s := range src {
		sources[pid] = s
	}
}

func chunk(items []RoutedPaper, size int) [][]RoutedPaper {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]RoutedPaper
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func headStrings(items []string, limit int) []string {
	if items == nil {
		return []string{}
	}
	if len(items) <= limit {
		return items
	}
	return items[:limit]
}

func headCandidates(items []Candidate) []Candidate {
	if items == nil {
		return []Candidate{}
	}
	return items
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
