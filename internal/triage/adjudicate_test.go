package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"ArxivDigest/internal/domain"
)

// mockOracle returns preconfigured responses in sequence.
type mockOracle struct {
	name      string
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
	respond   func(call int, system, user string) (string, error)
}

func (m *mockOracle) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockOracle) Complete(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	m.calls++
	m.prompts = append(m.prompts, user)

	if m.respond != nil {
		return m.respond(idx, system, user)
	}
	if idx < len(m.errs) && m.errs[idx] != nil {
		return "", m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	if len(m.responses) > 0 {
		return m.responses[len(m.responses)-1], nil
	}
	return "[]", nil
}

func (m *mockOracle) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func makeRouted(id string, topicID int, score float64, ambiguous bool) RoutedPaper {
	return RoutedPaper{
		RecalledPaper: RecalledPaper{
			Paper: domain.Paper{
				ArxivID:  id,
				Title:    "Title " + id,
				Abstract: "Abstract about " + id + ". More detail.",
			},
			RecallHits:     []string{"llm"},
			RecallHitCount: 1,
		},
		RuleTopicID:    topicID,
		RuleSubtopic:   "Rule subtopic",
		RuleScore:      score,
		RuleAmbiguous:  ambiguous,
		RuleCandidates: []Candidate{{TopicID: topicID, Score: score}},
	}
}

func lenientConfig() AdjudicatorConfig {
	return AdjudicatorConfig{Enabled: true, AllowRuleFallback: true}
}

func strictConfig() AdjudicatorConfig {
	return AdjudicatorConfig{Enabled: true}
}

func TestAdjudicateOracleVerdicts(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true), makeRouted("p2", 5, 2.0, false)}
	oracle := &mockOracle{responses: []string{`[
		{"paper_id":"p1","topic_id":3,"subtopic":"Agent things","relevance":0.91,"keep":true,"reason":"strong fit","confidence":0.8,"one_sentence_summary":"An agent system."},
		{"paper_id":"p2","topic_id":5,"relevance":0.3,"keep":false,"reason":"tangential","confidence":0.6,"one_sentence_summary":"A search paper."}
	]`}}

	adj := NewAdjudicator(lenientConfig(), oracle, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if len(scored) != 2 {
		t.Fatalf("expected 2 results, got %d", len(scored))
	}
	if scored[0].ArxivID != "p1" || scored[1].ArxivID != "p2" {
		t.Fatalf("input order lost: %s, %s", scored[0].ArxivID, scored[1].ArxivID)
	}

	first := scored[0]
	if first.TopicID != 3 || first.TopicName != "Agents & RL" {
		t.Fatalf("topic = %d/%q", first.TopicID, first.TopicName)
	}
	if first.Subtopic != "Agent things" || first.Relevance != 0.91 || !first.Keep {
		t.Fatalf("unexpected verdict: %+v", first)
	}
	if first.Reason != "strong fit" || first.Confidence != 0.8 || first.Summary != "An agent system." {
		t.Fatalf("unexpected verdict: %+v", first)
	}
	if first.Source != SourceOracle || scored[1].Source != SourceOracle {
		t.Fatalf("sources = %q/%q, want oracle", first.Source, scored[1].Source)
	}
	if scored[1].Keep {
		t.Fatal("p2 keep should be false")
	}
	if oracle.callCount() != 1 {
		t.Fatalf("oracle called %d times, want 1", oracle.callCount())
	}
}

func TestAdjudicateNormalizesVerdicts(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true), makeRouted("p2", 5, 2.0, false)}
	oracle := &mockOracle{responses: []string{`[
		{"paper_id":"p1","topic_id":42,"relevance":"1.7","keep":"true","confidence":-0.2,"reason":"Good fit. Extra detail."},
		{"paper_id":"p2","relevance":0.6,"keep":true,"reason":""}
	]`}}

	adj := NewAdjudicator(lenientConfig(), oracle, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	first := scored[0]
	if first.TopicID != 3 {
		t.Fatalf("out-of-taxonomy topic must revert to rule topic, got %d", first.TopicID)
	}
	if first.Relevance != 1.0 {
		t.Fatalf("relevance = %v, want clamped 1.0", first.Relevance)
	}
	if first.Confidence != 0.0 {
		t.Fatalf("confidence = %v, want clamped 0.0", first.Confidence)
	}
	if !first.Keep {
		t.Fatal("string keep not coerced")
	}
	if first.Subtopic != "Rule subtopic" {
		t.Fatalf("subtopic = %q, want rule subtopic", first.Subtopic)
	}
	if first.Summary != "Good fit" {
		t.Fatalf("summary = %q, want first sentence of reason", first.Summary)
	}

	second := scored[1]
	if second.TopicID != 5 {
		t.Fatalf("missing topic must revert to rule topic, got %d", second.TopicID)
	}
	if second.Summary != "Abstract about p2" {
		t.Fatalf("summary = %q, want first sentence of abstract", second.Summary)
	}
}

func TestAdjudicateConsensusRerun(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true)}
	primary := &mockOracle{name: "primary", responses: []string{
		`[{"paper_id":"p1","topic_id":3,"relevance":0.8,"keep":true,"reason":"first","confidence":0.9,"one_sentence_summary":"A."}]`,
		`[{"paper_id":"p1","topic_id":5,"relevance":0.7,"keep":true,"reason":"rerun","confidence":0.85,"one_sentence_summary":"B."}]`,
	}}
	secondary := &mockOracle{name: "secondary", responses: []string{
		`[{"paper_id":"p1","topic_id":5,"keep":true}]`,
	}}

	adj := NewAdjudicator(lenientConfig(), primary, secondary, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if primary.callCount() != 2 {
		t.Fatalf("primary called %d times, want 2", primary.callCount())
	}
	if secondary.callCount() != 1 {
		t.Fatalf("secondary called %d times, want 1", secondary.callCount())
	}
	if scored[0].TopicID != 5 || scored[0].Reason != "rerun" {
		t.Fatalf("rerun verdict not final: %+v", scored[0])
	}
	if scored[0].Source != SourceOracle {
		t.Fatalf("source = %q, want oracle", scored[0].Source)
	}
}

func TestAdjudicateConsensusAgreement(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true)}
	verdict := `[{"paper_id":"p1","topic_id":3,"relevance":0.8,"keep":true,"reason":"agree","confidence":0.9,"one_sentence_summary":"A."}]`
	primary := &mockOracle{responses: []string{verdict}}
	secondary := &mockOracle{responses: []string{`[{"paper_id":"p1","topic_id":3,"keep":true}]`}}

	adj := NewAdjudicator(lenientConfig(), primary, secondary, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if primary.callCount() != 1 || secondary.callCount() != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", primary.callCount(), secondary.callCount())
	}
	if scored[0].Reason != "agree" {
		t.Fatalf("unexpected verdict: %+v", scored[0])
	}
}

func TestAdjudicateSecondaryFailureKeepsPrimary(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true)}
	primary := &mockOracle{responses: []string{
		`[{"paper_id":"p1","topic_id":3,"relevance":0.8,"keep":true,"reason":"first","confidence":0.9,"one_sentence_summary":"A."}]`,
	}}
	secondary := &mockOracle{errs: []error{errors.New("secondary down")}}

	// The vote is best effort even in strict mode.
	adj := NewAdjudicator(strictConfig(), primary, secondary, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if primary.callCount() != 1 {
		t.Fatalf("primary called %d times, want 1", primary.callCount())
	}
	if scored[0].Reason != "first" || scored[0].Source != SourceOracle {
		t.Fatalf("unexpected verdict: %+v", scored[0])
	}
}

func TestAdjudicateRerunFailureKeepsFirstVerdicts(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true)}
	primary := &mockOracle{
		responses: []string{
			`[{"paper_id":"p1","topic_id":3,"relevance":0.8,"keep":true,"reason":"first","confidence":0.9,"one_sentence_summary":"A."}]`,
		},
		errs: []error{nil, errors.New("rerun down")},
	}
	secondary := &mockOracle{responses: []string{`[{"paper_id":"p1","topic_id":5,"keep":true}]`}}

	adj := NewAdjudicator(lenientConfig(), primary, secondary, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if primary.callCount() != 2 {
		t.Fatalf("primary called %d times, want 2", primary.callCount())
	}
	if scored[0].TopicID != 3 || scored[0].Reason != "first" {
		t.Fatalf("first verdict not kept: %+v", scored[0])
	}
}

func TestAdjudicateDisabledStrictFails(t *testing.T) {
	t.Parallel()

	cfg := AdjudicatorConfig{Enabled: false}
	adj := NewAdjudicator(cfg, &mockOracle{}, nil, "", nil)

	if _, err := adj.Adjudicate(context.Background(), []RoutedPaper{makeRouted("p1", 3, 3.0, true)}); err == nil {
		t.Fatal("expected error when the oracle is disabled in strict mode")
	}
}

func TestAdjudicateDisabledLenientDegrades(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{
		makeRouted("mid", 3, 3.0, true),
		makeRouted("low", 5, 1.5, true),
		makeRouted("high", 7, 9.0, false),
	}
	oracle := &mockOracle{}
	cfg := AdjudicatorConfig{Enabled: false, AllowRuleFallback: true}

	adj := NewAdjudicator(cfg, oracle, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}
	if oracle.callCount() != 0 {
		t.Fatalf("oracle called %d times while disabled", oracle.callCount())
	}

	wantRelevance := []float64{0.5, 0.25, 1.0}
	wantKeep := []bool{true, false, true}
	for i, p := range scored {
		if p.Relevance != wantRelevance[i] {
			t.Fatalf("%s relevance = %v, want %v", p.ArxivID, p.Relevance, wantRelevance[i])
		}
		if p.Keep != wantKeep[i] {
			t.Fatalf("%s keep = %v, want %v", p.ArxivID, p.Keep, wantKeep[i])
		}
		if p.Source != SourceRuleDisabled {
			t.Fatalf("%s source = %q, want %q", p.ArxivID, p.Source, SourceRuleDisabled)
		}
		if !strings.HasPrefix(p.Reason, "Fallback (no LLM)") {
			t.Fatalf("%s reason = %q", p.ArxivID, p.Reason)
		}
		if p.Confidence != 0.2 {
			t.Fatalf("%s confidence = %v, want 0.2", p.ArxivID, p.Confidence)
		}
		if p.TopicID != p.RuleTopicID || p.TopicName == "" {
			t.Fatalf("%s topic = %d/%q", p.ArxivID, p.TopicID, p.TopicName)
		}
		if p.Summary != "Abstract about "+p.ArxivID {
			t.Fatalf("%s summary = %q", p.ArxivID, p.Summary)
		}
	}
}

func TestAdjudicateNoPrimaryStrictFails(t *testing.T) {
	t.Parallel()

	adj := NewAdjudicator(strictConfig(), nil, nil, "", nil)
	if _, err := adj.Adjudicate(context.Background(), []RoutedPaper{makeRouted("p1", 3, 3.0, true)}); err == nil {
		t.Fatal("expected error when no primary oracle is configured")
	}
}

func TestAdjudicateNoPrimaryLenientDegrades(t *testing.T) {
	t.Parallel()

	adj := NewAdjudicator(lenientConfig(), nil, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), []RoutedPaper{makeRouted("p1", 3, 3.0, true)})
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}
	if scored[0].Source != SourceRuleConfigError {
		t.Fatalf("source = %q, want %q", scored[0].Source, SourceRuleConfigError)
	}
	if !strings.HasPrefix(scored[0].Reason, "Fallback (LLM config error)") {
		t.Fatalf("reason = %q", scored[0].Reason)
	}
}

func TestAdjudicateBatchErrorLenientFallsBack(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true), makeRouted("p2", 5, 1.0, true)}
	oracle := &mockOracle{errs: []error{errors.New("boom"), errors.New("boom again")}}
	cfg := lenientConfig()
	cfg.BatchRetries = 1

	adj := NewAdjudicator(cfg, oracle, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if oracle.callCount() != 2 {
		t.Fatalf("oracle called %d times, want 2 attempts", oracle.callCount())
	}
	for _, p := range scored {
		if p.Source != SourceRuleBatchError {
			t.Fatalf("%s source = %q, want %q", p.ArxivID, p.Source, SourceRuleBatchError)
		}
		if !strings.HasPrefix(p.Reason, "Fallback (LLM batch error)") {
			t.Fatalf("%s reason = %q", p.ArxivID, p.Reason)
		}
	}
}

func TestAdjudicateBatchErrorStrictFatal(t *testing.T) {
	t.Parallel()

	oracle := &mockOracle{errs: []error{errors.New("boom")}}
	adj := NewAdjudicator(strictConfig(), oracle, nil, "", nil)

	scored, err := adj.Adjudicate(context.Background(), []RoutedPaper{makeRouted("p1", 3, 3.0, true)})
	if err == nil {
		t.Fatal("expected error in strict mode")
	}
	if scored != nil {
		t.Fatalf("expected no results, got %d", len(scored))
	}
	if !strings.Contains(err.Error(), "oracle batch failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdjudicateMissingPaperLenientFallback(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true), makeRouted("p2", 5, 2.5, true)}
	oracle := &mockOracle{responses: []string{
		`[{"paper_id":"p1","topic_id":3,"relevance":0.9,"keep":true,"reason":"ok","confidence":0.8,"one_sentence_summary":"A."}]`,
	}}

	adj := NewAdjudicator(lenientConfig(), oracle, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if len(scored) != 2 {
		t.Fatalf("expected 2 results, got %d", len(scored))
	}
	if scored[0].Source != SourceOracle {
		t.Fatalf("p1 source = %q", scored[0].Source)
	}
	if scored[1].Source != SourceRuleMissing {
		t.Fatalf("p2 source = %q, want %q", scored[1].Source, SourceRuleMissing)
	}
	if !strings.HasPrefix(scored[1].Reason, "Fallback (LLM missing paper result)") {
		t.Fatalf("p2 reason = %q", scored[1].Reason)
	}
}

func TestAdjudicateMissingPaperStrictFatal(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("p1", 3, 3.0, true), makeRouted("p2", 5, 2.5, true)}
	oracle := &mockOracle{responses: []string{
		`[{"paper_id":"p1","topic_id":3,"relevance":0.9,"keep":true,"reason":"ok","confidence":0.8,"one_sentence_summary":"A."}]`,
	}}

	adj := NewAdjudicator(strictConfig(), oracle, nil, "", nil)
	_, err := adj.Adjudicate(context.Background(), papers)
	if err == nil {
		t.Fatal("expected error for the missing paper")
	}
	if !strings.Contains(err.Error(), "p2") {
		t.Fatalf("error does not name the paper: %v", err)
	}
}

func TestAdjudicateAmbiguousOnlyScope(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("amb-1", 3, 1.5, true), makeRouted("clear-2", 5, 4.0, false)}
	oracle := &mockOracle{responses: []string{
		`[{"paper_id":"amb-1","topic_id":3,"relevance":0.7,"keep":true,"reason":"judged","confidence":0.8,"one_sentence_summary":"A."}]`,
	}}
	cfg := lenientConfig()
	cfg.Scope = ScopeAmbiguousOnly

	adj := NewAdjudicator(cfg, oracle, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if oracle.callCount() != 1 {
		t.Fatalf("oracle called %d times, want 1", oracle.callCount())
	}
	prompt := oracle.prompts[0]
	if !strings.Contains(prompt, "amb-1") || strings.Contains(prompt, "clear-2") {
		t.Fatal("oracle batch should contain only the ambiguous paper")
	}

	if scored[0].Source != SourceOracle || scored[0].Reason != "judged" {
		t.Fatalf("amb-1 verdict: %+v", scored[0])
	}
	if scored[1].Source != SourceRuleUnambiguous {
		t.Fatalf("clear-2 source = %q, want %q", scored[1].Source, SourceRuleUnambiguous)
	}
	if !strings.HasPrefix(scored[1].Reason, "Fallback (rule-only)") {
		t.Fatalf("clear-2 reason = %q", scored[1].Reason)
	}
	if scored[1].Confidence != 0.2 {
		t.Fatalf("clear-2 confidence = %v, want 0.2", scored[1].Confidence)
	}
}

func TestAdjudicateStrictScoresAllDespiteScope(t *testing.T) {
	t.Parallel()

	papers := []RoutedPaper{makeRouted("amb-1", 3, 1.5, true), makeRouted("clear-2", 5, 4.0, false)}
	oracle := &mockOracle{responses: []string{`[
		{"paper_id":"amb-1","topic_id":3,"relevance":0.7,"keep":true,"reason":"a","confidence":0.8,"one_sentence_summary":"A."},
		{"paper_id":"clear-2","topic_id":5,"relevance":0.8,"keep":true,"reason":"b","confidence":0.8,"one_sentence_summary":"B."}
	]`}}
	cfg := strictConfig()
	cfg.Scope = ScopeAmbiguousOnly

	adj := NewAdjudicator(cfg, oracle, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if !strings.Contains(oracle.prompts[0], "clear-2") {
		t.Fatal("strict mode must send unambiguous papers to the oracle too")
	}
	for _, p := range scored {
		if p.Source != SourceOracle {
			t.Fatalf("%s source = %q, want oracle", p.ArxivID, p.Source)
		}
	}
}

func TestAdjudicateParallelBatches(t *testing.T) {
	t.Parallel()

	papers := make([]RoutedPaper, 0, 30)
	for i := 0; i < 30; i++ {
		papers = append(papers, makeRouted(fmt.Sprintf("p-%02d", i), 3, 3.0, true))
	}

	oracle := &mockOracle{
		respond: func(_ int, _ string, user string) (string, error) {
			payload := user[strings.LastIndex(user, "\n")+1:]
			var inputs []map[string]any
			if err := json.Unmarshal([]byte(payload), &inputs); err != nil {
				return "", err
			}
			verdicts := make([]map[string]any, 0, len(inputs))
			for _, in := range inputs {
				verdicts = append(verdicts, map[string]any{
					"paper_id":             in["paper_id"],
					"topic_id":             3,
					"relevance":            0.8,
					"keep":                 true,
					"reason":               "ok",
					"confidence":           0.9,
					"one_sentence_summary": "S.",
				})
			}
			out, err := json.Marshal(verdicts)
			return string(out), err
		},
	}
	cfg := lenientConfig()
	cfg.BatchSize = 5
	cfg.ParallelWorkers = 3

	adj := NewAdjudicator(cfg, oracle, nil, "", nil)
	scored, err := adj.Adjudicate(context.Background(), papers)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}

	if oracle.callCount() != 6 {
		t.Fatalf("oracle called %d times, want 6 batches", oracle.callCount())
	}
	if len(scored) != len(papers) {
		t.Fatalf("got %d results for %d papers", len(scored), len(papers))
	}
	seen := make(map[string]bool, len(scored))
	for i, p := range scored {
		if p.ArxivID != papers[i].ArxivID {
			t.Fatalf("input order lost at %d: %s vs %s", i, p.ArxivID, papers[i].ArxivID)
		}
		if seen[p.ArxivID] {
			t.Fatalf("duplicate result for %s", p.ArxivID)
		}
		seen[p.ArxivID] = true
		if p.Source != SourceOracle {
			t.Fatalf("%s source = %q", p.ArxivID, p.Source)
		}
	}
}

func TestAdjudicateEmptyResponseFallsBackPerPaper(t *testing.T) {
	t.Parallel()

	// An empty JSON array parses fine; the papers are then individually
	// missing from the response.
	oracle := &mockOracle{responses: []string{"[]"}}
	adj := NewAdjudicator(lenientConfig(), oracle, nil, "", nil)

	scored, err := adj.Adjudicate(context.Background(), []RoutedPaper{makeRouted("p1", 3, 3.0, true)})
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}
	if oracle.callCount() != 1 {
		t.Fatalf("oracle called %d times, want 1 (no retries on a parsable reply)", oracle.callCount())
	}
	if scored[0].Source != SourceRuleMissing {
		t.Fatalf("source = %q, want %q", scored[0].Source, SourceRuleMissing)
	}
}

func TestAdjudicateEmptyInput(t *testing.T) {
	t.Parallel()

	oracle := &mockOracle{}
	adj := NewAdjudicator(lenientConfig(), oracle, nil, "", nil)

	scored, err := adj.Adjudicate(context.Background(), nil)
	if err != nil {
		t.Fatalf("adjudicate failed: %v", err)
	}
	if len(scored) != 0 || oracle.callCount() != 0 {
		t.Fatalf("expected no work, got %d results and %d calls", len(scored), oracle.callCount())
	}
}

func TestConsistent(t *testing.T) {
	t.Parallel()

	j := func(id string, topic float64, keep bool) rawJudgment {
		return rawJudgment{"paper_id": id, "topic_id": topic, "keep": keep}
	}

	cases := []struct {
		name string
		a, b []rawJudgment
		want bool
	}{
		{"agree", []rawJudgment{j("x", 3, true)}, []rawJudgment{j("x", 3, true)}, true},
		{"topic differs", []rawJudgment{j("x", 3, true)}, []rawJudgment{j("x", 5, true)}, false},
		{"keep differs", []rawJudgment{j("x", 3, true)}, []rawJudgment{j("x", 3, false)}, false},
		{"b superset ok", []rawJudgment{j("x", 3, true)}, []rawJudgment{j("x", 3, true), j("y", 5, true)}, true},
		{"a id missing in b", []rawJudgment{j("x", 3, true), j("y", 5, true)}, []rawJudgment{j("x", 3, true)}, false},
		{"empty a", nil, []rawJudgment{j("x", 3, true)}, false},
		{"empty b", []rawJudgment{j("x", 3, true)}, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := consistent(tc.a, tc.b); got != tc.want {
				t.Fatalf("consistent = %v, want %v", got, tc.want)
			}
		})
	}
}
