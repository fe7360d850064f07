package triage

import (
	"testing"

	"ArxivDigest/internal/topics"
)

func scoredPaper(id string, topicID int, relevance, ruleScore float64, keep bool) ScoredPaper {
	return ScoredPaper{
		RoutedPaper: makeRouted(id, topicID, ruleScore, false),
		TopicID:     topicID,
		TopicName:   topics.Name(topicID),
		Relevance:   relevance,
		Keep:        keep,
		Confidence:  0.8,
		Summary:     "Summary " + id,
		Source:      SourceOracle,
	}
}

func groupFor(t *testing.T, d *Digest, topicID int) TopicGroup {
	t.Helper()
	for _, g := range d.Topics {
		if g.TopicID == topicID {
			return g
		}
	}
	t.Fatalf("topic %d missing from digest", topicID)
	return TopicGroup{}
}

func TestSelectOrderingWithinTopic(t *testing.T) {
	t.Parallel()

	papers := []ScoredPaper{
		scoredPaper("low-score", 3, 0.7, 1.0, true),
		scoredPaper("top", 3, 0.9, 1.0, true),
		scoredPaper("mid", 3, 0.7, 2.0, true),
	}

	digest := SelectAndGroup(papers, DigestMeta{}, 0, nil)
	group := groupFor(t, digest, 3)

	if group.Count != 3 {
		t.Fatalf("count = %d, want 3", group.Count)
	}
	want := []string{"top", "mid", "low-score"}
	for i, id := range want {
		if group.Papers[i].ArxivID != id {
			t.Fatalf("position %d = %s, want %s", i, group.Papers[i].ArxivID, id)
		}
	}
}

func TestSelectRecallHitsBreakTies(t *testing.T) {
	t.Parallel()

	few := scoredPaper("few-hits", 5, 0.8, 2.0, true)
	few.RecallHitCount = 2
	many := scoredPaper("many-hits", 5, 0.8, 2.0, true)
	many.RecallHitCount = 5

	digest := SelectAndGroup([]ScoredPaper{few, many}, DigestMeta{}, 0, nil)
	group := groupFor(t, digest, 5)

	if group.Papers[0].ArxivID != "many-hits" || group.Papers[1].ArxivID != "few-hits" {
		t.Fatalf("unexpected order: %s, %s", group.Papers[0].ArxivID, group.Papers[1].ArxivID)
	}
}

func TestSelectAppliesTopicCap(t *testing.T) {
	t.Parallel()

	papers := []ScoredPaper{
		scoredPaper("r6", 3, 0.6, 1.0, true),
		scoredPaper("r9", 3, 0.9, 1.0, true),
		scoredPaper("r7", 3, 0.7, 1.0, true),
		scoredPaper("r8", 3, 0.8, 1.0, true),
	}

	digest := SelectAndGroup(papers, DigestMeta{}, 0, map[int]int{3: 2})
	group := groupFor(t, digest, 3)

	if group.Limit != 2 || group.Count != 2 {
		t.Fatalf("limit/count = %d/%d, want 2/2", group.Limit, group.Count)
	}
	// The dropped papers are exactly the lowest ranked.
	if group.Papers[0].ArxivID != "r9" || group.Papers[1].ArxivID != "r8" {
		t.Fatalf("unexpected survivors: %s, %s", group.Papers[0].ArxivID, group.Papers[1].ArxivID)
	}
}

func TestSelectDefaultCap(t *testing.T) {
	t.Parallel()

	papers := make([]ScoredPaper, 0, 5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		papers = append(papers, scoredPaper(id, 1, 0.9, 1.0, true))
	}

	digest := SelectAndGroup(papers, DigestMeta{}, 0, nil)
	group := groupFor(t, digest, 1)

	if group.Limit != 3 || group.Count != 3 {
		t.Fatalf("limit/count = %d/%d, want default cap 3", group.Limit, group.Count)
	}
}

func TestSelectThresholdFiltering(t *testing.T) {
	t.Parallel()

	papers := []ScoredPaper{
		scoredPaper("at", 3, 0.55, 1.0, true),
		scoredPaper("below", 3, 0.54, 1.0, true),
		scoredPaper("unkept", 3, 0.99, 1.0, false),
	}

	digest := SelectAndGroup(papers, DigestMeta{}, 0, nil)

	if digest.Threshold != 0.55 {
		t.Fatalf("threshold = %v, want default 0.55", digest.Threshold)
	}
	group := groupFor(t, digest, 3)
	if group.Count != 1 || group.Papers[0].ArxivID != "at" {
		t.Fatalf("unexpected selection: %+v", group.Papers)
	}
}

func TestSelectThresholdClamped(t *testing.T) {
	t.Parallel()

	perfect := scoredPaper("perfect", 3, 1.0, 1.0, true)
	good := scoredPaper("good", 3, 0.95, 1.0, true)

	digest := SelectAndGroup([]ScoredPaper{perfect, good}, DigestMeta{}, 2.0, nil)
	if digest.Threshold != 1.0 {
		t.Fatalf("threshold = %v, want clamped 1.0", digest.Threshold)
	}
	group := groupFor(t, digest, 3)
	if group.Count != 1 || group.Papers[0].ArxivID != "perfect" {
		t.Fatalf("unexpected selection: %+v", group.Papers)
	}

	digest = SelectAndGroup([]ScoredPaper{scoredPaper("zero", 3, 0.0, 1.0, true)}, DigestMeta{}, -4.0, nil)
	if digest.Threshold != 0.0 {
		t.Fatalf("threshold = %v, want clamped 0.0", digest.Threshold)
	}
	if groupFor(t, digest, 3).Count != 1 {
		t.Fatal("zero threshold must keep every kept paper")
	}
}

func TestSelectAllTopicsPresent(t *testing.T) {
	t.Parallel()

	digest := SelectAndGroup([]ScoredPaper{scoredPaper("only", 3, 0.9, 1.0, true)}, DigestMeta{}, 0, nil)

	if len(digest.Topics) != len(topics.Defs) {
		t.Fatalf("got %d topic groups, want %d", len(digest.Topics), len(topics.Defs))
	}
	for i, g := range digest.Topics {
		if g.TopicID != i+1 {
			t.Fatalf("group %d has topic id %d, want id order", i, g.TopicID)
		}
		if g.Topic != topics.Name(g.TopicID) {
			t.Fatalf("group %d name = %q", i, g.Topic)
		}
		if g.Papers == nil {
			t.Fatalf("group %d papers must not be nil", i)
		}
		if g.TopicID != 3 && g.Count != 0 {
			t.Fatalf("group %d unexpectedly has %d papers", i, g.Count)
		}
	}
}

func TestSelectDigestMetadata(t *testing.T) {
	t.Parallel()

	meta := DigestMeta{
		Day:           "2025-11-10",
		Timezone:      "Asia/Shanghai",
		Rubric:        "custom rubric",
		OracleEnabled: true,
	}
	papers := []ScoredPaper{
		scoredPaper("a", 1, 0.9, 1.0, true),
		scoredPaper("b", 5, 0.8, 1.0, true),
	}

	digest := SelectAndGroup(papers, meta, 0.6, nil)

	if digest.Day != meta.Day || digest.Timezone != meta.Timezone {
		t.Fatalf("metadata lost: %+v", digest)
	}
	if digest.Rubric != meta.Rubric || !digest.OracleEnabled {
		t.Fatalf("metadata lost: %+v", digest)
	}
	if digest.Threshold != 0.6 {
		t.Fatalf("threshold = %v, want 0.6", digest.Threshold)
	}
	if digest.TotalSelected() != 2 {
		t.Fatalf("total = %d, want 2", digest.TotalSelected())
	}
}
