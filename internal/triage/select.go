package triage

import (
	"sort"

	"ArxivDigest/internal/topics"
)

const defaultRelevanceThreshold = 0.55

var defaultTopicLimits = topics.DefaultLimits()

// TopicGroup is one topic section of the digest: the capped, ranked
// papers selected for that topic.
type TopicGroup struct {
	TopicID int           `json:"topic_id"`
	Topic   string        `json:"topic"`
	Limit   int           `json:"limit"`
	Count   int           `json:"count"`
	Papers  []ScoredPaper `json:"papers"`
}

// DigestMeta carries run metadata into the final artifact.
type DigestMeta struct {
	Day           string
	Timezone      string
	Rubric        string
	OracleEnabled bool
}

// Digest is the final grouped artifact of a pipeline run. It is built
// once and never mutated afterwards.
type Digest struct {
	Day           string       `json:"day"`
	Timezone      string       `json:"timezone"`
	Rubric        string       `json:"rubric"`
	Threshold     float64      `json:"threshold"`
	OracleEnabled bool         `json:"oracle_enabled"`
	Topics        []TopicGroup `json:"topics"`
}

// TotalSelected counts papers across all topic groups.
func (d *Digest) TotalSelected() int {
	total := 0
	for _, g := range d.Topics {
		total += g.Count
	}
	return total
}

// SelectAndGroup keeps papers the oracle kept with relevance at or above
// the threshold, groups them by topic, ranks each group by descending
// (relevance, rule score, recall hit count) and truncates it to the
// topic's cap. Every taxonomy topic appears in the output, in id order,
// even when empty. A zero threshold means the 0.55 default; out-of-range
// values are clamped into [0,1].
func SelectAndGroup(papers []ScoredPaper, meta DigestMeta, threshold float64, limits map[int]int) *Digest {
	if threshold == 0 {
		threshold = defaultRelevanceThreshold
	}
	threshold = clamp01(threshold)

	grouped := make(map[int][]ScoredPaper, len(topics.Defs))
	for _, p := range papers {
		if !p.Keep || p.Relevance < threshold {
			continue
		}
		if !topics.Known(p.TopicID) {
			continue
		}
		grouped[p.TopicID] = append(grouped[p.TopicID], p)
	}

	groups := make([]TopicGroup, 0, len(topics.Defs))
	for _, id := range topics.IDs() {
		selected := grouped[id]
		sort.SliceStable(selected, func(i, j int) bool {
			a, b := selected[i], selected[j]
			if a.Relevance != b.Relevance {
				return a.Relevance > b.Relevance
			}
			if a.RuleScore != b.RuleScore {
				return a.RuleScore > b.RuleScore
			}
			return a.RecallHitCount > b.RecallHitCount
		})

		limit := limitFor(limits, id)
		if len(selected) > limit {
			selected = selected[:limit]
		}
		if selected == nil {
			selected = []ScoredPaper{}
		}

		groups = append(groups, TopicGroup{
			TopicID: id,
			Topic:   topics.Name(id),
			Limit:   limit,
			Count:   len(selected),
			Papers:  selected,
		})
	}

	return &Digest{
		Day:           meta.Day,
		Timezone:      meta.Timezone,
		Rubric:        meta.Rubric,
		Threshold:     threshold,
		OracleEnabled: meta.OracleEnabled,
		Topics:        groups,
	}
}

func limitFor(limits map[int]int, id int) int {
	if limit, ok := limits[id]; ok && limit > 0 {
		return limit
	}
	return defaultTopicLimits[id]
}
