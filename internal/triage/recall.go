package triage

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"ArxivDigest/internal/domain"
)

var spaceExpr = regexp.MustCompile(`\s+`)

// normalizeText lowercases and collapses runs of whitespace.
func normalizeText(s string) string {
	return strings.TrimSpace(spaceExpr.ReplaceAllString(strings.ToLower(s), " "))
}

// termMatcher is one compiled vocabulary entry. Phrases match by substring;
// single tokens match on word boundaries, with an optional plural 's' for
// tokens of three or more characters.
type termMatcher struct {
	term      string
	substring bool
	expr      *regexp.Regexp
}

func compileTerm(term string) termMatcher {
	if strings.ContainsAny(term, " -+") {
		return termMatcher{term: term, substring: true}
	}
	pattern := `\b` + regexp.QuoteMeta(term) + `\b`
	if len(term) >= 3 {
		pattern = `\b` + regexp.QuoteMeta(term) + `s?\b`
	}
	return termMatcher{term: term, expr: regexp.MustCompile(pattern)}
}

func (m termMatcher) matches(text string) bool {
	if m.substring {
		return strings.Contains(text, m.term)
	}
	return m.expr.MatchString(text)
}

// Vocabulary holds the compiled recall terms.
type Vocabulary struct {
	matchers []termMatcher
}

// NewVocabulary normalizes, de-duplicates (order preserving) and compiles
// the given terms.
func NewVocabulary(terms []string) *Vocabulary {
	seen := make(map[string]struct{}, len(terms))
	matchers := make([]termMatcher, 0, len(terms))
	for _, t := range terms {
		tt := normalizeText(t)
		if tt == "" {
			continue
		}
		if _, ok := seen[tt]; ok {
			continue
		}
		seen[tt] = struct{}{}
		matchers = append(matchers, compileTerm(tt))
	}
	return &Vocabulary{matchers: matchers}
}

// Terms returns the normalized vocabulary in compilation order.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.matchers))
	for i, m := range v.matchers {
		out[i] = m.term
	}
	return out
}

var (
	defaultVocabOnce sync.Once
	defaultVocab     *Vocabulary
)

// DefaultVocabulary compiles the built-in synonym list once and reuses it.
func DefaultVocabulary() *Vocabulary {
	defaultVocabOnce.Do(func() {
		defaultVocab = NewVocabulary(recallTermList)
	})
	return defaultVocab
}

// RecalledPaper is a paper annotated with its recall hits.
type RecalledPaper struct {
	domain.Paper
	RecallHits     []string `json:"recall_hits"`
	RecallHitCount int      `json:"recall_hit_count"`
}

// FullText assembles the normalized blob recall and routing match against.
// It joins every textual field the source provides: title, abstract,
// comment, identifiers, categories, authors and derived tags.
func FullText(p domain.Paper) string {
	parts := make([]string, 0, 10)
	for _, s := range []string{p.Title, p.Abstract, p.Comment, p.PrimaryCategory, p.JournalRef, p.DOI} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(p.Categories) > 0 {
		parts = append(parts, strings.Join(p.Categories, " "))
	}
	if len(p.Authors) > 0 {
		parts = append(parts, strings.Join(p.Authors, " "))
	}
	if len(p.Tags) > 0 {
		parts = append(parts, strings.Join(p.Tags, " "))
	}
	return normalizeText(strings.Join(parts, "\n"))
}

// Recall splits papers into kept and dropped by vocabulary hit count.
// Every paper lands in exactly one of the two lists, each annotated with
// its hits. Kept papers are ordered by hit count descending, ties broken
// by publication time descending.
func Recall(papers []domain.Paper, vocab *Vocabulary, minHits int) (kept, dropped []RecalledPaper) {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if minHits < 1 {
		minHits = 1
	}

	kept = make([]RecalledPaper, 0, len(papers))
	dropped = make([]RecalledPaper, 0)
	for _, p := range papers {
		text := FullText(p)
		hits := make([]string, 0, 4)
		for _, m := range vocab.matchers {
			if m.matches(text) {
				hits = append(hits, m.term)
			}
		}
		rp := RecalledPaper{Paper: p, RecallHits: hits, RecallHitCount: len(hits)}
		if len(hits) >= minHits {
			kept = append(kept, rp)
		} else {
			dropped = append(dropped, rp)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].RecallHitCount != kept[j].RecallHitCount {
			return kept[i].RecallHitCount > kept[j].RecallHitCount
		}
		return kept[i].Published.After(kept[j].Published)
	})
	return kept, dropped
}
