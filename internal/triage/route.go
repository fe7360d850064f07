package triage

import (
	"sort"
	"strings"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/topics"
)

// RouteOptions tune the rule router thresholds.
type RouteOptions struct {
	// MinScore is the minimum top score below which a route is ambiguous.
	MinScore float64
	// AmbiguityDelta is the minimum lead of the top topic over the runner-up.
	AmbiguityDelta float64
}

// DefaultRouteOptions returns the standard thresholds.
func DefaultRouteOptions() RouteOptions {
	return RouteOptions{MinScore: 2.0, AmbiguityDelta: 0.75}
}

// Candidate pairs a topic id with its accumulated rule score.
type Candidate struct {
	TopicID int     `json:"topic_id"`
	Score   float64 `json:"score"`
}

// RouteResult is the router verdict for one paper.
type RouteResult struct {
	TopicID    int
	Subtopic   string
	Score      float64
	Ambiguous  bool
	Candidates []Candidate
}

// RoutedPaper carries recall output plus routing annotations.
type RoutedPaper struct {
	RecalledPaper
	RuleTopicID    int         `json:"rule_topic_id"`
	RuleSubtopic   string      `json:"rule_subtopic"`
	RuleScore      float64     `json:"rule_score"`
	RuleAmbiguous  bool        `json:"rule_ambiguous"`
	RuleCandidates []Candidate `json:"rule_candidates"`
}

type topicRule struct {
	matcher  termMatcher
	weight   float64
	subtopic string
}

func rule(term string, weight float64, subtopic string) topicRule {
	return topicRule{matcher: compileTerm(term), weight: weight, subtopic: subtopic}
}

// topicRules maps each topic to its weighted keyword table. Weights are
// additive; the heaviest matched keyword also picks the subtopic.
var topicRules = map[int][]topicRule{
	1: {
		rule("llm", 2.0, "LLM Fundamentals & Alignment"),
		rule("large language model", 2.0, "LLM Fundamentals & Alignment"),
		rule("instruction tuning", 1.5, "LLM Fundamentals & Alignment"),
		rule("alignment", 1.5, "LLM Fundamentals & Alignment"),
		rule("dpo", 1.0, "LLM Fundamentals & Alignment"),
		rule("mllm", 2.0, "MLLM / Multimodal (VLM)"),
		rule("vision-language", 2.0, "MLLM / Multimodal (VLM)"),
		rule("multimodal", 1.5, "MLLM / Multimodal (VLM)"),
		rule("vision-language-action", 1.0, "MLLM / Multimodal (VLM)"),
		rule("unified model", 1.5, "Unified Multimodal Understanding & Generation"),
	},
	2: {
		rule("reasoning", 2.0, "Reasoning (Math/Logic/Code)"),
		rule("chain-of-thought", 1.5, "Reasoning (Math/Logic/Code)"),
		rule("tree-of-thought", 1.5, "Reasoning (Math/Logic/Code)"),
		rule("planning", 1.5, "Tool Use & Planning (tool-use/planner)"),
		rule("tool use", 1.5, "Tool Use & Planning (tool-use/planner)"),
		rule("tool calling", 1.5, "Tool Use & Planning (tool-use/planner)"),
		rule("function calling", 1.5, "Tool Use & Planning (tool-use/planner)"),
		rule("react", 1.0, "Tool Use & Planning (tool-use/planner)"),
		rule("verification", 1.0, "Reliability & Evaluation (reasoning eval)"),
		rule("evaluation", 1.0, "Reliability & Evaluation (reasoning eval)"),
	},
	3: {
		rule("agent", 2.0, "Agent Architectures (single/multi-agent, collaboration)"),
		rule("agentic", 2.0, "Agent Architectures (single/multi-agent, collaboration)"),
		rule("multi-agent", 2.0, "Agent Architectures (single/multi-agent, collaboration)"),
		rule("agent framework", 1.5, "Agent Architectures (single/multi-agent, collaboration)"),
		rule("reinforcement learning", 2.0, "RL for Agents (RLHF/online/long-horizon)"),
		rule("rlhf", 1.5, "RL for Agents (RLHF/online/long-horizon)"),
		rule("policy", 1.0, "RL for Agents (RLHF/online/long-horizon)"),
	},
	4: {
		rule("memory", 2.0, "Long-term Memory (episodic/semantic)"),
		rule("long-term memory", 2.0, "Long-term Memory (episodic/semantic)"),
		rule("context compression", 1.5, "Memory Retrieval / Compression / Forgetting"),
		rule("context window", 1.0, "Memory Retrieval / Compression / Forgetting"),
		rule("external memory", 1.0, "Long-term Memory (episodic/semantic)"),
		rule("personalization", 1.5, "Personalization / User Modeling (personalization as memory)"),
		rule("persona", 1.0, "Personalization / User Modeling (personalization as memory)"),
		rule("user modeling", 1.0, "Personalization / User Modeling (personalization as memory)"),
	},
	5: {
		rule("rag", 2.0, "Retrieval / IR / RAG (retrieval/rerank)"),
		rule("retrieval", 1.5, "Retrieval / IR / RAG (retrieval/rerank)"),
		rule("information retrieval", 2.0, "Retrieval / IR / RAG (retrieval/rerank)"),
		rule("search", 1.5, "Agentic Search (multi-hop/evidence aggregation)"),
		rule("web search", 2.0, "Agentic Search (multi-hop/evidence aggregation)"),
		rule("search engine", 1.5, "Agentic Search (multi-hop/evidence aggregation)"),
		rule("query rewriting", 1.5, "Retrieval / IR / RAG (retrieval/rerank)"),
		rule("deep research", 2.0, "Deep Research Workflow (research agent/report)"),
		rule("research agent", 1.5, "Deep Research Workflow (research agent/report)"),
		rule("rerank", 1.5, "Retrieval / IR / RAG (retrieval/rerank)"),
	},
	6: {
		rule("technical report", 2.0, "Technical Reports / Method Summaries"),
		rule("systematization", 2.0, "Technical Reports / Method Summaries"),
		rule("systematization of knowledge", 2.0, "Technical Reports / Method Summaries"),
		rule("sok", 2.0, "Technical Reports / Method Summaries"),
		rule("systematic review", 1.5, "Survey / Taxonomy / Benchmark"),
		rule("survey", 2.0, "Survey / Taxonomy / Benchmark"),
		rule("taxonomy", 1.5, "Survey / Taxonomy / Benchmark"),
		rule("benchmark", 1.5, "Survey / Taxonomy / Benchmark"),
		rule("review", 1.0, "Survey / Taxonomy / Benchmark"),
	},
	7: {
		rule("hci", 2.0, "Interaction & Controllability (UI/feedback)"),
		rule("human-computer interaction", 2.0, "Interaction & Controllability (UI/feedback)"),
		rule("ux", 1.0, "Interaction & Controllability (UI/feedback)"),
		rule("user experience", 1.0, "Interaction & Controllability (UI/feedback)"),
		rule("user study", 2.0, "Human-in-the-loop Evaluation (efficiency/trust)"),
		rule("interface", 1.5, "Interaction & Controllability (UI/feedback)"),
		rule("interaction", 1.5, "Interaction & Controllability (UI/feedback)"),
		rule("collaboration", 1.5, "Collaborative Workflows (co-writing/co-planning)"),
		rule("mixed-initiative", 1.5, "Collaborative Workflows (co-writing/co-planning)"),
		rule("human-in-the-loop", 2.0, "Human-in-the-loop Evaluation (efficiency/trust)"),
	},
}

// categoryPrior is a small score boost derived from arXiv categories.
// Boosts stay below keyword weight; a category alone never clears the
// ambiguity threshold.
type categoryPrior struct {
	topicID         int
	boost           float64
	defaultSubtopic string
}

var categoryPriors = map[string][]categoryPrior{
	"cs.hc": {{topicID: 7, boost: 1.5, defaultSubtopic: "Interaction & Controllability (UI/feedback)"}},
	"cs.ir": {{topicID: 5, boost: 1.25, defaultSubtopic: "Retrieval / IR / RAG (retrieval/rerank)"}},
	"cs.cl": {{topicID: 1, boost: 0.75}, {topicID: 2, boost: 0.25}},
	"cs.cv": {{topicID: 1, boost: 0.5}},
	"cs.lg": {{topicID: 3, boost: 0.25}, {topicID: 2, boost: 0.25}, {topicID: 1, boost: 0.25}},
	"cs.ai": {{topicID: 1, boost: 0.25}, {topicID: 3, boost: 0.25}},
}

// RouteByRules scores one paper against the static keyword and category
// tables and picks a main topic with a subtopic. The routing is fully
// deterministic: topics are visited in id order and score ties rank the
// lower id first.
func RouteByRules(p domain.Paper, opts RouteOptions) RouteResult {
	text := FullText(p)

	type subtopicPick struct {
		name   string
		weight float64
	}
	scores := make(map[int]float64, len(topics.Defs))
	best := make(map[int]subtopicPick, len(topics.Defs))
	for _, tid := range topics.IDs() {
		scores[tid] = 0
		best[tid] = subtopicPick{}
		for _, r := range topicRules[tid] {
			if !r.matcher.matches(text) {
				continue
			}
			scores[tid] += r.weight
			if r.weight > best[tid].weight {
				best[tid] = subtopicPick{name: r.subtopic, weight: r.weight}
			}
		}
	}

	catset := make(map[string]struct{}, len(p.Categories)+1)
	if p.PrimaryCategory != "" {
		catset[strings.ToLower(p.PrimaryCategory)] = struct{}{}
	}
	for _, c := range p.Categories {
		if c != "" {
			catset[strings.ToLower(c)] = struct{}{}
		}
	}
	for cat, priors := range categoryPriors {
		if _, ok := catset[cat]; !ok {
			continue
		}
		for _, prior := range priors {
			scores[prior.topicID] += prior.boost
			if prior.defaultSubtopic != "" && best[prior.topicID].name == "" {
				best[prior.topicID] = subtopicPick{name: prior.defaultSubtopic, weight: 0.5}
			}
		}
	}

	// Build candidates in id order so equal scores rank the lower id first.
	ranked := make([]Candidate, 0, len(scores))
	for _, tid := range topics.IDs() {
		ranked = append(ranked, Candidate{TopicID: tid, Score: scores[tid]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	top := ranked[0]
	second := 0.0
	if len(ranked) > 1 {
		second = ranked[1].Score
	}
	ambiguous := top.Score < opts.MinScore || (top.Score-second) < opts.AmbiguityDelta

	candidates := ranked
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}

	return RouteResult{
		TopicID:    top.TopicID,
		Subtopic:   best[top.TopicID].name,
		Score:      top.Score,
		Ambiguous:  ambiguous,
		Candidates: candidates,
	}
}

// RouteAll annotates every recalled paper with its route verdict.
func RouteAll(papers []RecalledPaper, opts RouteOptions) []RoutedPaper {
	routed := make([]RoutedPaper, 0, len(papers))
	for _, p := range papers {
		rr := RouteByRules(p.Paper, opts)
		routed = append(routed, RoutedPaper{
			RecalledPaper:  p,
			RuleTopicID:    rr.TopicID,
			RuleSubtopic:   rr.Subtopic,
			RuleScore:      rr.Score,
			RuleAmbiguous:  rr.Ambiguous,
			RuleCandidates: rr.Candidates,
		})
	}
	return routed
}
