package topics

import (
	"fmt"
	"sort"
	"strings"
)

// Def describes one topic of the two-level interest taxonomy.
type Def struct {
	ID        int
	Name      string
	Subtopics []string
}

// Defs is the static process-wide taxonomy. The router, the adjudication
// prompt, and the digest grouping all share it; it is never modified at
// runtime.
var Defs = map[int]Def{
	1: {
		ID:   1,
		Name: "LLM/MLLM Foundations & Unified Modeling",
		Subtopics: []string{
			"LLM Fundamentals & Alignment",
			"MLLM / Multimodal (VLM)",
			"Unified Multimodal Understanding & Generation",
		},
	},
	2: {
		ID:   2,
		Name: "Reasoning & Planning",
		Subtopics: []string{
			"Reasoning (Math/Logic/Code)",
			"Tool Use & Planning (tool-use/planner)",
			"Reliability & Evaluation (reasoning eval)",
		},
	},
	3: {
		ID:   3,
		Name: "Agents & RL",
		Subtopics: []string{
			"Agent Architectures (single/multi-agent, collaboration)",
			"RL for Agents (RLHF/online/long-horizon)",
			"Agent Evaluation & Reliability",
		},
	},
	4: {
		ID:   4,
		Name: "Memory & Personalization",
		Subtopics: []string{
			"Long-term Memory (episodic/semantic)",
			"Memory Retrieval / Compression / Forgetting",
			"Personalization / User Modeling (personalization as memory)",
		},
	},
	5: {
		ID:   5,
		Name: "Agentic Search / Deep Research / AI Search",
		Subtopics: []string{
			"Retrieval / IR / RAG (retrieval/rerank)",
			"Agentic Search (multi-hop/evidence aggregation)",
			"Deep Research Workflow (research agent/report)",
		},
	},
	6: {
		ID:   6,
		Name: "Technical Reports / Surveys / Systematic Synthesis",
		Subtopics: []string{
			"Technical Reports / Method Summaries",
			"Survey / Taxonomy / Benchmark",
		},
	},
	7: {
		ID:   7,
		Name: "HCI + LLM (Human-AI Collaboration)",
		Subtopics: []string{
			"Collaborative Workflows (co-writing/co-planning)",
			"Interaction & Controllability (UI/feedback)",
			"Human-in-the-loop Evaluation (efficiency/trust)",
		},
	},
}

// DefaultRubric is the interest statement used when config supplies none.
const DefaultRubric = "My research interests span multiple directions, with a core focus on LLM and MLLM systems. " +
	"Within that scope, I especially care about agents and reinforcement learning (RL), memory mechanisms, reasoning, " +
	"technical reports/systematic method synthesis, and unified multimodal understanding/generation models. " +
	"I also maintain strong interest in agentic search, deep research, and AI search workflows, " +
	"as well as work on human-model collaboration in HCI + LLM settings."

// IDs returns all topic ids in ascending order.
func IDs() []int {
	ids := make([]int, 0, len(Defs))
	for id := range Defs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Known reports whether id belongs to the taxonomy.
func Known(id int) bool {
	_, ok := Defs[id]
	return ok
}

// Name returns the topic name, or an empty string for unknown ids.
func Name(id int) string {
	return Defs[id].Name
}

// FormatOptions renders the taxonomy as a numbered list for prompt embedding.
func FormatOptions() string {
	var b strings.Builder
	for _, id := range IDs() {
		def := Defs[id]
		fmt.Fprintf(&b, "%d. %s\n", def.ID, def.Name)
		for i, sub := range def.Subtopics {
			fmt.Fprintf(&b, "  - %d.%d %s\n", def.ID, i+1, sub)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// DefaultLimits returns the per-topic digest caps applied when config does
// not supply its own table.
func DefaultLimits() map[int]int {
	limits := make(map[int]int, len(Defs))
	for id := range Defs {
		limits[id] = 3
	}
	return limits
}
