package triage

// recallTermList is the synonym vocabulary for first-stage recall.
// Declaration order is preserved through compilation so hit lists stay
// stable across runs.
var recallTermList = []string{
	// LLM core
	"llm",
	"llms",
	"large language model",
	"large language models",
	"large multimodal model",
	"large multimodal models",
	"language model",
	"language models",
	"foundation model",
	"foundation models",
	"prompt engineering",
	"instruction tuning",
	"instruction-tuning",
	"in-context",
	"in context",
	"prompting",
	"alignment",
	"rlhf",
	"rlaif",
	"dpo",
	// MLLM / multimodal
	"mllm",
	"mllms",
	"multimodal",
	"multi-modal",
	"vision-language",
	"vision language",
	"vision language model",
	"vision-language model",
	"vlm",
	"vlms",
	"multimodal large language model",
	"multimodal large language models",
	"image-text",
	"image text",
	"text-to-image",
	"video-language",
	"audio-language",
	"vision-language-action",
	"unified model",
	"unified models",
	// Agent / tool use
	"agent",
	"agents",
	"agentic",
	"autonomous agent",
	"multi-agent",
	"multi agent",
	"agent framework",
	"tool use",
	"tool-use",
	"tool calling",
	"function calling",
	"toolformer",
	"react",
	"re-act",
	"planner",
	"planning",
	// RL
	"reinforcement learning",
	"rl",
	"policy",
	"actor-critic",
	"ppo",
	// Memory & personalization
	"memory",
	"long-term memory",
	"episodic memory",
	"semantic memory",
	"context compression",
	"context window",
	"external memory",
	"memory bank",
	"persona",
	"personality",
	"personalization",
	"personalised",
	"personalized",
	"user modeling",
	"user modelling",
	"preference learning",
	"user profile",
	// Reasoning
	"reasoning",
	"chain-of-thought",
	"chain of thought",
	"cot",
	"tree-of-thought",
	"tree of thought",
	"tot",
	"verification",
	"self-correction",
	// Search / IR / deep research
	"search",
	"retrieval",
	"rag",
	"retrieval-augmented",
	"retrieval augmented",
	"information retrieval",
	"web search",
	"search engine",
	"query rewriting",
	"query reformulation",
	"query",
	"rerank",
	"re-ranking",
	"ranking",
	"deep research",
	"research agent",
	// Reports / surveys
	"technical report",
	"systematization",
	"systematisation",
	"systematization of knowledge",
	"sok",
	"systematic review",
	"survey",
	"taxonomy",
	"benchmark",
	"review",
	// HCI + LLM
	"hci",
	"human-computer interaction",
	"human-ai",
	"human ai",
	"human-in-the-loop",
	"human in the loop",
	"user study",
	"user studies",
	"ux",
	"user experience",
	"interface",
	"interaction",
	"collaboration",
	"co-writing",
	"cowriting",
	"co-planning",
	"coplanning",
	"mixed-initiative",
	"copilot",
}
