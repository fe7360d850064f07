package domain

import "time"

// Paper is the core entity describing one arXiv submission.
//
// Triage stages never mutate a Paper; they wrap it in stage-specific
// records that add their own annotations.
type Paper struct {
	ArxivID         string    `json:"arxiv_id"`
	Title           string    `json:"title"`
	Abstract        string    `json:"abstract"`
	Authors         []string  `json:"authors"`
	PrimaryCategory string    `json:"primary_category"`
	Categories      []string  `json:"categories"`
	PDFURL          string    `json:"pdf_url,omitempty"`
	EntryURL        string    `json:"entry_url,omitempty"`
	Published       time.Time `json:"published"`
	Updated         time.Time `json:"updated"`
	Comment         string    `json:"comment,omitempty"`
	JournalRef      string    `json:"journal_ref,omitempty"`
	DOI             string    `json:"doi,omitempty"`

	// Tags holds optional derived labels a source may attach; they take
	// part in recall matching when present.
	Tags []string `json:"tags,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}
