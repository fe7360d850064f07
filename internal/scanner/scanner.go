package scanner

import (
	"context"
	"fmt"
	"time"

	"ArxivDigest/internal/domain"
)

// Category describes one arXiv category to scan. Name is the category
// code (cs.CL); URL optionally overrides the listing endpoint for
// strategies that browse HTML pages.
type Category struct {
	Name string
	URL  string
}

// Request carries all parameters required to execute a scan for one
// local calendar day.
type Request struct {
	Day        time.Time
	Location   *time.Location
	SiteName   string
	Categories []Category
	Options    map[string]string
	MaxResults int
}

// Window returns the UTC half-open interval covering the requested local
// calendar day.
func (r Request) Window() (start, end time.Time) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	day := r.Day.In(loc)
	start = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.Add(24 * time.Hour).UTC()
}

// Scanner captures a single fetch strategy (Atom API, HTML listing).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Paper, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
