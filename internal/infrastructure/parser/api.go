package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/scanner"
)

const (
	apiBaseURL        = "https://export.arxiv.org/api/query"
	apiPageSize       = 200
	defaultMaxResults = 2000
)

// APIScanner pulls papers from the arXiv Atom API, newest first, and keeps
// the ones published inside the requested local calendar day.
type APIScanner struct {
	client   *http.Client
	parser   *gofeed.Parser
	pageSize int
	logger   *slog.Logger
}

// NewAPIScanner wires an HTTP client; the page size defaults to 200.
func NewAPIScanner(client *http.Client, logger *slog.Logger) *APIScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APIScanner{
		client:   client,
		parser:   gofeed.NewParser(),
		pageSize: apiPageSize,
		logger:   logger,
	}
}

// Name identifies the strategy inside the registry.
func (a *APIScanner) Name() string {
	return "arxiv-api"
}

// Scan queries each category sorted by submission date descending and
// stops paging once entries fall before the day window. Seeing no entry
// older than the window means the result cap may have cut the day short,
// which is logged as a truncation warning.
func (a *APIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	base := apiBaseURL
	if override := req.Options["baseUrl"]; override != "" {
		base = override
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	startUTC, endUTC := req.Window()
	fetchedAt := time.Now().UTC()

	results := make([]domain.Paper, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		a.logger.Debug("scan category",
			"category", cat.Name,
			"window_start", startUTC.Format(time.RFC3339),
			"window_end", endUTC.Format(time.RFC3339))

		sawOlder := false
		var lastPublished time.Time
		fetched := 0
		offset := 0

		for !sawOlder && fetched < maxResults {
			pageSize := a.pageSize
			if remaining := maxResults - fetched; remaining < pageSize {
				pageSize = remaining
			}

			feed, err := a.fetchPage(ctx, base, cat.Name, offset, pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}
			if len(feed.Items) == 0 {
				break
			}

			for _, item := range feed.Items {
				fetched++
				if item.PublishedParsed == nil {
					continue
				}
				published := item.PublishedParsed.UTC()
				lastPublished = published

				// Past days can surface newer entries first.
				if !published.Before(endUTC) {
					continue
				}
				if published.Before(startUTC) {
					sawOlder = true
					break
				}

				paper := entryToPaper(item, cat.Name, fetchedAt)
				if _, ok := seen[paper.ArxivID]; ok {
					continue
				}
				seen[paper.ArxivID] = struct{}{}
				results = append(results, paper)
			}

			if len(feed.Items) < pageSize {
				break
			}
			offset += len(feed.Items)
		}

		if !sawOlder && !lastPublished.IsZero() && !lastPublished.Before(startUTC) {
			a.logger.Warn("day window may be truncated, consider raising max results",
				"category", cat.Name, "max_results", maxResults)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Published.After(results[j].Published)
	})
	return results, nil
}

func (a *APIScanner) fetchPage(ctx context.Context, base, category string, offset, pageSize int) (*gofeed.Feed, error) {
	query := url.Values{}
	query.Set("search_query", "cat:"+category)
	query.Set("start", strconv.Itoa(offset))
	query.Set("max_results", strconv.Itoa(pageSize))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "ArxivDigest/1.0")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv api returned %s", resp.Status)
	}

	feed, err := a.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// entryToPaper maps one Atom entry onto the paper record. The arXiv id is
// the last path segment of the entry id, version suffix included.
func entryToPaper(item *gofeed.Item, category string, fetchedAt time.Time) domain.Paper {
	entryURL := strings.TrimSpace(item.Link)
	id := strings.TrimSpace(item.GUID)
	if id == "" {
		id = entryURL
	}
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}

	authors := make([]string, 0, len(item.Authors))
	for _, person := range item.Authors {
		if person != nil && person.Name != "" {
			authors = append(authors, person.Name)
		}
	}

	var comment, journalRef, doi, primary string
	if arxivExt, ok := item.Extensions["arxiv"]; ok {
		if vals := arxivExt["comment"]; len(vals) > 0 {
			comment = strings.TrimSpace(vals[0].Value)
		}
		if vals := arxivExt["journal_ref"]; len(vals) > 0 {
			journalRef = strings.TrimSpace(vals[0].Value)
		}
		if vals := arxivExt["doi"]; len(vals) > 0 {
			doi = strings.TrimSpace(vals[0].Value)
		}
		if vals := arxivExt["primary_category"]; len(vals) > 0 {
			primary = strings.TrimSpace(vals[0].Attrs["term"])
		}
	}

	categories := append([]string(nil), item.Categories...)
	if primary == "" {
		if len(categories) > 0 {
			primary = categories[0]
		} else {
			primary = category
		}
	}

	pdfURL := ""
	for _, link := range item.Links {
		if strings.Contains(link, "/pdf/") {
			pdfURL = link
			break
		}
	}
	if pdfURL == "" && entryURL != "" {
		pdfURL = strings.Replace(entryURL, "/abs/", "/pdf/", 1)
	}

	var published, updated time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		updated = item.UpdatedParsed.UTC()
	}

	return domain.Paper{
		ArxivID:         id,
		Title:           strings.Join(strings.Fields(item.Title), " "),
		Abstract:        strings.TrimSpace(item.Description),
		Authors:         authors,
		PrimaryCategory: primary,
		Categories:      categories,
		PDFURL:          pdfURL,
		EntryURL:        entryURL,
		Published:       published,
		Updated:         updated,
		Comment:         comment,
		JournalRef:      journalRef,
		DOI:             doi,
		FetchedAt:       fetchedAt,
	}
}
