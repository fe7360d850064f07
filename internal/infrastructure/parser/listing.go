package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ArxivDigest/internal/domain"
	"ArxivDigest/internal/scanner"
)

const (
	arxivBaseURL    = "https://arxiv.org"
	listingPageSize = 200
)

var (
	dateExpr    = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)
	subjectExpr = regexp.MustCompile(`\(([a-z\-]+(?:\.[A-Z]{2})?)\)`)
)

// ListingScanner crawls the HTML /list pages of each category and extracts
// papers published on the requested day. It is the fallback strategy for
// days where the Atom API lags behind the listings.
type ListingScanner struct {
	client   *http.Client
	pageSize int
}

// NewListingScanner wires an HTTP client; pageSize defaults to 200.
func NewListingScanner(client *http.Client) *ListingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ListingScanner{client: client, pageSize: listingPageSize}
}

// Name identifies the strategy inside the registry.
func (l *ListingScanner) Name() string {
	return "arxiv-list"
}

// Scan walks through each category listing and returns all papers dated on
// the requested day.
func (l *ListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	day := req.Day.In(loc)
	targetDate := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	fetchedAt := time.Now().UTC()

	results := make([]domain.Paper, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		base := cat.URL
		if base == "" {
			base = fmt.Sprintf("%s/list/%s/recent", arxivBaseURL, cat.Name)
		}

		skip := 0
		for {
			pageURL, err := buildPageURL(base, skip, l.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := l.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			pagePapers, shouldContinue := l.extractPapers(doc, targetDate, cat.Name, fetchedAt)
			for _, paper := range pagePapers {
				if _, ok := seen[paper.ArxivID]; ok {
					continue
				}
				seen[paper.ArxivID] = struct{}{}
				results = append(results, paper)
			}

			if !shouldContinue {
				break
			}
			skip += l.pageSize
		}
	}

	return results, nil
}

func (l *ListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ArxivDigest/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractPapers collects entries dated targetDate and reports whether older
// pages may still hold matches.
func (l *ListingScanner) extractPapers(doc *goquery.Document, targetDate time.Time, category string, fetchedAt time.Time) ([]domain.Paper, bool) {
	var (
		collected    []domain.Paper
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		paper, entryDate, err := parseListEntry(dt, dd, category, fetchedAt)
		if err != nil {
			return true
		}

		if entryDate.Equal(targetDate) {
			collected = append(collected, paper)
		}
		if entryDate.Before(targetDate) {
			continueScan = false
			return false
		}

		return true
	})

	if processed < l.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseListEntry(dt, dd *goquery.Selection, category string, fetchedAt time.Time) (domain.Paper, time.Time, error) {
	link := dt.Find("a[href*=\"/abs/\"]").First()

	id := strings.TrimSpace(link.Text())
	id = strings.TrimPrefix(id, "arXiv:")
	href, _ := link.Attr("href")
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}
	if !strings.HasPrefix(href, "http") && href != "" {
		href = arxivBaseURL + href
	}

	pdfURL := ""
	if pdfHref, ok := dt.Find("a[href*=\"/pdf/\"]").First().Attr("href"); ok {
		pdfURL = pdfHref
		if !strings.HasPrefix(pdfURL, "http") {
			pdfURL = arxivBaseURL + pdfURL
		}
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find("p.mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(i int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	comment := strings.TrimSpace(dd.Find(".list-comments").First().Text())
	comment = strings.TrimSpace(strings.TrimPrefix(comment, "Comments:"))

	categories := []string{}
	subjects := dd.Find(".list-subjects").First().Text()
	for _, match := range subjectExpr.FindAllStringSubmatch(subjects, -1) {
		categories = append(categories, match[1])
	}
	primary := category
	if len(categories) > 0 {
		primary = categories[0]
	} else {
		categories = append(categories, category)
	}

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}
	match := dateExpr.FindString(dateText)
	if match == "" {
		return domain.Paper{}, time.Time{}, fmt.Errorf("entry without a date")
	}
	entryDate, err := time.Parse("2 Jan 2006", match)
	if err != nil {
		return domain.Paper{}, time.Time{}, fmt.Errorf("parse entry date: %w", err)
	}

	if id == "" {
		id = href
	}

	paper := domain.Paper{
		ArxivID:         id,
		Title:           title,
		Abstract:        abstract,
		Authors:         authors,
		PrimaryCategory: primary,
		Categories:      categories,
		PDFURL:          pdfURL,
		EntryURL:        href,
		Published:       entryDate,
		Comment:         comment,
		FetchedAt:       fetchedAt,
	}

	return paper, entryDate, nil
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
