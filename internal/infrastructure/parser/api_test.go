package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"ArxivDigest/internal/scanner"
)

const atomEntryTemplate = `
  <entry>
    <id>http://arxiv.org/abs/%s</id>
    <title>%s</title>
    <summary>%s</summary>
    <published>%s</published>
    <updated>%s</updated>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/%s" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/%s" rel="related" type="application/pdf" title="pdf"/>
    <arxiv:comment>10 pages, 3 figures</arxiv:comment>
    <arxiv:journal_ref>Proc. Sample Conf. 2025</arxiv:journal_ref>
    <arxiv:doi>10.1000/sample.2025</arxiv:doi>
    <arxiv:primary_category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>`

func atomEntry(id, title, abstract, published string) string {
	return fmt.Sprintf(atomEntryTemplate, id, title, abstract, published, published, id, id)
}

func atomFeed(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>ArXiv Query Results</title>
` + strings.Join(entries, "\n") + `
</feed>`
}

func TestEntryToPaper(t *testing.T) {
	t.Parallel()

	doc := atomFeed(atomEntry(
		"2511.10001v1",
		"Deep  Retrieval\n      Models",
		"  A study of retrieval.  ",
		"2025-11-10T08:00:00Z",
	))

	feed, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if len(feed.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(feed.Items))
	}

	fetchedAt := time.Date(2025, time.November, 10, 12, 0, 0, 0, time.UTC)
	paper := entryToPaper(feed.Items[0], "cs.AI", fetchedAt)

	if paper.ArxivID != "2511.10001v1" {
		t.Fatalf("unexpected arxiv id: %s", paper.ArxivID)
	}
	if paper.Title != "Deep Retrieval Models" {
		t.Fatalf("unexpected title: %q", paper.Title)
	}
	if paper.Abstract != "A study of retrieval." {
		t.Fatalf("unexpected abstract: %q", paper.Abstract)
	}
	if len(paper.Authors) != 2 || paper.Authors[0] != "Ada Lovelace" || paper.Authors[1] != "Alan Turing" {
		t.Fatalf("unexpected authors: %v", paper.Authors)
	}
	if paper.PrimaryCategory != "cs.LG" {
		t.Fatalf("expected primary category from extension, got %s", paper.PrimaryCategory)
	}
	if len(paper.Categories) != 2 || paper.Categories[0] != "cs.AI" {
		t.Fatalf("unexpected categories: %v", paper.Categories)
	}
	if paper.EntryURL != "http://arxiv.org/abs/2511.10001v1" {
		t.Fatalf("unexpected entry url: %s", paper.EntryURL)
	}
	if !strings.Contains(paper.PDFURL, "/pdf/2511.10001v1") {
		t.Fatalf("unexpected pdf url: %s", paper.PDFURL)
	}
	if paper.Comment != "10 pages, 3 figures" {
		t.Fatalf("unexpected comment: %q", paper.Comment)
	}
	if paper.JournalRef != "Proc. Sample Conf. 2025" {
		t.Fatalf("unexpected journal ref: %q", paper.JournalRef)
	}
	if paper.DOI != "10.1000/sample.2025" {
		t.Fatalf("unexpected doi: %q", paper.DOI)
	}
	if !paper.Published.Equal(time.Date(2025, time.November, 10, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published time: %v", paper.Published)
	}
	if !paper.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("unexpected fetched at: %v", paper.FetchedAt)
	}
}

func TestAPIScannerScan(t *testing.T) {
	t.Parallel()

	feedDoc := atomFeed(
		atomEntry("2511.19999v1", "Too New", "tomorrow", "2025-11-11T00:30:00Z"),
		atomEntry("2511.10001v1", "First In Window", "first", "2025-11-10T08:00:00Z"),
		atomEntry("2511.10001v1", "Duplicate Of First", "dup", "2025-11-10T07:59:00Z"),
		atomEntry("2511.10002v1", "Second In Window", "second", "2025-11-10T03:00:00Z"),
		atomEntry("2511.09999v1", "Too Old", "yesterday", "2025-11-09T23:00:00Z"),
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("search_query"); got != "cat:cs.AI" {
			t.Errorf("unexpected search_query: %s", got)
		}
		if got := q.Get("sortBy"); got != "submittedDate" {
			t.Errorf("unexpected sortBy: %s", got)
		}
		if got := q.Get("sortOrder"); got != "descending" {
			t.Errorf("unexpected sortOrder: %s", got)
		}
		if got := q.Get("start"); got != "0" {
			t.Errorf("unexpected start: %s", got)
		}
		if got := q.Get("max_results"); got != "10" {
			t.Errorf("unexpected max_results: %s", got)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(feedDoc))
	}))
	defer server.Close()

	sc := NewAPIScanner(server.Client(), nil)
	sc.pageSize = 10

	req := scanner.Request{
		Day:        time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC),
		SiteName:   "arxiv",
		Categories: []scanner.Category{{Name: "cs.AI"}},
		Options:    map[string]string{"baseUrl": server.URL},
		MaxResults: 50,
	}

	papers, err := sc.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(papers))
	}
	if papers[0].ArxivID != "2511.10001v1" {
		t.Fatalf("unexpected first paper: %s", papers[0].ArxivID)
	}
	if papers[1].ArxivID != "2511.10002v1" {
		t.Fatalf("unexpected second paper: %s", papers[1].ArxivID)
	}
	if !papers[0].Published.After(papers[1].Published) {
		t.Fatalf("papers are not sorted newest first")
	}
}

func TestAPIScannerScanSurfacesHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	}))
	defer server.Close()

	sc := NewAPIScanner(server.Client(), nil)

	req := scanner.Request{
		Day:        time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC),
		SiteName:   "arxiv",
		Categories: []scanner.Category{{Name: "cs.AI"}},
		Options:    map[string]string{"baseUrl": server.URL},
	}

	_, err := sc.Scan(context.Background(), req)
	if err == nil {
		t.Fatal("expected error from failing server")
	}
	if !strings.Contains(err.Error(), "cs.AI") || !strings.Contains(err.Error(), "500") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAPIScannerScanRequiresCategories(t *testing.T) {
	t.Parallel()

	sc := NewAPIScanner(nil, nil)
	_, err := sc.Scan(context.Background(), scanner.Request{SiteName: "arxiv"})
	if err == nil {
		t.Fatal("expected error for empty category list")
	}
}
