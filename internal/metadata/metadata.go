// Package metadata fetches a page title and description for new bookmarks.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// MaxBodySize caps how much of a page is parsed.
const MaxBodySize = 1 << 20

const defaultTimeout = 10 * time.Second

// Result is the outcome of one fetch. Success is false on any network or
// HTTP error; Title and Description are empty then.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// Fetcher reads page metadata over HTTP.
type Fetcher struct {
	Timeout time.Duration // per request, default 10s
	Client  *http.Client
}

// Fetch downloads url and extracts its metadata. It never returns an error;
// failures are reported through Result.
func (f Fetcher) Fetch(ctx context.Context, url string) Result {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("User-Agent", "bm-metadata/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Error: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	res, err := Parse(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return Result{Error: err.Error()}
	}
	return res
}

// Parse extracts metadata from an HTML document. Open Graph values win over
// <title> and the plain description meta tag.
func Parse(r io.Reader) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, err
	}

	title := meta(doc, `meta[property="og:title"]`)
	if title == "" {
		title = clean(doc.Find("title").First().Text())
	}

	description := meta(doc, `meta[property="og:description"]`)
	if description == "" {
		description = meta(doc, `meta[name="description"]`)
	}

	return Result{Title: title, Description: description, Success: true}, nil
}

func meta(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return clean(content)
}

// clean collapses runs of whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
