package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark       model.KeyedBookmark
	MatchedIndexes []int // rune positions in Bookmark.Title; nil for substring hits
	Score          int
}

// bookmarkTitles implements fuzzy.Source for bookmark slice.
type bookmarkTitles []model.KeyedBookmark

func (bt bookmarkTitles) String(i int) string {
	return bt[i].Title
}

func (bt bookmarkTitles) Len() int {
	return len(bt)
}

// FuzzySearchBookmarks searches live bookmarks by title using fuzzy matching.
// Returns results sorted by match score (best first).
func FuzzySearchBookmarks(store *model.Store, query string) []SearchResult {
	if query == "" {
		return nil
	}

	bookmarks := bookmarkTitles(store.AllBookmarks())
	matches := fuzzy.FindFrom(query, bookmarks)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// Search ranks fuzzy title matches first, then appends bookmarks whose URL,
// description or tags contain the query. Each bookmark appears once.
func Search(store *model.Store, query string) []SearchResult {
	results := FuzzySearchBookmarks(store, query)

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.Bookmark.Key] = true
	}
	for _, kb := range store.Search(query) {
		if !seen[kb.Key] {
			seen[kb.Key] = true
			results = append(results, SearchResult{Bookmark: kb})
		}
	}
	return results
}
