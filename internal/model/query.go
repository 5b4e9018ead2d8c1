package model

import (
	"sort"
	"strings"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/urlnorm"
)

// GroupEntry is one row of the hierarchical group listing.
type GroupEntry struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"` // 0 = top-level, 1 = sub-group
	Group Group  `json:"group"`
}

// TagCount pairs a tag with the number of live bookmarks carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagMatchMode selects how GetBookmarksByTags combines tags.
type TagMatchMode string

const (
	MatchAll TagMatchMode = "and"
	MatchAny TagMatchMode = "or"
)

// AnalyticsSummary aggregates usage counts across live bookmarks.
type AnalyticsSummary struct {
	Total           int `json:"total"`
	TotalClicks     int `json:"totalClicks"`
	ActiveBookmarks int `json:"activeBookmarks"`
	NeverClicked    int `json:"neverClicked"`
	DormantCount    int `json:"dormantCount"`
	DormantDays     int `json:"dormantDays"`
}

// KeyedBookmark is a live bookmark together with its store key.
type KeyedBookmark struct {
	Key string `json:"key"`
	Bookmark
}

// GetBookmark returns a copy of the live bookmark at url.
func (s *Store) GetBookmark(url string) (Bookmark, bool) {
	key, ok := s.resolveKey(url)
	if !ok {
		return Bookmark{}, false
	}
	return *s.Bookmarks[key].clone(), true
}

// AllBookmarks returns every live bookmark, newest first.
func (s *Store) AllBookmarks() []KeyedBookmark {
	result := make([]KeyedBookmark, 0, len(s.Bookmarks))
	for key, b := range s.Bookmarks {
		result = append(result, KeyedBookmark{Key: key, Bookmark: *b.clone()})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// IsFavorite reports whether url is in favorites.
func (s *Store) IsFavorite(url string) bool {
	key, _ := s.resolveKey(url)
	return indexOf(s.FavoriteURLs, key) >= 0
}

// GetFavorites returns favorite bookmarks in insertion order.
func (s *Store) GetFavorites() []KeyedBookmark {
	result := make([]KeyedBookmark, 0, len(s.FavoriteURLs))
	for _, key := range s.FavoriteURLs {
		if b, ok := s.Bookmarks[key]; ok {
			result = append(result, KeyedBookmark{Key: key, Bookmark: *b.clone()})
		}
	}
	return result
}

// GetRecentlyAdded returns up to RecentlyAddedCount bookmarks, newest first.
func (s *Store) GetRecentlyAdded() []KeyedBookmark {
	result := []KeyedBookmark{}
	for _, r := range s.RecentlyAdded {
		if len(result) >= s.Settings.RecentlyAddedCount {
			break
		}
		if b, ok := s.Bookmarks[r.URL]; ok {
			result = append(result, KeyedBookmark{Key: r.URL, Bookmark: *b.clone()})
		}
	}
	return result
}

// GetBookmarkGroups lists the groups containing url, in display order.
func (s *Store) GetBookmarkGroups(url string) []string {
	key, _ := s.resolveKey(url)
	groups := []string{}
	seen := map[string]bool{}
	for _, name := range s.GroupOrder {
		if g, ok := s.Groups[name]; ok && !seen[name] && g.contains(key) {
			groups = append(groups, name)
			seen[name] = true
		}
	}
	// Groups missing from the order still count; list them by name.
	var rest []string
	for name, g := range s.Groups {
		if !seen[name] && g.contains(key) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(groups, rest...)
}

// GetGroupBookmarks returns a group's members in membership order.
func (s *Store) GetGroupBookmarks(name string) []KeyedBookmark {
	g, ok := s.Groups[name]
	if !ok {
		return nil
	}
	result := make([]KeyedBookmark, 0, len(g.URLs))
	for _, key := range g.URLs {
		if b, ok := s.Bookmarks[key]; ok {
			result = append(result, KeyedBookmark{Key: key, Bookmark: *b.clone()})
		}
	}
	return result
}

// GetUngroupedBookmarks returns live bookmarks that belong to no group.
func (s *Store) GetUngroupedBookmarks() []KeyedBookmark {
	grouped := map[string]bool{}
	for _, g := range s.Groups {
		for _, key := range g.URLs {
			grouped[key] = true
		}
	}
	var result []KeyedBookmark
	for _, kb := range s.AllBookmarks() {
		if !grouped[kb.Key] {
			result = append(result, kb)
		}
	}
	return result
}

// GetArchived returns archive entries, most recently archived first.
func (s *Store) GetArchived() []ArchivedBookmark {
	result := make([]ArchivedBookmark, 0, len(s.Archived))
	for _, a := range s.Archived {
		result = append(result, *a.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ArchivedAt.Equal(result[j].ArchivedAt) {
			return result[i].ArchivedAt.After(result[j].ArchivedAt)
		}
		return result[i].URL < result[j].URL
	})
	return result
}

// GetHierarchicalGroupOrder walks GroupOrder once, emitting each top-level
// group followed by its children in their relative order.
func (s *Store) GetHierarchicalGroupOrder() []GroupEntry {
	result := make([]GroupEntry, 0, len(s.GroupOrder))
	emitted := make(map[string]bool, len(s.GroupOrder))

	for _, name := range s.GroupOrder {
		g, ok := s.Groups[name]
		if !ok || emitted[name] {
			continue
		}
		if g.ParentGroup != nil {
			if _, parentExists := s.Groups[*g.ParentGroup]; parentExists {
				continue // emitted under its parent
			}
		}
		result = append(result, GroupEntry{Name: name, Depth: 0, Group: *g.clone()})
		emitted[name] = true

		for _, childName := range s.GroupOrder {
			child, ok := s.Groups[childName]
			if !ok || emitted[childName] || child.ParentGroup == nil || *child.ParentGroup != name {
				continue
			}
			result = append(result, GroupEntry{Name: childName, Depth: 1, Group: *child.clone()})
			emitted[childName] = true
		}
	}
	return result
}

// GetAllTags counts tags across live bookmarks. Archived bookmarks are excluded.
func (s *Store) GetAllTags() map[string]int {
	counts := map[string]int{}
	for _, b := range s.Bookmarks {
		for _, t := range b.Tags {
			counts[t]++
		}
	}
	return counts
}

// GetSortedTags returns GetAllTags ordered by count, then name.
func (s *Store) GetSortedTags() []TagCount {
	counts := s.GetAllTags()
	result := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		result = append(result, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	return result
}

// GetBookmarksByTags filters live bookmarks by tags, compared
// case-insensitively. MatchAll requires every tag, MatchAny at least one.
// An empty tag list matches everything.
func (s *Store) GetBookmarksByTags(tags []string, mode TagMatchMode) []KeyedBookmark {
	all := s.AllBookmarks()
	if len(tags) == 0 {
		return all
	}
	var result []KeyedBookmark
	for _, kb := range all {
		if matchTags(&kb.Bookmark, tags, mode) {
			result = append(result, kb)
		}
	}
	return result
}

func matchTags(b *Bookmark, tags []string, mode TagMatchMode) bool {
	if mode == MatchAny {
		for _, t := range tags {
			if b.HasTag(t) {
				return true
			}
		}
		return false
	}
	for _, t := range tags {
		if !b.HasTag(t) {
			return false
		}
	}
	return true
}

// GetMostUsedBookmarks returns clicked bookmarks by descending click count,
// truncated to limit (limit <= 0 means no limit).
func (s *Store) GetMostUsedBookmarks(limit int) []KeyedBookmark {
	var result []KeyedBookmark
	for _, kb := range s.AllBookmarks() {
		if kb.ClickCount > 0 {
			result = append(result, kb)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ClickCount > result[j].ClickCount
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// GetDormantBookmarks returns bookmarks never opened or last opened more
// than days ago.
func (s *Store) GetDormantBookmarks(days int) []KeyedBookmark {
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	var result []KeyedBookmark
	for _, kb := range s.AllBookmarks() {
		if isDormant(&kb.Bookmark, cutoff) {
			result = append(result, kb)
		}
	}
	return result
}

func isDormant(b *Bookmark, cutoff time.Time) bool {
	return b.LastAccessedAt == nil || b.LastAccessedAt.Before(cutoff)
}

// GetAnalyticsSummary aggregates usage counts, using the configured dormant threshold.
func (s *Store) GetAnalyticsSummary() AnalyticsSummary {
	days := s.Settings.DormantDays
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	summary := AnalyticsSummary{Total: len(s.Bookmarks), DormantDays: days}
	for _, b := range s.Bookmarks {
		summary.TotalClicks += b.ClickCount
		if b.ClickCount > 0 {
			summary.ActiveBookmarks++
		} else {
			summary.NeverClicked++
		}
		if isDormant(b, cutoff) {
			summary.DormantCount++
		}
	}
	return summary
}

// Search returns live bookmarks whose title, URL, description or tags
// contain query, case-insensitively.
func (s *Store) Search(query string) []KeyedBookmark {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var result []KeyedBookmark
	for _, kb := range s.AllBookmarks() {
		if strings.Contains(strings.ToLower(kb.Title), q) ||
			strings.Contains(strings.ToLower(kb.URL), q) ||
			strings.Contains(strings.ToLower(kb.Description), q) ||
			kb.HasTag(q) {
			result = append(result, kb)
		}
	}
	return result
}

// DuplicateSet is a normalized key shared by more than one stored bookmark.
type DuplicateSet struct {
	Key       string   `json:"key"`
	StoreKeys []string `json:"storeKeys"`
}

// DuplicateReport lists integrity anomalies around bookmark identity.
// In a healthy store both lists are empty.
type DuplicateReport struct {
	Duplicates    []DuplicateSet `json:"duplicates"`
	KeyMismatches []string       `json:"keyMismatches"` // store keys not equal to Normalize(url)
}

// Empty reports whether no anomaly was found.
func (r DuplicateReport) Empty() bool {
	return len(r.Duplicates) == 0 && len(r.KeyMismatches) == 0
}

// FindDuplicates groups live bookmarks by the normalization of their URL.
func (s *Store) FindDuplicates() DuplicateReport {
	byKey := map[string][]string{}
	report := DuplicateReport{Duplicates: []DuplicateSet{}, KeyMismatches: []string{}}
	for storeKey, b := range s.Bookmarks {
		norm := urlnorm.Normalize(b.URL)
		byKey[norm] = append(byKey[norm], storeKey)
		if norm != storeKey {
			report.KeyMismatches = append(report.KeyMismatches, storeKey)
		}
	}
	for norm, keys := range byKey {
		if len(keys) < 2 {
			continue
		}
		sort.Strings(keys)
		report.Duplicates = append(report.Duplicates, DuplicateSet{Key: norm, StoreKeys: keys})
	}
	sort.Slice(report.Duplicates, func(i, j int) bool {
		return report.Duplicates[i].Key < report.Duplicates[j].Key
	})
	sort.Strings(report.KeyMismatches)
	if !report.Empty() {
		s.logger().Warn("bookmark identity anomalies found",
			logger.Int("duplicates", len(report.Duplicates)),
			logger.Int("key_mismatches", len(report.KeyMismatches)))
	}
	return report
}
