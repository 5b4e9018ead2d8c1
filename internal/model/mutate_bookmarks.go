package model

import (
	"sort"
	"strings"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/urlnorm"
)

// AddBookmark inserts a new bookmark and records it as recently added.
// It returns false if the URL is not allowed or its normalized key is
// already live or archived.
func (s *Store) AddBookmark(params NewBookmarkParams) bool {
	_, ok := s.addBookmark(params)
	return ok
}

func (s *Store) addBookmark(params NewBookmarkParams) (string, bool) {
	if !urlnorm.IsAllowed(params.URL) {
		return "", false
	}
	key := urlnorm.Normalize(params.URL)
	if _, exists := s.Bookmarks[key]; exists {
		return key, false
	}
	if _, archived := s.Archived[key]; archived {
		return key, false
	}

	now := s.now()
	s.Bookmarks[key] = newBookmark(params, now)
	s.pushRecent(key, now)
	return key, true
}

// pushRecent puts key at the head of RecentlyAdded and trims the list to
// twice the display count.
func (s *Store) pushRecent(key string, at time.Time) {
	recents := make([]RecentEntry, 0, len(s.RecentlyAdded)+1)
	recents = append(recents, RecentEntry{URL: key, AddedAt: at})
	for _, r := range s.RecentlyAdded {
		if r.URL != key {
			recents = append(recents, r)
		}
	}
	if limit := 2 * s.Settings.RecentlyAddedCount; limit > 0 && len(recents) > limit {
		recents = recents[:limit]
	}
	s.RecentlyAdded = recents
}

// QuickAdd adds a bookmark and places it in groupName, creating that group
// as a top-level group when it does not exist yet.
func (s *Store) QuickAdd(params NewBookmarkParams, groupName string) bool {
	key, ok := s.addBookmark(params)
	if !ok {
		return false
	}
	groupName = strings.TrimSpace(groupName)
	if groupName == "" {
		return true
	}
	if _, exists := s.Groups[groupName]; !exists {
		if !s.CreateGroup(groupName, GroupParams{}) {
			return true
		}
	}
	s.AddToGroup(key, groupName)
	return true
}

// UpdateBookmark applies updates to the bookmark at url. When the URL
// changes its normalized key, every favorite, group and recent reference
// moves to the new key; a collision with another bookmark rejects the update.
func (s *Store) UpdateBookmark(url string, updates BookmarkUpdate) bool {
	key, ok := s.resolveKey(url)
	if !ok {
		return false
	}
	b := s.Bookmarks[key]

	if updates.URL != nil {
		newURL := strings.TrimSpace(*updates.URL)
		if !urlnorm.IsAllowed(newURL) {
			return false
		}
		newKey := urlnorm.Normalize(newURL)
		if newKey != key {
			if _, taken := s.Bookmarks[newKey]; taken {
				return false
			}
			if _, archived := s.Archived[newKey]; archived {
				return false
			}
			s.rekey(key, newKey)
			key = newKey
		}
		b.URL = newURL
	}

	if updates.Title != nil {
		if title := strings.TrimSpace(*updates.Title); title != "" {
			b.Title = title
		}
	}
	if updates.Description != nil {
		b.Description = *updates.Description
	}
	if updates.Tags != nil {
		b.Tags = cleanTags(*updates.Tags)
	}
	b.UpdatedAt = s.now()
	return true
}

// rekey moves the bookmark and all back-references from old to new.
func (s *Store) rekey(old, new string) {
	s.Bookmarks[new] = s.Bookmarks[old]
	delete(s.Bookmarks, old)

	s.FavoriteURLs = replaceValue(s.FavoriteURLs, old, new)
	for _, g := range s.Groups {
		if g.contains(old) {
			g.URLs = replaceValue(g.URLs, old, new)
		}
	}
	recents := s.RecentlyAdded[:0]
	seen := map[string]bool{}
	for _, r := range s.RecentlyAdded {
		if r.URL == old {
			r.URL = new
		}
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		recents = append(recents, r)
	}
	s.RecentlyAdded = recents
}

// DeleteBookmark removes the bookmark and every reference to it.
// Deleting a missing bookmark returns false.
func (s *Store) DeleteBookmark(url string) bool {
	key, ok := s.resolveKey(url)
	if !ok {
		return false
	}
	delete(s.Bookmarks, key)
	s.purgeReferences(key)
	return true
}

// purgeReferences removes key from favorites, every group and recents.
func (s *Store) purgeReferences(key string) {
	s.FavoriteURLs, _ = removeValue(s.FavoriteURLs, key)
	for _, g := range s.Groups {
		g.URLs, _ = removeValue(g.URLs, key)
	}
	recents := s.RecentlyAdded[:0]
	for _, r := range s.RecentlyAdded {
		if r.URL != key {
			recents = append(recents, r)
		}
	}
	s.RecentlyAdded = recents
}

// ArchiveBookmark moves a live bookmark into the archive, remembering its
// groups and favorite status. With archiving disabled it deletes instead.
func (s *Store) ArchiveBookmark(url string) bool {
	if !s.Settings.EnableArchive {
		return s.DeleteBookmark(url)
	}
	key, ok := s.resolveKey(url)
	if !ok {
		return false
	}
	s.Archived[key] = &ArchivedBookmark{
		Bookmark:       *s.Bookmarks[key].clone(),
		ArchivedAt:     s.now(),
		OriginalGroups: s.GetBookmarkGroups(key),
		WasFavorite:    s.IsFavorite(key),
	}
	delete(s.Bookmarks, key)
	s.purgeReferences(key)
	return true
}

// UnarchiveBookmark restores an archived bookmark to the live set. With
// restoreGroups it rejoins original groups and favorites that still exist;
// deleted targets are skipped.
func (s *Store) UnarchiveBookmark(url string, restoreGroups bool) bool {
	key, ok := s.resolveArchivedKey(url)
	if !ok {
		return false
	}
	if _, live := s.Bookmarks[key]; live {
		return false
	}
	entry := s.Archived[key]
	b := entry.Bookmark.clone()
	s.Bookmarks[key] = b
	delete(s.Archived, key)

	if restoreGroups {
		for _, name := range entry.OriginalGroups {
			if g, exists := s.Groups[name]; exists && !g.contains(key) {
				g.URLs = append(g.URLs, key)
			}
		}
		if entry.WasFavorite && !s.IsFavorite(key) {
			s.FavoriteURLs = append(s.FavoriteURLs, key)
		}
	}
	return true
}

// PermanentlyDeleteBookmark removes an archive entry, or deletes the live
// bookmark if the URL is not archived.
func (s *Store) PermanentlyDeleteBookmark(url string) bool {
	if key, ok := s.resolveArchivedKey(url); ok {
		delete(s.Archived, key)
		return true
	}
	return s.DeleteBookmark(url)
}

// PurgeExpiredArchive deletes archive entries older than the retention
// setting. It returns the removed keys, none when retention is disabled.
func (s *Store) PurgeExpiredArchive(now time.Time) []string {
	days := s.Settings.ArchiveRetentionDays
	if days <= 0 {
		return nil
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	var removed []string
	for key, a := range s.Archived {
		if a.ArchivedAt.Before(cutoff) {
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	for _, key := range removed {
		delete(s.Archived, key)
	}
	return removed
}

// TrackBookmarkClick counts an open of the bookmark. It is a no-op when
// analytics tracking is off.
func (s *Store) TrackBookmarkClick(url string) bool {
	if !s.Settings.TrackAnalytics {
		return false
	}
	key, ok := s.resolveKey(url)
	if !ok {
		return false
	}
	b := s.Bookmarks[key]
	now := s.now()
	b.ClickCount++
	b.LastAccessedAt = &now
	return true
}

// ResetAnalytics zeroes click counts and last-access times of every live
// bookmark. It returns the number of bookmarks that had analytics.
func (s *Store) ResetAnalytics() int {
	touched := 0
	for _, b := range s.Bookmarks {
		if b.ClickCount != 0 || b.LastAccessedAt != nil {
			touched++
		}
		b.ClickCount = 0
		b.LastAccessedAt = nil
	}
	return touched
}

// AddToFavorites marks a live bookmark as favorite.
func (s *Store) AddToFavorites(url string) bool {
	key, ok := s.resolveKey(url)
	if !ok || s.IsFavorite(key) {
		return false
	}
	s.FavoriteURLs = append(s.FavoriteURLs, key)
	return true
}

// RemoveFromFavorites unmarks a favorite.
func (s *Store) RemoveFromFavorites(url string) bool {
	key, _ := s.resolveKey(url)
	var removed bool
	s.FavoriteURLs, removed = removeValue(s.FavoriteURLs, key)
	return removed
}
