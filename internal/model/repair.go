package model

import (
	"fmt"
	"sort"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/colorsafe"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
)

// ValidateAndRepair heals a store loaded from outside so every invariant
// holds again. Rules run in a fixed order and the pass is idempotent: a
// second call on its result reports no actions. Each action is logged and
// returned.
func (s *Store) ValidateAndRepair() []string {
	r := repairer{store: s}

	r.containers()
	r.bookmarks()
	r.groups()
	r.nesting()
	r.groupOrder()
	r.references()
	r.settings()
	r.recents()
	r.archive()
	r.collections()

	for _, action := range r.actions {
		s.logger().Warn("repaired store", logger.String("action", action))
	}
	return r.actions
}

type repairer struct {
	store   *Store
	actions []string
}

func (r *repairer) note(format string, args ...any) {
	r.actions = append(r.actions, fmt.Sprintf(format, args...))
}

// sortedKeys iterates maps in a stable order so repair output is deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *repairer) containers() {
	s := r.store
	if s.Bookmarks == nil {
		s.Bookmarks = map[string]*Bookmark{}
		r.note("bookmarks: coerced to empty")
	}
	if s.Groups == nil {
		s.Groups = map[string]*Group{}
		r.note("groups: coerced to empty")
	}
	if s.GroupOrder == nil {
		s.GroupOrder = []string{}
		r.note("groupOrder: coerced to empty")
	}
	if s.FavoriteURLs == nil {
		s.FavoriteURLs = []string{}
		r.note("favoriteUrls: coerced to empty")
	}
	if s.RecentlyAdded == nil {
		s.RecentlyAdded = []RecentEntry{}
		r.note("recentlyAddedUrls: coerced to empty")
	}
	if s.Archived == nil {
		s.Archived = map[string]*ArchivedBookmark{}
		r.note("archivedBookmarks: coerced to empty")
	}
	if s.TagCollections == nil {
		s.TagCollections = map[string][]string{}
		r.note("tagCollections: coerced to empty")
	}
	if s.Presets == nil {
		s.Presets = map[string]*Preset{}
		r.note("presets: coerced to empty")
	}
}

// backfill fills defaults on b and reports whether it is worth keeping.
func (r *repairer) backfill(section, key string, b *Bookmark) bool {
	if b.URL == "" || b.Title == "" {
		r.note("%s: dropped %q missing url or title", section, key)
		return false
	}
	if b.ID == "" {
		b.ID = newID()
		r.note("%s: backfilled id for %q", section, key)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.store.now()
		r.note("%s: backfilled createdAt for %q", section, key)
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
		r.note("%s: backfilled updatedAt for %q", section, key)
	}
	if b.ClickCount < 0 {
		b.ClickCount = 0
		r.note("%s: reset negative clickCount for %q", section, key)
	}
	if b.LastAccessedAt != nil && b.LastAccessedAt.IsZero() {
		b.LastAccessedAt = nil
		r.note("%s: cleared zero lastAccessedAt for %q", section, key)
	}
	cleaned := cleanTags(b.Tags)
	if b.Tags == nil || len(cleaned) != len(b.Tags) {
		r.note("%s: cleaned tags for %q", section, key)
	}
	b.Tags = cleaned
	return true
}

func (r *repairer) bookmarks() {
	s := r.store
	for _, key := range sortedKeys(s.Bookmarks) {
		b := s.Bookmarks[key]
		if b == nil || key == "" || IsUnsafeKey(key) {
			delete(s.Bookmarks, key)
			r.note("bookmarks: dropped invalid entry %q", key)
			continue
		}
		if !r.backfill("bookmarks", key, b) {
			delete(s.Bookmarks, key)
		}
	}
}

func (r *repairer) groups() {
	s := r.store
	for _, name := range sortedKeys(s.Groups) {
		g := s.Groups[name]
		if g == nil || !validName(name) {
			delete(s.Groups, name)
			r.note("groups: dropped invalid group %q", name)
			continue
		}
		urls := make([]string, 0, len(g.URLs))
		seen := make(map[string]bool, len(g.URLs))
		for _, key := range g.URLs {
			if _, live := s.Bookmarks[key]; !live || seen[key] {
				continue
			}
			seen[key] = true
			urls = append(urls, key)
		}
		if g.URLs == nil || len(urls) != len(g.URLs) {
			r.note("groups: filtered members of %q", name)
		}
		g.URLs = urls
		if g.CreatedAt.IsZero() {
			g.CreatedAt = s.now()
			r.note("groups: backfilled createdAt for %q", name)
		}
		if g.Icon == "" {
			g.Icon = DefaultGroupIcon
			r.note("groups: backfilled icon for %q", name)
		}
		if g.Color != "" && !colorsafe.IsSafe(g.Color) {
			g.Color = ""
			r.note("groups: cleared unsafe color of %q", name)
		}
		if g.ParentGroup != nil && *g.ParentGroup == "" {
			g.ParentGroup = nil
			r.note("groups: cleared empty parent of %q", name)
		}
	}
}

// nesting promotes groups whose parent is missing, is the group itself, or
// has a parent of its own. Decisions use the parents as they were before the
// pass so the outcome does not depend on iteration order.
func (r *repairer) nesting() {
	s := r.store
	parents := make(map[string]*string, len(s.Groups))
	for name, g := range s.Groups {
		parents[name] = g.ParentGroup
	}
	for _, name := range sortedKeys(s.Groups) {
		parent := parents[name]
		if parent == nil {
			continue
		}
		grand, exists := parents[*parent]
		if *parent == name || !exists || grand != nil {
			s.Groups[name].ParentGroup = nil
			r.note("groups: promoted %q to top level", name)
		}
	}
}

func (r *repairer) groupOrder() {
	s := r.store
	order := make([]string, 0, len(s.Groups))
	seen := make(map[string]bool, len(s.Groups))
	for _, name := range s.GroupOrder {
		if _, ok := s.Groups[name]; !ok || seen[name] {
			r.note("groupOrder: dropped %q", name)
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	for _, name := range sortedKeys(s.Groups) {
		if !seen[name] {
			order = append(order, name)
			r.note("groupOrder: appended %q", name)
		}
	}
	s.GroupOrder = order
}

func (r *repairer) references() {
	s := r.store
	favorites := make([]string, 0, len(s.FavoriteURLs))
	seen := map[string]bool{}
	for _, key := range s.FavoriteURLs {
		if _, live := s.Bookmarks[key]; !live || seen[key] {
			r.note("favoriteUrls: dropped %q", key)
			continue
		}
		seen[key] = true
		favorites = append(favorites, key)
	}
	s.FavoriteURLs = favorites

	recents := make([]RecentEntry, 0, len(s.RecentlyAdded))
	seen = map[string]bool{}
	for _, e := range s.RecentlyAdded {
		if _, live := s.Bookmarks[e.URL]; !live || seen[e.URL] {
			r.note("recentlyAddedUrls: dropped %q", e.URL)
			continue
		}
		seen[e.URL] = true
		if e.AddedAt.IsZero() {
			e.AddedAt = s.Bookmarks[e.URL].CreatedAt
			r.note("recentlyAddedUrls: backfilled addedAt for %q", e.URL)
		}
		recents = append(recents, e)
	}
	s.RecentlyAdded = recents
}

func (r *repairer) settings() {
	s := r.store
	for _, key := range s.Settings.clamp() {
		r.note("settings: reset %s to default", key)
	}
	for _, name := range sortedKeys(s.Presets) {
		p := s.Presets[name]
		if p == nil || !validName(name) || IsBuiltinPreset(name) {
			delete(s.Presets, name)
			r.note("presets: dropped %q", name)
			continue
		}
		if p.repair() {
			r.note("presets: repaired %q", name)
		}
	}
}

// recents caps the recently added list at twice the display count.
func (r *repairer) recents() {
	s := r.store
	limit := 2 * s.Settings.RecentlyAddedCount
	if limit > 0 && len(s.RecentlyAdded) > limit {
		r.note("recentlyAddedUrls: trimmed %d entries", len(s.RecentlyAdded)-limit)
		s.RecentlyAdded = s.RecentlyAdded[:limit]
	}
}

func (r *repairer) archive() {
	s := r.store
	for _, key := range sortedKeys(s.Archived) {
		a := s.Archived[key]
		if a == nil || key == "" || IsUnsafeKey(key) {
			delete(s.Archived, key)
			r.note("archivedBookmarks: dropped invalid entry %q", key)
			continue
		}
		if _, live := s.Bookmarks[key]; live {
			delete(s.Archived, key)
			r.note("archivedBookmarks: dropped %q, also live", key)
			continue
		}
		if !r.backfill("archivedBookmarks", key, &a.Bookmark) {
			delete(s.Archived, key)
			continue
		}
		if a.ArchivedAt.IsZero() {
			a.ArchivedAt = a.UpdatedAt
			r.note("archivedBookmarks: backfilled archivedAt for %q", key)
		}
		if a.OriginalGroups == nil {
			a.OriginalGroups = []string{}
			r.note("archivedBookmarks: backfilled originalGroups for %q", key)
		}
	}
}

func (r *repairer) collections() {
	s := r.store
	for _, name := range sortedKeys(s.TagCollections) {
		if !validName(name) {
			delete(s.TagCollections, name)
			r.note("tagCollections: dropped %q", name)
			continue
		}
		tags := s.TagCollections[name]
		cleaned := cleanTags(tags)
		if tags == nil || len(cleaned) != len(tags) {
			r.note("tagCollections: cleaned %q", name)
		}
		s.TagCollections[name] = cleaned
	}
}
