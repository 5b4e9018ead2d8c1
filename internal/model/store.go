package model

import (
	"strings"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/urlnorm"
)

// Store holds every entity collection plus settings. Bookmarks, groups,
// favorites and recents reference each other by normalized URL key; the
// mutation methods keep those references consistent and ValidateAndRepair
// heals anything loaded from outside.
//
// Store is not safe for concurrent use; see library.Library for a guarded handle.
type Store struct {
	Bookmarks      map[string]*Bookmark         `json:"bookmarks"`
	Groups         map[string]*Group            `json:"groups"`
	GroupOrder     []string                     `json:"groupOrder"`
	FavoriteURLs   []string                     `json:"favoriteUrls"`
	RecentlyAdded  []RecentEntry                `json:"recentlyAddedUrls"`
	Archived       map[string]*ArchivedBookmark `json:"archivedBookmarks"`
	TagCollections map[string][]string          `json:"tagCollections"`
	Presets        map[string]*Preset           `json:"presets"`
	Settings       Settings                     `json:"settings"`

	clock func() time.Time
	log   logger.Logger
}

// NewStore creates an empty Store with initialized collections and default settings.
func NewStore() *Store {
	return &Store{
		Bookmarks:      map[string]*Bookmark{},
		Groups:         map[string]*Group{},
		GroupOrder:     []string{},
		FavoriteURLs:   []string{},
		RecentlyAdded:  []RecentEntry{},
		Archived:       map[string]*ArchivedBookmark{},
		TagCollections: map[string][]string{},
		Presets:        map[string]*Preset{},
		Settings:       DefaultSettings(),
	}
}

// WithClock sets the time source used for timestamps.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// WithLogger sets the logger used for repair diagnostics.
func (s *Store) WithLogger(l logger.Logger) *Store {
	s.log = l
	return s
}

func (s *Store) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}

func (s *Store) logger() logger.Logger {
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s.log
}

// Clone returns a deep copy sharing no references with s.
func (s *Store) Clone() *Store {
	c := &Store{
		Bookmarks:      make(map[string]*Bookmark, len(s.Bookmarks)),
		Groups:         make(map[string]*Group, len(s.Groups)),
		GroupOrder:     append([]string{}, s.GroupOrder...),
		FavoriteURLs:   append([]string{}, s.FavoriteURLs...),
		RecentlyAdded:  append([]RecentEntry{}, s.RecentlyAdded...),
		Archived:       make(map[string]*ArchivedBookmark, len(s.Archived)),
		TagCollections: make(map[string][]string, len(s.TagCollections)),
		Presets:        make(map[string]*Preset, len(s.Presets)),
		Settings:       s.Settings.clone(),
		clock:          s.clock,
		log:            s.log,
	}
	for k, b := range s.Bookmarks {
		c.Bookmarks[k] = b.clone()
	}
	for k, g := range s.Groups {
		c.Groups[k] = g.clone()
	}
	for k, a := range s.Archived {
		c.Archived[k] = a.clone()
	}
	for k, tags := range s.TagCollections {
		c.TagCollections[k] = append([]string{}, tags...)
	}
	for k, p := range s.Presets {
		c.Presets[k] = p.clone()
	}
	return c
}

// ReplaceWith swaps every collection of s for those of other, keeping the
// clock and logger of s.
func (s *Store) ReplaceWith(other *Store) {
	clock, log := s.clock, s.log
	*s = *other
	s.clock, s.log = clock, log
}

// NormalizeURL returns the identity key for rawURL.
func (s *Store) NormalizeURL(rawURL string) string {
	return urlnorm.Normalize(rawURL)
}

// resolveKey finds the live bookmark key for a raw URL or an existing key.
func (s *Store) resolveKey(rawURL string) (string, bool) {
	if _, ok := s.Bookmarks[rawURL]; ok {
		return rawURL, true
	}
	key := urlnorm.Normalize(rawURL)
	_, ok := s.Bookmarks[key]
	return key, ok
}

// resolveArchivedKey finds the archive key for a raw URL or an existing key.
func (s *Store) resolveArchivedKey(rawURL string) (string, bool) {
	if _, ok := s.Archived[rawURL]; ok {
		return rawURL, true
	}
	key := urlnorm.Normalize(rawURL)
	_, ok := s.Archived[key]
	return key, ok
}

// unsafeKeys can never be used as map keys, whatever collection they name.
var unsafeKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// IsUnsafeKey reports whether key is on the reserved-name denylist.
func IsUnsafeKey(key string) bool {
	return unsafeKeys[key]
}

// validName accepts non-empty, trimmed names that are not on the denylist.
func validName(name string) bool {
	return name != "" && strings.TrimSpace(name) == name && !IsUnsafeKey(name)
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}

// removeValue returns list without any occurrence of v, and whether any was removed.
func removeValue(list []string, v string) ([]string, bool) {
	out := list[:0]
	removed := false
	for _, item := range list {
		if item == v {
			removed = true
			continue
		}
		out = append(out, item)
	}
	return out, removed
}

// replaceValue swaps old for new in list, collapsing a resulting duplicate.
func replaceValue(list []string, old, new string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, item := range list {
		if item == old {
			item = new
		}
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func insertAt(list []string, idx int, v string) []string {
	list = append(list, "")
	copy(list[idx+1:], list[idx:])
	list[idx] = v
	return list
}
