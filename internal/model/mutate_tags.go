package model

import (
	"slices"
	"strings"
)

// MergeTag replaces oldTag with newTag on every live bookmark. Tags are
// matched case-insensitively, like GetBookmarksByTags, and a bookmark that
// already carries newTag keeps a single copy. It reports whether any
// bookmark changed.
func (s *Store) MergeTag(oldTag, newTag string) bool {
	oldTag, newTag = strings.TrimSpace(oldTag), strings.TrimSpace(newTag)
	if oldTag == "" || newTag == "" || oldTag == newTag {
		return false
	}
	touched := false
	for _, b := range s.Bookmarks {
		tags := replaceTag(b.Tags, oldTag, newTag)
		if slices.Equal(tags, b.Tags) {
			continue
		}
		b.Tags = tags
		b.UpdatedAt = s.now()
		touched = true
	}
	return touched
}

func replaceTag(tags []string, oldTag, newTag string) []string {
	out := make([]string, 0, len(tags))
	hasNew := false
	for _, t := range tags {
		if strings.EqualFold(t, oldTag) {
			t = newTag
		}
		if strings.EqualFold(t, newTag) {
			if hasNew {
				continue
			}
			hasNew = true
		}
		out = append(out, t)
	}
	return out
}

// DeleteTag strips tag, compared case-insensitively, from every live
// bookmark. It reports whether any bookmark changed.
func (s *Store) DeleteTag(tag string) bool {
	if tag == "" {
		return false
	}
	touched := false
	for _, b := range s.Bookmarks {
		kept := b.Tags[:0:0]
		for _, t := range b.Tags {
			if !strings.EqualFold(t, tag) {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(b.Tags) {
			continue
		}
		b.Tags = kept
		b.UpdatedAt = s.now()
		touched = true
	}
	return touched
}

// SaveCollection creates or overwrites a named tag collection.
func (s *Store) SaveCollection(name string, tags []string) bool {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return false
	}
	s.TagCollections[name] = cleanTags(tags)
	return true
}

// DeleteCollection removes a named tag collection.
func (s *Store) DeleteCollection(name string) bool {
	if _, ok := s.TagCollections[name]; !ok {
		return false
	}
	delete(s.TagCollections, name)
	return true
}

// RenameCollection moves a tag collection to a new, unused name.
func (s *Store) RenameCollection(oldName, newName string) bool {
	newName = strings.TrimSpace(newName)
	tags, ok := s.TagCollections[oldName]
	if !ok || !validName(newName) || oldName == newName {
		return false
	}
	if _, taken := s.TagCollections[newName]; taken {
		return false
	}
	delete(s.TagCollections, oldName)
	s.TagCollections[newName] = tags
	return true
}
