package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bookmark represents a saved URL with metadata and usage analytics.
// Its identity is the normalized form of URL, used as the map key in Store.
type Bookmark struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	URL            string     `json:"url"` // as entered, not normalized
	Description    string     `json:"description"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	ClickCount     int        `json:"clickCount"`
	LastAccessedAt *time.Time `json:"lastAccessedAt"` // nil = never opened
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Title       string
	URL         string
	Description string
	Tags        []string
}

// BookmarkUpdate lists the fields to change. Nil fields are left alone.
type BookmarkUpdate struct {
	Title       *string
	URL         *string
	Description *string
	Tags        *[]string
}

func newID() string { return uuid.NewString() }

// newBookmark creates a Bookmark with generated UUID, timestamps and
// zeroed analytics.
func newBookmark(params NewBookmarkParams, now time.Time) *Bookmark {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = strings.TrimSpace(params.URL)
	}

	return &Bookmark{
		ID:             newID(),
		Title:          title,
		URL:            strings.TrimSpace(params.URL),
		Description:    params.Description,
		Tags:           cleanTags(params.Tags),
		CreatedAt:      now,
		UpdatedAt:      now,
		ClickCount:     0,
		LastAccessedAt: nil,
	}
}

// HasTag reports whether the bookmark carries tag, compared case-insensitively.
func (b *Bookmark) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func (b *Bookmark) clone() *Bookmark {
	c := *b
	c.Tags = append([]string{}, b.Tags...)
	if b.LastAccessedAt != nil {
		t := *b.LastAccessedAt
		c.LastAccessedAt = &t
	}
	return &c
}

// cleanTags trims tags, dropping empties and exact duplicates while keeping order.
func cleanTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	return result
}

// RecentEntry records when a bookmark was added, newest first in Store.
type RecentEntry struct {
	URL     string    `json:"url"` // normalized key
	AddedAt time.Time `json:"addedAt"`
}

// ArchivedBookmark is a bookmark removed from the live set together with
// what is needed to restore it.
type ArchivedBookmark struct {
	Bookmark
	ArchivedAt     time.Time `json:"archivedAt"`
	OriginalGroups []string  `json:"originalGroups"`
	WasFavorite    bool      `json:"wasFavorite"`
}

func (a *ArchivedBookmark) clone() *ArchivedBookmark {
	c := *a
	c.Bookmark = *a.Bookmark.clone()
	c.OriginalGroups = append([]string{}, a.OriginalGroups...)
	return &c
}
