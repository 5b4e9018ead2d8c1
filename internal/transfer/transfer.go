// Package transfer exports the store as a versioned JSON envelope and
// imports such envelopes from untrusted files.
package transfer

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

const (
	// PluginID identifies envelopes written by this program.
	PluginID = "bookmark-manager"
	// FormatVersion is the envelope schema version.
	FormatVersion = "1.0"
)

var (
	ErrInvalidEnvelope     = errors.New("not a bookmark export envelope")
	ErrWrongProduct        = errors.New("export was written by a different product")
	ErrEmptyImport         = errors.New("export contains no importable data")
	ErrReplaceNotConfirmed = errors.New("replace import requires explicit confirmation")
)

// Section names one independently selectable part of the envelope.
type Section string

const (
	SectionBookmarks      Section = "bookmarks"
	SectionGroups         Section = "groups"
	SectionGroupOrder     Section = "groupOrder"
	SectionFavorites      Section = "favoriteUrls"
	SectionArchived       Section = "archivedBookmarks"
	SectionTagCollections Section = "tagCollections"
	SectionPresets        Section = "presets"
	SectionSettings       Section = "settings"
)

// AllSections lists every section in envelope order.
var AllSections = []Section{
	SectionBookmarks, SectionGroups, SectionGroupOrder, SectionFavorites,
	SectionArchived, SectionTagCollections, SectionPresets, SectionSettings,
}

// ParseSection maps a name to a Section.
func ParseSection(name string) (Section, bool) {
	for _, s := range AllSections {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Envelope is the export file layout.
type Envelope struct {
	Version    string    `json:"version"`
	ExportDate time.Time `json:"exportDate"`
	PluginID   string    `json:"pluginId"`
	Data       Data      `json:"data"`
}

// Data holds the selected sections. Absent sections are omitted.
type Data struct {
	Bookmarks         map[string]*model.Bookmark         `json:"bookmarks,omitempty"`
	Groups            map[string]*model.Group            `json:"groups,omitempty"`
	GroupOrder        []string                           `json:"groupOrder,omitempty"`
	FavoriteURLs      []string                           `json:"favoriteUrls,omitempty"`
	ArchivedBookmarks map[string]*model.ArchivedBookmark `json:"archivedBookmarks,omitempty"`
	TagCollections    map[string][]string                `json:"tagCollections,omitempty"`
	Presets           map[string]*model.Preset           `json:"presets,omitempty"`
	Settings          *model.Settings                    `json:"settings,omitempty"`
}

// ExportOptions selects what goes into an envelope.
type ExportOptions struct {
	Sections         []Section // nil exports everything
	IncludeAnalytics bool
}

func selected(sections []Section, s Section) bool {
	if sections == nil {
		return true
	}
	for _, want := range sections {
		if want == s {
			return true
		}
	}
	return false
}

// Export builds an envelope from a deep copy of store, so the result shares
// nothing with live state.
func Export(store *model.Store, opts ExportOptions, now time.Time) Envelope {
	snap := store.Clone()
	env := Envelope{Version: FormatVersion, ExportDate: now.UTC(), PluginID: PluginID}

	if selected(opts.Sections, SectionBookmarks) {
		env.Data.Bookmarks = snap.Bookmarks
		if !opts.IncludeAnalytics {
			for _, b := range env.Data.Bookmarks {
				stripAnalytics(b)
			}
		}
	}
	if selected(opts.Sections, SectionGroups) {
		env.Data.Groups = snap.Groups
	}
	if selected(opts.Sections, SectionGroupOrder) {
		env.Data.GroupOrder = snap.GroupOrder
	}
	if selected(opts.Sections, SectionFavorites) {
		env.Data.FavoriteURLs = snap.FavoriteURLs
	}
	if selected(opts.Sections, SectionArchived) {
		env.Data.ArchivedBookmarks = snap.Archived
		if !opts.IncludeAnalytics {
			for _, a := range env.Data.ArchivedBookmarks {
				stripAnalytics(&a.Bookmark)
			}
		}
	}
	if selected(opts.Sections, SectionTagCollections) {
		env.Data.TagCollections = snap.TagCollections
	}
	if selected(opts.Sections, SectionPresets) {
		env.Data.Presets = snap.Presets
	}
	if selected(opts.Sections, SectionSettings) {
		env.Data.Settings = &snap.Settings
	}
	return env
}

func stripAnalytics(b *model.Bookmark) {
	b.ClickCount = 0
	b.LastAccessedAt = nil
}

// Marshal encodes an envelope as indented JSON.
func Marshal(env Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}
