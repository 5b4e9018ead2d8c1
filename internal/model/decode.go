package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/colorsafe"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
)

// UIKeyPrefix marks top-level blob keys that belong to the UI sidecar and
// are never read as entity collections.
const UIKeyPrefix = "_"

// UIState is the private UI sidecar persisted next to the store.
type UIState struct {
	CollapsedSections []string `json:"collapsedSections"`
}

// Limits caps field sizes when decoding untrusted input. Zero means unlimited.
type Limits struct {
	Title          int
	Description    int
	URL            int
	Tag            int
	Tags           int
	Name           int
	CollectionTags int
}

// ImportLimits are the caps applied to imported documents.
var ImportLimits = Limits{
	Title:          500,
	Description:    2000,
	URL:            2048,
	Tag:            64,
	Tags:           50,
	Name:           100,
	CollectionTags: 100,
}

// Decoder turns loosely-typed JSON values into typed entities, coercing
// wrong-typed fields to defaults and dropping records that cannot be saved.
// Every drop or coercion is logged.
type Decoder struct {
	Limits Limits
	Now    time.Time
	Log    logger.Logger
}

// ParseJSON decodes data into generic values keeping numbers as json.Number.
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeStore rebuilds a Store from a persisted blob and runs
// ValidateAndRepair on it. Corrupt input never fails: unreadable parts are
// replaced with empty collections.
func DecodeStore(data []byte, now time.Time, log logger.Logger) (*Store, UIState) {
	if log == nil {
		log = logger.Nop()
	}
	store := NewStore().WithLogger(log)
	store.WithClock(func() time.Time { return now })
	ui := UIState{CollapsedSections: []string{}}

	if len(bytes.TrimSpace(data)) == 0 {
		return store, ui
	}
	v, err := ParseJSON(data)
	obj, ok := v.(map[string]any)
	if err != nil || !ok {
		log.Warn("persisted blob is not a JSON object, starting empty", logger.Error(err))
		return store, ui
	}

	d := Decoder{Now: now, Log: log}
	store.Bookmarks = d.Bookmarks(obj["bookmarks"])
	store.Groups = d.Groups(obj["groups"])
	store.GroupOrder = d.StringList("groupOrder", obj["groupOrder"])
	store.FavoriteURLs = d.StringList("favoriteUrls", obj["favoriteUrls"])
	store.RecentlyAdded = d.Recents(obj["recentlyAddedUrls"])
	store.Archived = d.Archived(obj["archivedBookmarks"])
	store.TagCollections = d.TagCollections(obj["tagCollections"])
	store.Presets = d.Presets(obj["presets"])
	store.Settings, _ = d.Settings(obj["settings"], DefaultSettings())

	if raw, ok := obj[UIKeyPrefix+"ui"].(map[string]any); ok {
		ui.CollapsedSections = d.StringList("_ui.collapsedSections", raw["collapsedSections"])
	}

	store.ValidateAndRepair()
	store.clock = nil
	return store, ui
}

// EncodeStore serializes store and the UI sidecar into one blob.
func EncodeStore(store *Store, ui UIState) ([]byte, error) {
	if ui.CollapsedSections == nil {
		ui.CollapsedSections = []string{}
	}
	blob := struct {
		*Store
		UI UIState `json:"_ui"`
	}{Store: store, UI: ui}
	return json.MarshalIndent(blob, "", "  ")
}

func (d *Decoder) log() logger.Logger {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d.Log
}

func (d *Decoder) now() time.Time {
	if d.Now.IsZero() {
		return time.Now()
	}
	return d.Now
}

// object returns v as an object, logging a coercion when v is present but
// of another type.
func (d *Decoder) object(section string, v any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		d.log().Warn("coerced non-object section to empty", logger.String("section", section))
		return map[string]any{}
	}
	return obj
}

// safeKey filters map keys against the denylist and the name cap.
func (d *Decoder) safeKey(section, key string) bool {
	if IsUnsafeKey(key) {
		d.log().Warn("dropped reserved key", logger.String("section", section), logger.String("key", key))
		return false
	}
	if key == "" || (d.Limits.Name > 0 && section != "bookmarks" && section != "archivedBookmarks" &&
		utf8.RuneCountInString(key) > d.Limits.Name) {
		d.log().Warn("dropped invalid key", logger.String("section", section), logger.String("key", truncate(key, 40)))
		return false
	}
	return true
}

// Bookmarks decodes the bookmarks section keyed by normalized URL.
func (d *Decoder) Bookmarks(v any) map[string]*Bookmark {
	result := map[string]*Bookmark{}
	for key, raw := range d.object("bookmarks", v) {
		if !d.safeKey("bookmarks", key) {
			continue
		}
		b, ok := d.Bookmark(raw)
		if !ok {
			d.log().Warn("dropped bookmark without url or title", logger.String("key", truncate(key, 80)))
			continue
		}
		result[key] = b
	}
	return result
}

// Bookmark decodes one bookmark record. It fails when url or title is not
// a non-empty string, or url exceeds the URL cap.
func (d *Decoder) Bookmark(v any) (*Bookmark, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	url, okURL := obj["url"].(string)
	title, okTitle := obj["title"].(string)
	url = strings.TrimSpace(url)
	if !okURL || !okTitle || url == "" {
		return nil, false
	}
	if d.Limits.URL > 0 && len(url) > d.Limits.URL {
		return nil, false
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = url
	}

	b := &Bookmark{
		URL:         url,
		Title:       truncate(title, d.Limits.Title),
		Description: truncate(stringOr(obj["description"], ""), d.Limits.Description),
		Tags:        d.tags(obj["tags"], d.Limits.Tags),
		ClickCount:  nonNegativeInt(obj["clickCount"]),
	}
	if id, ok := obj["id"].(string); ok && id != "" && !IsUnsafeKey(id) {
		b.ID = truncate(id, 64)
	} else {
		b.ID = newID()
	}
	if t, ok := parseTime(obj["createdAt"]); ok {
		b.CreatedAt = t
	} else {
		b.CreatedAt = d.now()
	}
	if t, ok := parseTime(obj["updatedAt"]); ok {
		b.UpdatedAt = t
	} else {
		b.UpdatedAt = b.CreatedAt
	}
	if t, ok := parseTime(obj["lastAccessedAt"]); ok {
		b.LastAccessedAt = &t
	}
	return b, true
}

func (d *Decoder) tags(v any, maxCount int) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	var tags []string
	for _, item := range list {
		t, ok := item.(string)
		if !ok {
			continue
		}
		t = strings.TrimSpace(t)
		if d.Limits.Tag > 0 && utf8.RuneCountInString(t) > d.Limits.Tag {
			continue
		}
		tags = append(tags, t)
	}
	tags = cleanTags(tags)
	if maxCount > 0 && len(tags) > maxCount {
		tags = tags[:maxCount]
	}
	return tags
}

// Groups decodes the groups section keyed by name.
func (d *Decoder) Groups(v any) map[string]*Group {
	result := map[string]*Group{}
	for name, raw := range d.object("groups", v) {
		if !d.safeKey("groups", name) {
			continue
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			d.log().Warn("dropped non-object group", logger.String("group", name))
			continue
		}
		g := &Group{
			URLs:  d.StringList("groups."+name+".urls", obj["urls"]),
			Icon:  truncate(strings.TrimSpace(stringOr(obj["icon"], "")), 16),
			Color: colorsafe.Sanitize(stringOr(obj["color"], "")),
		}
		if g.Icon == "" {
			g.Icon = DefaultGroupIcon
		}
		if t, ok := parseTime(obj["createdAt"]); ok {
			g.CreatedAt = t
		} else {
			g.CreatedAt = d.now()
		}
		if parent, ok := obj["parentGroup"].(string); ok && parent != "" {
			g.ParentGroup = strPtr(parent)
		}
		result[name] = g
	}
	return result
}

// StringList decodes an array of strings, coercing anything else to empty
// and skipping non-string elements.
func (d *Decoder) StringList(section string, v any) []string {
	result := []string{}
	if v == nil {
		return result
	}
	list, ok := v.([]any)
	if !ok {
		d.log().Warn("coerced non-array section to empty", logger.String("section", section))
		return result
	}
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			result = append(result, s)
		}
	}
	return result
}

// Recents decodes recently-added entries. Bare strings from older blobs
// are accepted with an unknown add time.
func (d *Decoder) Recents(v any) []RecentEntry {
	result := []RecentEntry{}
	if v == nil {
		return result
	}
	list, ok := v.([]any)
	if !ok {
		d.log().Warn("coerced non-array section to empty", logger.String("section", "recentlyAddedUrls"))
		return result
	}
	for _, item := range list {
		switch e := item.(type) {
		case string:
			result = append(result, RecentEntry{URL: e, AddedAt: d.now()})
		case map[string]any:
			url, ok := e["url"].(string)
			if !ok || url == "" {
				continue
			}
			at, ok := parseTime(e["addedAt"])
			if !ok {
				at = d.now()
			}
			result = append(result, RecentEntry{URL: url, AddedAt: at})
		}
	}
	return result
}

// Archived decodes the archive section keyed by normalized URL.
func (d *Decoder) Archived(v any) map[string]*ArchivedBookmark {
	result := map[string]*ArchivedBookmark{}
	for key, raw := range d.object("archivedBookmarks", v) {
		if !d.safeKey("archivedBookmarks", key) {
			continue
		}
		b, ok := d.Bookmark(raw)
		if !ok {
			d.log().Warn("dropped archived bookmark without url or title", logger.String("key", truncate(key, 80)))
			continue
		}
		obj := raw.(map[string]any)
		a := &ArchivedBookmark{
			Bookmark:       *b,
			OriginalGroups: d.StringList("archivedBookmarks.originalGroups", obj["originalGroups"]),
		}
		a.WasFavorite, _ = obj["wasFavorite"].(bool)
		if t, ok := parseTime(obj["archivedAt"]); ok {
			a.ArchivedAt = t
		} else {
			a.ArchivedAt = d.now()
		}
		result[key] = a
	}
	return result
}

// TagCollections decodes named tag sequences.
func (d *Decoder) TagCollections(v any) map[string][]string {
	result := map[string][]string{}
	for name, raw := range d.object("tagCollections", v) {
		if !d.safeKey("tagCollections", name) {
			continue
		}
		if _, ok := raw.([]any); !ok {
			d.log().Warn("dropped non-array tag collection", logger.String("collection", name))
			continue
		}
		result[name] = d.tags(raw, d.Limits.CollectionTags)
	}
	return result
}

// Presets decodes user presets. Built-in names are dropped.
func (d *Decoder) Presets(v any) map[string]*Preset {
	result := map[string]*Preset{}
	for name, raw := range d.object("presets", v) {
		if !d.safeKey("presets", name) {
			continue
		}
		if IsBuiltinPreset(name) {
			d.log().Warn("dropped preset shadowing a built-in", logger.String("preset", name))
			continue
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			d.log().Warn("dropped non-object preset", logger.String("preset", name))
			continue
		}
		p := &Preset{Modes: map[ViewMode]ViewSettings{}}
		modes, _ := obj["modes"].(map[string]any)
		for _, mode := range ViewModes {
			p.Modes[mode] = d.viewSettings(modes[string(mode)], DefaultViewSettings())
		}
		result[name] = p
	}
	return result
}

// Settings overlays the allow-listed keys found in v onto base. Numbers
// outside their bounds, non-finite or of the wrong type fall back to the
// default, as do wrong-typed booleans. It returns the keys it applied.
func (d *Decoder) Settings(v any, base Settings) (Settings, []string) {
	s := base.clone()
	obj, ok := v.(map[string]any)
	if !ok {
		if v != nil {
			d.log().Warn("coerced non-object settings to defaults")
		}
		return s, nil
	}
	var applied []string
	for _, nb := range SettingNumbers {
		raw, present := obj[nb.Key]
		if !present {
			continue
		}
		*s.intField(nb.Key) = boundedInt(raw, nb)
		applied = append(applied, nb.Key)
	}
	for key, def := range SettingBools {
		raw, present := obj[key]
		if !present {
			continue
		}
		b, ok := raw.(bool)
		if !ok {
			d.log().Warn("coerced non-boolean setting to default", logger.String("key", key))
			b = def
		}
		*s.boolField(key) = b
		applied = append(applied, key)
	}
	if raw, present := obj["viewMode"]; present {
		mode, _ := raw.(string)
		if ViewMode(mode).Valid() {
			s.ViewMode = ViewMode(mode)
		} else {
			s.ViewMode = ViewGrid
		}
		applied = append(applied, "viewMode")
	}
	if raw, present := obj["viewSettings"]; present {
		modes, _ := raw.(map[string]any)
		for _, mode := range ViewModes {
			current, ok := s.ViewSettings[mode]
			if !ok {
				current = DefaultViewSettings()
			}
			s.ViewSettings[mode] = d.viewSettings(modes[string(mode)], current)
		}
		applied = append(applied, "viewSettings")
	}
	return s, applied
}

func (d *Decoder) viewSettings(v any, base ViewSettings) ViewSettings {
	obj, ok := v.(map[string]any)
	if !ok {
		return base
	}
	for _, nb := range ViewNumbers {
		if raw, present := obj[nb.Key]; present {
			*base.intField(nb.Key) = boundedInt(raw, nb)
		}
	}
	for key, def := range ViewBools {
		if raw, present := obj[key]; present {
			b, ok := raw.(bool)
			if !ok {
				b = def
			}
			*base.boolField(key) = b
		}
	}
	return base
}

// boundedInt reads a JSON number within nb's bounds or returns the default.
func boundedInt(v any, nb NumericBound) int {
	n, ok := v.(json.Number)
	if !ok {
		return nb.Default
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nb.Default
	}
	if f < float64(nb.Min) || f > float64(nb.Max) {
		return nb.Default
	}
	return int(f)
}

func nonNegativeInt(v any) int {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// parseTime accepts RFC 3339 strings and epoch milliseconds.
func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case json.Number:
		ms, err := t.Int64()
		if err != nil || ms <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// truncate cuts s to at most limit runes. limit <= 0 leaves s unchanged.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
