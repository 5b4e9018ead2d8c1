package model

// ViewMode selects one of the dashboard layouts.
type ViewMode string

const (
	ViewGrid    ViewMode = "grid"
	ViewList    ViewMode = "list"
	ViewCompact ViewMode = "compact"
)

// ViewModes lists every supported view mode in display order.
var ViewModes = []ViewMode{ViewGrid, ViewList, ViewCompact}

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	for _, v := range ViewModes {
		if v == m {
			return true
		}
	}
	return false
}

// ViewSettings bundles layout numbers and display toggles for one view mode.
type ViewSettings struct {
	Columns         int  `json:"columns"`
	CardGap         int  `json:"cardGap"`
	CardMinWidth    int  `json:"cardMinWidth"`
	ShowDescription bool `json:"showDescription"`
	ShowTags        bool `json:"showTags"`
	ShowFavicon     bool `json:"showFavicon"`
}

// Settings holds the user-tunable options stored alongside the entity collections.
type Settings struct {
	RecentlyAddedCount      int `json:"recentlyAddedCount"`
	MostUsedCount           int `json:"mostUsedCount"`
	DormantDays             int `json:"dormantDays"`
	ArchiveRetentionDays    int `json:"archiveRetentionDays"` // 0 = keep forever
	LinkCheckConcurrency    int `json:"linkCheckConcurrency"`
	LinkCheckTimeoutSeconds int `json:"linkCheckTimeoutSeconds"`

	EnableArchive     bool `json:"enableArchive"`
	TrackAnalytics    bool `json:"trackAnalytics"`
	ShowFavorites     bool `json:"showFavorites"`
	ShowRecentlyAdded bool `json:"showRecentlyAdded"`
	ShowMostUsed      bool `json:"showMostUsed"`
	ConfirmDelete     bool `json:"confirmDelete"`

	ViewMode     ViewMode                  `json:"viewMode"`
	ViewSettings map[ViewMode]ViewSettings `json:"viewSettings"`
}

// NumericBound documents the accepted range and default of a numeric setting.
type NumericBound struct {
	Key      string
	Min, Max int
	Default  int
}

// SettingNumbers is the bounds table for top-level numeric settings.
var SettingNumbers = []NumericBound{
	{Key: "recentlyAddedCount", Min: 1, Max: 50, Default: 10},
	{Key: "mostUsedCount", Min: 1, Max: 50, Default: 10},
	{Key: "dormantDays", Min: 1, Max: 3650, Default: 30},
	{Key: "archiveRetentionDays", Min: 0, Max: 3650, Default: 0},
	{Key: "linkCheckConcurrency", Min: 1, Max: 10, Default: 5},
	{Key: "linkCheckTimeoutSeconds", Min: 1, Max: 60, Default: 10},
}

// ViewNumbers is the bounds table for per-view-mode layout numbers.
var ViewNumbers = []NumericBound{
	{Key: "columns", Min: 1, Max: 12, Default: 4},
	{Key: "cardGap", Min: 0, Max: 64, Default: 12},
	{Key: "cardMinWidth", Min: 120, Max: 800, Default: 240},
}

// SettingBools lists boolean settings with their defaults.
var SettingBools = map[string]bool{
	"enableArchive":     true,
	"trackAnalytics":    true,
	"showFavorites":     true,
	"showRecentlyAdded": true,
	"showMostUsed":      true,
	"confirmDelete":     true,
}

// ViewBools lists per-view-mode display toggles with their defaults.
var ViewBools = map[string]bool{
	"showDescription": true,
	"showTags":        true,
	"showFavicon":     true,
}

// DefaultSettings returns the settings used for a fresh store.
func DefaultSettings() Settings {
	s := Settings{ViewMode: ViewGrid}
	for _, nb := range SettingNumbers {
		*s.intField(nb.Key) = nb.Default
	}
	for key, def := range SettingBools {
		*s.boolField(key) = def
	}
	s.ViewSettings = DefaultViewSettingsMap()
	return s
}

// DefaultViewSettings returns the default bundle for one view mode.
func DefaultViewSettings() ViewSettings {
	var v ViewSettings
	for _, nb := range ViewNumbers {
		*v.intField(nb.Key) = nb.Default
	}
	for key, def := range ViewBools {
		*v.boolField(key) = def
	}
	return v
}

// DefaultViewSettingsMap returns default bundles for every view mode.
func DefaultViewSettingsMap() map[ViewMode]ViewSettings {
	m := make(map[ViewMode]ViewSettings, len(ViewModes))
	for _, mode := range ViewModes {
		m[mode] = DefaultViewSettings()
	}
	return m
}

func (s *Settings) intField(key string) *int {
	switch key {
	case "recentlyAddedCount":
		return &s.RecentlyAddedCount
	case "mostUsedCount":
		return &s.MostUsedCount
	case "dormantDays":
		return &s.DormantDays
	case "archiveRetentionDays":
		return &s.ArchiveRetentionDays
	case "linkCheckConcurrency":
		return &s.LinkCheckConcurrency
	case "linkCheckTimeoutSeconds":
		return &s.LinkCheckTimeoutSeconds
	}
	return nil
}

func (s *Settings) boolField(key string) *bool {
	switch key {
	case "enableArchive":
		return &s.EnableArchive
	case "trackAnalytics":
		return &s.TrackAnalytics
	case "showFavorites":
		return &s.ShowFavorites
	case "showRecentlyAdded":
		return &s.ShowRecentlyAdded
	case "showMostUsed":
		return &s.ShowMostUsed
	case "confirmDelete":
		return &s.ConfirmDelete
	}
	return nil
}

func (v *ViewSettings) intField(key string) *int {
	switch key {
	case "columns":
		return &v.Columns
	case "cardGap":
		return &v.CardGap
	case "cardMinWidth":
		return &v.CardMinWidth
	}
	return nil
}

func (v *ViewSettings) boolField(key string) *bool {
	switch key {
	case "showDescription":
		return &v.ShowDescription
	case "showTags":
		return &v.ShowTags
	case "showFavicon":
		return &v.ShowFavicon
	}
	return nil
}

// clamp resets every out-of-range number to its default and fills missing
// view modes. It returns the keys it changed.
func (s *Settings) clamp() []string {
	var changed []string
	for _, nb := range SettingNumbers {
		p := s.intField(nb.Key)
		if *p < nb.Min || *p > nb.Max {
			*p = nb.Default
			changed = append(changed, nb.Key)
		}
	}
	if !s.ViewMode.Valid() {
		s.ViewMode = ViewGrid
		changed = append(changed, "viewMode")
	}
	if s.ViewSettings == nil {
		s.ViewSettings = make(map[ViewMode]ViewSettings, len(ViewModes))
	}
	for mode := range s.ViewSettings {
		if !mode.Valid() {
			delete(s.ViewSettings, mode)
			changed = append(changed, "viewSettings."+string(mode))
		}
	}
	for _, mode := range ViewModes {
		v, ok := s.ViewSettings[mode]
		if !ok {
			s.ViewSettings[mode] = DefaultViewSettings()
			changed = append(changed, "viewSettings."+string(mode))
			continue
		}
		for _, key := range v.clamp() {
			changed = append(changed, "viewSettings."+string(mode)+"."+key)
		}
		s.ViewSettings[mode] = v
	}
	return changed
}

func (v *ViewSettings) clamp() []string {
	var changed []string
	for _, nb := range ViewNumbers {
		p := v.intField(nb.Key)
		if *p < nb.Min || *p > nb.Max {
			*p = nb.Default
			changed = append(changed, nb.Key)
		}
	}
	return changed
}

func (s Settings) clone() Settings {
	c := s
	c.ViewSettings = make(map[ViewMode]ViewSettings, len(s.ViewSettings))
	for k, v := range s.ViewSettings {
		c.ViewSettings[k] = v
	}
	return c
}
