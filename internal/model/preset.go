package model

import "sort"

// Preset is a named snapshot of per-view-mode settings.
type Preset struct {
	Modes map[ViewMode]ViewSettings `json:"modes"`
}

// Built-in preset names. User presets may not reuse them.
const (
	PresetDefault  = "default"
	PresetCompact  = "compact"
	PresetSpacious = "spacious"
)

var builtinPresetNames = []string{PresetDefault, PresetCompact, PresetSpacious}

// IsBuiltinPreset reports whether name belongs to the fixed built-in set.
func IsBuiltinPreset(name string) bool {
	for _, n := range builtinPresetNames {
		if n == name {
			return true
		}
	}
	return false
}

// BuiltinPreset returns a freshly built built-in preset.
func BuiltinPreset(name string) (*Preset, bool) {
	modes := DefaultViewSettingsMap()
	switch name {
	case PresetDefault:
	case PresetCompact:
		for mode, v := range modes {
			v.Columns = 6
			v.CardGap = 4
			v.CardMinWidth = 160
			v.ShowDescription = false
			modes[mode] = v
		}
	case PresetSpacious:
		for mode, v := range modes {
			v.Columns = 3
			v.CardGap = 24
			v.CardMinWidth = 320
			modes[mode] = v
		}
	default:
		return nil, false
	}
	return &Preset{Modes: modes}, true
}

func (p *Preset) clone() *Preset {
	c := &Preset{Modes: make(map[ViewMode]ViewSettings, len(p.Modes))}
	for k, v := range p.Modes {
		c.Modes[k] = v
	}
	return c
}

// repair fills and clamps every mode. It returns true when anything changed.
func (p *Preset) repair() bool {
	changed := false
	if p.Modes == nil {
		p.Modes = make(map[ViewMode]ViewSettings, len(ViewModes))
	}
	for mode := range p.Modes {
		if !mode.Valid() {
			delete(p.Modes, mode)
			changed = true
		}
	}
	for _, mode := range ViewModes {
		v, ok := p.Modes[mode]
		if !ok {
			p.Modes[mode] = DefaultViewSettings()
			changed = true
			continue
		}
		if len(v.clamp()) > 0 {
			p.Modes[mode] = v
			changed = true
		}
	}
	return changed
}

// SavePreset stores the current view settings under name.
// Built-in, empty and unsafe names are rejected.
func (s *Store) SavePreset(name string) bool {
	if !validName(name) || IsBuiltinPreset(name) {
		return false
	}
	p := &Preset{Modes: make(map[ViewMode]ViewSettings, len(ViewModes))}
	for _, mode := range ViewModes {
		v, ok := s.Settings.ViewSettings[mode]
		if !ok {
			v = DefaultViewSettings()
		}
		p.Modes[mode] = v
	}
	s.Presets[name] = p
	return true
}

// ApplyPreset copies a built-in or user preset into the current settings.
func (s *Store) ApplyPreset(name string) bool {
	p, ok := BuiltinPreset(name)
	if !ok {
		p, ok = s.Presets[name]
		if !ok {
			return false
		}
	}
	s.Settings.ViewSettings = p.clone().Modes
	return true
}

// DeletePreset removes a user preset. Built-ins cannot be deleted.
func (s *Store) DeletePreset(name string) bool {
	if _, ok := s.Presets[name]; !ok {
		return false
	}
	delete(s.Presets, name)
	return true
}

// PresetNames lists built-in presets followed by user presets in name order.
func (s *Store) PresetNames() []string {
	names := append([]string{}, builtinPresetNames...)
	user := make([]string, 0, len(s.Presets))
	for name := range s.Presets {
		user = append(user, name)
	}
	sort.Strings(user)
	return append(names, user...)
}
