package model

import (
	"strings"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/colorsafe"
)

// nestingAllowed is the single check behind every group-parenting change:
// name may sit under parent only if parent exists, is not name itself, is
// top-level, and name has no children of its own. A nil parent is always allowed.
func (s *Store) nestingAllowed(name string, parent *string) bool {
	if parent == nil {
		return true
	}
	if *parent == name {
		return false
	}
	p, ok := s.Groups[*parent]
	if !ok || !p.IsTopLevel() {
		return false
	}
	return !s.hasChildren(name)
}

func (s *Store) hasChildren(name string) bool {
	for _, g := range s.Groups {
		if g.ParentGroup != nil && *g.ParentGroup == name {
			return true
		}
	}
	return false
}

// insertIntoOrder places name in GroupOrder: appended when top-level,
// otherwise right after the parent's existing run of children.
func (s *Store) insertIntoOrder(name string, parent *string) {
	s.GroupOrder, _ = removeValue(s.GroupOrder, name)
	if parent == nil {
		s.GroupOrder = append(s.GroupOrder, name)
		return
	}
	idx := indexOf(s.GroupOrder, *parent)
	if idx < 0 {
		s.GroupOrder = append(s.GroupOrder, name)
		return
	}
	pos := idx + 1
	for pos < len(s.GroupOrder) {
		g, ok := s.Groups[s.GroupOrder[pos]]
		if !ok || !ptrEqual(g.ParentGroup, parent) {
			break
		}
		pos++
	}
	s.GroupOrder = insertAt(s.GroupOrder, pos, name)
}

// CreateGroup adds an empty group. It rejects taken or invalid names,
// unsafe colors, and parents that are missing or are sub-groups themselves.
func (s *Store) CreateGroup(name string, params GroupParams) bool {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return false
	}
	if _, exists := s.Groups[name]; exists {
		return false
	}
	if !s.nestingAllowed(name, params.Parent) {
		return false
	}
	color, ok := checkColor(params.Color)
	if !ok {
		return false
	}
	icon := strings.TrimSpace(params.Icon)
	if icon == "" {
		icon = DefaultGroupIcon
	}

	var parent *string
	if params.Parent != nil {
		parent = strPtr(*params.Parent)
	}
	s.Groups[name] = &Group{
		URLs:        []string{},
		Icon:        icon,
		Color:       color,
		CreatedAt:   s.now(),
		ParentGroup: parent,
	}
	s.insertIntoOrder(name, parent)
	return true
}

// DeleteGroup removes a group. Its sub-groups are promoted to top-level
// when promoteChildren is set, otherwise deleted with it. Bookmarks are kept.
func (s *Store) DeleteGroup(name string, promoteChildren bool) bool {
	if _, ok := s.Groups[name]; !ok {
		return false
	}
	for childName, g := range s.Groups {
		if g.ParentGroup == nil || *g.ParentGroup != name {
			continue
		}
		if promoteChildren {
			g.ParentGroup = nil
		} else {
			delete(s.Groups, childName)
			s.GroupOrder, _ = removeValue(s.GroupOrder, childName)
		}
	}
	delete(s.Groups, name)
	s.GroupOrder, _ = removeValue(s.GroupOrder, name)
	return true
}

// RenameGroup changes a group's name in place, re-pointing its children
// and any archived bookmark that remembers it.
func (s *Store) RenameGroup(oldName, newName string) bool {
	newName = strings.TrimSpace(newName)
	g, ok := s.Groups[oldName]
	if !ok || !validName(newName) || oldName == newName {
		return false
	}
	if _, taken := s.Groups[newName]; taken {
		return false
	}

	delete(s.Groups, oldName)
	s.Groups[newName] = g
	if idx := indexOf(s.GroupOrder, oldName); idx >= 0 {
		s.GroupOrder[idx] = newName
	} else {
		s.GroupOrder = append(s.GroupOrder, newName)
	}
	for _, child := range s.Groups {
		if child.ParentGroup != nil && *child.ParentGroup == oldName {
			child.ParentGroup = strPtr(newName)
		}
	}
	for _, a := range s.Archived {
		a.OriginalGroups = replaceValue(a.OriginalGroups, oldName, newName)
	}
	return true
}

// UpdateGroup changes a group's icon and color.
func (s *Store) UpdateGroup(name string, updates GroupUpdate) bool {
	g, ok := s.Groups[name]
	if !ok {
		return false
	}
	if updates.Color != nil {
		color, ok := checkColor(*updates.Color)
		if !ok {
			return false
		}
		g.Color = color
	}
	if updates.Icon != nil {
		icon := strings.TrimSpace(*updates.Icon)
		if icon == "" {
			icon = DefaultGroupIcon
		}
		g.Icon = icon
	}
	return true
}

// AddToGroup appends a live bookmark to a group's members.
func (s *Store) AddToGroup(url, groupName string) bool {
	g, ok := s.Groups[groupName]
	if !ok {
		return false
	}
	key, live := s.resolveKey(url)
	if !live || g.contains(key) {
		return false
	}
	g.URLs = append(g.URLs, key)
	return true
}

// RemoveFromGroup drops a bookmark from a group's members.
func (s *Store) RemoveFromGroup(url, groupName string) bool {
	g, ok := s.Groups[groupName]
	if !ok {
		return false
	}
	key, _ := s.resolveKey(url)
	var removed bool
	g.URLs, removed = removeValue(g.URLs, key)
	return removed
}

// MoveGroup moves a group to position newIndex in GroupOrder.
func (s *Store) MoveGroup(name string, newIndex int) bool {
	idx := indexOf(s.GroupOrder, name)
	if idx < 0 || newIndex < 0 || newIndex >= len(s.GroupOrder) || idx == newIndex {
		return false
	}
	s.GroupOrder, _ = removeValue(s.GroupOrder, name)
	s.GroupOrder = insertAt(s.GroupOrder, newIndex, name)
	return true
}

// SetParentGroup nests a group under parent, or promotes it with a nil parent.
// A group that already has children cannot be nested, and parent must be
// an existing top-level group other than the group itself. A promoted group
// moves to just after its former parent's remaining children.
func (s *Store) SetParentGroup(name string, parent *string) bool {
	g, ok := s.Groups[name]
	if !ok || ptrEqual(g.ParentGroup, parent) {
		return false
	}
	if !s.nestingAllowed(name, parent) {
		return false
	}
	if parent == nil {
		former := *g.ParentGroup
		g.ParentGroup = nil
		s.insertIntoOrder(name, &former)
		return true
	}
	g.ParentGroup = strPtr(*parent)
	s.insertIntoOrder(name, g.ParentGroup)
	return true
}

func checkColor(color string) (string, bool) {
	color = strings.TrimSpace(color)
	if color == "" {
		return "", true
	}
	safe := colorsafe.Sanitize(color)
	return safe, safe != ""
}
