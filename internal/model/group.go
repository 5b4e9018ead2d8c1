package model

import "time"

// DefaultGroupIcon is used when a group is created without an icon.
const DefaultGroupIcon = "📁"

// Group is a named, ordered collection of bookmark keys. Groups nest at
// most one level deep: a group with a parent can never be a parent itself.
type Group struct {
	URLs        []string  `json:"urls"` // normalized bookmark keys
	Icon        string    `json:"icon"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ParentGroup *string   `json:"parentGroup"` // nil = top-level
}

// GroupParams holds parameters for creating a new Group.
type GroupParams struct {
	Icon   string
	Color  string
	Parent *string
}

// GroupUpdate lists the presentation fields to change. Nil fields are left alone.
type GroupUpdate struct {
	Icon  *string
	Color *string
}

// IsTopLevel reports whether the group has no parent.
func (g *Group) IsTopLevel() bool {
	return g.ParentGroup == nil
}

func (g *Group) contains(key string) bool {
	return indexOf(g.URLs, key) >= 0
}

func (g *Group) clone() *Group {
	c := *g
	c.URLs = append([]string{}, g.URLs...)
	if g.ParentGroup != nil {
		p := *g.ParentGroup
		c.ParentGroup = &p
	}
	return &c
}

// ptrEqual compares two string pointers for equality.
func ptrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func strPtr(s string) *string { return &s }
