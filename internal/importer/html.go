package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

// Entry is one bookmark read from a Netscape bookmark file.
type Entry struct {
	Title       string
	URL         string
	Description string
	Tags        []string
	Folders     []string  // enclosing folder names, outermost first
	AddedAt     time.Time // zero when ADD_DATE is missing
}

// Result counts what Merge changed.
type Result struct {
	Added    int
	Skipped  int // already present or rejected by the store
	Grouped  int // memberships added
	Groups   []string
	Rejected []string // disallowed or archived URLs
}

// ParseHTMLBookmarks parses Netscape bookmark HTML into flat entries, each
// carrying the path of folders it was found in.
func ParseHTMLBookmarks(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var entries []Entry

	// Track current folder stack for hierarchy
	var folderStack []string
	var pendingFolder string // folder waiting to be pushed on next DL
	last := -1               // entry a following DD describes

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				pendingFolder = getTextContent(n)
				last = -1
				return // Don't recurse into H3

			case "a":
				href := strings.TrimSpace(getAttr(n, "href"))
				if href == "" {
					return
				}

				entry := Entry{
					Title:   getTextContent(n),
					URL:     href,
					Tags:    splitTags(getAttr(n, "tags")),
					Folders: append([]string(nil), folderStack...),
				}
				if addDate := getAttr(n, "add_date"); addDate != "" {
					if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil && ts > 0 {
						entry.AddedAt = time.Unix(ts, 0).UTC()
					}
				}
				entries = append(entries, entry)
				last = len(entries) - 1
				return // Don't recurse into A

			case "dd":
				// Folder descriptions wrap the folder's DL, so keep walking
				if last >= 0 && entries[last].Description == "" {
					entries[last].Description = ownText(n)
				}
				last = -1

			case "dl":
				pushed := false
				if pendingFolder != "" {
					folderStack = append(folderStack, pendingFolder)
					pendingFolder = ""
					pushed = true
				}
				last = -1

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed {
					folderStack = folderStack[:len(folderStack)-1]
				}
				last = -1
				return // Don't recurse further, we handled children
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return entries, nil
}

// Merge adds entries to the store through the mutation API. The outermost
// folder becomes a top-level group and the next one its sub-group; deeper
// folders flatten into their depth-1 ancestor. Bookmarks already present keep
// their data but still join the folder's group.
func Merge(store *model.Store, entries []Entry) Result {
	var res Result
	seenGroup := make(map[string]bool)

	for _, e := range entries {
		key := store.NormalizeURL(e.URL)
		if store.AddBookmark(model.NewBookmarkParams{
			Title:       e.Title,
			URL:         e.URL,
			Description: e.Description,
			Tags:        e.Tags,
		}) {
			res.Added++
			if b, ok := store.Bookmarks[key]; ok && !e.AddedAt.IsZero() {
				b.CreatedAt = e.AddedAt
			}
		} else if _, exists := store.Bookmarks[key]; exists {
			res.Skipped++
		} else {
			res.Skipped++
			res.Rejected = append(res.Rejected, e.URL)
			continue
		}

		group := ensureGroup(store, e.Folders)
		if group == "" {
			continue
		}
		if !seenGroup[group] {
			seenGroup[group] = true
			res.Groups = append(res.Groups, group)
		}
		if store.AddToGroup(key, group) {
			res.Grouped++
		}
	}
	return res
}

// ensureGroup returns the group a folder path maps to, creating it when
// needed. A sub-folder whose name is already used elsewhere is qualified
// with its parent's name.
func ensureGroup(store *model.Store, folders []string) string {
	if len(folders) == 0 {
		return ""
	}

	top := folders[0]
	if g, ok := store.Groups[top]; !ok {
		if !store.CreateGroup(top, model.GroupParams{}) {
			return ""
		}
	} else if !g.IsTopLevel() {
		// an existing sub-group cannot take children; use it flat
		return top
	}
	if len(folders) == 1 {
		return top
	}

	sub := folders[1]
	for _, name := range []string{sub, top + " / " + sub} {
		g, ok := store.Groups[name]
		if !ok {
			if store.CreateGroup(name, model.GroupParams{Parent: &top}) {
				return name
			}
			continue
		}
		if g.ParentGroup != nil && *g.ParentGroup == top {
			return name
		}
	}
	return top
}

// Import parses r and merges it into store.
func Import(store *model.Store, r io.Reader) (Result, error) {
	entries, err := ParseHTMLBookmarks(r)
	if err != nil {
		return Result{}, err
	}
	return Merge(store, entries), nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// ownText returns only the direct text children of n.
func ownText(n *html.Node) string {
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(text.String()), " ")
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
