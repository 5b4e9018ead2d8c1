package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.html
func DefaultExportPath(now time.Time) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.html", now.Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML writes the store as Netscape bookmark HTML: groups in
// hierarchical order with sub-groups nested in their parent, then the
// bookmarks that belong to no group. Archived bookmarks are left out.
func ExportHTML(store *model.Store) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	entries := store.GetHierarchicalGroupOrder()
	for i, entry := range entries {
		if entry.Depth != 0 {
			continue
		}
		prefix := strings.Repeat("    ", 1)
		openFolder(&b, prefix, entry)
		writeBookmarks(&b, store.GetGroupBookmarks(entry.Name), 2)

		for _, child := range entries[i+1:] {
			if child.Depth == 0 {
				break
			}
			childPrefix := strings.Repeat("    ", 2)
			openFolder(&b, childPrefix, child)
			writeBookmarks(&b, store.GetGroupBookmarks(child.Name), 3)
			fmt.Fprintf(&b, "%s</DL><p>\n", childPrefix)
		}

		fmt.Fprintf(&b, "%s</DL><p>\n", prefix)
	}

	writeBookmarks(&b, store.GetUngroupedBookmarks(), 1)

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

func openFolder(b *strings.Builder, prefix string, entry model.GroupEntry) {
	fmt.Fprintf(b, "%s<DT><H3 ADD_DATE=\"%d\">%s</H3>\n",
		prefix, unix(entry.Group.CreatedAt), html.EscapeString(entry.Name))
	fmt.Fprintf(b, "%s<DL><p>\n", prefix)
}

func writeBookmarks(b *strings.Builder, bookmarks []model.KeyedBookmark, indent int) {
	prefix := strings.Repeat("    ", indent)
	for _, bookmark := range bookmarks {
		fmt.Fprintf(b, "%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\"", prefix,
			html.EscapeString(bookmark.URL), unix(bookmark.CreatedAt))
		if bookmark.LastAccessedAt != nil {
			fmt.Fprintf(b, " LAST_VISIT=\"%d\"", bookmark.LastAccessedAt.Unix())
		}
		if len(bookmark.Tags) > 0 {
			fmt.Fprintf(b, " TAGS=\"%s\"", html.EscapeString(strings.Join(bookmark.Tags, ",")))
		}
		fmt.Fprintf(b, ">%s</A>\n", html.EscapeString(bookmark.Title))
		if desc := strings.TrimSpace(bookmark.Description); desc != "" {
			fmt.Fprintf(b, "%s<DD>%s\n", prefix, html.EscapeString(desc))
		}
	}
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
