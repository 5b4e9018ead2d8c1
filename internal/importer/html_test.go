package importer_test

import (
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/importer"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

const nested = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3 ADD_DATE="1234567890">Development</H3>
    <DL><p>
        <DT><H3 ADD_DATE="1234567890">React</H3>
        <DL><p>
            <DT><A HREF="https://react.dev" ADD_DATE="1234567890" TAGS="js, ui">React Docs</A>
            <DD>The library for web and native user interfaces
            <DT><H3>Hooks</H3>
            <DL><p>
                <DT><A HREF="https://react.dev/reference/react/hooks">Hooks</A>
            </DL><p>
        </DL><p>
        <DT><A HREF="https://github.com" ADD_DATE="1234567890">GitHub</A>
    </DL><p>
    <DT><A HREF="https://google.com" ADD_DATE="1234567890">Google</A>
</DL><p>`

func TestParseHTML_SingleBookmark(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890">Example Site</A>
</DL><p>`

	entries, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 1)

	e := entries[0]
	assert.Equal(t, e.Title, "Example Site")
	assert.Equal(t, e.URL, "https://example.com")
	assert.Equal(t, len(e.Folders), 0)
	assert.Equal(t, e.AddedAt, time.Unix(1234567890, 0).UTC())
}

func TestParseHTML_NestedFolders(t *testing.T) {
	entries, err := importer.ParseHTMLBookmarks(strings.NewReader(nested))
	assert.NilError(t, err)

	got := make(map[string][]string)
	for _, e := range entries {
		got[e.URL] = e.Folders
	}
	assert.DeepEqual(t, got, map[string][]string{
		"https://react.dev":                       {"Development", "React"},
		"https://react.dev/reference/react/hooks": {"Development", "React", "Hooks"},
		"https://github.com":                      {"Development"},
		"https://google.com":                      nil,
	})
}

func TestParseHTML_TagsAndDescription(t *testing.T) {
	entries, err := importer.ParseHTMLBookmarks(strings.NewReader(nested))
	assert.NilError(t, err)

	react := entries[0]
	assert.Equal(t, react.URL, "https://react.dev")
	assert.DeepEqual(t, react.Tags, []string{"js", "ui"})
	assert.Equal(t, react.Description, "The library for web and native user interfaces")

	for _, e := range entries[1:] {
		assert.Equal(t, e.Description, "", "description leaked onto %s", e.URL)
	}
}

func TestParseHTML_SkipsEntriesWithoutHref(t *testing.T) {
	html := `<DL><p>
    <DT><A>No link</A>
    <DT><A HREF="  ">Blank</A>
    <DT><A HREF="https://ok.example">OK</A>
</DL>`

	entries, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].URL, "https://ok.example")
}

func TestImport_MapsFoldersToGroups(t *testing.T) {
	store := model.NewStore()

	res, err := importer.Import(store, strings.NewReader(nested))
	assert.NilError(t, err)
	assert.Equal(t, res.Added, 4)
	assert.Equal(t, res.Skipped, 0)
	assert.DeepEqual(t, res.Groups, []string{"React", "Development"})

	assert.DeepEqual(t, store.GroupOrder, []string{"Development", "React"})
	react := store.Groups["React"]
	assert.Assert(t, react.ParentGroup != nil)
	assert.Equal(t, *react.ParentGroup, "Development")

	// deeper folders flatten into their depth-1 ancestor
	assert.DeepEqual(t, react.URLs, []string{
		"https://react.dev/",
		"https://react.dev/reference/react/hooks",
	})
	assert.DeepEqual(t, store.Groups["Development"].URLs, []string{"https://github.com/"})
	assert.DeepEqual(t, store.GetBookmarkGroups("https://google.com"), []string{})

	b, ok := store.GetBookmark("https://react.dev")
	assert.Assert(t, ok)
	assert.Equal(t, b.CreatedAt, time.Unix(1234567890, 0).UTC())
	assert.DeepEqual(t, b.Tags, []string{"js", "ui"})

	assert.Equal(t, len(store.ValidateAndRepair()), 0)
}

func TestImport_MergeIsIdempotent(t *testing.T) {
	store := model.NewStore()
	_, err := importer.Import(store, strings.NewReader(nested))
	assert.NilError(t, err)

	res, err := importer.Import(store, strings.NewReader(nested))
	assert.NilError(t, err)
	assert.Equal(t, res.Added, 0)
	assert.Equal(t, res.Skipped, 4)
	assert.Equal(t, res.Grouped, 0)
	assert.Equal(t, len(store.Bookmarks), 4)
}

func TestImport_ExistingBookmarkJoinsGroup(t *testing.T) {
	store := model.NewStore()
	assert.Assert(t, store.AddBookmark(model.NewBookmarkParams{URL: "https://github.com/", Title: "Mine"}))

	res, err := importer.Import(store, strings.NewReader(nested))
	assert.NilError(t, err)
	assert.Equal(t, res.Added, 3)
	assert.Equal(t, res.Skipped, 1)

	b, _ := store.GetBookmark("https://github.com")
	assert.Equal(t, b.Title, "Mine")
	assert.DeepEqual(t, store.GetBookmarkGroups("https://github.com"), []string{"Development"})
}

func TestImport_SubFolderNameTakenElsewhere(t *testing.T) {
	store := model.NewStore()
	assert.Assert(t, store.CreateGroup("React", model.GroupParams{}))

	_, err := importer.Import(store, strings.NewReader(nested))
	assert.NilError(t, err)

	sub, ok := store.Groups["Development / React"]
	assert.Assert(t, ok)
	assert.Equal(t, *sub.ParentGroup, "Development")
	assert.Equal(t, len(store.Groups["React"].URLs), 0)
}

func TestImport_RejectsDisallowedSchemes(t *testing.T) {
	html := `<DL><p>
    <DT><A HREF="javascript:alert(1)">Bad</A>
    <DT><A HREF="https://ok.example">OK</A>
</DL>`

	store := model.NewStore()
	res, err := importer.Import(store, strings.NewReader(html))
	assert.NilError(t, err)
	assert.Equal(t, res.Added, 1)
	assert.DeepEqual(t, res.Rejected, []string{"javascript:alert(1)"})
}
