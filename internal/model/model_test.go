package model_test

import (
	"slices"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

func stringPtr(s string) *string { return &s }

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *model.Store {
	return model.NewStore().WithClock(func() time.Time { return fixedNow })
}

func add(t *testing.T, s *model.Store, url string, tags ...string) {
	t.Helper()
	ok := s.AddBookmark(model.NewBookmarkParams{Title: url, URL: url, Tags: tags})
	assert.Assert(t, ok, "add %s", url)
}

func TestAddBookmark_Identity(t *testing.T) {
	s := newTestStore()

	assert.Assert(t, s.AddBookmark(model.NewBookmarkParams{Title: "a", URL: "http://Example.com/Path/"}))
	assert.Assert(t, s.AddBookmark(model.NewBookmarkParams{Title: "b", URL: "https://example.com/path"}),
		"a different scheme is a different key")
	assert.Equal(t, len(s.Bookmarks), 2)

	assert.Assert(t, s.AddBookmark(model.NewBookmarkParams{Title: "c", URL: "http://example.com/path/"}),
		"path case is significant")
	assert.Assert(t, !s.AddBookmark(model.NewBookmarkParams{Title: "d", URL: "http://example.com/path/"}),
		"same key twice must be rejected")
	assert.Assert(t, !s.AddBookmark(model.NewBookmarkParams{Title: "e", URL: "http://EXAMPLE.com/path"}),
		"same key after host lowercase and trailing slash strip must be rejected")
	assert.Assert(t, !s.AddBookmark(model.NewBookmarkParams{Title: "x", URL: "javascript:alert(1)"}))
	assert.Equal(t, len(s.Bookmarks), 3)
}

func TestAddBookmark_Defaults(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, s.AddBookmark(model.NewBookmarkParams{URL: "https://go.dev", Tags: []string{" go ", "go", ""}}))

	b, ok := s.GetBookmark("https://go.dev/")
	assert.Assert(t, ok)
	assert.Equal(t, b.Title, "https://go.dev")
	assert.DeepEqual(t, b.Tags, []string{"go"})
	assert.Assert(t, b.ID != "")
	assert.Equal(t, b.CreatedAt, fixedNow)
	assert.Equal(t, b.ClickCount, 0)
	assert.Assert(t, is.Nil(b.LastAccessedAt))
	assert.Equal(t, s.RecentlyAdded[0].URL, "https://go.dev/")
}

func TestAddBookmark_TrimsRecents(t *testing.T) {
	s := newTestStore()
	s.Settings.RecentlyAddedCount = 2
	for _, u := range []string{"https://a.io", "https://b.io", "https://c.io", "https://d.io", "https://e.io"} {
		add(t, s, u)
	}
	assert.Equal(t, len(s.RecentlyAdded), 4)
	assert.Equal(t, s.RecentlyAdded[0].URL, "https://e.io/")
}

func TestUpdateBookmark_RekeyMovesEveryReference(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://old.example/page", "x")
	assert.Assert(t, s.CreateGroup("Work", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("Home", model.GroupParams{}))
	assert.Assert(t, s.AddToGroup("https://old.example/page", "Work"))
	assert.Assert(t, s.AddToGroup("https://old.example/page", "Home"))
	assert.Assert(t, s.AddToFavorites("https://old.example/page"))
	before, _ := s.GetBookmark("https://old.example/page")

	ok := s.UpdateBookmark("https://old.example/page", model.BookmarkUpdate{URL: stringPtr("https://new.example/page")})
	assert.Assert(t, ok)

	oldKey, newKey := "https://old.example/page", "https://new.example/page"
	_, stillLive := s.Bookmarks[oldKey]
	assert.Assert(t, !stillLive)
	for name, g := range s.Groups {
		assert.Check(t, !slices.Contains(g.URLs, oldKey), "group %s kept the old key", name)
		assert.Assert(t, is.Contains(g.URLs, newKey), "group %s", name)
	}
	assert.DeepEqual(t, s.FavoriteURLs, []string{newKey})
	for _, r := range s.RecentlyAdded {
		assert.Assert(t, r.URL != oldKey)
	}

	after, ok := s.GetBookmark(newKey)
	assert.Assert(t, ok)
	assert.Equal(t, after.ID, before.ID)
	assert.Equal(t, after.Title, before.Title)
	assert.DeepEqual(t, after.Tags, before.Tags)
	assert.Equal(t, after.URL, "https://new.example/page")
}

func TestUpdateBookmark_RejectsCollision(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://a.example")
	add(t, s, "https://b.example")

	ok := s.UpdateBookmark("https://a.example", model.BookmarkUpdate{URL: stringPtr("https://B.example/")})
	assert.Assert(t, !ok)
	assert.Equal(t, len(s.Bookmarks), 2)

	ok = s.UpdateBookmark("https://a.example", model.BookmarkUpdate{Title: stringPtr("  Renamed  ")})
	assert.Assert(t, ok)
	b, _ := s.GetBookmark("https://a.example")
	assert.Equal(t, b.Title, "Renamed")
}

func TestDeleteBookmark_PurgesAndIsIdempotent(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://a.example")
	assert.Assert(t, s.CreateGroup("G", model.GroupParams{}))
	assert.Assert(t, s.AddToGroup("https://a.example", "G"))
	assert.Assert(t, s.AddToFavorites("https://a.example"))

	assert.Assert(t, s.DeleteBookmark("https://a.example"))
	assert.Assert(t, !s.DeleteBookmark("https://a.example"))
	assert.Equal(t, len(s.Groups["G"].URLs), 0)
	assert.Equal(t, len(s.FavoriteURLs), 0)
	assert.Equal(t, len(s.RecentlyAdded), 0)
}

func TestArchive_RoundTrip(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://a.example")
	assert.Assert(t, s.CreateGroup("Keep", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("Gone", model.GroupParams{}))
	assert.Assert(t, s.AddToGroup("https://a.example", "Keep"))
	assert.Assert(t, s.AddToGroup("https://a.example", "Gone"))
	assert.Assert(t, s.AddToFavorites("https://a.example"))

	assert.Assert(t, s.ArchiveBookmark("https://a.example"))
	_, live := s.GetBookmark("https://a.example")
	assert.Assert(t, !live)
	archived := s.Archived["https://a.example/"]
	assert.Assert(t, archived != nil)
	assert.DeepEqual(t, archived.OriginalGroups, []string{"Keep", "Gone"})
	assert.Assert(t, archived.WasFavorite)
	assert.Assert(t, !s.AddBookmark(model.NewBookmarkParams{URL: "https://a.example"}),
		"an archived key cannot be re-added")

	assert.Assert(t, s.DeleteGroup("Gone", true))
	assert.Assert(t, s.UnarchiveBookmark("https://a.example", true))
	assert.DeepEqual(t, s.GetBookmarkGroups("https://a.example"), []string{"Keep"})
	assert.Assert(t, s.IsFavorite("https://a.example"))
	assert.Equal(t, len(s.Archived), 0)
}

func TestArchive_DisabledDeletes(t *testing.T) {
	s := newTestStore()
	s.Settings.EnableArchive = false
	add(t, s, "https://a.example")

	assert.Assert(t, s.ArchiveBookmark("https://a.example"))
	assert.Equal(t, len(s.Bookmarks), 0)
	assert.Equal(t, len(s.Archived), 0)
}

func TestPurgeExpiredArchive(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://a.example")
	assert.Assert(t, s.ArchiveBookmark("https://a.example"))

	assert.Assert(t, is.Len(s.PurgeExpiredArchive(fixedNow.AddDate(1, 0, 0)), 0), "retention 0 keeps everything")

	s.Settings.ArchiveRetentionDays = 7
	assert.Assert(t, is.Len(s.PurgeExpiredArchive(fixedNow.AddDate(0, 0, 3)), 0))
	assert.DeepEqual(t, s.PurgeExpiredArchive(fixedNow.AddDate(0, 0, 8)), []string{"https://a.example/"})
}

func TestGroups_DepthCap(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, s.CreateGroup("Top", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("Child", model.GroupParams{Parent: stringPtr("Top")}))

	assert.Assert(t, !s.CreateGroup("Grandchild", model.GroupParams{Parent: stringPtr("Child")}))
	assert.Assert(t, !s.CreateGroup("Orphan", model.GroupParams{Parent: stringPtr("Missing")}))

	assert.Assert(t, s.CreateGroup("Other", model.GroupParams{}))
	assert.Assert(t, !s.SetParentGroup("Other", stringPtr("Child")), "nesting under a sub-group")
	assert.Assert(t, !s.SetParentGroup("Top", stringPtr("Other")), "a parent cannot be demoted")
	assert.Assert(t, !s.SetParentGroup("Other", stringPtr("Other")), "self parent")
	assert.Assert(t, s.SetParentGroup("Other", stringPtr("Top")))
	assert.DeepEqual(t, s.GroupOrder, []string{"Top", "Child", "Other"})
}

func TestGroups_ChildInsertedAfterSiblings(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, s.CreateGroup("A", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("B", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("A1", model.GroupParams{Parent: stringPtr("A")}))
	assert.Assert(t, s.CreateGroup("A2", model.GroupParams{Parent: stringPtr("A")}))
	assert.DeepEqual(t, s.GroupOrder, []string{"A", "A1", "A2", "B"})
}

func TestSetParentGroup_PromoteResplicesOrder(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, s.CreateGroup("A", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("B", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("A1", model.GroupParams{Parent: stringPtr("A")}))
	assert.Assert(t, s.CreateGroup("A2", model.GroupParams{Parent: stringPtr("A")}))
	assert.Assert(t, s.CreateGroup("A3", model.GroupParams{Parent: stringPtr("A")}))

	assert.Assert(t, s.SetParentGroup("A1", nil))
	assert.Assert(t, s.Groups["A1"].IsTopLevel())
	assert.DeepEqual(t, s.GroupOrder, []string{"A", "A2", "A3", "A1", "B"})

	names := make([]string, 0, len(s.GroupOrder))
	for _, e := range s.GetHierarchicalGroupOrder() {
		names = append(names, e.Name)
	}
	assert.DeepEqual(t, names, []string{"A", "A2", "A3", "A1", "B"})

	assert.Assert(t, !s.SetParentGroup("A1", nil), "already top-level")
}

func TestDeleteGroup_Children(t *testing.T) {
	tests := []struct {
		name    string
		promote bool
		want    []string
	}{
		{name: "promote", promote: true, want: []string{"Kid1", "Kid2", "Other"}},
		{name: "cascade", promote: false, want: []string{"Other"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			assert.Assert(t, s.CreateGroup("Parent", model.GroupParams{}))
			assert.Assert(t, s.CreateGroup("Kid1", model.GroupParams{Parent: stringPtr("Parent")}))
			assert.Assert(t, s.CreateGroup("Kid2", model.GroupParams{Parent: stringPtr("Parent")}))
			assert.Assert(t, s.CreateGroup("Other", model.GroupParams{}))

			assert.Assert(t, s.DeleteGroup("Parent", tt.promote))
			assert.DeepEqual(t, s.GroupOrder, tt.want)
			assert.Equal(t, len(s.Groups), len(tt.want))
			for _, name := range tt.want {
				assert.Assert(t, s.Groups[name].IsTopLevel(), name)
			}
		})
	}
}

func TestRenameGroup(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://a.example")
	assert.Assert(t, s.CreateGroup("Old", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("Kid", model.GroupParams{Parent: stringPtr("Old")}))
	assert.Assert(t, s.CreateGroup("Taken", model.GroupParams{}))
	assert.Assert(t, s.AddToGroup("https://a.example", "Old"))
	assert.Assert(t, s.ArchiveBookmark("https://a.example"))

	assert.Assert(t, !s.RenameGroup("Old", "Taken"))
	assert.Assert(t, s.RenameGroup("Old", "New"))
	assert.DeepEqual(t, s.GroupOrder, []string{"New", "Kid", "Taken"})
	assert.Equal(t, *s.Groups["Kid"].ParentGroup, "New")
	assert.DeepEqual(t, s.Archived["https://a.example/"].OriginalGroups, []string{"New"})
}

func TestGroups_RejectUnsafeInput(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, !s.CreateGroup("__proto__", model.GroupParams{}))
	assert.Assert(t, !s.CreateGroup("G", model.GroupParams{Color: "red;background:url(x)"}))
	assert.Assert(t, s.CreateGroup("G", model.GroupParams{Color: "#ff0000"}))
	assert.Assert(t, !s.UpdateGroup("G", model.GroupUpdate{Color: stringPtr("expression(alert(1))")}))
	assert.Equal(t, s.Groups["G"].Color, "#ff0000")
}

func TestMoveGroup(t *testing.T) {
	s := newTestStore()
	for _, n := range []string{"A", "B", "C"} {
		assert.Assert(t, s.CreateGroup(n, model.GroupParams{}))
	}
	assert.Assert(t, s.MoveGroup("C", 0))
	assert.DeepEqual(t, s.GroupOrder, []string{"C", "A", "B"})
	assert.Assert(t, !s.MoveGroup("C", 0))
	assert.Assert(t, !s.MoveGroup("C", 3))
}

func TestFavorites(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, !s.AddToFavorites("https://missing.example"))
	add(t, s, "https://a.example")
	assert.Assert(t, s.AddToFavorites("https://a.example"))
	assert.Assert(t, !s.AddToFavorites("https://a.example"))
	assert.Assert(t, s.RemoveFromFavorites("https://a.example"))
	assert.Assert(t, !s.RemoveFromFavorites("https://a.example"))
}

func TestAnalytics(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://a.example")
	assert.Assert(t, s.TrackBookmarkClick("https://a.example"))
	assert.Assert(t, s.TrackBookmarkClick("https://a.example"))

	b, _ := s.GetBookmark("https://a.example")
	assert.Equal(t, b.ClickCount, 2)
	assert.Equal(t, *b.LastAccessedAt, fixedNow)

	s.Settings.TrackAnalytics = false
	assert.Assert(t, !s.TrackBookmarkClick("https://a.example"))

	assert.Equal(t, s.ResetAnalytics(), 1)
	b, _ = s.GetBookmark("https://a.example")
	assert.Equal(t, b.ClickCount, 0)
	assert.Assert(t, is.Nil(b.LastAccessedAt))
}

func TestTags_MergeAndDelete(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://a.example", "js", "javascript")
	add(t, s, "https://b.example", "js")
	add(t, s, "https://c.example", "go")

	assert.Assert(t, s.MergeTag("js", "javascript"))
	a, _ := s.GetBookmark("https://a.example")
	assert.DeepEqual(t, a.Tags, []string{"javascript"})
	b, _ := s.GetBookmark("https://b.example")
	assert.DeepEqual(t, b.Tags, []string{"javascript"})

	assert.Assert(t, !s.MergeTag("js", "javascript"), "nothing left to merge")
	assert.Assert(t, s.DeleteTag("go"))
	assert.Assert(t, !s.DeleteTag("go"))
}

func TestTags_MergeIgnoresCase(t *testing.T) {
	s := newTestStore()
	add(t, s, "https://a.example", "go")
	add(t, s, "https://b.example", "Go", "golang")
	add(t, s, "https://c.example", "golang")

	assert.Assert(t, s.MergeTag("GO", "golang"))
	a, _ := s.GetBookmark("https://a.example")
	assert.DeepEqual(t, a.Tags, []string{"golang"})
	b, _ := s.GetBookmark("https://b.example")
	assert.DeepEqual(t, b.Tags, []string{"golang"})
	assert.Equal(t, len(s.GetBookmarksByTags([]string{"go"}, model.MatchAny)), 0)

	assert.Assert(t, s.MergeTag("golang", "Golang"), "recasing is a change")
	assert.Assert(t, !s.MergeTag("golang", "Golang"), "already recased")
	c, _ := s.GetBookmark("https://c.example")
	assert.DeepEqual(t, c.Tags, []string{"Golang"})

	assert.Assert(t, s.DeleteTag("GOLANG"))
	assert.DeepEqual(t, s.GetSortedTags(), []model.TagCount{})
}

func TestCollections(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, s.SaveCollection("frontend", []string{"js", "css"}))
	assert.Assert(t, !s.SaveCollection("__proto__", []string{"js"}))
	assert.Assert(t, s.RenameCollection("frontend", "web"))
	assert.DeepEqual(t, s.TagCollections["web"], []string{"js", "css"})
	assert.Assert(t, s.DeleteCollection("web"))
	assert.Assert(t, !s.DeleteCollection("web"))
}

func TestQuickAdd_CreatesGroup(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, s.QuickAdd(model.NewBookmarkParams{URL: "https://a.example"}, "Inbox"))
	assert.DeepEqual(t, s.GetBookmarkGroups("https://a.example"), []string{"Inbox"})
	assert.Assert(t, !s.QuickAdd(model.NewBookmarkParams{URL: "https://a.example"}, "Inbox"))
}

func TestPresets(t *testing.T) {
	s := newTestStore()
	assert.Assert(t, !s.SavePreset(model.PresetCompact))

	assert.Assert(t, s.ApplyPreset(model.PresetCompact))
	assert.Equal(t, s.Settings.ViewSettings[model.ViewGrid].Columns, 6)

	assert.Assert(t, s.SavePreset("mine"))
	assert.Assert(t, s.ApplyPreset(model.PresetDefault))
	assert.Equal(t, s.Settings.ViewSettings[model.ViewGrid].Columns, 4)
	assert.Assert(t, s.ApplyPreset("mine"))
	assert.Equal(t, s.Settings.ViewSettings[model.ViewGrid].Columns, 6)
	assert.Assert(t, s.DeletePreset("mine"))
	assert.Assert(t, !s.ApplyPreset("mine"))
}
