package transfer_test

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/transfer"
)

var now = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func stringPtr(s string) *string { return &s }

func sampleStore(t *testing.T) *model.Store {
	t.Helper()
	s := model.NewStore().WithClock(func() time.Time { return now })
	assert.Assert(t, s.AddBookmark(model.NewBookmarkParams{Title: "Go", URL: "https://go.dev", Tags: []string{"lang"}}))
	assert.Assert(t, s.AddBookmark(model.NewBookmarkParams{Title: "Zig", URL: "https://ziglang.org"}))
	assert.Assert(t, s.CreateGroup("Langs", model.GroupParams{}))
	assert.Assert(t, s.CreateGroup("Systems", model.GroupParams{Parent: stringPtr("Langs")}))
	assert.Assert(t, s.AddToGroup("https://go.dev", "Langs"))
	assert.Assert(t, s.AddToGroup("https://ziglang.org", "Systems"))
	assert.Assert(t, s.AddToFavorites("https://go.dev"))
	assert.Assert(t, s.TrackBookmarkClick("https://go.dev"))
	assert.Assert(t, s.SaveCollection("code", []string{"lang"}))
	return s
}

func exportJSON(t *testing.T, s *model.Store, opts transfer.ExportOptions) []byte {
	t.Helper()
	data, err := transfer.Marshal(transfer.Export(s, opts, now))
	assert.NilError(t, err)
	return data
}

func TestExport_DeepCopyAndSections(t *testing.T) {
	s := sampleStore(t)
	env := transfer.Export(s, transfer.ExportOptions{Sections: []transfer.Section{transfer.SectionBookmarks}}, now)

	assert.Equal(t, env.PluginID, transfer.PluginID)
	assert.Equal(t, len(env.Data.Bookmarks), 2)
	assert.Assert(t, is.Nil(env.Data.Groups))
	assert.Assert(t, is.Nil(env.Data.Settings))

	env.Data.Bookmarks["https://go.dev/"].Title = "changed"
	b, _ := s.GetBookmark("https://go.dev")
	assert.Equal(t, b.Title, "Go", "export must not share state")

	assert.Equal(t, env.Data.Bookmarks["https://go.dev/"].ClickCount, 0, "analytics stripped by default")
	withAnalytics := transfer.Export(s, transfer.ExportOptions{IncludeAnalytics: true}, now)
	assert.Equal(t, withAnalytics.Data.Bookmarks["https://go.dev/"].ClickCount, 1)
}

func TestImport_RoundTrip(t *testing.T) {
	src := sampleStore(t)
	data := exportJSON(t, src, transfer.ExportOptions{IncludeAnalytics: true})

	dst := model.NewStore()
	res, err := transfer.Import(dst, data, transfer.ImportOptions{Now: now})
	assert.NilError(t, err)
	assert.Equal(t, res.Bookmarks, 2)
	assert.Equal(t, res.Groups, 2)
	assert.Equal(t, res.Favorites, 1)

	assert.DeepEqual(t, dst.GroupOrder, src.GroupOrder)
	assert.DeepEqual(t, dst.Groups["Systems"].URLs, []string{"https://ziglang.org/"})
	assert.Equal(t, *dst.Groups["Systems"].ParentGroup, "Langs")
	assert.DeepEqual(t, dst.FavoriteURLs, []string{"https://go.dev/"})
	assert.DeepEqual(t, dst.TagCollections["code"], []string{"lang"})
}

func TestImport_RejectsBadEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		opts transfer.ImportOptions
		want error
	}{
		{name: "not json", doc: "{", want: transfer.ErrInvalidEnvelope},
		{name: "array", doc: "[]", want: transfer.ErrInvalidEnvelope},
		{name: "wrong product", doc: `{"pluginId":"other","data":{"bookmarks":{}}}`, want: transfer.ErrWrongProduct},
		{name: "missing product", doc: `{"data":{"bookmarks":{}}}`, want: transfer.ErrWrongProduct},
		{name: "data not object", doc: `{"pluginId":"bookmark-manager","data":[]}`, want: transfer.ErrInvalidEnvelope},
		{name: "empty data", doc: `{"pluginId":"bookmark-manager","data":{"unknown":1}}`, want: transfer.ErrEmptyImport},
		{name: "replace unconfirmed", doc: `{"pluginId":"bookmark-manager","data":{"bookmarks":{}}}`,
			opts: transfer.ImportOptions{Mode: transfer.Replace}, want: transfer.ErrReplaceNotConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleStore(t)
			before, _ := json.Marshal(s)

			_, err := transfer.Import(s, []byte(tt.doc), tt.opts)
			assert.Assert(t, errors.Is(err, tt.want), "got %v", err)

			after, _ := json.Marshal(s)
			assert.Equal(t, string(after), string(before), "store must be untouched")
		})
	}
}

func TestImport_MergeSkipsExistingAndUnionsMembers(t *testing.T) {
	s := sampleStore(t)
	doc := `{"pluginId":"bookmark-manager","data":{
		"bookmarks": {
			"https://go.dev/": {"url":"https://go.dev","title":"Imported Go"},
			"http://Rust-Lang.org/": {"url":"http://Rust-Lang.org/","title":"Rust"}
		},
		"groups": {"Langs": {"urls": ["http://Rust-Lang.org/", "https://nope.example/"]}},
		"tagCollections": {"code": ["other"], "new": ["x"]}
	}}`

	res, err := transfer.Import(s, []byte(doc), transfer.ImportOptions{Now: now})
	assert.NilError(t, err)
	assert.Equal(t, res.Bookmarks, 1)

	goBM, _ := s.GetBookmark("https://go.dev")
	assert.Equal(t, goBM.Title, "Go", "existing bookmark kept")
	assert.DeepEqual(t, s.Groups["Langs"].URLs, []string{"https://go.dev/", "http://rust-lang.org/"})
	assert.DeepEqual(t, s.TagCollections["code"], []string{"lang"})
	assert.DeepEqual(t, s.TagCollections["new"], []string{"x"})
}

func TestImport_ReplaceClearsSections(t *testing.T) {
	s := sampleStore(t)
	doc := `{"pluginId":"bookmark-manager","data":{
		"bookmarks": {"https://new.example/": {"url":"https://new.example","title":"New"}}
	}}`

	_, err := transfer.Import(s, []byte(doc), transfer.ImportOptions{Mode: transfer.Replace, Confirmed: true, Now: now})
	assert.NilError(t, err)
	assert.DeepEqual(t, keysOf(s.Bookmarks), []string{"https://new.example/"})
	assert.Equal(t, len(s.Groups["Langs"].URLs), 0, "memberships of removed bookmarks are filtered")
	assert.Equal(t, len(s.FavoriteURLs), 0)
}

func TestImport_DropsPollutionKeysEverywhere(t *testing.T) {
	doc := `{"pluginId":"bookmark-manager","data":{
		"bookmarks": {
			"__proto__": {"url":"https://evil.example","title":"x"},
			"https://ok.example/": {"url":"https://ok.example","title":"ok","__proto__":{"admin":true}}
		},
		"groups": {"__proto__": {"urls": []}, "constructor": {"urls": []}, "G": {"urls": ["https://ok.example/"]}},
		"groupOrder": ["__proto__", "G"],
		"tagCollections": {"prototype": ["a"], "c": ["__proto__"]},
		"presets": {"__proto__": {"modes": {}}, "p": {"modes": {"__proto__": {}}}},
		"archivedBookmarks": {"constructor": {"url":"https://arch.example","title":"a"}},
		"settings": {"__proto__": {"dormantDays": 1}, "constructor": 5, "dormantDays": 40}
	}}`

	s := model.NewStore()
	_, err := transfer.Import(s, []byte(doc), transfer.ImportOptions{Now: now})
	assert.NilError(t, err)

	assert.DeepEqual(t, keysOf(s.Bookmarks), []string{"https://ok.example/"})
	assert.DeepEqual(t, keysOf(s.Groups), []string{"G"})
	assert.DeepEqual(t, s.GroupOrder, []string{"G"})
	assert.DeepEqual(t, keysOf(s.TagCollections), []string{"c"})
	assert.DeepEqual(t, keysOf(s.Presets), []string{"p"})
	assert.Equal(t, len(s.Archived), 0)
	assert.Equal(t, s.Settings.DormantDays, 40)

	raw, err := json.Marshal(s)
	assert.NilError(t, err)
	for _, bad := range []string{`"__proto__":`, `"constructor":`, `"prototype":`} {
		assert.Assert(t, !strings.Contains(string(raw), bad), "store contains %s", bad)
	}
}

func TestImport_SanitizesOversizedFields(t *testing.T) {
	long := strings.Repeat("t", 900)
	doc := `{"pluginId":"bookmark-manager","data":{"bookmarks":{
		"https://a.example/": {"url":"https://a.example","title":"` + long + `","tags":"bad","clickCount":-4},
		"https://b.example/": {"url":"javascript:alert(1)","title":"xss"}
	}}}`

	s := model.NewStore()
	res, err := transfer.Import(s, []byte(doc), transfer.ImportOptions{Now: now})
	assert.NilError(t, err)
	assert.Equal(t, res.Bookmarks, 1)
	assert.Equal(t, res.Skipped, 1)

	b, ok := s.GetBookmark("https://a.example")
	assert.Assert(t, ok)
	assert.Equal(t, len(b.Title), 500)
	assert.DeepEqual(t, b.Tags, []string{})
	assert.Equal(t, b.ClickCount, 0)
}

func keysOf[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
