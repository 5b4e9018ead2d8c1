package transfer

import (
	"fmt"
	"sort"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/urlnorm"
)

// Mode picks how imported sections combine with existing data.
type Mode string

const (
	// Merge skips existing keys and unions memberships.
	Merge Mode = "merge"
	// Replace clears each imported section first.
	Replace Mode = "replace"
)

// ImportOptions configures Import.
type ImportOptions struct {
	Mode      Mode
	Confirmed bool      // required for Replace
	Sections  []Section // nil imports every section present
	Now       time.Time
	Log       logger.Logger
}

// Result counts what an import added or skipped.
type Result struct {
	Bookmarks      int      `json:"bookmarks"`
	Groups         int      `json:"groups"`
	Favorites      int      `json:"favorites"`
	Archived       int      `json:"archived"`
	TagCollections int      `json:"tagCollections"`
	Presets        int      `json:"presets"`
	Skipped        int      `json:"skipped"`
	SettingsKeys   []string `json:"settingsKeys"`
	Repairs        int      `json:"repairs"`
}

// Import validates an envelope and applies it to store. Nothing in store
// changes unless the envelope passes validation; the imported state is built
// on a copy, repaired, and swapped in at the end.
func Import(store *model.Store, blob []byte, opts ImportOptions) (Result, error) {
	var res Result
	if opts.Mode == "" {
		opts.Mode = Merge
	}
	if opts.Mode != Merge && opts.Mode != Replace {
		return res, fmt.Errorf("unknown import mode %q", opts.Mode)
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	v, err := model.ParseJSON(blob)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	env, ok := v.(map[string]any)
	if !ok {
		return res, ErrInvalidEnvelope
	}
	if id, _ := env["pluginId"].(string); id != PluginID {
		return res, ErrWrongProduct
	}
	data, ok := env["data"].(map[string]any)
	if !ok {
		return res, ErrInvalidEnvelope
	}
	present := map[Section]any{}
	for _, s := range AllSections {
		if raw, ok := data[string(s)]; ok && raw != nil && selected(opts.Sections, s) {
			present[s] = raw
		}
	}
	if len(present) == 0 {
		return res, ErrEmptyImport
	}
	if opts.Mode == Replace && !opts.Confirmed {
		return res, ErrReplaceNotConfirmed
	}

	im := importer{
		work:  store.Clone(),
		opts:  opts,
		dec:   model.Decoder{Limits: model.ImportLimits, Now: opts.Now, Log: opts.Log},
		keys:  map[string]string{},
		res:   &res,
		added: map[string]bool{},
	}
	im.work.WithClock(func() time.Time { return opts.Now })

	// Bookmarks first so memberships can be mapped to their new keys.
	if raw, ok := present[SectionBookmarks]; ok {
		im.bookmarks(raw)
	}
	if raw, ok := present[SectionArchived]; ok {
		im.archived(raw)
	}
	if raw, ok := present[SectionGroups]; ok {
		im.groups(raw)
	}
	if raw, ok := present[SectionGroupOrder]; ok {
		im.groupOrder(raw)
	}
	if raw, ok := present[SectionFavorites]; ok {
		im.favorites(raw)
	}
	if raw, ok := present[SectionTagCollections]; ok {
		im.collections(raw)
	}
	if raw, ok := present[SectionPresets]; ok {
		im.presets(raw)
	}
	if raw, ok := present[SectionSettings]; ok {
		base := im.work.Settings
		if opts.Mode == Replace {
			base = model.DefaultSettings()
		}
		im.work.Settings, res.SettingsKeys = im.dec.Settings(raw, base)
	}

	res.Repairs = len(im.work.ValidateAndRepair())
	store.ReplaceWith(im.work)
	opts.Log.Info("import finished",
		logger.String("mode", string(opts.Mode)),
		logger.Int("bookmarks", res.Bookmarks),
		logger.Int("groups", res.Groups),
		logger.Int("skipped", res.Skipped),
		logger.Int("repairs", res.Repairs))
	return res, nil
}

type importer struct {
	work  *model.Store
	opts  ImportOptions
	dec   model.Decoder
	keys  map[string]string // document key -> store key
	added map[string]bool   // group names created by this import
	res   *Result
}

func (im *importer) replace() bool { return im.opts.Mode == Replace }

// mapKey translates a reference from the document into a store key.
func (im *importer) mapKey(docKey string) string {
	if k, ok := im.keys[docKey]; ok {
		return k
	}
	return urlnorm.Normalize(docKey)
}

func (im *importer) bookmarks(raw any) {
	if im.replace() {
		im.work.Bookmarks = map[string]*model.Bookmark{}
	}
	decoded := im.dec.Bookmarks(raw)
	for _, docKey := range sortedKeys(decoded) {
		b := decoded[docKey]
		if !urlnorm.IsAllowed(b.URL) {
			im.res.Skipped++
			continue
		}
		key := urlnorm.Normalize(b.URL)
		im.keys[docKey] = key
		if _, exists := im.work.Bookmarks[key]; exists {
			im.res.Skipped++
			continue
		}
		if _, archived := im.work.Archived[key]; archived && !im.replace() {
			im.res.Skipped++
			continue
		}
		delete(im.work.Archived, key)
		im.work.Bookmarks[key] = b
		im.res.Bookmarks++
	}
}

func (im *importer) archived(raw any) {
	if im.replace() {
		im.work.Archived = map[string]*model.ArchivedBookmark{}
	}
	decoded := im.dec.Archived(raw)
	for _, docKey := range sortedKeys(decoded) {
		a := decoded[docKey]
		if !urlnorm.IsAllowed(a.URL) {
			im.res.Skipped++
			continue
		}
		key := urlnorm.Normalize(a.URL)
		_, live := im.work.Bookmarks[key]
		_, exists := im.work.Archived[key]
		if live || exists {
			im.res.Skipped++
			continue
		}
		im.work.Archived[key] = a
		im.res.Archived++
	}
}

func (im *importer) groups(raw any) {
	if im.replace() {
		im.work.Groups = map[string]*model.Group{}
		im.work.GroupOrder = []string{}
	}
	for name, g := range im.dec.Groups(raw) {
		urls := make([]string, 0, len(g.URLs))
		for _, docKey := range g.URLs {
			urls = append(urls, im.mapKey(docKey))
		}
		if existing, ok := im.work.Groups[name]; ok {
			for _, key := range urls {
				if !containsString(existing.URLs, key) {
					existing.URLs = append(existing.URLs, key)
				}
			}
			im.res.Skipped++
			continue
		}
		g.URLs = urls
		im.work.Groups[name] = g
		im.added[name] = true
		im.res.Groups++
	}
}

// groupOrder appends newly added groups in document order. Repair appends
// anything still missing.
func (im *importer) groupOrder(raw any) {
	for _, name := range im.dec.StringList("groupOrder", raw) {
		if !im.added[name] || containsString(im.work.GroupOrder, name) {
			continue
		}
		im.work.GroupOrder = append(im.work.GroupOrder, name)
	}
}

func (im *importer) favorites(raw any) {
	if im.replace() {
		im.work.FavoriteURLs = []string{}
	}
	for _, docKey := range im.dec.StringList("favoriteUrls", raw) {
		key := im.mapKey(docKey)
		if _, live := im.work.Bookmarks[key]; !live || containsString(im.work.FavoriteURLs, key) {
			continue
		}
		im.work.FavoriteURLs = append(im.work.FavoriteURLs, key)
		im.res.Favorites++
	}
}

func (im *importer) collections(raw any) {
	if im.replace() {
		im.work.TagCollections = map[string][]string{}
	}
	for name, tags := range im.dec.TagCollections(raw) {
		if _, exists := im.work.TagCollections[name]; exists {
			im.res.Skipped++
			continue
		}
		im.work.TagCollections[name] = tags
		im.res.TagCollections++
	}
}

func (im *importer) presets(raw any) {
	if im.replace() {
		im.work.Presets = map[string]*model.Preset{}
	}
	for name, p := range im.dec.Presets(raw) {
		if _, exists := im.work.Presets[name]; exists {
			im.res.Skipped++
			continue
		}
		im.work.Presets[name] = p
		im.res.Presets++
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
