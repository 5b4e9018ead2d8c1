// Package library is the shared handle around one Store: it guards the
// store with a lock, persists through a save coordinator and refuses to
// operate after an unrecoverable load failure.
package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/culler"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/persist"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/storage"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/transfer"
)

var (
	// ErrLoadFailed wraps a provider failure during Open or Reload.
	ErrLoadFailed = errors.New("load failed")
	// ErrUnavailable is returned by every operation after a load failure.
	ErrUnavailable = errors.New("library unavailable after load failure")
)

// Library owns a Store and its persistence.
type Library struct {
	provider storage.Provider
	coord    *persist.Coordinator
	log      logger.Logger
	clock    func() time.Time

	mu    sync.RWMutex
	store *model.Store
	ui    model.UIState
	fatal error
}

// Option configures a Library.
type Option func(*config)

type config struct {
	log       logger.Logger
	clock     func() time.Time
	onRefresh func()
	debounce  time.Duration
}

// WithLogger sets the logger passed down to the store and coordinator.
func WithLogger(l logger.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *config) { c.clock = clock }
}

// WithRefresh sets the callback run after saves that change visible state.
func WithRefresh(fn func()) Option {
	return func(c *config) { c.onRefresh = fn }
}

// WithDebounce sets the delay for scheduled saves.
func WithDebounce(d time.Duration) Option {
	return func(c *config) { c.debounce = d }
}

// Open loads the store from provider and repairs it. A provider error is
// fatal and returned wrapped in ErrLoadFailed.
func Open(ctx context.Context, provider storage.Provider, opts ...Option) (*Library, error) {
	cfg := config{log: logger.Nop(), clock: time.Now, debounce: 300 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &Library{provider: provider, log: cfg.log, clock: cfg.clock}
	l.coord = persist.New(l.write,
		persist.WithLogger(cfg.log),
		persist.WithRefresh(cfg.onRefresh),
		persist.WithDebounce(cfg.debounce))

	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload replaces the in-memory store with the persisted one. On failure
// the library turns unavailable.
func (l *Library) Reload(ctx context.Context) error {
	blob, err := l.provider.Load(ctx)
	if err != nil {
		l.mu.Lock()
		l.fatal = fmt.Errorf("%w: %v", ErrLoadFailed, err)
		l.mu.Unlock()
		l.log.Error("store load failed, refusing further operations", logger.Error(err))
		return l.fatal
	}

	store, ui := model.DecodeStore(blob, l.clock(), l.log)
	store.WithClock(l.clock).WithLogger(l.log)

	l.mu.Lock()
	l.store, l.ui, l.fatal = store, ui, nil
	l.mu.Unlock()
	l.log.Debug("store loaded",
		logger.Int("bookmarks", len(store.Bookmarks)),
		logger.Int("groups", len(store.Groups)))
	return nil
}

// Err reports the fatal load error, if any.
func (l *Library) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fatal
}

func (l *Library) write(ctx context.Context) error {
	l.mu.RLock()
	blob, err := model.EncodeStore(l.store, l.ui)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	return l.provider.Save(ctx, blob)
}

// View runs fn with read access to the store. fn must not keep references.
func (l *Library) View(fn func(s *model.Store)) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fatal != nil {
		return ErrUnavailable
	}
	fn(l.store)
	return nil
}

// Update runs fn with write access and persists once if fn reports a
// change. Several mutations inside one fn share that single save.
func (l *Library) Update(ctx context.Context, fn func(s *model.Store) bool) (bool, error) {
	l.mu.Lock()
	if l.fatal != nil {
		l.mu.Unlock()
		return false, ErrUnavailable
	}
	changed := fn(l.store)
	l.mu.Unlock()

	if !changed {
		return false, nil
	}
	return true, l.coord.Save(ctx, true)
}

// UpdateLater is Update with a debounced save.
func (l *Library) UpdateLater(fn func(s *model.Store) bool) (bool, error) {
	l.mu.Lock()
	if l.fatal != nil {
		l.mu.Unlock()
		return false, ErrUnavailable
	}
	changed := fn(l.store)
	l.mu.Unlock()

	if changed {
		l.coord.Schedule(true)
	}
	return changed, nil
}

// Snapshot returns a deep copy of the store.
func (l *Library) Snapshot() (*model.Store, error) {
	var snap *model.Store
	err := l.View(func(s *model.Store) { snap = s.Clone() })
	return snap, err
}

// UI returns the UI sidecar.
func (l *Library) UI() model.UIState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return model.UIState{CollapsedSections: append([]string{}, l.ui.CollapsedSections...)}
}

// SetSectionCollapsed records whether a dashboard section is collapsed.
func (l *Library) SetSectionCollapsed(ctx context.Context, section string, collapsed bool) error {
	l.mu.Lock()
	if l.fatal != nil {
		l.mu.Unlock()
		return ErrUnavailable
	}
	sections := make([]string, 0, len(l.ui.CollapsedSections)+1)
	found := false
	for _, s := range l.ui.CollapsedSections {
		if s == section {
			found = true
			if !collapsed {
				continue
			}
		}
		sections = append(sections, s)
	}
	if collapsed && !found {
		sections = append(sections, section)
	}
	changed := found != collapsed
	l.ui.CollapsedSections = sections
	l.mu.Unlock()

	if !changed {
		return nil
	}
	return l.coord.Save(ctx, false)
}

// Flush writes any scheduled save and waits for in-flight writes.
func (l *Library) Flush(ctx context.Context) error {
	return l.coord.Flush(ctx)
}

// Stats exposes the coordinator counters.
func (l *Library) Stats() persist.Stats {
	return l.coord.Stats()
}

// Close flushes pending saves and closes the provider.
func (l *Library) Close(ctx context.Context) error {
	flushErr := l.Flush(ctx)
	closeErr := l.provider.Close()
	return errors.Join(flushErr, closeErr)
}

// Export builds an envelope from the current store.
func (l *Library) Export(opts transfer.ExportOptions) (transfer.Envelope, error) {
	var env transfer.Envelope
	err := l.View(func(s *model.Store) { env = transfer.Export(s, opts, l.clock()) })
	return env, err
}

// Import applies an envelope and persists the result.
func (l *Library) Import(ctx context.Context, blob []byte, opts transfer.ImportOptions) (transfer.Result, error) {
	if opts.Log == nil {
		opts.Log = l.log
	}
	if opts.Now.IsZero() {
		opts.Now = l.clock()
	}
	var res transfer.Result
	var importErr error
	_, err := l.Update(ctx, func(s *model.Store) bool {
		res, importErr = transfer.Import(s, blob, opts)
		return importErr == nil
	})
	if importErr != nil {
		return res, importErr
	}
	return res, err
}

// Sweep purges archive entries past the retention window.
func (l *Library) Sweep(ctx context.Context) ([]string, error) {
	var removed []string
	_, err := l.Update(ctx, func(s *model.Store) bool {
		removed = s.PurgeExpiredArchive(l.clock())
		return len(removed) > 0
	})
	return removed, err
}

// CheckLinks runs the link checker over every live bookmark using the
// concurrency and timeout from settings.
func (l *Library) CheckLinks(ctx context.Context, opts culler.Options) ([]culler.Result, error) {
	var targets []culler.Target
	err := l.View(func(s *model.Store) {
		for _, kb := range s.AllBookmarks() {
			targets = append(targets, culler.Target{Key: kb.Key, URL: kb.URL})
		}
		if opts.Concurrency == 0 {
			opts.Concurrency = s.Settings.LinkCheckConcurrency
		}
		if opts.Timeout == 0 {
			opts.Timeout = time.Duration(s.Settings.LinkCheckTimeoutSeconds) * time.Second
		}
	})
	if err != nil {
		return nil, err
	}
	return culler.CheckURLs(ctx, targets, opts), nil
}

// ArchiveDeadLinks archives every bookmark whose result is Dead, in one
// batch with one save. It returns the archived keys.
func (l *Library) ArchiveDeadLinks(ctx context.Context, results []culler.Result) ([]string, error) {
	var archived []string
	_, err := l.Update(ctx, func(s *model.Store) bool {
		for _, r := range results {
			if r.Status == culler.Dead && s.ArchiveBookmark(r.Key) {
				archived = append(archived, r.Key)
			}
		}
		return len(archived) > 0
	})
	return archived, err
}
