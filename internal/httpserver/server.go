// Package httpserver exposes the library over a JSON HTTP API.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/httpserver/mw"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/library"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/metadata"
)

// Deps are the collaborators handlers need.
type Deps struct {
	Library   *library.Library
	Logger    logger.Logger
	Metadata  metadata.Fetcher
	StartTime time.Time
	Version   string
	TimeNow   func() time.Time // for testing, defaults to time.Now
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// New builds the HTTP server (router, middlewares, route registration).
func New(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}

	s := &http.Server{
		Addr:              addr,
		Handler:           Router(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{http: s, logger: d.Logger}
}

// Router returns the API handler. Tests drive it through httptest.
func Router(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.TimeNow == nil {
		d.TimeNow = time.Now
	}
	if d.StartTime.IsZero() {
		d.StartTime = d.TimeNow()
	}
	a := &api{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mw.Log(d.Logger))

	r.Get("/healthz", a.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/bookmarks", a.listBookmarks)
		r.Post("/bookmarks", a.addBookmark)
		r.Get("/bookmark", a.getBookmark)
		r.Patch("/bookmark", a.updateBookmark)
		r.Delete("/bookmark", a.deleteBookmark)
		r.Post("/bookmark/click", a.trackClick)
		r.Post("/bookmark/archive", a.archiveBookmark)
		r.Post("/bookmark/unarchive", a.unarchiveBookmark)
		r.Get("/recent", a.recent)
		r.Get("/ungrouped", a.ungrouped)
		r.Get("/metadata", a.fetchMetadata)

		r.Get("/archive", a.listArchived)
		r.Delete("/archive", a.purgeArchived)

		r.Get("/favorites", a.listFavorites)
		r.Put("/favorites", a.addFavorite)
		r.Delete("/favorites", a.removeFavorite)

		r.Get("/groups", a.listGroups)
		r.Post("/groups", a.createGroup)
		r.Route("/groups/{name}", func(r chi.Router) {
			r.Delete("/", a.deleteGroup)
			r.Patch("/", a.updateGroup)
			r.Post("/rename", a.renameGroup)
			r.Post("/move", a.moveGroup)
			r.Post("/parent", a.setParent)
			r.Get("/members", a.groupMembers)
			r.Post("/members", a.addMember)
			r.Delete("/members", a.removeMember)
		})

		r.Get("/tags", a.listTags)
		r.Get("/tags/filter", a.filterByTags)
		r.Post("/tags/merge", a.mergeTag)
		r.Delete("/tags/{tag}", a.deleteTag)

		r.Get("/analytics/summary", a.analyticsSummary)
		r.Get("/analytics/most-used", a.mostUsed)
		r.Get("/analytics/dormant", a.dormant)
		r.Delete("/analytics", a.resetAnalytics)

		r.Get("/duplicates", a.duplicates)
		r.Get("/export", a.export)
		r.Post("/import", a.importEnvelope)
	})

	return r
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
