package httpserver

import (
	"net/http"
	"strings"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/search"
)

type addBookmarkRequest struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Group       string   `json:"group"` // optional, created when missing
}

type updateBookmarkRequest struct {
	Title       *string   `json:"title"`
	URL         *string   `json:"url"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// GET /api/bookmarks?q= lists live bookmarks, newest first, or search hits.
func (a *api) listBookmarks(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	a.view(w, func(s *model.Store) any {
		if q == "" {
			return s.AllBookmarks()
		}
		hits := search.Search(s, q)
		out := make([]model.KeyedBookmark, len(hits))
		for i, h := range hits {
			out[i] = h.Bookmark
		}
		return out
	})
}

func (a *api) addBookmark(w http.ResponseWriter, r *http.Request) {
	var req addBookmarkRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		a.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	params := model.NewBookmarkParams{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Tags:        req.Tags,
	}
	a.mutate(w, r, http.StatusCreated, func(s *model.Store) outcome {
		return outcome{found: true, ok: s.QuickAdd(params, req.Group)}
	})
}

func (a *api) getBookmark(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	var (
		b     model.Bookmark
		found bool
	)
	if err := a.Library.View(func(s *model.Store) { b, found = s.GetBookmark(u) }); err != nil {
		a.fail(w, err)
		return
	}
	if !found {
		a.writeError(w, http.StatusNotFound, "not found")
		return
	}
	a.writeJSON(w, http.StatusOK, b)
}

func (a *api) updateBookmark(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	var req updateBookmarkRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, found := s.GetBookmark(u); !found {
			return outcome{}
		}
		return outcome{found: true, ok: s.UpdateBookmark(u, model.BookmarkUpdate(req))}
	})
}

func (a *api) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		ok := s.DeleteBookmark(u)
		return outcome{found: ok, ok: ok}
	})
}

func (a *api) trackClick(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, found := s.GetBookmark(u); !found {
			return outcome{}
		}
		// tracking disabled is not an error
		if !s.Settings.TrackAnalytics {
			return outcome{found: true, ok: true}
		}
		return outcome{found: true, ok: s.TrackBookmarkClick(u)}
	})
}

func (a *api) archiveBookmark(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, found := s.GetBookmark(u); !found {
			return outcome{}
		}
		return outcome{found: true, ok: s.ArchiveBookmark(u)}
	})
}

func (a *api) unarchiveBookmark(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	restore := queryBool(r, "restoreGroups")
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		key := s.NormalizeURL(u)
		_, found := s.Archived[key]
		if !found {
			_, found = s.Archived[u]
		}
		if !found {
			return outcome{}
		}
		return outcome{found: true, ok: s.UnarchiveBookmark(u, restore)}
	})
}

func (a *api) recent(w http.ResponseWriter, _ *http.Request) {
	a.view(w, func(s *model.Store) any { return s.GetRecentlyAdded() })
}

func (a *api) ungrouped(w http.ResponseWriter, _ *http.Request) {
	a.view(w, func(s *model.Store) any { return s.GetUngroupedBookmarks() })
}

// GET /api/metadata?url= fetches the page title and description.
func (a *api) fetchMetadata(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, http.StatusOK, a.Metadata.Fetch(r.Context(), u))
}

func (a *api) listArchived(w http.ResponseWriter, _ *http.Request) {
	a.view(w, func(s *model.Store) any { return s.GetArchived() })
}

// DELETE /api/archive?url= removes an archived bookmark for good.
func (a *api) purgeArchived(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		ok := s.PermanentlyDeleteBookmark(u)
		return outcome{found: ok, ok: ok}
	})
}

func (a *api) listFavorites(w http.ResponseWriter, _ *http.Request) {
	a.view(w, func(s *model.Store) any { return s.GetFavorites() })
}

func (a *api) addFavorite(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, found := s.GetBookmark(u); !found {
			return outcome{}
		}
		return outcome{found: true, ok: s.AddToFavorites(u)}
	})
}

func (a *api) removeFavorite(w http.ResponseWriter, r *http.Request) {
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		ok := s.RemoveFromFavorites(u)
		return outcome{found: ok, ok: ok}
	})
}
