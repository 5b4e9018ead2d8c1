package httpserver

import (
	"net/http"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

type mergeTagRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GET /api/tags lists tags by descending use.
func (a *api) listTags(w http.ResponseWriter, _ *http.Request) {
	a.view(w, func(s *model.Store) any { return s.GetSortedTags() })
}

// GET /api/tags/filter?tags=a,b&mode=and|or
func (a *api) filterByTags(w http.ResponseWriter, r *http.Request) {
	tags := splitList(r.URL.Query().Get("tags"))
	mode := model.MatchAll
	switch r.URL.Query().Get("mode") {
	case "", string(model.MatchAll):
	case string(model.MatchAny):
		mode = model.MatchAny
	default:
		a.writeError(w, http.StatusBadRequest, "mode must be and or or")
		return
	}
	a.view(w, func(s *model.Store) any { return s.GetBookmarksByTags(tags, mode) })
}

func (a *api) mergeTag(w http.ResponseWriter, r *http.Request) {
	var req mergeTagRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if req.From == "" || len(s.GetBookmarksByTags([]string{req.From}, model.MatchAll)) == 0 {
			return outcome{}
		}
		return outcome{found: true, ok: s.MergeTag(req.From, req.To)}
	})
}

func (a *api) deleteTag(w http.ResponseWriter, r *http.Request) {
	tag := pathParam(r, "tag")
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		ok := s.DeleteTag(tag)
		return outcome{found: ok, ok: ok}
	})
}
