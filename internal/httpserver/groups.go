package httpserver

import (
	"net/http"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

type createGroupRequest struct {
	Name   string  `json:"name"`
	Icon   string  `json:"icon"`
	Color  string  `json:"color"`
	Parent *string `json:"parent"`
}

type updateGroupRequest struct {
	Icon  *string `json:"icon"`
	Color *string `json:"color"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type moveRequest struct {
	Index int `json:"index"`
}

type parentRequest struct {
	Parent *string `json:"parent"` // null promotes to top-level
}

type memberRequest struct {
	URL string `json:"url"`
}

// GET /api/groups lists groups in display order, sub-groups after their parent.
func (a *api) listGroups(w http.ResponseWriter, _ *http.Request) {
	a.view(w, func(s *model.Store) any { return s.GetHierarchicalGroupOrder() })
}

func (a *api) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params := model.GroupParams{Icon: req.Icon, Color: req.Color, Parent: req.Parent}
	a.mutate(w, r, http.StatusCreated, func(s *model.Store) outcome {
		if req.Parent != nil {
			if _, ok := s.Groups[*req.Parent]; !ok {
				return outcome{}
			}
		}
		return outcome{found: true, ok: s.CreateGroup(req.Name, params)}
	})
}

// DELETE /api/groups/{name}?promote=true keeps sub-groups as top-level groups.
func (a *api) deleteGroup(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	promote := queryBool(r, "promote")
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		ok := s.DeleteGroup(name, promote)
		return outcome{found: ok, ok: ok}
	})
}

func (a *api) updateGroup(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req updateGroupRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, ok := s.Groups[name]; !ok {
			return outcome{}
		}
		return outcome{found: true, ok: s.UpdateGroup(name, model.GroupUpdate(req))}
	})
}

func (a *api) renameGroup(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req renameRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, ok := s.Groups[name]; !ok {
			return outcome{}
		}
		return outcome{found: true, ok: s.RenameGroup(name, req.Name)}
	})
}

func (a *api) moveGroup(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, ok := s.Groups[name]; !ok {
			return outcome{}
		}
		return outcome{found: true, ok: s.MoveGroup(name, req.Index)}
	})
}

func (a *api) setParent(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req parentRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, ok := s.Groups[name]; !ok {
			return outcome{}
		}
		return outcome{found: true, ok: s.SetParentGroup(name, req.Parent)}
	})
}

func (a *api) groupMembers(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var (
		members []model.KeyedBookmark
		found   bool
	)
	err := a.Library.View(func(s *model.Store) {
		if _, found = s.Groups[name]; found {
			members = s.GetGroupBookmarks(name)
		}
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	if !found {
		a.writeError(w, http.StatusNotFound, "not found")
		return
	}
	a.writeJSON(w, http.StatusOK, members)
}

func (a *api) addMember(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req memberRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		if _, ok := s.Groups[name]; !ok {
			return outcome{}
		}
		if _, ok := s.GetBookmark(req.URL); !ok {
			return outcome{}
		}
		return outcome{found: true, ok: s.AddToGroup(req.URL, name)}
	})
}

// DELETE /api/groups/{name}/members?url=
func (a *api) removeMember(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	u, ok := a.requireURL(w, r)
	if !ok {
		return
	}
	a.mutate(w, r, http.StatusOK, func(s *model.Store) outcome {
		ok := s.RemoveFromGroup(u, name)
		return outcome{found: ok, ok: ok}
	})
}
