package httpserver

import (
	"fmt"
	"net/http"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/transfer"
)

// GET /api/export?sections=bookmarks,groups&analytics=true
func (a *api) export(w http.ResponseWriter, r *http.Request) {
	sections, err := parseSections(r.URL.Query().Get("sections"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	env, err := a.Library.Export(transfer.ExportOptions{
		Sections:         sections,
		IncludeAnalytics: queryBool(r, "analytics"),
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	filename := fmt.Sprintf("bookmarks-%s.json", env.ExportDate.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	a.writeJSON(w, http.StatusOK, env)
}

// POST /api/import?mode=replace&confirm=true&sections=... with an envelope body.
func (a *api) importEnvelope(w http.ResponseWriter, r *http.Request) {
	sections, err := parseSections(r.URL.Query().Get("sections"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode := transfer.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = transfer.Merge
	}
	if mode != transfer.Merge && mode != transfer.Replace {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown import mode %q", mode))
		return
	}
	blob, err := readBody(r)
	if err != nil {
		a.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	res, err := a.Library.Import(r.Context(), blob, transfer.ImportOptions{
		Mode:      mode,
		Confirmed: queryBool(r, "confirm"),
		Sections:  sections,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func parseSections(raw string) ([]transfer.Section, error) {
	names := splitList(raw)
	if len(names) == 0 {
		return nil, nil
	}
	sections := make([]transfer.Section, 0, len(names))
	for _, name := range names {
		s, ok := transfer.ParseSection(name)
		if !ok {
			return nil, fmt.Errorf("unknown section %q", name)
		}
		sections = append(sections, s)
	}
	return sections, nil
}
