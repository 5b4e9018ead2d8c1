package httpserver

import (
	"net/http"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

type resetResponse struct {
	Reset int `json:"reset"`
}

func (a *api) analyticsSummary(w http.ResponseWriter, _ *http.Request) {
	a.view(w, func(s *model.Store) any { return s.GetAnalyticsSummary() })
}

// GET /api/analytics/most-used?limit= defaults to the configured count.
func (a *api) mostUsed(w http.ResponseWriter, r *http.Request) {
	a.view(w, func(s *model.Store) any {
		return s.GetMostUsedBookmarks(queryInt(r, "limit", s.Settings.MostUsedCount))
	})
}

// GET /api/analytics/dormant?days= defaults to the configured threshold.
func (a *api) dormant(w http.ResponseWriter, r *http.Request) {
	a.view(w, func(s *model.Store) any {
		return s.GetDormantBookmarks(queryInt(r, "days", s.Settings.DormantDays))
	})
}

func (a *api) resetAnalytics(w http.ResponseWriter, r *http.Request) {
	var n int
	_, err := a.Library.Update(r.Context(), func(s *model.Store) bool {
		n = s.ResetAnalytics()
		return n > 0
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resetResponse{Reset: n})
}

func (a *api) duplicates(w http.ResponseWriter, _ *http.Request) {
	a.view(w, func(s *model.Store) any {
		report := s.FindDuplicates()
		if !report.Empty() {
			a.Logger.Warn("duplicate bookmarks detected",
				logger.Int("duplicates", len(report.Duplicates)),
				logger.Int("key_mismatches", len(report.KeyMismatches)))
		}
		return report
	})
}
