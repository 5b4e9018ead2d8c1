package httpserver

import (
	"net/http"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/model"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Bookmarks     int     `json:"bookmarks"`
	Writes        int     `json:"writes"`
	Failures      int     `json:"write_failures"`
}

// healthz answers 503 once the library is unavailable.
func (a *api) healthz(w http.ResponseWriter, _ *http.Request) {
	var count int
	if err := a.Library.View(func(s *model.Store) { count = len(s.Bookmarks) }); err != nil {
		a.writeJSON(w, http.StatusServiceUnavailable, healthzResponse{Status: "unavailable", Version: a.Version})
		return
	}
	stats := a.Library.Stats()
	a.writeJSON(w, http.StatusOK, healthzResponse{
		Status:        "ok",
		UptimeSeconds: a.TimeNow().Sub(a.StartTime).Seconds(),
		Version:       a.Version,
		Bookmarks:     count,
		Writes:        stats.Writes,
		Failures:      stats.Failures,
	})
}
