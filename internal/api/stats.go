package api

import (
	"net/http"
	"sort"

	"kahaanigo/pkg/tracker"
)

// StatsHandler serves provider usage statistics.
type StatsHandler struct {
	tracker *tracker.Tracker
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	return &StatsHandler{tracker: t}
}

// ProviderStatsDTO is the JSON shape for a single provider's counters.
type ProviderStatsDTO struct {
	Provider    string  `json:"provider"`
	CacheHits   int64   `json:"cache_hits"`
	CacheMisses int64   `json:"cache_misses"`
	APISuccess  int64   `json:"api_success"`
	APIFailures int64   `json:"api_failures"`
	Fallbacks   int64   `json:"fallbacks"`
	HitRate     float64 `json:"hit_rate"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	dtos := make([]ProviderStatsDTO, 0, len(snapshot))
	for provider, s := range snapshot {
		dto := ProviderStatsDTO{
			Provider:    provider,
			CacheHits:   s.CacheHits,
			CacheMisses: s.CacheMisses,
			APISuccess:  s.APISuccess,
			APIFailures: s.APIFailures,
			Fallbacks:   s.Fallbacks,
		}
		if total := s.CacheHits + s.CacheMisses; total > 0 {
			dto.HitRate = float64(s.CacheHits) / float64(total)
		}
		dtos = append(dtos, dto)
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Provider < dtos[j].Provider })

	writeJSON(w, http.StatusOK, map[string]any{"providers": dtos})
}
