package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linkrocket/linkrocket/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statsRouter собирает роутер с маршрутом сводки, как в боевом сервере
func statsRouter() http.Handler {

	r := chi.NewRouter()
	r.Get("/api/stats/{short_code}", GetLinkStats)

	return r
}

// TestGetLinkStatsDisabledCache тестирует сводку при отключённом хранилище:
// нули и пустые множества, а не ошибка
func TestGetLinkStatsDisabledCache(t *testing.T) {

	req := httptest.NewRequest(http.MethodGet, "/api/stats/promo24", nil)
	rec := httptest.NewRecorder()

	statsRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var stats models.LinkStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))

	assert.Equal(t, "promo24", stats.ShortCode)
	assert.Zero(t, stats.TotalClicks)
	assert.Zero(t, stats.TodayClicks)
	assert.Empty(t, stats.Countries)
	assert.Empty(t, stats.Cities)
}
