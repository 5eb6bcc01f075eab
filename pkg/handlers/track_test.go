package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkrocket/linkrocket/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackRequest собирает запрос к приёмнику аналитики с внутренним маркером
func trackRequest(t *testing.T, body []byte) *http.Request {

	req := httptest.NewRequest(http.MethodPost, "/api/track-edge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Request", "true")

	return req
}

// TestTrackEdgeMethodNotAllowed тестирует отказ для не-POST запросов
func TestTrackEdgeMethodNotAllowed(t *testing.T) {

	req := httptest.NewRequest(http.MethodGet, "/api/track-edge", nil)
	rec := httptest.NewRecorder()

	TrackEdge(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// TestTrackEdgeForbidden тестирует отказ без внутреннего маркера
func TestTrackEdgeForbidden(t *testing.T) {

	event := models.ClickEvent{ShortCode: "promo24", Timestamp: time.Now().UnixMilli()}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/track-edge", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	TrackEdge(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp models.TrackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

// TestTrackEdgeBadJSON тестирует отказ на битом теле запроса
func TestTrackEdgeBadJSON(t *testing.T) {

	rec := httptest.NewRecorder()

	TrackEdge(rec, trackRequest(t, []byte("{не json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestTrackEdgeMissingFields тестирует отказ на событии без обязательных полей
func TestTrackEdgeMissingFields(t *testing.T) {

	tests := []struct {
		name  string
		event models.ClickEvent
	}{
		{
			name:  "нет shortCode",
			event: models.ClickEvent{Timestamp: time.Now().UnixMilli()},
		},
		{
			name:  "нет timestamp",
			event: models.ClickEvent{ShortCode: "promo24"},
		},
		{
			name:  "пустое событие",
			event: models.ClickEvent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.event)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			TrackEdge(rec, trackRequest(t, body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// TestTrackEdgeCacheDisabled тестирует мягкое отключение: корректное
// событие при несконфигурированном хранилище принимается с успехом
func TestTrackEdgeCacheDisabled(t *testing.T) {

	event := models.ClickEvent{
		ShortCode: "promo24",
		Timestamp: time.Now().UnixMilli(),
		UserAgent: "Mozilla/5.0 Chrome/126.0.0.0",
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	TrackEdge(rec, trackRequest(t, body))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.TrackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "promo24", resp.ShortCode)
}
