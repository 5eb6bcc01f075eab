package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linkrocket/linkrocket/pkg/analytics"
	"github.com/linkrocket/linkrocket/pkg/cache"
	"github.com/linkrocket/linkrocket/pkg/models"
)

var validate = validator.New()

// TrackEdge принимает событие клика от диспетчера редиректов или от
// консумера кафки. Эндпоинт внутренний: без маркера X-Internal-Request
// запрос отклоняется. Структурно некорректный запрос получает 4xx/405,
// а вот бизнес-ошибки обработки намеренно маскируются под 200 -
// конвейер аналитики не должен становиться источником видимых ошибок.
// Кому важен результат, тот смотрит поле success в теле
func TrackEdge(w http.ResponseWriter, r *http.Request) {

	// принимаем только POST
	if r.Method != http.MethodPost {
		writeTrackResponse(w, http.StatusMethodNotAllowed, models.TrackResponse{
			Success: false,
			Error:   "метод не поддерживается",
		})
		return
	}

	// проверяем, что запрос пришёл от своих
	if r.Header.Get("X-Internal-Request") != "true" {
		writeTrackResponse(w, http.StatusForbidden, models.TrackResponse{
			Success: false,
			Error:   "доступ запрещён",
		})
		return
	}

	var event models.ClickEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeTrackResponse(w, http.StatusBadRequest, models.TrackResponse{
			Success: false,
			Error:   "некорректный JSON в теле запроса",
		})
		return
	}

	// shortCode и timestamp обязательны
	if err := validate.Struct(&event); err != nil {
		log.Printf("Получено некорректное событие аналитики: %v", err)
		writeTrackResponse(w, http.StatusBadRequest, models.TrackResponse{
			Success: false,
			Error:   "отсутствуют обязательные поля",
		})
		return
	}

	// быстрое хранилище не сконфигурировано - пропускаем обработку,
	// но отвечаем успехом: это мягкое отключение, а не сбой
	if !cache.Enabled() {
		writeTrackResponse(w, http.StatusOK, models.TrackResponse{
			Success:   true,
			Message:   "аналитика пропущена (Redis не сконфигурирован)",
			ShortCode: event.ShortCode,
		})
		return
	}

	outcome := analytics.Process(r.Context(), &event)

	// успехом считается работоспособность быстрой группы;
	// сбой долговременной группы уже отлогирован и не влияет на ответ
	if outcome.FastErr != nil {
		log.Printf("Ошибка обработки события аналитики для %s: %v", event.ShortCode, outcome.FastErr)
		writeTrackResponse(w, http.StatusOK, models.TrackResponse{
			Success: false,
			Error:   "обработка события не удалась",
			Message: outcome.FastErr.Error(),
		})
		return
	}

	writeTrackResponse(w, http.StatusOK, models.TrackResponse{
		Success:   true,
		Message:   "событие аналитики учтено",
		ShortCode: event.ShortCode,
	})
}

// writeTrackResponse пишет JSON-ответ с нужным статусом
func writeTrackResponse(w http.ResponseWriter, status int, resp models.TrackResponse) {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Ошибка кодирования ответа: %v", err)
	}
}
