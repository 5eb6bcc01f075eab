package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linkrocket/linkrocket/pkg/cache"
	"github.com/linkrocket/linkrocket/pkg/models"
	"github.com/linkrocket/linkrocket/pkg/shutdown"
)

// GetLinkStats выдаёт сводку по ссылке из быстрого хранилища:
// клики за всё время, клики за сегодня, множества стран и городов.
// Читает только Redis - долговременное хранилище на этом пути не нужно
func GetLinkStats(w http.ResponseWriter, r *http.Request) {

	// проверяем не останавливается ли сервер
	if shutdown.IsShuttingDown() {
		http.Error(w, "Сервер находится в процессе остановки. Операция невозможна.", http.StatusServiceUnavailable)
		return
	}

	shortCode := chi.URLParam(r, "short_code")
	if shortCode == "" {
		log.Printf("Ошибка: short_code не указан")
		http.Error(w, "Параметр short_code обязателен", http.StatusBadRequest)
		return
	}

	stats := models.LinkStats{
		ShortCode: shortCode,
		Countries: []string{},
		Cities:    []string{},
	}

	// при отключённом кэше отдаём нули, а не ошибку
	if cache.Enabled() {
		ctx := r.Context()

		if total, err := cache.GetCounter(ctx, cache.ClicksKey(shortCode)); err == nil {
			stats.TotalClicks = total
		} else {
			log.Printf("Ошибка чтения счётчика кликов для %s: %v", shortCode, err)
		}

		if today, err := cache.GetCounter(ctx, cache.DailyClicksKey(shortCode, time.Now().UnixMilli())); err == nil {
			stats.TodayClicks = today
		} else {
			log.Printf("Ошибка чтения суточного счётчика для %s: %v", shortCode, err)
		}

		if countries, err := cache.SMembers(ctx, cache.CountriesKey(shortCode)); err == nil {
			stats.Countries = countries
		} else {
			log.Printf("Ошибка чтения множества стран для %s: %v", shortCode, err)
		}

		if cities, err := cache.SMembers(ctx, cache.CitiesKey(shortCode)); err == nil {
			stats.Cities = cities
		} else {
			log.Printf("Ошибка чтения множества городов для %s: %v", shortCode, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ") // добавляем отступы для читаемости
	if err := encoder.Encode(stats); err != nil {
		log.Printf("Ошибка при формировании ответа: %v", err)
	}
}
