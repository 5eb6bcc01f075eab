package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// прометеус метрики сервиса
var (
	// для RPS по исходам редиректа
	RedirectRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkrocket_redirect_requests_total",
		Help: "Количество запросов по исходам обработки",
	}, []string{"outcome"}) // outcome: bypass, hit, miss, error

	// для времени запроса к быстрому хранилищу на горячем пути
	LookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "linkrocket_lookup_duration_seconds",
		Help:    "Время запроса записи о ссылке из быстрого хранилища",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	// для событий аналитики целиком
	AnalyticsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkrocket_analytics_events_total",
		Help: "Количество обработанных событий аналитики",
	}, []string{"result"}) // result: ok, degraded, failed

	// для шагов конвейера аналитики
	AnalyticsSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkrocket_analytics_steps_total",
		Help: "Количество шагов конвейера аналитики по результатам",
	}, []string{"step", "result"}) // result: ok, error, skipped
)
