package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/linkrocket/linkrocket/pkg/analytics"
	"github.com/linkrocket/linkrocket/pkg/bypass"
	"github.com/linkrocket/linkrocket/pkg/cache"
	"github.com/linkrocket/linkrocket/pkg/metrics"
	"github.com/linkrocket/linkrocket/pkg/models"
	"github.com/linkrocket/linkrocket/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// швы для тестов: подмена запроса к хранилищу и отправки аналитики
var (
	lookupLink    = cache.GetLink
	dispatchEvent = DispatchAnalytics
)

// RedirectMiddleware - ядро обработки редиректов. Каждый запрос получает
// ровно один исход: пропуск мимо (bypass), редирект 307 или сквозной
// проход к origin. Любая внутренняя ошибка трактуется как промах -
// пользователь всегда должен куда-то попасть
func RedirectMiddleware(next http.Handler) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		path := r.URL.Path

		// служебные пути и статику не трогаем: ни запроса к хранилищу, ни аналитики
		if bypass.ShouldBypass(path) {
			metrics.RedirectRequests.WithLabelValues("bypass").Inc()
			next.ServeHTTP(w, r)
			return
		}

		shortCode := bypass.ExtractShortCode(path)
		if shortCode == "" {
			metrics.RedirectRequests.WithLabelValues("bypass").Inc()
			next.ServeHTTP(w, r)
			return
		}

		if !tryRedirect(w, r, shortCode) {
			// промах или ошибка - отдаём запрос origin как есть,
			// 404 и прочая логика решаются ниже по цепочке
			next.ServeHTTP(w, r)
		}
	})
}

// tryRedirect выполняет запрос к быстрому хранилищу и, при попадании,
// пишет редирект и отправляет событие аналитики. Возвращает false,
// если ответ не написан и запрос нужно передать дальше
func tryRedirect(w http.ResponseWriter, r *http.Request, shortCode string) (handled bool) {

	// паника внутри горячего пути не должна ронять запрос: fail open
	defer func() {
		if p := recover(); p != nil {
			log.Printf("Паника при обработке редиректа %s: %v", shortCode, p)
			handled = false
		}
	}()

	ctx, span := telemetry.Tracer.Start(r.Context(), "redirect.lookup")
	defer span.End()
	span.SetAttributes(attribute.String("short.code", shortCode))

	start := time.Now()
	link, err := lookupLink(ctx, shortCode)
	metrics.LookupDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// отключённый кэш уже отлогирован один раз при старте
		if err != cache.ErrCacheDisabled {
			log.Printf("Ошибка запроса к быстрому хранилищу для %s: %v", shortCode, err)
			metrics.RedirectRequests.WithLabelValues("error").Inc()
		} else {
			metrics.RedirectRequests.WithLabelValues("miss").Inc()
		}
		return false
	}

	if link == nil || link.Destination == "" {
		metrics.RedirectRequests.WithLabelValues("miss").Inc()
		return false
	}

	// попадание: редирект уходит немедленно, аналитика - вдогонку.
	// 307 сохраняет метод исходного запроса
	w.Header().Set("Cache-Control", "public, max-age=60, s-maxage=300")
	w.Header().Set("X-Redirect-By", "edge-middleware")
	w.Header().Set("X-Short-Code", shortCode)
	http.Redirect(w, r, link.Destination, http.StatusTemporaryRedirect)

	metrics.RedirectRequests.WithLabelValues("hit").Inc()

	// ответ клиенту не ждёт отправку и не узнает о её судьбе
	dispatchEvent(BuildClickEvent(r, shortCode))

	return true
}

// DispatchAnalytics отправляет событие в конвейер аналитики отцепленной
// горутиной. Ошибки обработки живут внутри горутины и никогда не
// возвращаются в поток редиректа
func DispatchAnalytics(event *models.ClickEvent) {

	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.Printf("Паника при отправке аналитики для %s: %v", event.ShortCode, p)
			}
		}()

		// редирект уже ушёл, отмены быть не должно - чистый контекст
		outcome := analytics.Process(context.Background(), event)
		if outcome.FastErr != nil {
			log.Printf("Отправка аналитики для %s не удалась: %v", event.ShortCode, outcome.FastErr)
		}
	}()
}

// BuildClickEvent собирает событие клика из данных запроса.
// Всё берётся из заголовков - никаких внешних вызовов на горячем пути
func BuildClickEvent(r *http.Request, shortCode string) *models.ClickEvent {

	return &models.ClickEvent{
		ShortCode:      shortCode,
		Timestamp:      time.Now().UnixMilli(),
		UserAgent:      headerOr(r, "User-Agent", "unknown"),
		Referer:        headerOr(r, "Referer", "direct"),
		IP:             clientIP(r),
		Geo:            extractGeo(r),
		AcceptLanguage: headerOr(r, "Accept-Language", "unknown"),
		Platform:       headerOr(r, "Sec-CH-UA-Platform", "unknown"),
	}
}

// extractGeo читает геоданные из заголовков, проставленных платформой
// или обратным прокси. Недостающие поля - "unknown", координаты - null
func extractGeo(r *http.Request) models.GeoData {

	country := firstHeader(r, "X-Vercel-IP-Country", "CF-IPCountry")

	return models.GeoData{
		Country:     orDefault(country, "unknown"),
		CountryCode: orDefault(country, "unknown"),
		Region:      orDefault(r.Header.Get("X-Vercel-IP-Country-Region"), "unknown"),
		City:        orDefault(r.Header.Get("X-Vercel-IP-City"), "unknown"),
		Latitude:    headerPtr(r, "X-Vercel-IP-Latitude"),
		Longitude:   headerPtr(r, "X-Vercel-IP-Longitude"),
		Timezone:    orDefault(r.Header.Get("X-Vercel-IP-Timezone"), "unknown"),
	}
}

// clientIP определяет адрес клиента с учётом прокси-заголовков
func clientIP(r *http.Request) string {

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// первый адрес в цепочке - исходный клиент
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}

	if r.RemoteAddr != "" {
		// отрезаем порт, если он есть
		if idx := strings.LastIndexByte(r.RemoteAddr, ':'); idx > 0 {
			return r.RemoteAddr[:idx]
		}
		return r.RemoteAddr
	}

	return "unknown"
}

func headerOr(r *http.Request, name, def string) string {

	return orDefault(r.Header.Get(name), def)
}

func firstHeader(r *http.Request, names ...string) string {

	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}

	return ""
}

func headerPtr(r *http.Request, name string) *string {

	if v := r.Header.Get(name); v != "" {
		return &v
	}

	return nil
}

func orDefault(s, def string) string {

	if s == "" {
		return def
	}

	return s
}
