package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/linkrocket/linkrocket/pkg/cache"
	"github.com/linkrocket/linkrocket/pkg/db"
	"github.com/linkrocket/linkrocket/pkg/metrics"
	"github.com/linkrocket/linkrocket/pkg/models"
	"github.com/linkrocket/linkrocket/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStoreDisabled возвращается долговременным шагом, когда база данных недоступна
var ErrStoreDisabled = errors.New("долговременное хранилище не подключено")

// StepResult - результат одного шага конвейера
type StepResult struct {
	Step string // имя шага
	Err  error  // nil при успехе
}

// Outcome - сводный результат обработки события. Шаги независимы:
// ошибка одного не останавливает остальные, но фиксируется здесь
type Outcome struct {
	ShortCode  string
	Steps      []StepResult
	FastErr    error // первая настоящая ошибка быстрой группы (отключённый кэш не считается)
	DurableErr error // ошибка долговременной группы
}

// Process прогоняет событие клика через все шаги конвейера.
// Быстрая группа (Redis) и долговременная группа (Postgres) изолированы
// друг от друга: сбой любой из них не трогает вторую и никогда не
// превращается в ошибку исходного редиректа
func Process(ctx context.Context, event *models.ClickEvent) *Outcome {

	ctx, span := telemetry.Tracer.Start(ctx, "analytics.process")
	defer span.End()
	span.SetAttributes(attribute.String("short.code", event.ShortCode))

	outcome := &Outcome{ShortCode: event.ShortCode}

	// быстрая группа: сырое событие, счётчики, множества
	fastSteps := []struct {
		name string
		fn   func(context.Context, *models.ClickEvent) error
	}{
		{"raw_event", storeRawEvent},
		{"lifetime_counter", incrLifetimeCounter},
		{"daily_counter", incrDailyCounter},
		{"country_set", addCountry},
		{"city_set", addCity},
	}

	for _, step := range fastSteps {
		err := step.fn(ctx, event)
		outcome.Steps = append(outcome.Steps, StepResult{Step: step.name, Err: err})

		switch {
		case err == nil:
			metrics.AnalyticsSteps.WithLabelValues(step.name, "ok").Inc()
		case errors.Is(err, cache.ErrCacheDisabled):
			// мягкое отключение - не ошибка
			metrics.AnalyticsSteps.WithLabelValues(step.name, "skipped").Inc()
		default:
			metrics.AnalyticsSteps.WithLabelValues(step.name, "error").Inc()
			if outcome.FastErr == nil {
				outcome.FastErr = err
			}
		}
	}

	// долговременная группа: документ клика и агрегатные счётчики.
	// Её сбой логируется и глотается
	if err := storeDurable(ctx, event); err != nil {
		outcome.Steps = append(outcome.Steps, StepResult{Step: "durable", Err: err})
		outcome.DurableErr = err
		if errors.Is(err, ErrStoreDisabled) {
			metrics.AnalyticsSteps.WithLabelValues("durable", "skipped").Inc()
		} else {
			metrics.AnalyticsSteps.WithLabelValues("durable", "error").Inc()
			log.Printf("Долговременная запись аналитики не удалась (не критично): %v", err)
		}
	} else {
		outcome.Steps = append(outcome.Steps, StepResult{Step: "durable"})
		metrics.AnalyticsSteps.WithLabelValues("durable", "ok").Inc()
	}

	switch {
	case outcome.FastErr != nil:
		metrics.AnalyticsEvents.WithLabelValues("failed").Inc()
	case outcome.DurableErr != nil:
		metrics.AnalyticsEvents.WithLabelValues("degraded").Inc()
	default:
		metrics.AnalyticsEvents.WithLabelValues("ok").Inc()
	}

	return outcome
}

// storeRawEvent сохраняет сырое событие с TTL 90 дней
func storeRawEvent(ctx context.Context, event *models.ClickEvent) error {

	key := cache.AnalyticsKey(event.ShortCode, event.Timestamp)
	return cache.SetJSON(ctx, key, event, cache.AnalyticsTTL())
}

// incrLifetimeCounter инкрементирует счётчик кликов за всё время
func incrLifetimeCounter(ctx context.Context, event *models.ClickEvent) error {

	_, err := cache.Incr(ctx, cache.ClicksKey(event.ShortCode))
	return err
}

// incrDailyCounter инкрементирует суточный счётчик (дата UTC из таймстемпа события)
func incrDailyCounter(ctx context.Context, event *models.ClickEvent) error {

	_, err := cache.Incr(ctx, cache.DailyClicksKey(event.ShortCode, event.Timestamp))
	return err
}

// addCountry пополняет множество стран, "unknown" не учитывается
func addCountry(ctx context.Context, event *models.ClickEvent) error {

	if event.Geo.Country == "" || event.Geo.Country == "unknown" {
		return nil
	}

	return cache.SAdd(ctx, cache.CountriesKey(event.ShortCode), event.Geo.Country)
}

// addCity пополняет множество городов, "unknown" не учитывается
func addCity(ctx context.Context, event *models.ClickEvent) error {

	if event.Geo.City == "" || event.Geo.City == "unknown" {
		return nil
	}

	return cache.SAdd(ctx, cache.CitiesKey(event.ShortCode), event.Geo.City)
}

// storeDurable сохраняет документ клика и инкрементирует агрегатные
// счётчики одной транзакцией
func storeDurable(ctx context.Context, event *models.ClickEvent) error {

	if db.DB.Db == nil {
		return ErrStoreDisabled
	}

	device := DeviceClass(event.UserAgent)
	browser := BrowserName(event.UserAgent)

	click := buildClick(event, device, browser)

	// корзины агрегатных счётчиков
	increments := []models.StatCounter{
		{ShortCode: event.ShortCode, Dimension: "clicks", Bucket: "total"},
		{ShortCode: event.ShortCode, Dimension: "device", Bucket: device},
		{ShortCode: event.ShortCode, Dimension: "browser", Bucket: browser},
		{ShortCode: event.ShortCode, Dimension: "country", Bucket: orUnknown(event.Geo.Country)},
		{ShortCode: event.ShortCode, Dimension: "location", Bucket: locationBucket(event.Geo)},
		{ShortCode: event.ShortCode, Dimension: "referrer", Bucket: orDirect(event.Referer)},
	}

	return db.DB.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		if err := tx.Create(click).Error; err != nil {
			return fmt.Errorf("ошибка сохранения клика: %w", err)
		}

		for i := range increments {
			increments[i].Count = 1
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "short_code"}, {Name: "dimension"}, {Name: "bucket"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"count": gorm.Expr("link_stats.count + 1"),
				}),
			}).Create(&increments[i]).Error
			if err != nil {
				return fmt.Errorf("ошибка инкремента счётчика %s/%s: %w", increments[i].Dimension, increments[i].Bucket, err)
			}
		}

		return nil
	})
}

// buildClick собирает долговременный документ клика из события
func buildClick(event *models.ClickEvent, device, browser string) *models.Click {

	lat := ""
	if event.Geo.Latitude != nil {
		lat = *event.Geo.Latitude
	}
	lon := ""
	if event.Geo.Longitude != nil {
		lon = *event.Geo.Longitude
	}

	return &models.Click{
		ShortCode:      event.ShortCode,
		ClickedAt:      time.UnixMilli(event.Timestamp).UTC(),
		Device:         device,
		Browser:        browser,
		Referrer:       orDirect(event.Referer),
		UserAgent:      event.UserAgent,
		IP:             event.IP,
		Country:        orUnknown(event.Geo.Country),
		City:           orUnknown(event.Geo.City),
		Region:         orUnknown(event.Geo.Region),
		Latitude:       lat,
		Longitude:      lon,
		Timezone:       orUnknown(event.Geo.Timezone),
		Platform:       event.Platform,
		AcceptLanguage: event.AcceptLanguage,
	}
}

// locationBucket собирает составную корзину "город, регион"
func locationBucket(geo models.GeoData) string {

	return strings.Join([]string{orUnknown(geo.City), orUnknown(geo.Region)}, ", ")
}

func orUnknown(s string) string {

	if s == "" {
		return "unknown"
	}
	return s
}

func orDirect(s string) string {

	if s == "" {
		return "direct"
	}
	return s
}
