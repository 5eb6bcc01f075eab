package linksync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/linkrocket/linkrocket/pkg/cache"
	"github.com/linkrocket/linkrocket/pkg/models"
	"gorm.io/gorm"
)

// SyncSummary - итог массовой синхронизации ссылок в быстрое хранилище
type SyncSummary struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`  // сколько записей перенесено
	Errors  int  `json:"errors"` // сколько записей не удалось перенести
}

// LinkUpdate - частичное обновление записи о ссылке.
// Нетронутые поля остаются как были
type LinkUpdate struct {
	Destination *string
	Title       *string
	UserID      *string
}

// швы для тестов и для подмены стратегии записи
var (
	storeFn      = StoreLink
	cacheEnabled = cache.Enabled
)

// StoreLink сохраняет запись о ссылке в быстрое хранилище с длинным TTL.
// Вызывается сервисом управления ссылками при создании и при восстановлении кэша
func StoreLink(ctx context.Context, link *models.Link) error {

	if link.ShortCode == "" {
		return errors.New("пустой shortCode - нечего сохранять")
	}

	entry := &models.CacheLink{
		Destination: link.Destination,
		ShortCode:   link.ShortCode,
		UserID:      link.UserID,
		CreatedAt:   link.CreatedAt.UnixMilli(),
		Title:       link.Title,
	}

	if err := cache.StoreLink(ctx, link.ShortCode, entry, cache.LinkTTL()); err != nil {
		return fmt.Errorf("ошибка сохранения ссылки %s в кэш: %w", link.ShortCode, err)
	}

	return nil
}

// UpdateLink обновляет запись по схеме "прочитал-слил-записал":
// берём текущую запись, накладываем изменения и кладём обратно с полным TTL
func UpdateLink(ctx context.Context, shortCode string, updates LinkUpdate) error {

	existing, err := cache.GetLink(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("ошибка чтения ссылки %s из кэша: %w", shortCode, err)
	}
	if existing == nil {
		return fmt.Errorf("ссылка %s не найдена в кэше для обновления", shortCode)
	}

	if updates.Destination != nil {
		existing.Destination = *updates.Destination
	}
	if updates.Title != nil {
		existing.Title = *updates.Title
	}
	if updates.UserID != nil {
		existing.UserID = *updates.UserID
	}

	if err := cache.StoreLink(ctx, shortCode, existing, cache.LinkTTL()); err != nil {
		return fmt.Errorf("ошибка обновления ссылки %s в кэше: %w", shortCode, err)
	}

	return nil
}

// DeleteLink удаляет запись о ссылке из быстрого хранилища вместе
// с её сырыми событиями аналитики. Потеря событий не критична, поэтому
// их очистка идёт вдогонку и не превращается в ошибку удаления
func DeleteLink(ctx context.Context, shortCode string) error {

	if err := cache.DeleteLink(ctx, shortCode); err != nil {
		return fmt.Errorf("ошибка удаления ссылки %s из кэша: %w", shortCode, err)
	}

	if n, err := PurgeAnalytics(ctx, shortCode); err != nil {
		log.Printf("Очистка событий аналитики по %s не удалась: %v", shortCode, err)
	} else if n > 0 {
		log.Printf("Удалено %d событий аналитики по %s", n, shortCode)
	}

	return nil
}

// PurgeAnalytics удаляет сырые события аналитики по ссылке.
// Использует сканирование по шаблону - только для обслуживания, не для горячего пути
func PurgeAnalytics(ctx context.Context, shortCode string) (int, error) {

	keys, err := cache.Keys(ctx, fmt.Sprintf("analytics:%s:*", shortCode))
	if err != nil {
		return 0, fmt.Errorf("ошибка поиска событий аналитики по %s: %w", shortCode, err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := cache.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("ошибка удаления событий аналитики по %s: %w", shortCode, err)
	}

	return len(keys), nil
}

// SyncAllLinksToRedis переносит все ссылки из базы данных в быстрое хранилище.
// Нужна для первичного наполнения и восстановления после потери кэша.
// Ошибки по отдельным записям изолируются и подсчитываются, батч не падает
func SyncAllLinksToRedis(ctx context.Context, g *gorm.DB) (*SyncSummary, error) {

	if !cacheEnabled() {
		log.Println("Синхронизация невозможна: быстрое хранилище не сконфигурировано")
		return &SyncSummary{Success: false}, nil
	}
	if g == nil {
		return nil, errors.New("не передано подключение к базе данных")
	}

	log.Println("Начинаем массовую синхронизацию ссылок в Redis...")

	var links []models.Link
	if err := g.WithContext(ctx).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении ссылок: %w", err)
	}

	log.Printf("Найдено %d ссылок для синхронизации", len(links))

	summary := &SyncSummary{Success: true}

	for i := range links {
		if err := storeFn(ctx, &links[i]); err != nil {
			log.Printf("Ошибка синхронизации ссылки %s: %v", links[i].ShortCode, err)
			summary.Errors++
			continue
		}
		summary.Count++
	}

	log.Printf("Синхронизация завершена: перенесено %d, с ошибками %d", summary.Count, summary.Errors)

	return summary, nil
}
