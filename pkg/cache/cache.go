package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/linkrocket/linkrocket/pkg/models"
	"github.com/redis/go-redis/v9"
)

// выносим константы конфигурации по умолчанию, чтобы были на виду
const (
	linkTTLConst      = 60 * 60 * 24 * 365 // время жизни записи о ссылке по умолчанию, с (год)
	analyticsTTLConst = 60 * 60 * 24 * 90  // время жизни сырого события аналитики, с (90 дней)
)

// ErrCacheDisabled возвращается всеми операциями, если быстрое хранилище
// не сконфигурировано. Вызывающие обязаны считать это мягким отключением,
// а не фатальной ошибкой
var ErrCacheDisabled = errors.New("быстрое хранилище не сконфигурировано")

var (
	rdb      *redis.Client // клиент Redis
	initOnce sync.Once     // гарантия единственной инициализации на процесс
	linkTTL  time.Duration // время жизни записи о ссылке
)

// InitRedis запускает работу с Redis. Отсутствие REDIS_URL - не ошибка:
// редиректы и аналитика деградируют, но сервис продолжает работать
func InitRedis() error {

	var initErr error

	initOnce.Do(func() {

		urlRedis, ok := os.LookupEnv("REDIS_URL")
		if !ok || urlRedis == "" {
			log.Println("REDIS_URL не задан - кэш и аналитика отключены, работаем в режиме сквозного прохода")
			return
		}

		opts, err := redis.ParseURL(urlRedis)
		if err != nil {
			initErr = fmt.Errorf("проверьте .env файл, ошибка разбора REDIS_URL: %w", err)
			return
		}

		// токен доступа может прийти отдельной переменной (управляемые инсталляции)
		if token, ok := os.LookupEnv("REDIS_TOKEN"); ok && token != "" {
			opts.Password = token
		}

		ttlStr, ok := os.LookupEnv("REDIS_LINK_TTL")
		if !ok {
			ttlStr = strconv.Itoa(linkTTLConst)
		}
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil {
			initErr = fmt.Errorf("проверьте .env файл, ошибка назначения времени жизни ссылок в Redis: %w", err)
			return
		}
		linkTTL = time.Duration(ttl) * time.Second

		// заводим клиента Redis
		rdb = redis.NewClient(opts)

		// проверяем подключение
		if err = rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("ошибка подключения к Redis: %v\n", err)
			initErr = err
			rdb = nil
			return
		}

		log.Println("Подключение к Redis установлено.")
	})

	return initErr
}

// Enabled сообщает, доступно ли быстрое хранилище
func Enabled() bool {

	return rdb != nil
}

// ключи быстрого хранилища

// LinkKey - запись о ссылке
func LinkKey(shortCode string) string {
	return fmt.Sprintf("link:%s", shortCode)
}

// ClicksKey - счётчик кликов за всё время
func ClicksKey(shortCode string) string {
	return fmt.Sprintf("clicks:%s", shortCode)
}

// DailyClicksKey - суточный счётчик кликов, дата по UTC из таймстемпа события
func DailyClicksKey(shortCode string, timestampMs int64) string {
	date := time.UnixMilli(timestampMs).UTC().Format("2006-01-02")
	return fmt.Sprintf("clicks:%s:%s", shortCode, date)
}

// CountriesKey - множество стран, из которых приходили клики
func CountriesKey(shortCode string) string {
	return fmt.Sprintf("countries:%s", shortCode)
}

// CitiesKey - множество городов
func CitiesKey(shortCode string) string {
	return fmt.Sprintf("cities:%s", shortCode)
}

// AnalyticsKey - сырое событие клика
func AnalyticsKey(shortCode string, timestampMs int64) string {
	return fmt.Sprintf("analytics:%s:%d", shortCode, timestampMs)
}

// LinkTTL возвращает настроенное время жизни записи о ссылке
func LinkTTL() time.Duration {

	if linkTTL == 0 {
		return linkTTLConst * time.Second
	}

	return linkTTL
}

// AnalyticsTTL возвращает время жизни сырого события аналитики
func AnalyticsTTL() time.Duration {

	return analyticsTTLConst * time.Second
}

// GetLink получает запись о ссылке. Отсутствие ключа (протухший кэш или
// несуществующий код) возвращается как (nil, nil) - промах, не ошибка
func GetLink(ctx context.Context, shortCode string) (*models.CacheLink, error) {

	if rdb == nil {
		return nil, ErrCacheDisabled
	}

	data, err := rdb.Get(ctx, LinkKey(shortCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var link models.CacheLink
	if err := json.Unmarshal(data, &link); err != nil {
		// битые данные приравниваем к промаху и убираем мусор
		log.Printf("Битые данные в кэше: %s. Удаляем ключ.", LinkKey(shortCode))
		if delErr := rdb.Del(ctx, LinkKey(shortCode)).Err(); delErr != nil {
			log.Printf("Ошибка удаления битых данных из кэша %s: %v", LinkKey(shortCode), delErr)
		}
		return nil, nil
	}

	return &link, nil
}

// StoreLink сохраняет запись о ссылке с указанным временем жизни
func StoreLink(ctx context.Context, shortCode string, link *models.CacheLink, ttl time.Duration) error {

	if rdb == nil {
		return ErrCacheDisabled
	}

	jsonData, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных при добавлении в кэш: %w", err)
	}

	return rdb.Set(ctx, LinkKey(shortCode), jsonData, ttl).Err()
}

// DeleteLink удаляет запись о ссылке
func DeleteLink(ctx context.Context, shortCode string) error {

	if rdb == nil {
		return ErrCacheDisabled
	}

	return rdb.Del(ctx, LinkKey(shortCode)).Err()
}

// SetJSON сохраняет произвольное значение в JSON с временем жизни
// (используется для сырых событий аналитики)
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {

	if rdb == nil {
		return ErrCacheDisabled
	}

	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных при добавлении в кэш: %w", err)
	}

	return rdb.Set(ctx, key, jsonData, ttl).Err()
}

// Incr инкрементирует счётчик и возвращает новое значение
func Incr(ctx context.Context, key string) (int64, error) {

	if rdb == nil {
		return 0, ErrCacheDisabled
	}

	return rdb.Incr(ctx, key).Result()
}

// GetCounter читает счётчик, отсутствие ключа считается нулём
func GetCounter(ctx context.Context, key string) (int64, error) {

	if rdb == nil {
		return 0, ErrCacheDisabled
	}

	val, err := rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return val, err
}

// SAdd добавляет элемент в множество
func SAdd(ctx context.Context, key, member string) error {

	if rdb == nil {
		return ErrCacheDisabled
	}

	return rdb.SAdd(ctx, key, member).Err()
}

// SMembers возвращает элементы множества
func SMembers(ctx context.Context, key string) ([]string, error) {

	if rdb == nil {
		return nil, ErrCacheDisabled
	}

	return rdb.SMembers(ctx, key).Result()
}

// Keys возвращает ключи по шаблону через SCAN.
// Не для горячего пути - только утилиты синхронизации и обслуживания
func Keys(ctx context.Context, pattern string) ([]string, error) {

	if rdb == nil {
		return nil, ErrCacheDisabled
	}

	var keys []string
	iter := rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

// Del удаляет произвольные ключи
func Del(ctx context.Context, keys ...string) error {

	if rdb == nil {
		return ErrCacheDisabled
	}
	if len(keys) == 0 {
		return nil
	}

	return rdb.Del(ctx, keys...).Err()
}
