package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// в тестах REDIS_URL не задаётся, поэтому клиент остаётся nil и все
// операции должны отвечать ErrCacheDisabled, не трогая сеть

// TestKeyBuilders тестирует сборку ключей быстрого хранилища
func TestKeyBuilders(t *testing.T) {

	assert.Equal(t, "link:promo24", LinkKey("promo24"))
	assert.Equal(t, "clicks:promo24", ClicksKey("promo24"))
	assert.Equal(t, "countries:promo24", CountriesKey("promo24"))
	assert.Equal(t, "cities:promo24", CitiesKey("promo24"))
	assert.Equal(t, "analytics:promo24:1724800000000", AnalyticsKey("promo24", 1724800000000))
}

// TestDailyClicksKey тестирует суточный ключ: дата берётся по UTC
// из таймстемпа события, а не из локального времени сервера
func TestDailyClicksKey(t *testing.T) {

	tests := []struct {
		name        string
		timestampMs int64
		expected    string
	}{
		{
			name:        "обычная дата",
			timestampMs: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC).UnixMilli(),
			expected:    "clicks:promo24:2026-08-15",
		},
		{
			name:        "последняя миллисекунда суток",
			timestampMs: time.Date(2026, 8, 15, 23, 59, 59, 999000000, time.UTC).UnixMilli(),
			expected:    "clicks:promo24:2026-08-15",
		},
		{
			name:        "первая миллисекунда следующих суток",
			timestampMs: time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC).UnixMilli(),
			expected:    "clicks:promo24:2026-08-16",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DailyClicksKey("promo24", tt.timestampMs))
		})
	}
}

// TestTTLDefaults тестирует значения времени жизни по умолчанию
func TestTTLDefaults(t *testing.T) {

	// год для ссылок
	assert.Equal(t, 365*24*time.Hour, LinkTTL())

	// 90 дней для сырых событий
	assert.Equal(t, 90*24*time.Hour, AnalyticsTTL())
}

// TestDisabledMode тестирует поведение операций при несконфигурированном хранилище
func TestDisabledMode(t *testing.T) {

	ctx := context.Background()

	assert.False(t, Enabled(), "без REDIS_URL хранилище должно быть отключено")

	link, err := GetLink(ctx, "promo24")
	assert.Nil(t, link)
	assert.ErrorIs(t, err, ErrCacheDisabled)

	err = StoreLink(ctx, "promo24", nil, time.Minute)
	assert.ErrorIs(t, err, ErrCacheDisabled)

	err = DeleteLink(ctx, "promo24")
	assert.ErrorIs(t, err, ErrCacheDisabled)

	err = SetJSON(ctx, "analytics:promo24:1", map[string]string{"a": "b"}, time.Minute)
	assert.ErrorIs(t, err, ErrCacheDisabled)

	n, err := Incr(ctx, "clicks:promo24")
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrCacheDisabled)

	n, err = GetCounter(ctx, "clicks:promo24")
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrCacheDisabled)

	err = SAdd(ctx, "countries:promo24", "DE")
	assert.ErrorIs(t, err, ErrCacheDisabled)

	members, err := SMembers(ctx, "countries:promo24")
	assert.Nil(t, members)
	assert.ErrorIs(t, err, ErrCacheDisabled)

	keys, err := Keys(ctx, "analytics:promo24:*")
	assert.Nil(t, keys)
	assert.ErrorIs(t, err, ErrCacheDisabled)

	err = Del(ctx, "clicks:promo24")
	assert.ErrorIs(t, err, ErrCacheDisabled)
}
