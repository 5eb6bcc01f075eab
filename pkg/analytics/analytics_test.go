package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/linkrocket/linkrocket/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() *models.ClickEvent {
	return &models.ClickEvent{
		ShortCode: "promo24",
		Timestamp: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC).UnixMilli(),
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5) Mobile Safari/604.1",
		Referer:   "https://t.me/somechannel",
		IP:        "203.0.113.7",
		Geo: models.GeoData{
			Country:     "DE",
			CountryCode: "DE",
			Region:      "BE",
			City:        "Berlin",
			Timezone:    "Europe/Berlin",
		},
		AcceptLanguage: "de-DE,de;q=0.8",
		Platform:       "\"iOS\"",
	}
}

// TestProcessWithoutStores тестирует конвейер при отключённых хранилищах:
// отключение и кэша, и базы - деградация, а не ошибка обработки
func TestProcessWithoutStores(t *testing.T) {

	outcome := Process(context.Background(), testEvent())
	require.NotNil(t, outcome)

	assert.Equal(t, "promo24", outcome.ShortCode)

	// отключённый кэш не считается ошибкой быстрой группы
	assert.NoError(t, outcome.FastErr)

	// долговременная группа сообщает об отключении хранилища
	assert.ErrorIs(t, outcome.DurableErr, ErrStoreDisabled)

	// все пять быстрых шагов плюс долговременный
	assert.Len(t, outcome.Steps, 6)
}

// TestGeoSetsSkipUnknown тестирует, что "unknown" не попадает в множества:
// шаг завершается успехом до обращения к хранилищу
func TestGeoSetsSkipUnknown(t *testing.T) {

	ctx := context.Background()

	event := testEvent()
	event.Geo.Country = "unknown"
	event.Geo.City = ""

	// пропуск не трогает хранилище, поэтому ошибки отключённого кэша нет
	assert.NoError(t, addCountry(ctx, event))
	assert.NoError(t, addCity(ctx, event))

	// известная география доходит до хранилища (здесь оно отключено)
	event.Geo.Country = "DE"
	event.Geo.City = "Berlin"
	assert.Error(t, addCountry(ctx, event))
	assert.Error(t, addCity(ctx, event))
}

// TestBuildClick тестирует сборку долговременного документа клика
func TestBuildClick(t *testing.T) {

	event := testEvent()
	lat := "52.52"
	lon := "13.405"
	event.Geo.Latitude = &lat
	event.Geo.Longitude = &lon

	click := buildClick(event, "mobile", "Safari")

	assert.Equal(t, "promo24", click.ShortCode)
	assert.Equal(t, "mobile", click.Device)
	assert.Equal(t, "Safari", click.Browser)
	assert.Equal(t, "https://t.me/somechannel", click.Referrer)
	assert.Equal(t, "DE", click.Country)
	assert.Equal(t, "Berlin", click.City)
	assert.Equal(t, "52.52", click.Latitude)
	assert.Equal(t, "13.405", click.Longitude)
	assert.Equal(t, time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC), click.ClickedAt)
}

// TestBuildClickDefaults тестирует подстановки для пустых полей
func TestBuildClickDefaults(t *testing.T) {

	event := &models.ClickEvent{
		ShortCode: "promo24",
		Timestamp: time.Now().UnixMilli(),
	}

	click := buildClick(event, "desktop", "Other")

	assert.Equal(t, "direct", click.Referrer)
	assert.Equal(t, "unknown", click.Country)
	assert.Equal(t, "unknown", click.City)
	assert.Equal(t, "unknown", click.Region)
	assert.Equal(t, "", click.Latitude)
	assert.Equal(t, "", click.Longitude)
}

// TestLocationBucket тестирует составную корзину "город, регион"
func TestLocationBucket(t *testing.T) {

	tests := []struct {
		name     string
		geo      models.GeoData
		expected string
	}{
		{
			name:     "город и регион известны",
			geo:      models.GeoData{City: "Berlin", Region: "BE"},
			expected: "Berlin, BE",
		},
		{
			name:     "регион неизвестен",
			geo:      models.GeoData{City: "Berlin"},
			expected: "Berlin, unknown",
		},
		{
			name:     "всё неизвестно",
			geo:      models.GeoData{},
			expected: "unknown, unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, locationBucket(tt.geo))
		})
	}
}
