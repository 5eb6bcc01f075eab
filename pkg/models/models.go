package models

import (
	"time"

	"gorm.io/gorm"
)

// Ссылка - запись о короткой ссылке в базе данных.
// Источник истины принадлежит сервису управления ссылками,
// ядро редиректов читает эти записи и не меняет их.
type Link struct {
	gorm.Model
	ShortCode   string `json:"shortCode" gorm:"uniqueIndex;not null" validate:"required"`
	Destination string `json:"destination" gorm:"not null" validate:"required,url"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
}

// CacheLink - проекция ссылки для быстрого хранилища (Redis).
// Хранится по ключу link:{shortCode} с длинным TTL
type CacheLink struct {
	Destination string `json:"destination"`
	ShortCode   string `json:"shortCode"`
	UserID      string `json:"userId"`
	CreatedAt   int64  `json:"createdAt"`
	Title       string `json:"title"`
}

// GeoData - геоданные клика, извлечённые из заголовков запроса.
// Строковые поля по умолчанию "unknown", координаты могут быть null
type GeoData struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    *string `json:"latitude"`
	Longitude   *string `json:"longitude"`
	Timezone    string  `json:"timezone"`
}

// ClickEvent - событие клика, формируется диспетчером редиректов
// и передаётся в приёмник аналитики (HTTP или кафка)
type ClickEvent struct {
	ShortCode      string  `json:"shortCode" validate:"required"`
	Timestamp      int64   `json:"timestamp" validate:"required"` // миллисекунды epoch
	UserAgent      string  `json:"userAgent"`
	Referer        string  `json:"referer"`
	IP             string  `json:"ip"`
	Geo            GeoData `json:"geo"`
	AcceptLanguage string  `json:"acceptLanguage"`
	Platform       string  `json:"platform"`
}

// Клик - долговременная запись о переходе, по одной строке на клик,
// чтобы не растить один безразмерный документ
type Click struct {
	ID             uint      `json:"-" gorm:"primarykey"`
	CreatedAt      time.Time `json:"-"`
	ShortCode      string    `json:"shortCode" gorm:"index;not null"`
	ClickedAt      time.Time `json:"clickedAt"`
	Device         string    `json:"device" gorm:"size:20"`
	Browser        string    `json:"browser" gorm:"size:50"`
	Referrer       string    `json:"referrer"`
	UserAgent      string    `json:"userAgent"`
	IP             string    `json:"ip" gorm:"size:64"`
	Country        string    `json:"country" gorm:"size:100"`
	City           string    `json:"city" gorm:"size:100"`
	Region         string    `json:"region" gorm:"size:100"`
	Latitude       string    `json:"latitude" gorm:"size:32"`
	Longitude      string    `json:"longitude" gorm:"size:32"`
	Timezone       string    `json:"timezone" gorm:"size:64"`
	Platform       string    `json:"platform" gorm:"size:64"`
	AcceptLanguage string    `json:"acceptLanguage"`
}

// StatCounter - агрегатный счётчик по измерению (устройство, браузер,
// страна, "город, регион", источник перехода). Одна строка на корзину,
// инкремент через ON CONFLICT, чтобы обновление было одним запросом
type StatCounter struct {
	ID        uint   `json:"-" gorm:"primarykey"`
	ShortCode string `json:"shortCode" gorm:"uniqueIndex:idx_link_stats_code_dim_bucket;size:255"`
	Dimension string `json:"dimension" gorm:"uniqueIndex:idx_link_stats_code_dim_bucket;size:50"`
	Bucket    string `json:"bucket" gorm:"uniqueIndex:idx_link_stats_code_dim_bucket;size:255"`
	Count     int64  `json:"count"`
}

// TableName - счётчики лежат в таблице link_stats
func (StatCounter) TableName() string {
	return "link_stats"
}

// TrackResponse - ответ приёмника аналитики. Код ответа почти всегда 200,
// о бизнес-ошибках говорит поле success, а не статус
type TrackResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ShortCode string `json:"shortCode,omitempty"`
}

// LinkStats - сводка по ссылке для чтения дашбордом в реальном времени
type LinkStats struct {
	ShortCode   string   `json:"shortCode"`
	TotalClicks int64    `json:"totalClicks"`
	TodayClicks int64    `json:"todayClicks"`
	Countries   []string `json:"countries"`
	Cities      []string `json:"cities"`
}
