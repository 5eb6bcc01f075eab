package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/segmentio/kafka-go"

	"github.com/linkrocket/linkrocket/pkg/models"
)

const (
	topicConst  = "clicks"         // топик событий кликов, коррелируется с консумером
	brokerConst = "localhost:9092" // адрес брокера по умолчанию
	countConst  = 100              // количество генерируемых событий по умолчанию
)

// популярные коды ссылок для генерации: пусть статистика копится
// на небольшом множестве, как в реальном трафике
var shortCodes = []string{"promo24", "docs", "gh-repo", "yt-intro", "sale"}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/126.0.0.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPad; CPU OS 17_5 like Mac OS X) Tablet Safari/604.1",
	"Mozilla/5.0 (X11; Linux x86_64) Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) Safari/605.1.15",
}

// fakeClickEvent генерирует правдоподобное событие клика
func fakeClickEvent() *models.ClickEvent {

	return &models.ClickEvent{
		ShortCode: shortCodes[gofakeit.Number(0, len(shortCodes)-1)],
		Timestamp: time.Now().UnixMilli(),
		UserAgent: userAgents[gofakeit.Number(0, len(userAgents)-1)],
		Referer:   gofakeit.RandomString([]string{"direct", "https://t.me/somechannel", "https://news.ycombinator.com/", "https://google.com/"}),
		IP:        gofakeit.IPv4Address(),
		Geo: models.GeoData{
			Country:     gofakeit.CountryAbr(),
			CountryCode: gofakeit.CountryAbr(),
			Region:      gofakeit.StateAbr(),
			City:        gofakeit.City(),
			Timezone:    gofakeit.TimeZoneRegion(),
		},
		AcceptLanguage: gofakeit.RandomString([]string{"en-US,en;q=0.9", "ru-RU,ru;q=0.9", "de-DE,de;q=0.8", "unknown"}),
		Platform:       gofakeit.RandomString([]string{"\"Windows\"", "\"macOS\"", "\"Android\"", "\"iOS\"", "unknown"}),
	}
}

func main() {

	broker := brokerConst
	if v, ok := os.LookupEnv("KAFKA_BROKER_ADDR"); ok {
		broker = v
	}

	count := countConst
	if v, ok := os.LookupEnv("EVENTS_COUNT"); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			count = parsed
		}
	}

	conn, err := kafka.DialLeader(context.Background(), "tcp", broker, topicConst, 0)
	if err != nil {
		log.Fatalf("ошибка создания топика кафки: %v\n", err)
	}
	defer conn.Close()

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{broker},
		Topic:   topicConst,
	})
	defer w.Close()

	for i := 0; i < count; i++ {

		event := fakeClickEvent()

		value, err := json.Marshal(event)
		if err != nil {
			log.Printf("ошибка сериализации события №%d: %v\n", i+1, err)
			continue
		}

		msg := kafka.Message{
			Key:   []byte(fmt.Sprintf("click-%s-%d", event.ShortCode, i+1)),
			Value: value,
			Time:  time.Now(),
		}

		err = w.WriteMessages(context.Background(), msg)
		if err != nil {
			log.Printf("ошибка отправления события в кафку '%s': %v\n", event.ShortCode, err)
		} else {
			fmt.Printf("Отправленное в кафку событие: %s -> %s, %s\n", event.ShortCode, event.Geo.Country, event.IP)
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("Producer finished.")
}
