package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	// для Prometheus метрик
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// прометеус метрики для консумера
var (
	// для RPS по этапам - считаем события на каждом этапе
	consumerStageEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clicks_consumer_stage_events_total",
		Help: "Количество событий кликов на каждом этапе конвейера",
	}, []string{"stage"}) // stage: read, sent, accepted, rejected, dlq

	// для времени ответа API
	consumerApiResponseTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clicks_consumer_api_response_duration_seconds",
		Help:    "Время ответа API трекинга на событие",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// выносим константы конфигурации по умолчанию, чтобы были на виду.
// для работы программы менять в .env
const (
	topicNameConst      = "clicks"            // имя топика, коррелируется с продюсером
	groupIDNameConst    = "linkrocket-ingest" // имя группы консумеров
	kafkaHostConst      = "kafka"             // имя службы (контейнера) в сети докера по умолчанию
	kafkaPortConst      = 9092                // порт, на котором сидит kafka по умолчанию
	serviceHostConst    = "service"           // имя службы (контейнера) в сети докера по умолчанию
	servicePortConst    = 8080                // порт принимающего api-сервиса по умолчанию
	maxRetriesConst     = 3                   // количество повторных попыток отправки события в api по умолчанию
	retryDelayBaseConst = 100                 // базовая задержка для попыток отправки по умолчанию, мс
	countClientConst    = 10                  // количество отправителей событий в api по умолчанию
	clientTimeoutConst  = 30                  // таймаут для HTTP клиента по умолчанию, с
	dlqTopicConst       = "clicks-DLQ"        // топик для DLQ
)

// ConsumerConfig описывает настройки с учётом переменных окружения
type ConsumerConfig struct {
	Topic          string        // имя топика (коррелируется с продюсером)
	GroupID        string        // имя группы
	KafkaHost      string        // имя службы (контейнера) в сети докера
	KafkaPort      int           // порт, на котором сидит kafka
	ServiceHost    string        // имя службы (контейнера) в сети докера
	ServicePort    int           // порт принимающего api-сервиса
	MaxRetries     int           // количество повторных попыток связи
	RetryDelayBase time.Duration // базовая задержка для попыток связи
	CountClient    int           // количество отправителей событий в api
	ClientTimeout  time.Duration // таймаут для HTTP клиента
	DlqTopic       string        // топик для DLQ
}

var cfg *ConsumerConfig

// TrackResult минимальный срез ответа api трекинга
type TrackResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// getEnvString проверяет наличие и корректность переменной окружения (строковое значение)
func getEnvString(envVariable, defaultValue string) string {

	value, ok := os.LookupEnv(envVariable)
	if ok {
		return value
	}

	return defaultValue
}

// getEnvInt проверяет наличие и корректность переменной окружения (числовое значение)
func getEnvInt(envVariable string, defaultValue int) int {

	value, ok := os.LookupEnv(envVariable)
	if ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("ошибка парсинга %s, используем значение по умолчанию: %d", envVariable, defaultValue)
	}

	return defaultValue
}

// readConfig уточняет конфигурацию с учётом переменных окружения,
// проверяет переменные окружения и устанавливает параметры работы
func readConfig() *ConsumerConfig {

	return &ConsumerConfig{
		Topic:          getEnvString("TOPIC_NAME_STR", topicNameConst),
		GroupID:        getEnvString("GROUP_ID_NAME_STR", groupIDNameConst),
		KafkaHost:      getEnvString("KAFKA_HOST_NAME", kafkaHostConst),
		KafkaPort:      getEnvInt("KAFKA_PORT_NUM", kafkaPortConst),
		ServiceHost:    getEnvString("SERVICE_HOST_NAME", serviceHostConst),
		ServicePort:    getEnvInt("SERVICE_PORT", servicePortConst),
		MaxRetries:     getEnvInt("MAX_RETRIES_NUM", maxRetriesConst),
		RetryDelayBase: time.Duration(getEnvInt("RETRY_DELEY_BASE_MS", retryDelayBaseConst)) * time.Millisecond,
		CountClient:    getEnvInt("COUNT_CLIENT", countClientConst),
		ClientTimeout:  time.Duration(getEnvInt("CLIENT_TIMEOUT_S", clientTimeoutConst)) * time.Second,
		DlqTopic:       getEnvString("DLQ_TOPIC_NAME_STR", dlqTopicConst),
	}
}

// consumer это основной код консумера: вычитывает события кликов из кафки
// и пулом воркеров досылает их в api трекинга
func consumer(ctx context.Context, errCh chan<- error, endCh chan struct{}) {

	// устанавливаем соединение с брокером для автосоздания DLQ
	conn, err := kafka.DialLeader(context.Background(), "tcp", fmt.Sprintf("%s:%d", cfg.KafkaHost, cfg.KafkaPort), cfg.DlqTopic, 0)
	if err != nil {
		log.Printf("ошибка создания DLQ-топика кафки: %v\n", err)
		errCh <- fmt.Errorf("ошибка создания DLQ-топика кафки: %v", err)
		// разблокируем main() и выходим
		close(errCh)
		close(endCh)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("Ошибка при закрытии консумером соединения с кафкой: %v", err)
		}
	}()

	// врайтер для DLQ
	dlqWriter := &kafka.Writer{
		Addr:  kafka.TCP(fmt.Sprintf("%s:%d", cfg.KafkaHost, cfg.KafkaPort)),
		Topic: cfg.DlqTopic,
	}
	defer func() {
		if err := dlqWriter.Close(); err != nil {
			log.Printf("ошибка при закрытии dlqWriter в консумере: %v", err)
		}
	}()

	// ридер из кафки
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{fmt.Sprintf("%s:%d", cfg.KafkaHost, cfg.KafkaPort)},
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("ошибка при закрытии ридера Kafka: %v", err)
		}
	}()

	log.Printf("Консумер подписан на топик '%s' в группе '%s'.\n", r.Config().Topic, r.Config().GroupID)
	log.Printf("DLQ writer консумера подписан на топик '%s'.\n", dlqWriter.Topic)
	log.Println("Начинаем вычитывать !!!")

	// канал для передачи событий воркерам
	messagesCh := make(chan *kafka.Message, cfg.CountClient*4)

	// wgPool для ожидания всех воркеров отправки
	var wgPool sync.WaitGroup

	// клиент для отправки вычитанных из кафки событий на api сервиса
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: cfg.CountClient, // cколько одновременных соединений держать открытыми
			DisableKeepAlives:   false,           // соединения переиспользуются, не создаются новые каждый раз
		},
		Timeout: cfg.ClientTimeout,
	}

	// определяем адрес отправки событий
	apiURL := fmt.Sprintf("http://%s:%d/api/track-edge", cfg.ServiceHost, cfg.ServicePort)

	// запускаем пул воркеров
	for i := 0; i < cfg.CountClient; i++ {
		wgPool.Add(1)
		go trackWorker(client, apiURL, r, dlqWriter, messagesCh, &wgPool)
	}

	inMsgCounter := 0 // счётчик входящих событий для логирования
	start := time.Now()

	for {

		msg, err := r.FetchMessage(ctx)
		if err != nil {
			// если контекст отменили (graceful shutdown)
			if errors.Is(err, context.Canceled) {
				log.Printf("consumer: чтение из kafka завершено, получено %d событий, за %v с.\n",
					inMsgCounter, time.Since(start).Seconds())
				errCh <- nil // оповещаем main() и выходим, воркеры дорабатывают уже вычитанное
			} else {
				log.Printf("consumer: чтение из kafka прервано ошибкой: %v, получено %d событий.\n", err, inMsgCounter)
				errCh <- err
			}
			close(errCh)
			break
		}

		consumerStageEvents.WithLabelValues("read").Inc()
		inMsgCounter++

		messagesCh <- &msg

		if inMsgCounter%10000 == 0 {
			log.Printf("consumer: получено %d событий, за %v с.\n", inMsgCounter, time.Since(start).Seconds())
		}
	}

	// закрываем канал, чтобы воркеры доработали очередь и завершились
	close(messagesCh)
	wgPool.Wait()

	close(endCh)
}

// trackWorker досылает события в api трекинга по одному: с повторами,
// по исчерпании повторов - в DLQ, успех коммитится пособытийно
func trackWorker(client *http.Client, apiURL string, r *kafka.Reader, dlqWriter *kafka.Writer, messagesCh <-chan *kafka.Message, wgPool *sync.WaitGroup) {

	defer wgPool.Done()

	for msg := range messagesCh {

		delivered := false

		// с повторами отправляем событие в api
		for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {

			req, err := http.NewRequest("POST", apiURL, bytes.NewReader(msg.Value))
			if err != nil {
				log.Printf("Ошибка создания запроса (попытка %d/%d): %v.\n", attempt, cfg.MaxRetries, err)
				continue
			}
			req.Header.Set("Content-Type", "application/json")
			// api принимает события только от своих
			req.Header.Set("X-Internal-Request", "true")

			requestStart := time.Now() // засекаем время
			resp, err := client.Do(req)

			// метрика времени ответа
			if err == nil && resp != nil {
				consumerApiResponseTime.Observe(time.Since(requestStart).Seconds())
			}

			if err != nil {
				log.Printf("Ошибка сети (попытка %d/%d): %v.\n", attempt, cfg.MaxRetries, err)
				if attempt < cfg.MaxRetries {
					delay := cfg.RetryDelayBase * time.Duration(attempt*attempt+attempt)
					time.Sleep(delay)
				}
				continue
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				log.Printf("Ошибка чтения ответа (попытка %d/%d): %v", attempt, cfg.MaxRetries, err)
				continue
			}

			consumerStageEvents.WithLabelValues("sent").Inc()

			// 4xx повторять бессмысленно: событие битое, сразу в DLQ
			if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
				consumerStageEvents.WithLabelValues("rejected").Inc()
				sendToDLQ(dlqWriter, msg, fmt.Sprintf("api rejected event: status %d", resp.StatusCode))
				consumerStageEvents.WithLabelValues("dlq").Inc()
				delivered = true // доставлять больше нечего, коммитим чтобы не зациклиться
				break
			}

			if resp.StatusCode == http.StatusOK {

				// api маскирует сбои обработки под 200 - смотрим поле success
				var result TrackResult
				if err := json.Unmarshal(body, &result); err != nil {
					log.Printf("trackWorker: от api получен неожиданный ответ - событие направлено в DLQ.")
					sendToDLQ(dlqWriter, msg, err.Error())
					consumerStageEvents.WithLabelValues("dlq").Inc()
					delivered = true
					break
				}

				if !result.Success {
					// обработка не удалась на стороне api, событие сохраняем в DLQ
					sendToDLQ(dlqWriter, msg, result.Error)
					consumerStageEvents.WithLabelValues("dlq").Inc()
				} else {
					consumerStageEvents.WithLabelValues("accepted").Inc()
				}

				delivered = true
				break
			}

			// если статус не 200, пробуем снова
			log.Printf("Попытка %d/%d: неожиданный статус %d", attempt, cfg.MaxRetries, resp.StatusCode)
			if attempt < cfg.MaxRetries {
				delay := cfg.RetryDelayBase * time.Duration(attempt*attempt+attempt)
				time.Sleep(delay)
			}
		}

		// если за повторы не получилось отправить событие в api, то отправляем его в DLQ
		if !delivered {
			sendToDLQ(dlqWriter, msg, "max retries exceeded")
			consumerStageEvents.WithLabelValues("dlq").Inc()
		}

		// коммитим пособытийно: событие либо принято api, либо лежит в DLQ
		if err := r.CommitMessages(context.Background(), *msg); err != nil {
			log.Printf("trackWorker: ошибка коммита события %s: %v", string(msg.Key), err)
		}
	}
}

// sendToDLQ уточняет заголовок события и отправляет его в DLQ
func sendToDLQ(w *kafka.Writer, msg *kafka.Message, reason string) {

	if msg == nil {
		log.Println("sendToDLQ: передан nil указатель на сообщение")
		return
	}

	keyStr := string(msg.Key)
	if msg.Key == nil {
		keyStr = "<nil-key>"
	}

	dlqMsg := kafka.Message{
		Key:   []byte(fmt.Sprintf("dlq-%s", keyStr)),
		Value: msg.Value,
		Headers: []kafka.Header{
			{Key: "original-topic", Value: []byte(msg.Topic)},
			{Key: "original-partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			{Key: "original-offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			{Key: "error-reason", Value: []byte(reason)},
			{Key: "timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
		},
	}

	// используем пустой контекст с целью сохранить все события, которые уже вычитал ридер
	if err := w.WriteMessages(context.Background(), dlqMsg); err != nil {
		log.Printf("ошибка отправки события %s в DLQ: %v", keyStr, err)
	}
}

func main() {

	// запускаем сервер для метрик
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		port := ":8889"
		log.Printf("Prometheus метрики доступны на http://localhost%s/metrics\n", port)
		if err := http.ListenAndServe(port, nil); err != nil && err != http.ErrServerClosed {
			log.Printf("Ошибка запуска сервера метрик: %v.\n", err)
		}
	}()

	// считываем конфигурацию
	cfg = readConfig()

	// контекст для отмены работы консумера
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// обработка сигналов ОС для graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// канал для передачи ошибки ридера при чтении событий из кафки
	errCh := make(chan error)

	// канал для передачи сигнала об окончании обработки событий
	endCh := make(chan struct{})

	// ждём сигнал отмены в фоне
	go func() {
		<-sigChan
		log.Println("Получен сигнал остановки, завершаем работу...")
		cancel()
	}()

	// запускаем основной код консумера
	go consumer(ctx, errCh, endCh)

	// ждём получения ошибки или nil из логики конвейера
	// ошибки: нет возможности читать события из брокера
	err := <-errCh
	if err != nil {
		log.Printf("консумер завершился с критической ошибкой: %v", err)
		cancel()
	}

	<-endCh // завершился последний воркер

	if err == nil {
		log.Println("Консумер корректно завершил работу.")
	}
}
