package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linkrocket/linkrocket/pkg/handlers"
	"github.com/linkrocket/linkrocket/pkg/shutdown"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run запускает сервер и блокируется до graceful shutdown
func Run(ctx context.Context) error {

	// по умолчанию порт хоста 8080 (доступ в браузере на localhost:8080)
	port, ok := os.LookupEnv("LR_PORT")
	if !ok {
		port = "8080"
	}

	r := chi.NewRouter() // роутер

	// ядро: любой не служебный путь сначала проходит через диспетчер редиректов
	r.Use(handlers.RedirectMiddleware)

	// внутренний приёмник аналитики (проверку метода делает сам обработчик)
	r.HandleFunc("/api/track-edge", handlers.TrackEdge)

	// сводка по ссылке для дашборда
	r.Get("/api/stats/{short_code}", handlers.GetLinkStats)

	// метрики prometheus
	r.Handle("/metrics", promhttp.Handler())

	// origin: статика приложения, сюда же проваливаются промахи редиректов
	mainFiles := http.FileServer(http.Dir("web"))
	r.Handle("/*", mainFiles)

	// создаем экземпляр сервера
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%v", port),
		Handler: r,
	}

	// горутина для graceful shutdown
	go func() {

		// ждём сигнала отмены
		<-ctx.Done()
		log.Println("Получен сигнал завершения, начинаем graceful shutdown...")

		// переключаем флаг
		shutdown.StartShutdown()
		log.Println("Приложение помечено как останавливающееся")

		// останавливаем сервер (до окончания текущего соединения или 30 секунд)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Ошибка при остановке сервера: %v\n", err)
		} else {
			log.Println("Сервер корректно остановлен")
		}
	}()

	// запускаем сервер (блокирующий вызов)
	log.Printf("Запуск сервера на порту %s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ошибка сервера: %w", err)
	}

	return nil
}
