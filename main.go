package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/linkrocket/linkrocket/pkg/cache"
	"github.com/linkrocket/linkrocket/pkg/db"
	"github.com/linkrocket/linkrocket/pkg/linksync"
	"github.com/linkrocket/linkrocket/pkg/server"
	"github.com/linkrocket/linkrocket/pkg/telemetry"
)

func main() {

	var err error

	// загружаем переменные окружения
	err = godotenv.Load()
	if err != nil {
		fmt.Printf("ошибка загрузки .env файла: %v\n", err)
	}

	// инициализируем трейсинг, без него тоже работаем
	tp, err := telemetry.InitTracing("linkrocket")
	if err != nil {
		log.Printf("Не удалось инициализировать трейсинг: %v. Работаем без него.\n", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Printf("Ошибка при остановке провайдера трейсов: %v.\n", err)
			}
		}()
	}

	// подключаем базу данных. Редиректы живут из кэша, поэтому
	// недоступная база - деградация аналитики, а не причина не стартовать
	err = db.ConnectDB()
	if err != nil {
		fmt.Printf("ошибка вызова db.ConnectDB: %v - долговременная аналитика отключена\n", err)
	}
	defer db.CloseDB()

	// инициализируем кэш
	err = cache.InitRedis()
	if err != nil {
		fmt.Printf("кэш отвалился, ошибка вызова cache.InitRedis: %v\n", err)
	}

	// по запросу восстанавливаем кэш из базы (первичное наполнение
	// или восстановление после потери Redis)
	if os.Getenv("SYNC_ON_START") == "true" && db.DB.Db != nil {
		summary, err := linksync.SyncAllLinksToRedis(context.Background(), db.DB.Db)
		if err != nil {
			log.Printf("Ошибка массовой синхронизации ссылок: %v", err)
		} else {
			log.Printf("Стартовая синхронизация: перенесено %d, с ошибками %d", summary.Count, summary.Errors)
		}
	}

	// создаем контекст для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// запускаем сервер (блокируется до завершения)
	if err := server.Run(ctx); err != nil {
		log.Printf("ошибка запуска сервера: %v\n", err)
		stop()
	}

	// даём фоновым отправкам аналитики шанс дописаться
	time.Sleep(getDrainTimeout())

	log.Println("Приложение корректно завершено")
}

// getDrainTimeout определяет паузу на дописывание фоновой аналитики
// в зависимости от времени суток (ночью трафика меньше)
func getDrainTimeout() time.Duration {

	hour := time.Now().Hour()

	switch {
	case hour >= 0 && hour < 6: // ночью
		return 1 * time.Second
	case hour >= 18: // вечером
		return 3 * time.Second
	default: // днем
		return 5 * time.Second
	}
}
