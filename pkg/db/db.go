package db

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// выносим константы конфигурации по умолчанию, чтобы были на виду
const (
	hostDBConst     = "postgres"   // имя службы (контейнера) в сети докера по умолчанию
	portDBConst     = "5432"       // порт, на котором сидит база данных по умолчанию
	nameDBConst     = "linkrocket" // имя базы данных по умолчанию
	passwordDBConst = "postgres"   // пароль базы данных по умолчанию
	userDBConst     = "postgres"   // имя пользователя базы данных по умолчанию
)

// DBConfig описывает настройки с учётом переменных окружения
type DBConfig struct {
	HostDB     string // имя службы (контейнера) в сети докера
	PortDB     string // порт, на котором сидит база данных
	NameDB     string // имя базы данных
	PasswordDB string // пароль базы данных
	UserDB     string // имя пользователя базы данных
}

var cfgDB *DBConfig

type Dbinstance struct {
	Db *gorm.DB
}

var DB Dbinstance

// getEnvString проверяет наличие и корректность переменной окружения (строковое значение)
func getEnvString(envVariable, defaultValue string) string {

	value, ok := os.LookupEnv(envVariable)
	if ok {
		return value
	}

	return defaultValue
}

// readConfig уточняет конфигурацию с учётом переменных окружения
func readConfig() *DBConfig {

	return &DBConfig{
		HostDB:     getEnvString("DB_HOST_NAME", hostDBConst),
		PortDB:     getEnvString("DB_PORT", portDBConst),
		NameDB:     getEnvString("DB_NAME", nameDBConst),
		PasswordDB: getEnvString("DB_PASSWORD", passwordDBConst),
		UserDB:     getEnvString("DB_USER", userDBConst),
	}
}

// ConnectDB устанавливает соединение с базой данных
func ConnectDB() error {

	// считываем конфигурацию
	cfgDB = readConfig()

	// dsn - URL для соединения с базой данных. db имя сервиса БД из docker-compose
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfgDB.HostDB, cfgDB.UserDB, cfgDB.PasswordDB, cfgDB.NameDB, cfgDB.PortDB)

	// создаём подключение к базе данных
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Printf("Не удалось подключиться к базе данных: %v", err)
		return fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	log.Println("Подключение к базе данных установлено.")

	log.Println("Запуск миграций.")

	// выполняем миграцию моделей
	err = runMigrations(db)
	if err != nil {
		log.Printf("Ошибка при выполнении миграций: %v", err)
		return fmt.Errorf("ошибка миграции: %w", err)
	}

	log.Println("Миграции успешно применены.")

	DB = Dbinstance{
		Db: db,
	}

	return nil
}

// runMigrations выполняет последовательное создание всех таблиц базы данных
// таблицы создаются в порядке зависимостей: сначала родительские, затем дочерние
func runMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		createLinksTable,     // таблица ссылок (источник истины)
		createClicksTable,    // таблица кликов (по строке на переход)
		createLinkStatsTable, // таблица агрегатных счётчиков
	}

	// выполняем каждую миграцию последовательно
	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// createLinksTable создает таблицу links с записями о коротких ссылках.
// Записи создаёт сервис управления ссылками, ядро редиректов их только читает
func createLinksTable(db *gorm.DB) error {
	sql := `
		-- создаем таблицу ссылок, если она не существует
		CREATE TABLE IF NOT EXISTS links (
			id SERIAL PRIMARY KEY,                          -- автоинкрементный идентификатор
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP, -- метка времени создания записи (gorm.Model)
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP, -- метка времени обновления записи (gorm.Model)
			deleted_at TIMESTAMP,                           -- мягкое удаление (gorm.Model)
			short_code VARCHAR(255) UNIQUE NOT NULL,        -- короткий код (сегмент пути)
			destination TEXT NOT NULL,                      -- абсолютный URL назначения
			user_id VARCHAR(255),                           -- владелец ссылки (непрозрачен для редиректов)
			title VARCHAR(255)                              -- название ссылки
		);

		-- создаем индексы для оптимизации запросов
		CREATE UNIQUE INDEX IF NOT EXISTS idx_links_short_code ON links(short_code);
		CREATE INDEX IF NOT EXISTS idx_links_user_id ON links(user_id);
	`

	return db.Exec(sql).Error
}

// createClicksTable создает таблицу clicks
// каждый переход сохраняется отдельной строкой, чтобы не растить один безразмерный документ
func createClicksTable(db *gorm.DB) error {
	sql := `
		-- создаем таблицу кликов
		CREATE TABLE IF NOT EXISTS clicks (
			id SERIAL PRIMARY KEY,                          -- автоинкрементный идентификатор
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP, -- метка времени создания записи
			short_code VARCHAR(255) NOT NULL,               -- код ссылки, по которой был переход
			clicked_at TIMESTAMP,                           -- время клика из события
			device VARCHAR(20),                             -- класс устройства: mobile, tablet, desktop
			browser VARCHAR(50),                            -- имя браузера по сигнатуре user-agent
			referrer TEXT,                                  -- источник перехода ("direct" если нет)
			user_agent TEXT,                                -- исходная строка user-agent
			ip VARCHAR(64),                                 -- адрес клиента
			country VARCHAR(100),                           -- страна по геоданным
			city VARCHAR(100),                              -- город по геоданным
			region VARCHAR(100),                            -- регион по геоданным
			latitude VARCHAR(32),                           -- широта (пустая строка если нет)
			longitude VARCHAR(32),                          -- долгота (пустая строка если нет)
			timezone VARCHAR(64),                           -- часовой пояс клиента
			platform VARCHAR(64),                           -- платформа из client hints
			accept_language TEXT                            -- языки клиента
		);

		-- создаем индексы для выборок аналитики
		CREATE INDEX IF NOT EXISTS idx_clicks_short_code ON clicks(short_code);
		CREATE INDEX IF NOT EXISTS idx_clicks_clicked_at ON clicks(clicked_at);
	`

	return db.Exec(sql).Error
}

// createLinkStatsTable создает таблицу link_stats с агрегатными счётчиками
// по одной строке на корзину измерения, инкремент идёт через ON CONFLICT
func createLinkStatsTable(db *gorm.DB) error {
	sql := `
		-- создаем таблицу агрегатных счётчиков
		CREATE TABLE IF NOT EXISTS link_stats (
			id SERIAL PRIMARY KEY,        -- автоинкрементный идентификатор
			short_code VARCHAR(255),      -- код ссылки
			dimension VARCHAR(50),        -- измерение: clicks, device, browser, country, location, referrer
			bucket VARCHAR(255),          -- корзина внутри измерения (например "mobile" или "Berlin, BE")
			count BIGINT DEFAULT 0        -- значение счётчика
		);

		-- уникальность корзины нужна для UPSERT-инкремента
		CREATE UNIQUE INDEX IF NOT EXISTS idx_link_stats_code_dim_bucket ON link_stats(short_code, dimension, bucket);
	`

	return db.Exec(sql).Error
}

// CloseDB закрывает соединение с базой
func CloseDB() {

	if DB.Db == nil {
		return
	}

	// получаем объект *sql.DB для закрытия соединения
	sqlDB, err := DB.Db.DB()
	if err != nil {
		log.Printf("Ошибка при получении SQL соединения: %v", err)
		return
	}

	// закрываем соединение
	if err := sqlDB.Close(); err != nil {
		log.Printf("Предупреждение: ошибка при закрытии БД: %v", err)
	} else {
		log.Println("БД успешно отключена.")
	}
}
