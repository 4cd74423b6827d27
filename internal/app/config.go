package app

import "os"

// Config описывает настройки запуска приложения.
// Пустые значения включают режим по умолчанию: in-memory хранилище,
// mock-валидатор клиентов, без Kafka и без Redis.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers string

	CustomersAPIURL   string
	CustomersAPIToken string
}

// DefaultConfig возвращает базовые адреса HTTP API и метрик.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
	}
}

// ReadConfig собирает конфигурацию из переменных окружения ORDERHUB_*.
func ReadConfig() Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr = envOr("ORDERHUB_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envOr("ORDERHUB_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = os.Getenv("ORDERHUB_POSTGRES_DSN")
	cfg.RedisAddr = os.Getenv("ORDERHUB_REDIS_ADDR")
	cfg.KafkaBrokers = os.Getenv("ORDERHUB_KAFKA_BROKERS")
	cfg.CustomersAPIURL = os.Getenv("ORDERHUB_CUSTOMERS_API_URL")
	cfg.CustomersAPIToken = os.Getenv("ORDERHUB_CUSTOMERS_API_TOKEN")
	return cfg
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
