package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL      string // あれば POSTGRES_* より優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	RedisAddr string

	KafkaBrokers []string
	KafkaTopic   string

	CarrierBaseURL     string
	CarrierAPIID       string
	CarrierAPIToken    string
	CarrierMaxAttempts int
	DispatchInterval   time.Duration // NOTIFYを取りこぼしたときの保険の周期

	MediaCloudName string
	MediaAPIKey    string
	MediaAPISecret string

	PushURL string

	PublicBaseURL string // 再販リンクの共有URLに使う

	OTelEnabled bool
	LogLevel    string
	LogJSON     bool
}

func (c Config) IsProd() bool { return c.GoEnv == "prod" }

// Loadは環境変数から読む。godotenv.Load は main で済ませておく
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxAttempts, err := atoiDefault("CARRIER_MAX_ATTEMPTS", 8)
	if err != nil {
		return Config{}, err
	}
	interval, err := durationDefault("DISPATCH_INTERVAL", 15*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: os.Getenv("GO_ENV"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "order.events"),

		CarrierBaseURL:     os.Getenv("CARRIER_BASE_URL"),
		CarrierAPIID:       os.Getenv("CARRIER_API_ID"),
		CarrierAPIToken:    os.Getenv("CARRIER_API_TOKEN"),
		CarrierMaxAttempts: maxAttempts,
		DispatchInterval:   interval,

		MediaCloudName: os.Getenv("MEDIA_CLOUD_NAME"),
		MediaAPIKey:    os.Getenv("MEDIA_API_KEY"),
		MediaAPISecret: os.Getenv("MEDIA_API_SECRET"),

		PushURL: getenv("PUSH_URL", "https://exp.host/--/api/v2/push/send"),

		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		OTelEnabled: os.Getenv("OTEL_ENABLED") == "true",
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogJSON:     os.Getenv("LOG_JSON") == "true" || os.Getenv("GO_ENV") == "prod",
	}

	//必須チェック
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.CarrierBaseURL == "" {
		return Config{}, fmt.Errorf("CARRIER_BASE_URL is required")
	}
	if cfg.CarrierMaxAttempts < 1 {
		return Config{}, fmt.Errorf("CARRIER_MAX_ATTEMPTS must be >= 1")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required")
	}

	return cfg, nil
}

// DSN は gorm / lib/pq どちらでも使える形で返す
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
