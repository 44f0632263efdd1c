package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telemetry source
	TelemetryBaseURL string
	PollInterval     time.Duration
	RequestTimeout   time.Duration
	HistoryLimit     int
	LinkStaleTimeout time.Duration
	// Thresholds for the alert flag
	AlertCODMax       float64
	AlertPhenolMax    float64
	AlertOilGreaseMax float64
	// Dashboard
	HTTPAddr   string
	Timezone   string
	SinkBuffer int
	// Simulator
	SimulatorAddr string
	// Telegram
	TelegramBotToken string
	TelegramChatID   string
	// RabbitMQ
	RabbitMQURL        string
	RabbitMQExchange   string
	RabbitMQRoutingKey string
	// MQTT
	MQTTBroker   string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string
	MQTTClientID string
	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Firebase history mirror
	FirebaseDbUrl              string
	FirebaseServiceAccountJSON string
	FirebaseBatchSize          int
	FirebaseBatchTimeout       int
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		TelemetryBaseURL:           getEnv("TELEMETRY_BASE_URL", "http://localhost:5000"),
		PollInterval:               getEnvDuration("POLL_INTERVAL", 2*time.Second),
		RequestTimeout:             getEnvDuration("REQUEST_TIMEOUT", 5*time.Second),
		HistoryLimit:               getEnvInt("HISTORY_LIMIT", 20),
		LinkStaleTimeout:           getEnvDuration("LINK_STALE_TIMEOUT", 10*time.Second),
		AlertCODMax:                getEnvFloat("ALERT_COD_MAX", 500),
		AlertPhenolMax:             getEnvFloat("ALERT_PHENOL_MAX", 5),
		AlertOilGreaseMax:          getEnvFloat("ALERT_OIL_MAX", 50),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8080"),
		Timezone:                   getEnv("TIMEZONE", "Asia/Kolkata"),
		SinkBuffer:                 getEnvInt("SINK_BUFFER", 64),
		SimulatorAddr:              getEnv("SIMULATOR_ADDR", ":5000"),
		TelegramBotToken:           getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:             getEnv("TELEGRAM_CHAT_ID", ""),
		RabbitMQURL:                getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:           getEnv("RABBITMQ_EXCHANGE", "hydramind"),
		RabbitMQRoutingKey:         getEnv("RABBITMQ_ROUTING_KEY", "etp.telemetry"),
		MQTTBroker:                 getEnv("MQTT_BROKER", ""),
		MQTTTopic:                  getEnv("MQTT_TOPIC", "hydramind/etp/snapshot"),
		MQTTUsername:               getEnv("MQTT_USERNAME", ""),
		MQTTPassword:               getEnv("MQTT_PASSWORD", ""),
		MQTTClientID:               getEnv("MQTT_CLIENT_ID", "hydramind-dashboard"),
		RedisAddr:                  getEnv("REDIS_ADDR", ""),
		RedisPassword:              getEnv("REDIS_PASSWORD", ""),
		RedisDB:                    getEnvInt("REDIS_DB", 0),
		FirebaseDbUrl:              getEnv("FIREBASE_DB_URL", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseBatchSize:          getEnvInt("FIREBASE_BATCH_SIZE", 20),
		FirebaseBatchTimeout:       getEnvInt("FIREBASE_BATCH_TIMEOUT", 30),
	}

	return config, nil
}

// TelegramEnabled reports whether alert notifications are configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// FirebaseEnabled reports whether the history mirror is configured
func (c *Config) FirebaseEnabled() bool {
	return c.FirebaseDbUrl != "" && c.FirebaseServiceAccountJSON != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("2s") or bare milliseconds ("2000")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
