package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	JWTSecret []byte
	TokenTTL  time.Duration

	UploadDir    string
	UploadPrefix string

	HardwareTransport string
	HardwareURL       string
	HardwareTimeout   time.Duration
	MQTTBroker        string
	MQTTTopic         string
	MQTTClientID      string
	MQTTUser          string
	MQTTPassword      string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	TransportHTTP = "http"
	TransportMQTT = "mqtt"
)

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "gpio_shop"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 5000),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		StoreDriver:   strings.ToLower(EnvDefault("STORE_DRIVER", StoreMongo)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: EnvDefault("MONGODB_DATABASE", "gpio_shop"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:  EnvDurationDefault("TOKEN_TTL", time.Hour),

		UploadDir:    EnvDefault("UPLOAD_DIR", "uploads"),
		UploadPrefix: EnvDefault("UPLOAD_PREFIX", "/uploads"),

		HardwareTransport: strings.ToLower(EnvDefault("HARDWARE_TRANSPORT", TransportHTTP)),
		HardwareURL:       EnvDefault("HARDWARE_URL", "http://raspberrypi.local:5000/control_gpio"),
		HardwareTimeout:   EnvDurationDefault("HARDWARE_TIMEOUT", 0),
		MQTTBroker:        os.Getenv("MQTT_BROKER"),
		MQTTTopic:         EnvDefault("MQTT_TOPIC", "gpio/control"),
		MQTTClientID:      EnvDefault("MQTT_CLIENT_ID", "gpio_shop"),
		MQTTUser:          os.Getenv("MQTT_USER"),
		MQTTPassword:      os.Getenv("MQTT_PASSWORD"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),
	}
}

// MustLoad is Load plus the checks the server cannot start without.
func MustLoad() Config {
	cfg := Load()

	MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	switch cfg.StoreDriver {
	case StoreMongo:
		MustNonEmpty(cfg.MongoURI, "MONGODB_URI")
	case StorePostgres, StoreSQLite:
		MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	default:
		log.Fatalf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.HardwareTransport == TransportMQTT {
		MustNonEmpty(cfg.MQTTBroker, "MQTT_BROKER")
	}

	return cfg
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
