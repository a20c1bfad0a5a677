package config

import (
	"os"
	"strings"
	"time"
)

// Config captures server-level configuration so main stays lean. The audit
// switches here are read once at construction and injected into the recorder
// as explicit configuration, never consulted as ambient globals mid-flight.
type Config struct {
	Addr string

	// NoAudit suppresses all audit recording process-wide.
	NoAudit bool
	// LooseStringCompare enables the nil/empty-string equivalence for
	// free-text fields during change detection.
	LooseStringCompare bool

	JWTSigningKey string
	SessionTTL    time.Duration

	PostgresURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds the configuration from environment variables.
func FromEnv() Config {
	addr := os.Getenv("AUDITTRAIL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("AUDITTRAIL_KAFKA_TOPIC")
	if topic == "" {
		topic = "audit-records"
	}

	var brokers []string
	if raw := os.Getenv("AUDITTRAIL_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	key := os.Getenv("JWT_SIGNING_KEY")
	if key == "" {
		// Development default, override in production.
		key = "dev-secret-key-change-in-production"
	}

	return Config{
		Addr:               addr,
		NoAudit:            os.Getenv("NO_AUDIT") == "true",
		LooseStringCompare: os.Getenv("AUDITTRAIL_LOOSE_STRING_COMPARE") == "true",
		JWTSigningKey:      key,
		SessionTTL:         30 * time.Minute,
		PostgresURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       brokers,
		KafkaTopic:         topic,
	}
}
