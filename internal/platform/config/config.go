package config

import (
	"os"
	"strings"
	"time"

	"custodia/pkg/domain"
)

// Server captures process-level configuration. FromEnv keeps main lean; every
// backend is optional and the service falls back to in-memory stores when the
// corresponding URL is unset.
type Server struct {
	Addr          string
	AdminIdentity domain.Identity
	JWTSigningKey string

	PostgresURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string

	// AllowConsumerTransfers relaxes the peer-transfer rule so two
	// non-role-holding parties may trade directly instead of going
	// through the marketplace.
	AllowConsumerTransfers bool

	VerifyCacheTTL time.Duration
	RequestTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CUSTODIA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	admin := os.Getenv("CUSTODIA_ADMIN_IDENTITY")
	if admin == "" {
		admin = "custodia-admin"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("CUSTODIA_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("CUSTODIA_KAFKA_TOPIC")
	if topic == "" {
		topic = "custodia.notifications"
	}

	cacheTTL := 30 * time.Second
	if raw := os.Getenv("CUSTODIA_VERIFY_CACHE_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cacheTTL = d
		}
	}

	return Server{
		Addr:                   addr,
		AdminIdentity:          domain.Identity(admin),
		JWTSigningKey:          jwtSigningKey,
		PostgresURL:            os.Getenv("CUSTODIA_POSTGRES_URL"),
		RedisURL:               os.Getenv("CUSTODIA_REDIS_URL"),
		KafkaBrokers:           brokers,
		KafkaTopic:             topic,
		AllowConsumerTransfers: os.Getenv("CUSTODIA_ALLOW_CONSUMER_TRANSFERS") == "true",
		VerifyCacheTTL:         cacheTTL,
		RequestTimeout:         30 * time.Second,
	}
}
