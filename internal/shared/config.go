package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	MetricsAddr  string
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	JWTSecret    string
	NotifyBase   string
	NotifyKey    string
	SweepWorkers int
	SweepLimit   int
	GracePeriod  time.Duration
	CacheTTL     time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/fixia?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		JWTSecret:    env("AUTH_JWT_SECRET", ""),
		NotifyBase:   env("NOTIFY_BASE_URL", ""),
		NotifyKey:    env("NOTIFY_API_KEY", ""),
		SweepWorkers: atoi("SWEEP_WORKERS", 8),
		SweepLimit:   atoi("SWEEP_LIMIT", 500),
		GracePeriod:  time.Duration(atoi("REVIEW_GRACE_DAYS", 7)) * 24 * time.Hour,
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("AUTH_JWT_SECRET is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
