package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	HTTPTimeout time.Duration
	MetricsAddr string
	Storage     string // mysql|memory
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	CacheTTL    time.Duration

	LockBackend    string // local|redis
	LockTTL        time.Duration
	LockWait       time.Duration
	BookingRetries int
	BookingRPS     int
	// AllowUnbounded keeps accepting bookings on room types whose capacity
	// was never configured (totalRooms 0 and no inventory rows).
	AllowUnbounded bool

	InventoryWorkers int
	SeedWorkers      int
	SeedHotels       int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric setting")
		}
		return def
	}
	c := Config{
		AppEnv:           env("APP_ENV", "prod"),
		LogLevel:         env("LOG_LEVEL", "info"),
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		HTTPTimeout:      time.Duration(atoi("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
		MetricsAddr:      env("METRICS_ADDR", ":9100"),
		Storage:          env("STORAGE", "mysql"),
		MySQLDSN:         env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:        env("REDIS_ADDR", ""),
		RedisPass:        env("REDIS_PASSWORD", ""),
		RedisDB:          atoi("REDIS_DB", 0),
		JWTSecret:        env("JWT_SECRET", ""),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		LockBackend:      env("LOCK_BACKEND", "local"),
		LockTTL:          time.Duration(atoi("LOCK_TTL_SECONDS", 10)) * time.Second,
		LockWait:         time.Duration(atoi("LOCK_WAIT_MS", 2000)) * time.Millisecond,
		BookingRetries:   atoi("BOOKING_RETRIES", 3),
		BookingRPS:       atoi("BOOKING_RPS", 50),
		AllowUnbounded:   boolEnv("AVAILABILITY_UNBOUNDED_UNCONFIGURED", false),
		InventoryWorkers: atoi("INVENTORY_WORKERS", 8),
		SeedWorkers:      atoi("SEED_WORKERS", 4),
		SeedHotels:       atoi("SEED_HOTELS", 3),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; using the development secret")
		c.JWTSecret = "dev"
	}
	if c.LockBackend == "redis" && c.RedisAddr == "" {
		log.Warn().Msg("LOCK_BACKEND=redis without REDIS_ADDR; falling back to local locks")
		c.LockBackend = "local"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func boolEnv(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
