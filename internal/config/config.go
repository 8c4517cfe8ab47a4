package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type MySQL struct {
	User            string
	Password        string
	Host            string
	Port            string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (m MySQL) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

type Redis struct {
	Host     string
	Port     string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a redis host was configured.
func (r Redis) Enabled() bool { return r.Host != "" }

func (r Redis) Addr() string { return r.Host + ":" + r.Port }

type RabbitMQ struct {
	URL      string
	Exchange string
}

type Admin struct {
	UserName string
	Email    string
	Password string
}

type Config struct {
	Port            string
	LogLevel        string
	MySQL           MySQL
	Redis           Redis
	RabbitMQ        RabbitMQ
	JWTSecret       string
	JWTTTL          time.Duration
	OrderTimeout    time.Duration
	IdempotencyTTL  time.Duration
	SizedCategories []string
	CORSOrigins     []string
	PaypalClientID  string
	Admin           Admin
	CacheWarmup     int
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var errs []error
	cfg := &Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		MySQL: MySQL{
			User:            os.Getenv("MYSQL_USER"),
			Password:        os.Getenv("MYSQL_PASSWORD"),
			Host:            getenv("MYSQL_HOST", "localhost"),
			Port:            getenv("MYSQL_PORT", "3306"),
			Database:        getenv("MYSQL_DATABASE", "shop"),
			MaxOpenConns:    intEnv("MYSQL_MAX_OPEN_CONNS", 100, &errs),
			MaxIdleConns:    intEnv("MYSQL_MAX_IDLE_CONNS", 20, &errs),
			ConnMaxLifetime: durationEnv("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute, &errs),
			ConnMaxIdleTime: durationEnv("MYSQL_CONN_MAX_IDLE_TIME", time.Minute, &errs),
		},
		Redis: Redis{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getenv("REDIS_PORT", "6379"),
			DB:       intEnv("REDIS_DB", 0, &errs),
			CacheTTL: durationEnv("CACHE_TTL", time.Minute, &errs),
		},
		RabbitMQ: RabbitMQ{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: getenv("RABBITMQ_EXCHANGE", "shop.exchange"),
		},
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTTTL:          durationEnv("JWT_TTL", 7*24*time.Hour, &errs),
		OrderTimeout:    durationEnv("ORDER_TIMEOUT", 5*time.Second, &errs),
		IdempotencyTTL:  durationEnv("IDEMPOTENCY_TTL", 24*time.Hour, &errs),
		SizedCategories: listEnv("SIZED_CATEGORIES", []string{"Top", "Bottom"}),
		CORSOrigins:     listEnv("CORS_ORIGIN", []string{"*"}),
		PaypalClientID:  getenv("PAYPAL_CLIENT_ID", "sb"),
		Admin: Admin{
			UserName: getenv("ADMIN_USERNAME", "admin"),
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		CacheWarmup: intEnv("CACHE_WARMUP", 20, &errs),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.OrderTimeout <= 0 {
		errs = append(errs, errors.New("ORDER_TIMEOUT must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func listEnv(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
