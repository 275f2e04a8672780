package db

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func LoadPostgresConfig() (PostgresConfig, error) {
	cfg := PostgresConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		User:            getEnv("DB_USER", "postgres"),
		Password:        os.Getenv("DB_PASSWORD"),
		DBName:          getEnv("DB_NAME", "canteen"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		ConnMaxLifetime: time.Hour,
	}

	var err error
	if cfg.Port, err = getInt("DB_PORT", 5432); err != nil {
		return PostgresConfig{}, err
	}
	if cfg.MaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return PostgresConfig{}, err
	}
	if cfg.MaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10); err != nil {
		return PostgresConfig{}, err
	}
	if v := os.Getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		if cfg.ConnMaxLifetime, err = time.ParseDuration(v); err != nil {
			return PostgresConfig{}, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err)
		}
	}
	return cfg, nil
}

// DSN renders the config as a lib/pq connection URL. Credentials are
// escaped, so passwords may contain URL delimiters.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
