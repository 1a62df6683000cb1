package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env  string
	Port string

	JWTSecret string

	// Wagering limits, in dollars.
	MinBet decimal.Decimal
	MaxBet decimal.Decimal

	// Daily issuance cap for the virtual balance.
	DailyVirtualLimit decimal.Decimal

	AdminIDs []int64

	CryptoPayToken string
	CryptoPayURL   string

	StoreBackend string // "file" or "redis"
	UsersFile    string
	RedisURL     string
	RedisPass    string
	RedisDB      int
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		CryptoPayToken: os.Getenv("CRYPTOPAY_API_TOKEN"),
		CryptoPayURL:   getEnv("CRYPTOPAY_API_URL", "https://pay.crypt.bot/api"),
		StoreBackend:   getEnv("STORE_BACKEND", "file"),
		UsersFile:      getEnv("USERS_FILE", "users.json"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:      os.Getenv("REDIS_PASSWORD"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.MinBet, err = getDecimal("MIN_BET", "0.1"); err != nil {
		return nil, err
	}
	if cfg.MaxBet, err = getDecimal("MAX_BET", "1000"); err != nil {
		return nil, err
	}
	if cfg.DailyVirtualLimit, err = getDecimal("DAILY_VIRTUAL_LIMIT", "100"); err != nil {
		return nil, err
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		cfg.RedisDB, err = strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
		}
	}

	for _, part := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %v", part, err)
		}
		cfg.AdminIDs = append(cfg.AdminIDs, id)
	}

	return cfg, nil
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	v := getEnv(key, fallback)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}
