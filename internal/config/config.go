package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	TaxRatePercent        float64
	AuthSecret            string
	AccessTokenTTLMinutes int
	ManagerPIN            string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] WARN: could not read .env: %v", err)
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	taxRate, err := strconv.ParseFloat(getEnv("TAX_RATE_PERCENT", "18"), 64)
	if err != nil || taxRate < 0 || taxRate > 100 {
		taxRate = 18
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		TaxRatePercent:        taxRate,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		ManagerPIN:            strings.TrimSpace(os.Getenv("MANAGER_PIN")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
