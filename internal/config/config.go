// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Env holds the configuration values for the application.
type Env struct {
	Region          string
	Table           string
	ContractsBucket string
	AssetsBucket    string
	PresignTTL      time.Duration
	CertificateTTL  time.Duration
	BookingURL      string
	DevBypassAuth   bool
	LogLevel        string
}

// MustLoad reads the environment (optionally a .env file in dev) and
// returns an Env struct, panicking on missing required values.
func MustLoad() Env {
	_ = godotenv.Load(".env")

	ttlSec, _ := strconv.Atoi(get("PRESIGN_TTL_SECONDS", "300"))
	certSec, _ := strconv.Atoi(get("CERTIFICATE_TTL_SECONDS", "3600"))
	return Env{
		Region:          get("AWS_REGION", "us-east-1"),
		Table:           must("DDB_TABLE"),
		ContractsBucket: must("CONTRACTS_BUCKET"),
		AssetsBucket:    must("ASSETS_BUCKET"),
		PresignTTL:      time.Duration(ttlSec) * time.Second,
		CertificateTTL:  time.Duration(certSec) * time.Second,
		BookingURL:      get("BOOKING_SERVICE_URL", ""),
		DevBypassAuth:   get("DEV_BYPASS_AUTH", "") == "true",
		LogLevel:        get("LOG_LEVEL", "info"),
	}
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// must returns the value of the environment variable k or panics if not set.
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic(fmt.Errorf("missing env %s", k))
	}
	return v
}
