package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port            string
	UpstreamTimeout time.Duration

	// SOAP backend (WS_Vehiculo, WS_Reserva, ...)
	SOAPBaseURL   string
	SOAPNamespace string

	// MiBanca
	BankURL            string
	MerchantNationalID string
	PaymentTimeout     time.Duration

	// Flat tax applied on top of every rental subtotal.
	TaxRate decimal.Decimal

	// Checkout saga store and relay
	DatabaseDSN         string
	RunMigrations       bool
	RabbitMQURL         string
	RelayInterval       time.Duration
	CheckoutMaxAttempts int

	SessionLifetime     time.Duration
	SessionSecureCookie bool

	LogLevel string
}

func Load() (Config, error) {
	rate, err := decimal.NewFromString(getenv("TAX_RATE", "0.12"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TAX_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("invalid TAX_RATE %s: must be in [0, 1)", rate)
	}

	cfg := Config{
		Port:            getenv("PORT", "3000"),
		UpstreamTimeout: parseDuration(getenv("UPSTREAM_TIMEOUT", "10s"), 10*time.Second),

		SOAPBaseURL:   getenv("SOAP_BASE_URL", "http://urbandrivegestionsoap.runasp.net"),
		SOAPNamespace: getenv("SOAP_NAMESPACE", "http://tempuri.org/"),

		BankURL:            getenv("BANK_URL", "http://mibanca-api:8080"),
		MerchantNationalID: getenv("MERCHANT_NATIONAL_ID", "1790000000001"),
		PaymentTimeout:     parseDuration(getenv("PAYMENT_TIMEOUT", "15s"), 15*time.Second),

		TaxRate: rate,

		DatabaseDSN:         os.Getenv("DATABASE_DSN"),
		RunMigrations:       envBool("RUN_MIGRATIONS", true),
		RabbitMQURL:         os.Getenv("RABBITMQ_URL"),
		RelayInterval:       parseDuration(getenv("RELAY_INTERVAL", "30s"), 30*time.Second),
		CheckoutMaxAttempts: parseInt(getenv("CHECKOUT_MAX_ATTEMPTS", "5"), 5),

		SessionLifetime:     parseDuration(getenv("SESSION_LIFETIME", "12h"), 12*time.Hour),
		SessionSecureCookie: envBool("SESSION_SECURE_COOKIE", false),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
