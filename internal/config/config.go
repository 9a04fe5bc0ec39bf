package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string // CASHBEAT_HTTP_ADDR (default ":8080")
	NATSURL     string // CASHBEAT_NATS_URL (optional, empty = bridge disabled)
	CatalogPath string // CASHBEAT_CATALOG (optional, empty = built-in seed data)
	AuthToken   string // CASHBEAT_AUTH_TOKEN (optional, empty = auth disabled)

	// Simulation cadence
	TxIntervalMin      time.Duration // CASHBEAT_TX_INTERVAL_MIN (default 8s)
	TxIntervalMax      time.Duration // CASHBEAT_TX_INTERVAL_MAX (default 15s)
	AnomalyIntervalMin time.Duration // CASHBEAT_ANOMALY_INTERVAL_MIN (default 30s)
	AnomalyIntervalMax time.Duration // CASHBEAT_ANOMALY_INTERVAL_MAX (default 60s)
	ForecastInterval   time.Duration // CASHBEAT_FORECAST_INTERVAL (default 1m)

	// Dispatcher latency window
	DelayMin time.Duration // CASHBEAT_DELAY_MIN (default 1ms)
	DelayMax time.Duration // CASHBEAT_DELAY_MAX (default 15ms)

	// Seed for all simulation RNGs. 0 = seed from the clock.
	Seed int64 // CASHBEAT_SEED
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:    envOrDefault("CASHBEAT_HTTP_ADDR", ":8080"),
		NATSURL:     os.Getenv("CASHBEAT_NATS_URL"),
		CatalogPath: os.Getenv("CASHBEAT_CATALOG"),
		AuthToken:   os.Getenv("CASHBEAT_AUTH_TOKEN"),
	}

	durations := []struct {
		dst      *time.Duration
		key      string
		fallback string
	}{
		{&c.TxIntervalMin, "CASHBEAT_TX_INTERVAL_MIN", "8s"},
		{&c.TxIntervalMax, "CASHBEAT_TX_INTERVAL_MAX", "15s"},
		{&c.AnomalyIntervalMin, "CASHBEAT_ANOMALY_INTERVAL_MIN", "30s"},
		{&c.AnomalyIntervalMax, "CASHBEAT_ANOMALY_INTERVAL_MAX", "60s"},
		{&c.ForecastInterval, "CASHBEAT_FORECAST_INTERVAL", "1m"},
		{&c.DelayMin, "CASHBEAT_DELAY_MIN", "1ms"},
		{&c.DelayMax, "CASHBEAT_DELAY_MAX", "15ms"},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(envOrDefault(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("%s: must be positive", d.key)
		}
		*d.dst = v
	}

	if c.TxIntervalMax < c.TxIntervalMin {
		return nil, fmt.Errorf("CASHBEAT_TX_INTERVAL_MAX is below CASHBEAT_TX_INTERVAL_MIN")
	}
	if c.AnomalyIntervalMax < c.AnomalyIntervalMin {
		return nil, fmt.Errorf("CASHBEAT_ANOMALY_INTERVAL_MAX is below CASHBEAT_ANOMALY_INTERVAL_MIN")
	}
	if c.DelayMax < c.DelayMin {
		return nil, fmt.Errorf("CASHBEAT_DELAY_MAX is below CASHBEAT_DELAY_MIN")
	}

	if s := os.Getenv("CASHBEAT_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("CASHBEAT_SEED: %w", err)
		}
		c.Seed = seed
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
