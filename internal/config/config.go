package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"subforecast/internal/models/response_models"
)

// Config carries everything the engine needs from the environment. All
// policy switches default to off and the completion mode to cash,
// mirroring how the host bot ships.
type Config struct {
	PostgresURL string
	Port        string
	JWTSecret   string

	SkipFrozen    bool
	ExcludeTrials bool

	CompletionMode response_models.CompletionMode

	// RenewalProbability, if set, is a single global probability applied to
	// every bucket without an explicit override. Nil means "learn it".
	RenewalProbability *float64
	// ProbOverrides keys may be plan names, group codes or buckets; they
	// take precedence over both the global probability and the learned
	// estimate.
	ProbOverrides map[string]float64

	HistoryMonthsBack int
	RenewalGraceDays  int
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		Port:              envOr("PORT", "8080"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SkipFrozen:        envBool("SKIP_FROZEN"),
		ExcludeTrials:     envBool("EXCLUDE_TRIALS"),
		CompletionMode:    response_models.CompletionMode(envOr("COMPLETION_MODE", string(response_models.ModeCash))),
		HistoryMonthsBack: envInt("HISTORY_MONTHS_BACK", 3),
		RenewalGraceDays:  envInt("RENEWAL_GRACE_DAYS", 0),
	}

	switch cfg.CompletionMode {
	case response_models.ModeCash, response_models.ModeAccrual, response_models.ModePlanVsForecast:
	default:
		return nil, fmt.Errorf("COMPLETION_MODE %q is not one of cash/accrual/plan_vs_forecast", cfg.CompletionMode)
	}

	if raw := os.Getenv("RENEWAL_PROBABILITY"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || p < 0 || p > 1 {
			return nil, fmt.Errorf("RENEWAL_PROBABILITY %q must be a float in [0,1]", raw)
		}
		cfg.RenewalProbability = &p
	}

	if raw := os.Getenv("PROB_OVERRIDES"); raw != "" {
		overrides := map[string]float64{}
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return nil, fmt.Errorf("PROB_OVERRIDES is not a JSON object: %w", err)
		}
		cfg.ProbOverrides = overrides
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func envInt(key string, def int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}
