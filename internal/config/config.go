// Package config loads planner configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds the planner tunables loaded from environment variables.
type Config struct {
	NSimulations     int
	MaxRolloutSteps  int
	NTrajectories    int
	Beta             float64
	Gamma            float64
	OcclusionPrior   float64
	MergeOrder       string
	AllowConcealment bool
	StoreResults     string
	Seed             int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		NSimulations:     envInt("N_SIMULATIONS", 30),
		MaxRolloutSteps:  envInt("MAX_ROLLOUT_STEPS", 300),
		NTrajectories:    envInt("N_TRAJECTORIES", 2),
		Beta:             envFloat("BETA", 1.0),
		Gamma:            envFloat("GAMMA", 1.0),
		OcclusionPrior:   envFloat("PZ_PRIOR", 0.1),
		MergeOrder:       envOrDefault("BELIEF_MERGE_ORDER", "increasing_id"),
		AllowConcealment: envBool("ALLOW_CONCEALMENT", true),
		StoreResults:     envOrDefault("STORE_RESULTS", "final"),
		Seed:             int64(envInt("SEED", 0)),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
