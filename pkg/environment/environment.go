package environment

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/chaosproof/chaosproof/pkg/types"
)

// GetRunDetails resolves every run-level tunable from the environment,
// falling back to the documented defaults
func GetRunDetails(targetBaseURL, env string, dryRun bool) types.RunDetails {
	return types.RunDetails{
		RunID:             uuid.New().String(),
		TargetBaseURL:     targetBaseURL,
		Environment:       getEnvString("CHAOSPROOF_ENVIRONMENT", env),
		DryRun:            dryRun,
		ProbeInterval:     getEnvDuration("PROBE_INTERVAL", 1*time.Second),
		ProbeTimeout:      getEnvDuration("PROBE_TIMEOUT", 5*time.Second),
		BaselineWindow:    getEnvDuration("BASELINE_WINDOW", 10*time.Second),
		RecoveryWindow:    getEnvDuration("RECOVERY_WINDOW", 60*time.Second),
		Cooldown:          getEnvDuration("SCENARIO_COOLDOWN", 5*time.Second),
		DetectionInterval: getEnvDuration("DETECTION_INTERVAL", 1*time.Second),
		SuccessStreak:     getEnvInt("RECOVERY_SUCCESS_STREAK", 3),

		AbortErrorRatePercent:    getEnvFloat("ABORT_ERROR_RATE_PERCENT", 50),
		AbortConsecutiveFailures: getEnvInt("ABORT_CONSECUTIVE_FAILURES", 10),
		AbortLatencyMS:           getEnvFloat("ABORT_LATENCY_MS", 5000),

		AbortRecoveryWindow: getEnvDuration("ABORT_RECOVERY_WINDOW", 10*time.Second),
	}
}

func getEnvString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvFloat(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	// plain integers are read as seconds, anything else as a Go duration
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
