package tempora

import (
	"log/slog"
	"math"
	"os"
	"strconv"
)

// FillEnvVar returns the value of a runtime Environment Variable
func FillEnvVar(ev string) string {
	// If the EnvVar doesn't exist return a default string
	value := os.Getenv(ev)
	if value == "" {
		value = "ENOENT"
	}
	return value
}

// FillEnvVarInt reads an integer Environment Variable, falling back to d
func FillEnvVarInt(ev string, d int) int {
	value := os.Getenv(ev)
	if value == "" {
		return d
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		slog.Error("Env var is not an integer, using default",
			slog.String("var", ev),
			slog.String("value", value),
			slog.Int("default", d))
		return d
	}
	return i
}

// FillEnvVarBool is true for 1/t/true/yes (any case), false otherwise
func FillEnvVarBool(ev string) bool {
	switch os.Getenv(ev) {
	case "1", "t", "T", "true", "TRUE", "True", "yes", "YES":
		return true
	}
	return false
}

// FloatPrecise rounds f to p decimal places for display and JSON
func FloatPrecise(f float64, p int) float64 {
	k := math.Pow(10, float64(p))
	return math.Round(f*k) / k
}
