package environ

import (
	"os"
	"strconv"
	"strings"
	"time"

	"k8s.io/kube-openapi/pkg/validation/strfmt"
)

// GetString returns the value of the environment variable key, or fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt returns key parsed as a decimal int. Unset or malformed values yield fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return fallback
}

func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// GetDuration accepts both Go durations ("90s") and the extended units understood by
// strfmt ("1d", "2w").
func GetDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := strfmt.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// GetStringSlice splits a comma separated variable, dropping empty items.
func GetStringSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
