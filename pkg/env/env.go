package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable the service reads.
const Prefix = "CATERING_"

// Get returns the first non-blank value of CATERING_<key> or <key>, falling
// back when neither is set. The bare key keeps platform conventions such as
// PORT and LOG_FORMAT working.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
