// Package env reads raw environment variables for the few call sites that
// run before envconfig has parsed the full configuration, like picking the
// logger output format.
package env

import "os"

// Get returns the variable's value, or the fallback when it is unset or
// empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
