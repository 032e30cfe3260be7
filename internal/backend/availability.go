package backend

import "strings"

// Available returns a comma-separated list of available backends.
func Available() string {
	return strings.Join([]string{CPU, Parallel}, ",")
}
