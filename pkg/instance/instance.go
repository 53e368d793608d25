package instance

import "os"

// GetID returns the process instance identifier: the platform dyno name,
// then the host name, then "local".
func GetID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if id := os.Getenv("HOSTNAME"); id != "" {
		return id
	}
	return "local"
}
