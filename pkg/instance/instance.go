package instance

import "os"

// GetID names the running process in logs. BAZAAR_INSTANCE_ID wins, then the
// platform dyno or host name.
func GetID() string {
	for _, key := range []string{"BAZAAR_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
