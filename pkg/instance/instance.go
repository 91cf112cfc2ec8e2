package instance

import "os"

// GetID returns the process instance identifier. Heroku-style dynos
// set DYNO, container schedulers set WORKER_ID; everything else is a
// local run.
func GetID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "local"
}
