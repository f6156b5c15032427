package areastore

import "time"

func realClock() string {
	return time.Now().UTC().Format(time.RFC3339)
}
