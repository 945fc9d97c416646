package worker

import (
	"log"
	"os"
	"strconv"
	"time"
)

const timeoutEnvName = "WEBIDE_REQUEST_TIMEOUT"

var requestTimeout = time.Duration(getEnvTimeout()) * time.Second

func getEnvTimeout() int {
	if timeout := os.Getenv(timeoutEnvName); timeout == "" {
		log.Printf("$%s not set, default to 30 seconds", timeoutEnvName)
	} else {
		timeout, err := strconv.Atoi(timeout)
		if err == nil && timeout > 0 {
			return timeout
		}
		log.Printf("$%s (%v) is not a valid integer, default to 30 seconds", timeoutEnvName, timeout)
	}

	return 30
}
