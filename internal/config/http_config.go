package config

import "time"

type HTTP struct{}

var _ HTTPConfig = HTTP{}

func (HTTP) GetDefaultTimeout() time.Duration {
	return GetEnvDuration("HTTP_TIMEOUT", 20*time.Second)
}

// GetUploadTimeout is used for screenshot uploads, which carry image payloads.
func (HTTP) GetUploadTimeout() time.Duration {
	return GetEnvDuration("UPLOAD_TIMEOUT", 30*time.Second)
}

func (HTTP) GetLoginTimeout() time.Duration {
	return GetEnvDuration("LOGIN_TIMEOUT", 10*time.Second)
}

func (HTTP) GetTasksTimeout() time.Duration {
	return GetEnvDuration("TASKS_TIMEOUT", 10*time.Second)
}
