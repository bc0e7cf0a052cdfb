package config

import (
	"fmt"
	"time"
)

type DevServer struct{}

var _ DevServerConfig = DevServer{}

func (DevServer) GetDevPort() string {
	port := GetEnv("DEV_PORT", "8000")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (DevServer) GetDevJWTSecret() string {
	return GetEnv("DEV_JWT_SECRET", "dev-secret-change-me")
}

func (DevServer) GetDevAccessTokenExpiry() time.Duration {
	return GetEnvDuration("DEV_ACCESS_TOKEN_EXPIRY", time.Hour)
}

// GetDevUserEmail is the account seeded into the development backend.
func (DevServer) GetDevUserEmail() string {
	return GetEnv("DEV_USER_EMAIL", "dev@timetrack.local")
}

// GetDevUserPassword returns the seeded account's password. Empty means one
// is generated and logged at startup.
func (DevServer) GetDevUserPassword() string {
	return GetEnv("DEV_USER_PASSWORD", "")
}

func (DevServer) GetDevMaxUploadBytes() int64 {
	n := GetEnvInt("DEV_MAX_UPLOAD_BYTES", 10<<20)
	if n <= 0 {
		return 10 << 20
	}
	return int64(n)
}
