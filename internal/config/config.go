package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
)

type Config interface {
	EnvConfig
	HTTPConfig
	CaptureConfig
	DevServerConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIURL() string
	GetEnv() string
	GetLogLevel() string
	GetHomeDir() string
}

type HTTPConfig interface {
	GetDefaultTimeout() time.Duration
	GetUploadTimeout() time.Duration
	GetLoginTimeout() time.Duration
	GetTasksTimeout() time.Duration
}

type CaptureConfig interface {
	GetCaptureInterval() time.Duration
	GetCaptureTimeout() time.Duration
	GetCaptureCommand() []string
	GetJPEGQuality() int
}

type DevServerConfig interface {
	GetDevPort() string
	GetDevJWTSecret() string
	GetDevAccessTokenExpiry() time.Duration
	GetDevUserEmail() string
	GetDevUserPassword() string
	GetDevMaxUploadBytes() int64
}

type mainConfig struct {
	EnvVars
	HTTP
	Capture
	DevServer
}

func New() Config {
	return mainConfig{}
}

// Load reads an optional .env file into the process environment before
// returning the env backed config. Variables already set are not overridden.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("config.Load %s: %w", f, err)
		}
	}
	c := New()
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings the client cannot start without.
func Validate(c Config) error {
	raw := strings.TrimSpace(c.GetAPIURL())
	if raw == "" {
		return apperrors.Wrapf(apperrors.ErrMissingConfig, "%s", apiURLVar)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apperrors.Wrapf(apperrors.ErrMissingConfig, "%s is not an absolute URL: %q", apiURLVar, raw)
	}
	return nil
}
