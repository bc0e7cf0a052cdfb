package config

import (
	"strings"
	"time"
)

type Capture struct{}

var _ CaptureConfig = Capture{}

func (Capture) GetCaptureInterval() time.Duration {
	return GetEnvDuration("CAPTURE_INTERVAL", time.Minute)
}

// GetCaptureTimeout bounds a single run of the capture command.
func (Capture) GetCaptureTimeout() time.Duration {
	return GetEnvDuration("CAPTURE_TIMEOUT", 30*time.Second)
}

// GetCaptureCommand returns the screenshot command split on whitespace.
// The command must write an encoded image to stdout.
func (Capture) GetCaptureCommand() []string {
	return strings.Fields(GetEnv("CAPTURE_COMMAND", ""))
}

func (Capture) GetJPEGQuality() int {
	q := GetEnvInt("CAPTURE_JPEG_QUALITY", 70)
	if q < 1 || q > 100 {
		return 70
	}
	return q
}
