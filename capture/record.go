package capture

import (
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeUploaded      Outcome = "uploaded"
	OutcomeCaptureFailed Outcome = "capture_failed"
	OutcomeUploadFailed  Outcome = "upload_failed"
	// OutcomeAbandoned means the session ended between capture and upload.
	OutcomeAbandoned Outcome = "abandoned"
)

// JobRecord describes one executed tick. Records are logged and handed to
// the record hook; they are never persisted or retried.
type JobRecord struct {
	ID         uuid.UUID
	StartedAt  time.Time
	CapturedAt time.Time
	Bytes      int
	Outcome    Outcome
	ImageURL   string
	Err        error
}

func (r JobRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return NowTimeFunc().Sub(r.StartedAt)
}
