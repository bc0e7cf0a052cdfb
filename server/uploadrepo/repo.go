package uploadrepo

import "time"

// Screenshot is one uploaded capture.
type Screenshot struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CapturedAt  time.Time `json:"captured_at"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	Data        []byte    `json:"-"`
}

type Repo interface {
	Insert(shot *Screenshot) error
	Get(id string) (*Screenshot, error)
	ListByUser(userID string) ([]*Screenshot, error)
}
