package taskrepo

import "time"

// Task is a task as the backend serves it from /task/my-tasks.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"task"`
	AssignedTo       string     `json:"assigned_to"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	Description      string     `json:"description,omitempty"`
	Highlight        string     `json:"task_highlight,omitempty"`
	TimeRecorded     string     `json:"time_recorded,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"-"`
}

type Repo interface {
	Upsert(assignee string, task Task) (Task, error)
	List(assignee string) ([]Task, error)
}
