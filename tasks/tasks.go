// Package tasks reads the task list assigned to the logged in user.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jrsteele09/go-timetrack-client/gateway"
	"github.com/jrsteele09/go-timetrack-client/internal/utils"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RouteMyTasks = "/task/my-tasks"

	defaultTimeout = 10 * time.Second
)

// Task is one row of the task table.
type Task struct {
	ID               string
	Title            string
	AssignedTo       string
	EstimatedMinutes *int
	Description      string
	Highlight        string
	TimeRecorded     string
	CompletedAt      string
}

// TaskList is the normalized reply of GET /task/my-tasks. Degraded is set
// when the reply could not be read and Tasks was left empty.
type TaskList struct {
	Tasks    []Task
	Count    int
	Degraded bool
}

// TimelineEntry is a task's estimate in hours, for the dashboard chart.
type TimelineEntry struct {
	Title string
	Hours float64
}

type Client struct {
	gateway *gateway.Gateway
	timeout time.Duration
	logger  zerolog.Logger
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(gw *gateway.Gateway, options ...ClientOption) *Client {
	c := &Client{
		gateway: gw,
		timeout: defaultTimeout,
		logger:  log.With().Str("component", "tasks").Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// MyTasks returns the caller's tasks. Request failures are returned as
// errors; a reply with an unexpected shape degrades to an empty list.
func (c *Client) MyTasks(ctx context.Context) (*TaskList, error) {
	res := c.gateway.GetWithTimeout(ctx, RouteMyTasks, c.timeout)
	if res.Err != nil {
		return nil, res.Err
	}

	list, err := decodeTaskList(res.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("request_id", res.RequestID).Msg("Unreadable task list, showing none")
		return &TaskList{Tasks: []Task{}, Degraded: true}, nil
	}
	return list, nil
}

// rawTask lists every key backends have used for each task field.
type rawTask struct {
	ID            string `mapstructure:"id"`
	TaskID        string `mapstructure:"task_id"`
	Task          string `mapstructure:"task"`
	Title         string `mapstructure:"title"`
	Name          string `mapstructure:"name"`
	AssignedTo    string `mapstructure:"assigned_to"`
	Assignee      string `mapstructure:"assignee"`
	Estimated     *int   `mapstructure:"estimated_minutes"`
	TimeRequired  *int   `mapstructure:"time_required"`
	Description   string `mapstructure:"description"`
	TaskHighlight string `mapstructure:"task_highlight"`
	Highlight     string `mapstructure:"highlight"`
	TimeRecorded  string `mapstructure:"time_recorded"`
	CompletedAt   string `mapstructure:"completed_at"`
}

type rawTaskList struct {
	Tasks []rawTask `mapstructure:"tasks"`
	Count *int      `mapstructure:"count"`
}

func (r rawTask) normalize() Task {
	estimated := r.Estimated
	if estimated == nil || *estimated == 0 {
		estimated = r.TimeRequired
	}
	return Task{
		ID:               utils.FirstNonEmpty(r.ID, r.TaskID),
		Title:            utils.FirstNonEmpty(r.Task, r.Title, r.Name),
		AssignedTo:       utils.FirstNonEmpty(r.AssignedTo, r.Assignee, "-"),
		EstimatedMinutes: estimated,
		Description:      r.Description,
		Highlight:        utils.FirstNonEmpty(r.TaskHighlight, r.Highlight),
		TimeRecorded:     r.TimeRecorded,
		CompletedAt:      r.CompletedAt,
	}
}

func decodeTaskList(body []byte) (*TaskList, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}

	var parsed rawTaskList
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &parsed,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}

	list := &TaskList{Tasks: make([]Task, 0, len(parsed.Tasks))}
	for _, t := range parsed.Tasks {
		list.Tasks = append(list.Tasks, t.normalize())
	}
	list.Count = utils.Value(parsed.Count)
	if parsed.Count == nil {
		list.Count = len(list.Tasks)
	}
	return list, nil
}

// FormatMinutes renders an estimate the way the task table shows it:
// "" when unknown, "45 min" under an hour, otherwise "1h" or "1h 5m".
func FormatMinutes(minutes *int) string {
	if minutes == nil {
		return ""
	}
	m := *minutes
	if m >= 60 {
		h, rest := m/60, m%60
		if rest == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, rest)
	}
	return fmt.Sprintf("%d min", m)
}

// Timeline converts estimates to hours rounded to two decimals. Tasks
// without a title are shown as "Task".
func Timeline(tasks []Task) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(tasks))
	for _, t := range tasks {
		hours := float64(utils.Value(t.EstimatedMinutes)) / 60.0
		entries = append(entries, TimelineEntry{
			Title: utils.FirstNonEmpty(t.Title, "Task"),
			Hours: math.Round(hours*100) / 100,
		})
	}
	return entries
}
