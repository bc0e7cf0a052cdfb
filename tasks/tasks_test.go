package tasks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-timetrack-client/gateway"
	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
	"github.com/jrsteele09/go-timetrack-client/internal/utils"
	"github.com/jrsteele09/go-timetrack-client/sessions"
	sessionrepofake "github.com/jrsteele09/go-timetrack-client/sessions/repofake"
	"github.com/jrsteele09/go-timetrack-client/tasks"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	status int
	body   string
	store  *sessions.Store
	client *tasks.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{status: http.StatusOK}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tasks.RouteMyTasks || r.Header.Get("Authorization") != "Bearer tok1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
	}))
	t.Cleanup(server.Close)

	f.store = sessions.NewStore(sessionrepofake.NewFakeSessionRepo())
	require.NoError(t, f.store.SetTokens("tok1", "", "u@x.com"))
	f.client = tasks.NewClient(gateway.New(server.URL, f.store), tasks.WithTimeout(2*time.Second))
	return f
}

func TestMyTasks_NormalizesFields(t *testing.T) {
	f := setupTestFixture(t)
	f.body = `{
		"tasks": [
			{"id": 1, "task": "Write report", "assigned_to": "u@x.com", "estimated_minutes": 90,
			 "description": "Q3", "task_highlight": "urgent", "time_recorded": "00:30", "completed_at": ""},
			{"task_id": "t2", "title": "Review", "assignee": "m@x.com", "time_required": "45", "highlight": "low"},
			{"name": "Standup"}
		],
		"count": 3
	}`

	list, err := f.client.MyTasks(context.Background())
	require.NoError(t, err)
	require.False(t, list.Degraded)
	require.Equal(t, 3, list.Count)
	require.Equal(t, []tasks.Task{
		{
			ID: "1", Title: "Write report", AssignedTo: "u@x.com", EstimatedMinutes: utils.Ptr(90),
			Description: "Q3", Highlight: "urgent", TimeRecorded: "00:30",
		},
		{ID: "t2", Title: "Review", AssignedTo: "m@x.com", EstimatedMinutes: utils.Ptr(45), Highlight: "low"},
		{Title: "Standup", AssignedTo: "-"},
	}, list.Tasks)
}

func TestMyTasks_CountDefaultsToLength(t *testing.T) {
	f := setupTestFixture(t)
	f.body = `{"tasks": [{"id": "a"}, {"id": "b"}]}`

	list, err := f.client.MyTasks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, list.Count)
}

func TestMyTasks_UnexpectedShapeDegrades(t *testing.T) {
	for _, body := range []string{`[1, 2, 3]`, `not json`, `{"tasks": [{"id": {"nested": true}}]}`} {
		f := setupTestFixture(t)
		f.body = body

		list, err := f.client.MyTasks(context.Background())
		require.NoError(t, err, body)
		require.True(t, list.Degraded, body)
		require.Empty(t, list.Tasks, body)
	}
}

func TestMyTasks_StatusErrorsAreReturned(t *testing.T) {
	f := setupTestFixture(t)
	f.status = http.StatusInternalServerError
	f.body = `{"detail": "db down"}`

	list, err := f.client.MyTasks(context.Background())
	require.Nil(t, list)
	require.ErrorIs(t, err, apperrors.ErrRequestFailed)
	require.Contains(t, err.Error(), "db down")
}

func TestMyTasks_UnauthorizedLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.status = http.StatusUnauthorized
	f.body = `{"detail": "expired"}`

	_, err := f.client.MyTasks(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, ok := f.store.AccessToken()
	require.False(t, ok)
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes *int
		want    string
	}{
		{nil, ""},
		{utils.Ptr(0), "0 min"},
		{utils.Ptr(45), "45 min"},
		{utils.Ptr(60), "1h"},
		{utils.Ptr(65), "1h 5m"},
		{utils.Ptr(150), "2h 30m"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tasks.FormatMinutes(tt.minutes))
	}
}

func TestTimeline(t *testing.T) {
	entries := tasks.Timeline([]tasks.Task{
		{Title: "Write report", EstimatedMinutes: utils.Ptr(90)},
		{EstimatedMinutes: utils.Ptr(20)},
		{Title: "Unestimated"},
	})
	require.Equal(t, []tasks.TimelineEntry{
		{Title: "Write report", Hours: 1.5},
		{Title: "Task", Hours: 0.33},
		{Title: "Unestimated", Hours: 0},
	}, entries)
}
