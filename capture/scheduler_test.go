package capture_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-timetrack-client/capture"
	"github.com/jrsteele09/go-timetrack-client/sessions"
	sessionrepofake "github.com/jrsteele09/go-timetrack-client/sessions/repofake"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	calls atomic.Int32
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, frame []byte, _ time.Time) (*capture.UploadResult, error) {
	u.calls.Add(1)
	if u.err != nil {
		return nil, u.err
	}
	return &capture.UploadResult{ImageURL: "https://img/1.jpg"}, nil
}

type testFixture struct {
	store    *sessions.Store
	uploader *fakeUploader
	frames   atomic.Int32

	mu      sync.Mutex
	records []capture.JobRecord
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	return &testFixture{
		store:    sessions.NewStore(sessionrepofake.NewFakeSessionRepo()),
		uploader: &fakeUploader{},
	}
}

func (f *testFixture) scheduler(source capture.FrameSource, options ...capture.SchedulerOption) *capture.Scheduler {
	if source == nil {
		source = capture.FrameFunc(func(context.Context) ([]byte, error) {
			f.frames.Add(1)
			return []byte("jpeg"), nil
		})
	}
	options = append(options, capture.WithRecordHook(func(r capture.JobRecord) {
		f.mu.Lock()
		f.records = append(f.records, r)
		f.mu.Unlock()
	}))
	return capture.NewScheduler(f.store, source, f.uploader, options...)
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.SetTokens("tok1", "", "u@x.com"))
}

func (f *testFixture) lastRecord(t *testing.T) capture.JobRecord {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.records)
	return f.records[len(f.records)-1]
}

func TestScheduler_NoSessionNoUploads(t *testing.T) {
	f := setupTestFixture(t)
	s := f.scheduler(nil)

	for i := 0; i < 10; i++ {
		require.False(t, s.Tick(context.Background()))
	}
	s.Wait()

	require.Zero(t, f.uploader.calls.Load())
	require.Zero(t, f.frames.Load())
	require.Equal(t, capture.Stats{Ticks: 10, Skipped: 10}, s.Stats())
}

func TestScheduler_TickUploadsFrame(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	s := f.scheduler(nil)

	require.True(t, s.Tick(context.Background()))
	s.Wait()

	require.EqualValues(t, 1, f.uploader.calls.Load())
	record := f.lastRecord(t)
	require.Equal(t, capture.OutcomeUploaded, record.Outcome)
	require.Equal(t, "https://img/1.jpg", record.ImageURL)
	require.Equal(t, 4, record.Bytes)
	require.NotEmpty(t, record.ID)
	require.NoError(t, record.Err)
}

func TestScheduler_OverlappingTicksAreSkipped(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	s := f.scheduler(capture.FrameFunc(func(context.Context) ([]byte, error) {
		entered <- struct{}{}
		<-release
		return []byte("jpeg"), nil
	}))

	require.True(t, s.Tick(context.Background()))
	<-entered
	require.False(t, s.Tick(context.Background()))
	require.False(t, s.Tick(context.Background()))

	close(release)
	s.Wait()
	require.True(t, s.Tick(context.Background()))
	<-entered
	s.Wait()

	require.EqualValues(t, 2, f.uploader.calls.Load())
	require.Equal(t, capture.Stats{Ticks: 4, Skipped: 2, Started: 2}, s.Stats())
}

func TestScheduler_FailuresAreContained(t *testing.T) {
	t.Run("capture error", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		s := f.scheduler(capture.FrameFunc(func(context.Context) ([]byte, error) {
			return nil, errors.New("no display")
		}))

		require.True(t, s.Tick(context.Background()))
		s.Wait()
		require.Equal(t, capture.OutcomeCaptureFailed, f.lastRecord(t).Outcome)
		require.Zero(t, f.uploader.calls.Load())
		require.EqualValues(t, 1, s.Stats().Failed)
	})

	t.Run("capture panic", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		s := f.scheduler(capture.FrameFunc(func(context.Context) ([]byte, error) {
			panic("driver crashed")
		}))

		require.True(t, s.Tick(context.Background()))
		s.Wait()
		require.ErrorContains(t, f.lastRecord(t).Err, "driver crashed")

		// the in-flight slot was released
		require.True(t, s.Tick(context.Background()))
		s.Wait()
	})

	t.Run("upload error", func(t *testing.T) {
		f := setupTestFixture(t)
		f.login(t)
		f.uploader.err = errors.New("server down")
		s := f.scheduler(nil)

		require.True(t, s.Tick(context.Background()))
		s.Wait()
		require.Equal(t, capture.OutcomeUploadFailed, f.lastRecord(t).Outcome)
		require.EqualValues(t, 1, f.uploader.calls.Load())
	})
}

func TestScheduler_LogoutDuringCaptureAbandonsUpload(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	s := f.scheduler(capture.FrameFunc(func(context.Context) ([]byte, error) {
		f.store.Logout()
		return []byte("jpeg"), nil
	}))

	record, ok := s.RunOnce(context.Background())
	require.True(t, ok)
	require.Equal(t, capture.OutcomeAbandoned, record.Outcome)
	require.Zero(t, f.uploader.calls.Load())
}

func TestScheduler_RunOnceRespectsGuard(t *testing.T) {
	f := setupTestFixture(t)
	s := f.scheduler(nil)

	_, ok := s.RunOnce(context.Background())
	require.False(t, ok)

	f.login(t)
	record, ok := s.RunOnce(context.Background())
	require.True(t, ok)
	require.Equal(t, capture.OutcomeUploaded, record.Outcome)
}

func TestScheduler_StartAndStop(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	s := f.scheduler(nil, capture.WithInterval(5*time.Millisecond))

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return f.uploader.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	s.Wait()
}

func TestScheduler_StopsWhenContextDone(t *testing.T) {
	f := setupTestFixture(t)
	s := f.scheduler(nil, capture.WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestScheduler_HungCaptureTimesOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	var calls atomic.Int32
	s := f.scheduler(capture.FrameFunc(func(ctx context.Context) ([]byte, error) {
		if calls.Add(1) > 1 {
			return []byte("jpeg"), nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}), capture.WithCaptureTimeout(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, s.Tick(ctx))
	cancel()
	s.Stop()

	waited := make(chan struct{})
	go func() {
		s.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the capture timeout")
	}

	record := f.lastRecord(t)
	require.Equal(t, capture.OutcomeCaptureFailed, record.Outcome)
	require.ErrorIs(t, record.Err, context.DeadlineExceeded)

	// the slot is free again, so the next tick makes a fresh attempt
	require.True(t, s.Tick(context.Background()))
	s.Wait()
	require.Equal(t, capture.OutcomeUploaded, f.lastRecord(t).Outcome)
	require.Equal(t, capture.Stats{Ticks: 2, Started: 2, Failed: 1}, s.Stats())
}
