// Package capture runs the periodic screenshot capture and upload. Ticks only
// run while a session is active and never overlap.
package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultInterval       = time.Minute
	defaultCaptureTimeout = 30 * time.Second
)

var NowTimeFunc = time.Now

// Session reports whether a user is logged in. *sessions.Store satisfies it.
type Session interface {
	AccessToken() (string, bool)
}

// Stats counts scheduler activity since construction.
type Stats struct {
	Ticks   int64
	Skipped int64 // no session, or the previous tick still running
	Started int64
	Failed  int64
}

type Scheduler struct {
	session        Session
	source         FrameSource
	uploader       Uploader
	interval       time.Duration
	captureTimeout time.Duration
	onRecord       func(JobRecord)
	logger         zerolog.Logger

	inFlight atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}

	ticks   atomic.Int64
	skipped atomic.Int64
	started atomic.Int64
	failed  atomic.Int64
}

type SchedulerOption func(*Scheduler)

func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCaptureTimeout bounds each CaptureFrame call so a hung source cannot
// hold the in-flight slot. The upload is bounded by the uploader's own
// timeout.
func WithCaptureTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.captureTimeout = d
		}
	}
}

// WithRecordHook registers fn to receive every finished JobRecord. It is
// called on the job goroutine.
func WithRecordHook(fn func(JobRecord)) SchedulerOption {
	return func(s *Scheduler) {
		s.onRecord = fn
	}
}

func WithLogger(logger zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func NewScheduler(session Session, source FrameSource, uploader Uploader, options ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		session:        session,
		source:         source,
		uploader:       uploader,
		interval:       defaultInterval,
		captureTimeout: defaultCaptureTimeout,
		stop:           make(chan struct{}),
		logger:         log.With().Str("component", "capture").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Start fires a tick every interval until ctx is done or Stop is called.
// It blocks; jobs still running when it returns are not interrupted.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("Capture scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Capture scheduler stopped")
			return
		case <-s.stop:
			s.logger.Info().Msg("Capture scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Wait blocks until the running job, if any, has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Tick runs the guard and, when it passes, starts a job on its own
// goroutine. It reports whether a job was started. A tick is skipped when
// no session is active or the previous job is still running.
func (s *Scheduler) Tick(ctx context.Context) bool {
	s.ticks.Add(1)
	if !s.begin() {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(context.WithoutCancel(ctx))
	}()
	return true
}

// RunOnce captures and uploads immediately on the calling goroutine, under
// the same guard as a tick. ok is false when the guard refused the run.
func (s *Scheduler) RunOnce(ctx context.Context) (record JobRecord, ok bool) {
	if !s.begin() {
		return JobRecord{}, false
	}
	s.wg.Add(1)
	defer s.wg.Done()
	return s.run(ctx), true
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:   s.ticks.Load(),
		Skipped: s.skipped.Load(),
		Started: s.started.Load(),
		Failed:  s.failed.Load(),
	}
}

// begin checks the session and claims the in-flight slot.
func (s *Scheduler) begin() bool {
	if _, ok := s.session.AccessToken(); !ok {
		s.skipped.Add(1)
		return false
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Debug().Msg("Previous capture still running, skipping tick")
		return false
	}
	s.started.Add(1)
	return true
}

func (s *Scheduler) run(ctx context.Context) (record JobRecord) {
	record = JobRecord{ID: uuid.New(), StartedAt: NowTimeFunc()}
	defer func() {
		if r := recover(); r != nil {
			record.Outcome, record.Err = OutcomeCaptureFailed, fmt.Errorf("capture job panicked: %v", r)
		}
		s.inFlight.Store(false)
		s.report(record)
	}()

	frame, err := s.captureFrame(ctx)
	if err != nil {
		record.Outcome, record.Err = OutcomeCaptureFailed, err
		return record
	}
	record.CapturedAt = NowTimeFunc()
	record.Bytes = len(frame)

	if _, ok := s.session.AccessToken(); !ok {
		record.Outcome = OutcomeAbandoned
		return record
	}

	result, err := s.uploader.Upload(ctx, frame, record.CapturedAt)
	if err != nil {
		record.Outcome, record.Err = OutcomeUploadFailed, err
		return record
	}
	record.Outcome = OutcomeUploaded
	record.ImageURL = result.ImageURL
	return record
}

func (s *Scheduler) captureFrame(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.captureTimeout)
	defer cancel()
	return s.source.CaptureFrame(ctx)
}

func (s *Scheduler) report(record JobRecord) {
	event := s.logger.Info()
	if record.Err != nil {
		s.failed.Add(1)
		event = s.logger.Warn().Err(record.Err)
	}
	event.
		Str("job_id", record.ID.String()).
		Str("outcome", string(record.Outcome)).
		Int("bytes", record.Bytes).
		Str("image_url", record.ImageURL).
		Dur("duration", record.Duration()).
		Msg("Capture job finished")

	if s.onRecord != nil {
		s.onRecord(record)
	}
}
