package filerepo

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher reports changes to the session file made by any process. The
// parent directory is watched because writes replace the file by rename.
type Watcher struct {
	watcher  *fsnotify.Watcher
	file     string
	onChange func()
	debounce time.Duration
	logger   zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func NewWatcher(sessionFile string, onChange func(), options ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filerepo.NewWatcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(sessionFile)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("filerepo.NewWatcher: watch %s: %w", filepath.Dir(sessionFile), err)
	}

	w := &Watcher{
		watcher:  fw,
		file:     filepath.Clean(sessionFile),
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   log.With().Str("component", "session-watcher").Logger(),
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

// Start blocks until ctx is cancelled. Bursts of events are coalesced and
// onChange runs once after the file settles.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("Session file event")
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Session watcher error")
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
