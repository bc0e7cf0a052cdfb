package sessionrepofake

import (
	"errors"
	"sync"

	"github.com/jrsteele09/go-timetrack-client/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// ErrInjected is returned by a FakeSessionRepo after FailLoads/FailUpdates.
var ErrInjected = errors.New("injected storage failure")

// FakeSessionRepo is an in-memory persisted tier. Sharing one instance
// between two stores simulates a process restart.
type FakeSessionRepo struct {
	values      map[string]string
	failLoads   bool
	failUpdates bool
	updates     int
	lock        sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		values: make(map[string]string),
	}
}

func (r *FakeSessionRepo) Load() (map[string]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.failLoads {
		return nil, ErrInjected
	}
	values := make(map[string]string, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	return values, nil
}

func (r *FakeSessionRepo) Update(set map[string]string, remove ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.failUpdates {
		return ErrInjected
	}
	r.updates++
	for k, v := range set {
		r.values[k] = v
	}
	for _, k := range remove {
		delete(r.values, k)
	}
	return nil
}

// Keys returns the stored keys, useful to assert keys were removed rather
// than blanked.
func (r *FakeSessionRepo) Keys() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	return keys
}

func (r *FakeSessionRepo) Get(key string) (string, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	v, ok := r.values[key]
	return v, ok
}

func (r *FakeSessionRepo) FailLoads(fail bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failLoads = fail
}

func (r *FakeSessionRepo) FailUpdates(fail bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failUpdates = fail
}

func (r *FakeSessionRepo) Updates() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.updates
}
