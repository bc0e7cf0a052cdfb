package uploadrepo

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
)

type InMemoryUploadRepo struct {
	mu     sync.RWMutex
	shots  map[string]*Screenshot
	byUser map[string][]string // userID -> screenshot ids in upload order
}

func NewInMemoryUploadRepo() *InMemoryUploadRepo {
	return &InMemoryUploadRepo{
		shots:  make(map[string]*Screenshot),
		byUser: make(map[string][]string),
	}
}

func (r *InMemoryUploadRepo) Insert(shot *Screenshot) error {
	if shot == nil || shot.UserID == "" {
		return fmt.Errorf("screenshot with user id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if shot.ID == "" {
		shot.ID = uuid.New().String()
	}
	if _, exists := r.shots[shot.ID]; exists {
		return fmt.Errorf("screenshot %s already stored", shot.ID)
	}
	r.shots[shot.ID] = shot
	r.byUser[shot.UserID] = append(r.byUser[shot.UserID], shot.ID)
	return nil
}

func (r *InMemoryUploadRepo) Get(id string) (*Screenshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shot, ok := r.shots[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return shot, nil
}

func (r *InMemoryUploadRepo) ListByUser(userID string) ([]*Screenshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	shots := make([]*Screenshot, 0, len(ids))
	for _, id := range ids {
		shots = append(shots, r.shots[id])
	}
	return shots, nil
}
