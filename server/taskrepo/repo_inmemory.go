package taskrepo

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryTaskRepo keeps tasks per assignee email.
type InMemoryTaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]map[string]Task // assignee -> taskID -> Task
}

func NewInMemoryTaskRepo() *InMemoryTaskRepo {
	return &InMemoryTaskRepo{
		tasks: make(map[string]map[string]Task),
	}
}

// Upsert stores task for assignee, assigning an id and creation time to new
// tasks.
func (r *InMemoryTaskRepo) Upsert(assignee string, task Task) (Task, error) {
	assignee = normalize(assignee)
	if assignee == "" {
		return Task{}, fmt.Errorf("assignee is required")
	}
	if strings.TrimSpace(task.Title) == "" {
		return Task{}, fmt.Errorf("task title is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.AssignedTo = assignee

	if _, ok := r.tasks[assignee]; !ok {
		r.tasks[assignee] = make(map[string]Task)
	}
	r.tasks[assignee][task.ID] = task
	return task, nil
}

// List returns the assignee's tasks, oldest first.
func (r *InMemoryTaskRepo) List(assignee string) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := r.tasks[normalize(assignee)]
	list := make([]Task, 0, len(byID))
	for _, t := range byID {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
