package storage

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskflow-api/domain"
)

// Memory is the authoritative in-memory backend. Task collections are scoped
// per owner, preserve insertion order, and reset on process restart. An
// owner's very first list seeds the sample tasks.
type Memory struct {
	mu    sync.Mutex
	tasks map[string][]domain.Task
	users map[string]domain.User
	now   func() time.Time
}

// NewMemory creates an empty store preloaded with the default demo accounts.
func NewMemory() *Memory {
	m := &Memory{
		tasks: make(map[string][]domain.Task),
		users: make(map[string]domain.User),
		now:   time.Now,
	}
	for _, u := range defaultUsers() {
		m.users[u.Email] = u
	}
	return m
}

func defaultUsers() []domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return []domain.User{
		{ID: "1", Name: "John Doe", Email: "john@example.com", PasswordHash: hash},
		{ID: "2", Name: "Jane Smith", Email: "jane@example.com", PasswordHash: hash},
	}
}

func (m *Memory) ListTasks(_ context.Context, ownerID string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, ok := m.tasks[ownerID]
	if !ok {
		tasks = SampleTasks(ownerID, m.now())
		m.tasks[ownerID] = tasks
	}
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	return out, nil
}

func (m *Memory) CreateTask(_ context.Context, ownerID string, task domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks[ownerID] = append(m.tasks[ownerID], task)
	return nil
}

func (m *Memory) UpdateTask(_ context.Context, ownerID, taskID string, fields domain.TaskFields) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(ownerID, taskID)
	if i < 0 {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	m.tasks[ownerID][i].Apply(fields)
	return m.tasks[ownerID][i], nil
}

func (m *Memory) ChangeStatus(_ context.Context, ownerID, taskID string, status domain.Status) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(ownerID, taskID)
	if i < 0 {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	m.tasks[ownerID][i].Status = status
	return m.tasks[ownerID][i], nil
}

func (m *Memory) DeleteTask(_ context.Context, ownerID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(ownerID, taskID)
	if i < 0 {
		return domain.ErrTaskNotFound
	}
	m.tasks[ownerID] = append(m.tasks[ownerID][:i], m.tasks[ownerID][i+1:]...)
	return nil
}

// indexOf must be called with the lock held.
func (m *Memory) indexOf(ownerID, taskID string) int {
	for i, t := range m.tasks[ownerID] {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (m *Memory) CreateUser(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Email]; exists {
		return domain.ErrDuplicateEmail
	}
	m.users[user.Email] = user
	return nil
}
