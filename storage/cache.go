package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskflow-api/domain"
)

type taskBackend interface {
	ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, ownerID string, task domain.Task) error
	UpdateTask(ctx context.Context, ownerID, taskID string, fields domain.TaskFields) (domain.Task, error)
	ChangeStatus(ctx context.Context, ownerID, taskID string, status domain.Status) (domain.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// Cache wraps a task backend with Redis-backed caching for list reads. Every
// mutation evicts the owner's cached collection.
type Cache struct {
	base  taskBackend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base taskBackend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	if tasks, ok := c.loadTasksFromCache(ctx, ownerID); ok {
		return tasks, nil
	}

	tasks, err := c.base.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c.storeTasks(ctx, ownerID, tasks)
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, ownerID string, task domain.Task) error {
	if err := c.base.CreateTask(ctx, ownerID, task); err != nil {
		return err
	}

	c.evict(ctx, ownerID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, ownerID, taskID string, fields domain.TaskFields) (domain.Task, error) {
	task, err := c.base.UpdateTask(ctx, ownerID, taskID, fields)
	if err != nil {
		return domain.Task{}, err
	}

	c.evict(ctx, ownerID)
	return task, nil
}

func (c *Cache) ChangeStatus(ctx context.Context, ownerID, taskID string, status domain.Status) (domain.Task, error) {
	task, err := c.base.ChangeStatus(ctx, ownerID, taskID, status)
	if err != nil {
		return domain.Task{}, err
	}

	c.evict(ctx, ownerID)
	return task, nil
}

func (c *Cache) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := c.base.DeleteTask(ctx, ownerID, taskID); err != nil {
		return err
	}

	c.evict(ctx, ownerID)
	return nil
}

func (c *Cache) loadTasksFromCache(ctx context.Context, ownerID string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(ownerID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, tasksCacheKey(ownerID)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(ownerID)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeTasks(ctx context.Context, ownerID string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(ownerID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, ownerID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(ownerID)).Result()
}

func tasksCacheKey(ownerID string) string {
	return "tasks:" + ownerID
}
