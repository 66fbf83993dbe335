package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"taskflow-api/domain"
)

// Tables is the durable backend over Azure Table storage. Tasks are
// partitioned by owner with the task id as row key; users are partitioned
// under a single key with the email as row key. Task change events go to an
// Azure Queue for downstream consumers.
type Tables struct {
	taskTable  *aztables.Client
	userTable  *aztables.Client
	eventQueue *azqueue.QueueClient
}

// NewTables creates a Tables backend from the given connection string.
func NewTables(connStr, tasksTable, usersTable, eventQueue string) (*Tables, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	tt := svc.NewClient(tasksTable)
	ut := svc.NewClient(usersTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	eq, err := azqueue.NewQueueClientFromConnectionString(connStr, eventQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Tables{taskTable: tt, userTable: ut, eventQueue: eq}, nil
}

const userPartition = "user"

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Status      string `json:"Status"`
	Priority    string `json:"Priority"`
	Deadline    string `json:"Deadline"`
	CreatedAt   string `json:"CreatedAt"`
}

func encodeTaskEntity(t domain.Task) ([]byte, error) {
	return json.Marshal(taskEntity{
		Entity: aztables.Entity{
			PartitionKey: t.UserID,
			RowKey:       t.ID,
		},
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Deadline:    t.Deadline,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Status:      domain.Status(ent.Status),
		Priority:    domain.Priority(ent.Priority),
		Deadline:    ent.Deadline,
		CreatedAt:   createdAt,
		UserID:      ent.PartitionKey,
	}, nil
}

// ListTasks retrieves all tasks for the provided owner in creation order.
func (s *Tables) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + ownerID + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			task, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	// Table listing is keyed by row key; restore creation order.
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Tables) CreateTask(ctx context.Context, ownerID string, task domain.Task) error {
	task.UserID = ownerID
	data, err := encodeTaskEntity(task)
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, data, nil)
	return err
}

func (s *Tables) UpdateTask(ctx context.Context, ownerID, taskID string, fields domain.TaskFields) (domain.Task, error) {
	task, err := s.getTask(ctx, ownerID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	task.Apply(fields)
	if err := s.replaceTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *Tables) ChangeStatus(ctx context.Context, ownerID, taskID string, status domain.Status) (domain.Task, error) {
	task, err := s.getTask(ctx, ownerID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	task.Status = status
	if err := s.replaceTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *Tables) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if _, err := s.taskTable.DeleteEntity(ctx, ownerID, taskID, nil); err != nil {
		if hasStatusCode(err, http.StatusNotFound) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	return nil
}

func (s *Tables) getTask(ctx context.Context, ownerID, taskID string) (domain.Task, error) {
	ent, err := s.taskTable.GetEntity(ctx, ownerID, taskID, nil)
	if err != nil {
		if hasStatusCode(err, http.StatusNotFound) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, err
	}
	return decodeTaskEntity(ent.Value)
}

func (s *Tables) replaceTask(ctx context.Context, task domain.Task) error {
	data, err := encodeTaskEntity(task)
	if err != nil {
		return err
	}
	mode := aztables.UpdateModeReplace
	_, err = s.taskTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: mode})
	return err
}

type userEntity struct {
	aztables.Entity
	ID           string `json:"ID"`
	Name         string `json:"Name"`
	PasswordHash string `json:"PasswordHash"`
}

func (s *Tables) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	ent, err := s.userTable.GetEntity(ctx, userPartition, email, nil)
	if err != nil {
		if hasStatusCode(err, http.StatusNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	var raw userEntity
	if err := json.Unmarshal(ent.Value, &raw); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           raw.ID,
		Name:         raw.Name,
		Email:        raw.RowKey,
		PasswordHash: []byte(raw.PasswordHash),
	}, nil
}

func (s *Tables) CreateUser(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(userEntity{
		Entity: aztables.Entity{
			PartitionKey: userPartition,
			RowKey:       user.Email,
		},
		ID:           user.ID,
		Name:         user.Name,
		PasswordHash: string(user.PasswordHash),
	})
	if err != nil {
		return err
	}
	if _, err := s.userTable.AddEntity(ctx, data, nil); err != nil {
		if hasStatusCode(err, http.StatusConflict) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// PublishEvents sends the given task change events to the event queue.
func (s *Tables) PublishEvents(ctx context.Context, ownerID string, events []domain.Event) error {
	for _, event := range events {
		env := domain.EventEnvelope{UserID: ownerID, Event: event}
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if _, err := s.eventQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return err
		}
	}
	return nil
}

func hasStatusCode(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
