package repository

import (
	"context"
	"time"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
)

// TaskRepository defines the owner-scoped storage primitives the task ordering
// engine is built on. Every lookup is filtered by owner, so a task id belonging to
// another owner behaves exactly like a missing one.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	GetTaskByName(ctx context.Context, ownerID, name string) (*model.Task, error)
	CountTasks(ctx context.Context, ownerID string) (int64, error)
	ListTasks(ctx context.Context, ownerID string, params ListTasksParams) ([]*model.Task, error)
	UpdateTask(ctx context.Context, ownerID, id string, params UpdateTaskParams) (*model.Task, error)

	// ReorderTasks assigns every given order in one batch.
	ReorderTasks(ctx context.Context, ownerID string, orders []TaskOrder) error

	// DeleteTask removes the task, closes the gap it leaves by decrementing every later
	// order of the owner, and returns the task as it was before removal. When the
	// compaction fails the task is kept and no order changes.
	DeleteTask(ctx context.Context, ownerID, id string) (*model.Task, error)
}

// ListTasksParams defines the window of a task listing. A zero Limit lists every task.
type ListTasksParams struct {
	Limit  int64
	Offset int64
}

// UpdateTaskParams defines the optional parameters for updating a task.
// Only the fields that are not nil will be updated; the order is never touched.
type UpdateTaskParams struct {
	Name    *string
	DueDate *time.Time
	Status  *model.TaskStatus
}

func (p UpdateTaskParams) empty() bool {
	return p.Name == nil && p.DueDate == nil && p.Status == nil
}

// TaskOrder pairs a task id with its new order.
type TaskOrder struct {
	ID    string
	Order int
}
