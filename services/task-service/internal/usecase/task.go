package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/repository"
)

// TaskUsecase defines the task ordering engine. For every owner the orders of its
// tasks always form the contiguous sequence 1..N between calls.
type TaskUsecase interface {
	// CreateTask appends a task at the end of the owner's list.
	CreateTask(ctx context.Context, params CreateTaskParams) (*model.Task, error)

	// UpdateTask changes name, due date or status. The order is never modified.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*model.Task, error)

	// ListTasks returns the owner's tasks in ascending order, windowed when both
	// page and limit are given.
	ListTasks(ctx context.Context, params ListTasksParams) (*TaskList, error)

	// RearrangeTasks assigns order 1+i to the i-th name. names must be exactly the
	// owner's current set of task names.
	RearrangeTasks(ctx context.Context, ownerID string, names []string) ([]*model.Task, error)

	// DeleteTask removes a task and closes the gap it leaves in the order.
	DeleteTask(ctx context.Context, ownerID, taskID string) (*model.Task, error)
}

// CreateTaskParams defines the parameters for creating a task. An empty Status
// defaults to incomplete.
type CreateTaskParams struct {
	OwnerID string
	Name    string
	DueDate time.Time
	Status  model.TaskStatus
}

// UpdateTaskParams defines the parameters for updating a task.
// Only the fields that are not nil will be updated.
type UpdateTaskParams struct {
	OwnerID string
	TaskID  string
	Name    *string
	DueDate *time.Time
	Status  *model.TaskStatus
}

// ListTasksParams defines the parameters for listing tasks.
type ListTasksParams struct {
	OwnerID string
	Page    *int
	Limit   *int
}

// TaskList is one listing result. Page, Limit and TotalDocs are only meaningful
// when Paginated is set.
type TaskList struct {
	Tasks     []*model.Task
	Paginated bool
	Page      int
	Limit     int
	TotalDocs int64
}

var (
	ErrTaskAlreadyExists = errors.New("task already exists")
	ErrTaskNotFound      = errors.New("task not found")
	ErrIncompleteTaskSet = errors.New("must supply every task")
	ErrNoFieldsToUpdate  = errors.New("no task fields to update")
)

type taskUsecase struct {
	taskRepo repository.TaskRepository
	locks    *ownerLocks
}

func NewTaskUsecase(taskRepo repository.TaskRepository) TaskUsecase {
	return &taskUsecase{
		taskRepo: taskRepo,
		locks:    newOwnerLocks(),
	}
}

// NormalizeTaskName lower-cases a task name the way it is stored.
func NormalizeTaskName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DueDate truncates t to its UTC calendar day.
func DueDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (u *taskUsecase) CreateTask(ctx context.Context, params CreateTaskParams) (*model.Task, error) {
	ownerID, err := bson.ObjectIDFromHex(params.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id: %w", err)
	}

	status := params.Status
	if status == "" {
		status = model.TaskStatusIncomplete
	}
	name := NormalizeTaskName(params.Name)

	unlock := u.locks.lock(params.OwnerID)
	defer unlock()

	if _, err := u.taskRepo.GetTaskByName(ctx, params.OwnerID, name); err == nil {
		return nil, ErrTaskAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	count, err := u.taskRepo.CountTasks(ctx, params.OwnerID)
	if err != nil {
		return nil, err
	}

	task, err := u.taskRepo.CreateTask(ctx, &model.Task{
		OwnerID: ownerID,
		Name:    name,
		DueDate: DueDate(params.DueDate),
		Status:  status,
		Order:   int(count) + 1,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrTaskAlreadyExists
		}

		return nil, err
	}

	return task, nil
}

func (u *taskUsecase) UpdateTask(ctx context.Context, params UpdateTaskParams) (*model.Task, error) {
	if params.Name == nil && params.DueDate == nil && params.Status == nil {
		return nil, ErrNoFieldsToUpdate
	}

	repoParams := repository.UpdateTaskParams{Status: params.Status}
	if params.Name != nil {
		name := NormalizeTaskName(*params.Name)
		repoParams.Name = &name
	}
	if params.DueDate != nil {
		due := DueDate(*params.DueDate)
		repoParams.DueDate = &due
	}

	unlock := u.locks.lock(params.OwnerID)
	defer unlock()

	task, err := u.taskRepo.UpdateTask(ctx, params.OwnerID, params.TaskID, repoParams)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrTaskNotFound
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, ErrTaskAlreadyExists
		default:
			return nil, err
		}
	}

	return task, nil
}

func (u *taskUsecase) ListTasks(ctx context.Context, params ListTasksParams) (*TaskList, error) {
	if params.Page == nil || params.Limit == nil {
		tasks, err := u.taskRepo.ListTasks(ctx, params.OwnerID, repository.ListTasksParams{})
		if err != nil {
			return nil, err
		}

		return &TaskList{Tasks: tasks}, nil
	}

	page, limit := *params.Page, *params.Limit
	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("page and limit must be positive, got %d and %d", page, limit)
	}

	total, err := u.taskRepo.CountTasks(ctx, params.OwnerID)
	if err != nil {
		return nil, err
	}

	tasks, err := u.taskRepo.ListTasks(ctx, params.OwnerID, repository.ListTasksParams{
		Limit:  int64(limit),
		Offset: int64(page-1) * int64(limit),
	})
	if err != nil {
		return nil, err
	}

	return &TaskList{
		Tasks:     tasks,
		Paginated: true,
		Page:      page,
		Limit:     limit,
		TotalDocs: total,
	}, nil
}

func (u *taskUsecase) RearrangeTasks(ctx context.Context, ownerID string, names []string) ([]*model.Task, error) {
	unlock := u.locks.lock(ownerID)
	defer unlock()

	current, err := u.taskRepo.ListTasks(ctx, ownerID, repository.ListTasksParams{})
	if err != nil {
		return nil, err
	}

	if len(names) != len(current) {
		return nil, ErrIncompleteTaskSet
	}

	idsByName := make(map[string]string, len(current))
	for _, task := range current {
		idsByName[task.Name] = task.ID.Hex()
	}

	orders := make([]repository.TaskOrder, 0, len(names))
	for i, name := range names {
		name = NormalizeTaskName(name)
		id, ok := idsByName[name]
		if !ok {
			return nil, ErrIncompleteTaskSet
		}
		// a repeated name would leave another task without a slot
		delete(idsByName, name)
		orders = append(orders, repository.TaskOrder{ID: id, Order: i + 1})
	}

	if err := u.taskRepo.ReorderTasks(ctx, ownerID, orders); err != nil {
		return nil, err
	}

	return u.taskRepo.ListTasks(ctx, ownerID, repository.ListTasksParams{})
}

func (u *taskUsecase) DeleteTask(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	unlock := u.locks.lock(ownerID)
	defer unlock()

	task, err := u.taskRepo.DeleteTask(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}

		return nil, fmt.Errorf("delete task %s: %w", taskID, err)
	}

	return task, nil
}
