package payload

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
	sharedvalidator "github.com/vasapolrittideah/task-manager-api/shared/validator"
)

const dateLayout = "2006-01-02"

type CreateTaskRequest struct {
	TaskName   string `json:"taskName"   validate:"required,min=2,max=20"`
	TaskDate   string `json:"taskDate"   validate:"required,calendardate"`
	TaskStatus string `json:"taskStatus" validate:"omitempty,oneof=incomplete completed"`
}

// Normalize lower-cases the name and status before validation.
func (r *CreateTaskRequest) Normalize() {
	r.TaskName = strings.ToLower(strings.TrimSpace(r.TaskName))
	r.TaskStatus = strings.ToLower(strings.TrimSpace(r.TaskStatus))
}

// UpdateTaskRequest carries a partial update; at least one field must be present.
type UpdateTaskRequest struct {
	TaskName   *string `json:"taskName"   validate:"omitnil,min=2,max=20"`
	TaskDate   *string `json:"taskDate"   validate:"omitnil,calendardate"`
	TaskStatus *string `json:"taskStatus" validate:"omitnil,oneof=incomplete completed"`
}

// Normalize lower-cases the name and status before validation.
func (r *UpdateTaskRequest) Normalize() {
	if r.TaskName != nil {
		name := strings.ToLower(strings.TrimSpace(*r.TaskName))
		r.TaskName = &name
	}
	if r.TaskStatus != nil {
		status := strings.ToLower(strings.TrimSpace(*r.TaskStatus))
		r.TaskStatus = &status
	}
}

// UpdateTaskRequestValidation reports an empty update under the "body" field.
func UpdateTaskRequestValidation(sl validator.StructLevel) {
	req := sl.Current().Interface().(UpdateTaskRequest)
	if req.TaskName == nil && req.TaskDate == nil && req.TaskStatus == nil {
		sl.ReportError(req.TaskName, "body", "TaskName", sharedvalidator.TagAtLeastOne, "taskName, taskDate, taskStatus")
	}
}

// ListTasksRequest holds the optional pagination query parameters.
type ListTasksRequest struct {
	Page  *int `json:"page"  validate:"omitnil,gte=1"`
	Limit *int `json:"limit" validate:"omitnil,gte=1"`
}

// RearrangeTasksRequest is the full list of task names in their new order.
type RearrangeTasksRequest struct {
	TaskNames []string `json:"taskNames" validate:"required,unique,dive,min=2,max=20"`
}

// Normalize lower-cases every name before validation so that duplicates differing
// only in case are caught.
func (r *RearrangeTasksRequest) Normalize() {
	for i, name := range r.TaskNames {
		r.TaskNames[i] = strings.ToLower(strings.TrimSpace(name))
	}
}

type TaskResponse struct {
	ID         string           `json:"id"`
	TaskName   string           `json:"taskName"`
	TaskDate   string           `json:"taskDate"`
	TaskStatus model.TaskStatus `json:"taskStatus"`
	Order      int              `json:"order"`
	TaskOwner  string           `json:"taskOwner"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func NewTaskResponse(task *model.Task) TaskResponse {
	return TaskResponse{
		ID:         task.ID.Hex(),
		TaskName:   task.Name,
		TaskDate:   task.DueDate.UTC().Format(dateLayout),
		TaskStatus: task.Status,
		Order:      task.Order,
		TaskOwner:  task.OwnerID.Hex(),
		CreatedAt:  task.CreatedAt,
		UpdatedAt:  task.UpdatedAt,
	}
}

func NewTaskListResponse(tasks []*model.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskResponse(task))
	}
	return out
}

const (
	CreateTaskSuccessMessage = "Task successfully created."
	DeleteTaskSuccessMessage = "Task successfully deleted."
)
