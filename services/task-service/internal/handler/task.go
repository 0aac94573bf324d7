package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/payload"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/usecase"
	"github.com/vasapolrittideah/task-manager-api/shared/response"
	"github.com/vasapolrittideah/task-manager-api/shared/validator"
)

type taskHTTPHandler struct {
	taskUsecase usecase.TaskUsecase
	validator   *validator.Validator
	logger      *zerolog.Logger
}

func newTaskHTTPHandler(
	taskUsecase usecase.TaskUsecase,
	validator *validator.Validator,
	logger *zerolog.Logger,
) *taskHTTPHandler {
	return &taskHTTPHandler{
		taskUsecase: taskUsecase,
		validator:   validator,
		logger:      logger,
	}
}

func (h *taskHTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req payload.CreateTaskRequest
	if verr := decodeJSON(w, r, &req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}
	req.Normalize()
	if verr := h.validator.Validate(&req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	// already checked by the calendardate rule
	dueDate, _ := validator.ParseDate(req.TaskDate)

	_, err := h.taskUsecase.CreateTask(r.Context(), usecase.CreateTaskParams{
		OwnerID: user.ID.Hex(),
		Name:    req.TaskName,
		DueDate: dueDate,
		Status:  model.TaskStatus(req.TaskStatus),
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrTaskAlreadyExists):
			response.Error(w, http.StatusConflict, "Task already exists!")
		default:
			h.logger.Error().Err(err).Msg("failed to create task")
			response.Error(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	response.OK(w, payload.CreateTaskSuccessMessage)
}

func (h *taskHTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")
	if verr := parseTaskID(taskID); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	var req payload.UpdateTaskRequest
	if verr := decodeJSON(w, r, &req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}
	req.Normalize()
	if verr := h.validator.Validate(&req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	params := usecase.UpdateTaskParams{
		OwnerID: user.ID.Hex(),
		TaskID:  taskID,
		Name:    req.TaskName,
	}
	if req.TaskDate != nil {
		dueDate, _ := validator.ParseDate(*req.TaskDate)
		params.DueDate = &dueDate
	}
	if req.TaskStatus != nil {
		status := model.TaskStatus(*req.TaskStatus)
		params.Status = &status
	}

	task, err := h.taskUsecase.UpdateTask(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrTaskNotFound):
			response.Error(w, http.StatusNotFound, "Task not found!")
		case errors.Is(err, usecase.ErrTaskAlreadyExists):
			response.Error(w, http.StatusConflict, "Task already exists!")
		default:
			h.logger.Error().Err(err).Msg("failed to update task")
			response.Error(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	response.OK(w, payload.NewTaskResponse(task))
}

func (h *taskHTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req payload.ListTasksRequest
	fields := map[string]string{}
	for name, dst := range map[string]**int{"page": &req.Page, "limit": &req.Limit} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[name+" error"] = name + " must be a number"
			continue
		}
		*dst = &n
	}
	if len(fields) > 0 {
		response.Error(w, http.StatusBadRequest, fields)
		return
	}
	if verr := h.validator.Validate(&req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	list, err := h.taskUsecase.ListTasks(r.Context(), usecase.ListTasksParams{
		OwnerID: user.ID.Hex(),
		Page:    req.Page,
		Limit:   req.Limit,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list tasks")
		response.Error(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	tasks := payload.NewTaskListResponse(list.Tasks)
	if !list.Paginated {
		response.OK(w, tasks)
		return
	}

	response.Paginated(w, tasks, response.NewPagination(list.Page, list.Limit, list.TotalDocs))
}

func (h *taskHTTPHandler) Rearrange(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req payload.RearrangeTasksRequest
	if verr := decodeJSON(w, r, &req.TaskNames); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}
	req.Normalize()
	if verr := h.validator.Validate(&req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	tasks, err := h.taskUsecase.RearrangeTasks(r.Context(), user.ID.Hex(), req.TaskNames)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrIncompleteTaskSet):
			response.Error(w, http.StatusConflict, "Must supply every task!")
		default:
			h.logger.Error().Err(err).Msg("failed to rearrange tasks")
			response.Error(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	response.OK(w, payload.NewTaskListResponse(tasks))
}

func (h *taskHTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")
	if verr := parseTaskID(taskID); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	_, err := h.taskUsecase.DeleteTask(r.Context(), user.ID.Hex(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrTaskNotFound):
			response.Error(w, http.StatusNotFound, "Task not found!")
		default:
			h.logger.Error().Err(err).Msg("failed to delete task")
			response.Error(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	response.OK(w, payload.DeleteTaskSuccessMessage)
}

func (h *taskHTTPHandler) user(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := userFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
	}

	return user, ok
}
