package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/services"
	"go.uber.org/zap"
)

type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	AssigneeID  *uint  `json:"assignee_id"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
}

// UpdateTaskRequest fields are optional. An assignee_id of 0 unassigns the
// task and an empty due_date clears it.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AssigneeID  *uint   `json:"assignee_id"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status"`
	Position    *int    `json:"position"`
}

func (r UpdateTaskRequest) update() (services.TaskUpdate, error) {
	out := services.TaskUpdate{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Position:    r.Position,
	}
	if r.AssigneeID != nil {
		if *r.AssigneeID == 0 {
			out.ClearAssignee = true
		} else {
			out.AssigneeID = r.AssigneeID
		}
	}
	if r.DueDate != nil {
		if strings.TrimSpace(*r.DueDate) == "" {
			out.ClearDueDate = true
		} else {
			due, err := parseDate(*r.DueDate)
			if err != nil {
				return services.TaskUpdate{}, err
			}
			out.DueDate = due
		}
	}
	return out, nil
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

type TaskHandler struct {
	tasks services.TaskService
	log   *zap.SugaredLogger
}

func NewTaskHandler(tasks services.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log.Sugar().With("handler", "tasks")}
}

func (h *TaskHandler) ListTasks(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	tasks, err := h.tasks.List(ctx.Request.Context(), userID, projectID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	var body CreateTaskRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}
	due, err := optionalDate(body.DueDate)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}

	task, err := h.tasks.Create(ctx.Request.Context(), userID, projectID, services.TaskInput{
		Title:       body.Title,
		Description: body.Description,
		AssigneeID:  body.AssigneeID,
		DueDate:     due,
		Status:      body.Status,
	})
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, "task_id")
	if !ok {
		return
	}

	task, err := h.tasks.Get(ctx.Request.Context(), userID, taskID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, "task_id")
	if !ok {
		return
	}

	var body UpdateTaskRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}
	update, err := body.update()
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}

	task, err := h.tasks.Update(ctx.Request.Context(), userID, taskID, update)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateStatus(ctx *gin.Context) {
	var body StatusRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}
	h.setStatus(ctx, body.Status)
}

func (h *TaskHandler) CompleteTask(ctx *gin.Context) {
	h.setStatus(ctx, models.StatusDone)
}

func (h *TaskHandler) setStatus(ctx *gin.Context, status string) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, "task_id")
	if !ok {
		return
	}

	task, err := h.tasks.UpdateStatus(ctx.Request.Context(), userID, taskID, status)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, "task_id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(ctx.Request.Context(), userID, taskID); err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *TaskHandler) AddComment(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, "task_id")
	if !ok {
		return
	}

	var body CommentRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	comment, err := h.tasks.AddComment(ctx.Request.Context(), userID, taskID, body.Text)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, comment)
}
