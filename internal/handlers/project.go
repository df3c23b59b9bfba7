package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/services"
	"github.com/teamhub-dev/teamhub/internal/utils"
	"go.uber.org/zap"
)

type ProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Course      string `json:"course"`
	Deadline    string `json:"deadline"`
}

func (r ProjectRequest) input() (services.ProjectInput, error) {
	deadline, err := optionalDate(r.Deadline)
	if err != nil {
		return services.ProjectInput{}, err
	}
	return services.ProjectInput{
		Title:       r.Title,
		Description: r.Description,
		Course:      r.Course,
		Deadline:    deadline,
	}, nil
}

type ProjectHandler struct {
	projects services.ProjectService
	chat     services.ChatService
	log      *zap.SugaredLogger
}

func NewProjectHandler(projects services.ProjectService, chat services.ChatService, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, chat: chat, log: log.Sugar().With("handler", "projects")}
}

func (h *ProjectHandler) CreateProject(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var body ProjectRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}
	in, err := body.input()
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}

	project, err := h.projects.Create(ctx.Request.Context(), userID, in)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) ListProjects(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	projects, err := h.projects.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) GetProject(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	detail, err := h.projects.Get(ctx.Request.Context(), userID, projectID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

func (h *ProjectHandler) UpdateProject(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	var body ProjectRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}
	in, err := body.input()
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}

	project, err := h.projects.Update(ctx.Request.Context(), userID, projectID, in)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	if err := h.projects.Delete(ctx.Request.Context(), userID, projectID); err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *ProjectHandler) Progress(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	progress, err := h.projects.Progress(ctx.Request.Context(), userID, projectID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, progress)
}

// Messages returns the project's chat history, oldest first.
func (h *ProjectHandler) Messages(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	messages, err := h.chat.ProjectHistory(ctx.Request.Context(), userID, projectID, utils.QueryLimit(ctx, 0))
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, messages)
}

func (h *ProjectHandler) DashboardStats(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	stats, err := h.projects.Dashboard(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (h *ProjectHandler) Search(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	result, err := h.projects.Search(ctx.Request.Context(), userID, ctx.Query("q"))
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}
