package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/services"
	"go.uber.org/zap"
)

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type RespondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

type InvitationHandler struct {
	invitations services.InvitationService
	mentors     services.MentorService
	log         *zap.SugaredLogger
}

func NewInvitationHandler(invitations services.InvitationService, mentors services.MentorService, log *zap.Logger) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, mentors: mentors, log: log.Sugar().With("handler", "invitations")}
}

func (h *InvitationHandler) Invite(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	var body InviteRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	invitation, err := h.invitations.Invite(ctx.Request.Context(), userID, projectID, body.Email)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, invitation)
}

func (h *InvitationHandler) ListInvitations(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	invitations, err := h.invitations.ListPending(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, invitations)
}

func (h *InvitationHandler) RespondInvitation(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	invitationID, ok := pathID(ctx, "invitation_id")
	if !ok {
		return
	}

	var body RespondRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	invitation, err := h.invitations.Respond(ctx.Request.Context(), userID, invitationID, *body.Accept)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, invitation)
}

func (h *InvitationHandler) RequestMentor(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	var body InviteRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	request, err := h.mentors.Request(ctx.Request.Context(), userID, projectID, body.Email)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, request)
}

func (h *InvitationHandler) ListMentorRequests(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	requests, err := h.mentors.ListPending(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, requests)
}

func (h *InvitationHandler) RespondMentorRequest(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	requestID, ok := pathID(ctx, "request_id")
	if !ok {
		return
	}

	var body RespondRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	request, err := h.mentors.Respond(ctx.Request.Context(), userID, requestID, *body.Accept)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, request)
}
