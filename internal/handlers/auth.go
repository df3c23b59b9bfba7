package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/auth"
	"github.com/teamhub-dev/teamhub/internal/services"
	"github.com/teamhub-dev/teamhub/internal/types"
	"github.com/teamhub-dev/teamhub/internal/utils"
	"go.uber.org/zap"
)

type CreateUserRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"omitempty,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type DeleteUserRequest struct {
	Password string `json:"password" binding:"required"`
}

// CookieConfig controls the auth cookie set on login and register.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

type AuthHandler struct {
	users  services.UserService
	tokens *auth.TokenManager
	cookie CookieConfig
	log    *zap.SugaredLogger
}

func NewAuthHandler(users services.UserService, tokens *auth.TokenManager, cookie CookieConfig, log *zap.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = types.DefaultCookieName
	}
	return &AuthHandler{users: users, tokens: tokens, cookie: cookie, log: log.Sugar().With("handler", "auth")}
}

func (h *AuthHandler) setCookie(ctx *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if h.cookie.Secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

func (h *AuthHandler) issueToken(ctx *gin.Context, status int, userID uint, email string, user types.UserResponse) {
	token, err := h.tokens.GenerateJWT(userID, email)
	if err != nil {
		h.log.Errorw("failed to generate JWT", "user_id", userID, "err", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	h.setCookie(ctx, token, int(h.tokens.TTL().Seconds()))
	ctx.JSON(status, types.AuthResponse{User: user, Token: token})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var body CreateUserRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	user, err := h.users.Register(ctx.Request.Context(), services.RegisterInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Confirm:  body.ConfirmPassword,
	})
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	h.issueToken(ctx, http.StatusCreated, user.ID, user.Email, types.NewUserResponse(user))
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var body LoginUserRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	user, err := h.users.Authenticate(ctx.Request.Context(), body.Email, body.Password)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	h.issueToken(ctx, http.StatusOK, user.ID, user.Email, types.NewUserResponse(user))
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.setCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:    currentUser.ID,
			Name:  currentUser.Name,
			Email: currentUser.Email,
		},
	})
}

func (h *AuthHandler) UpdateMe(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	var body UpdateUserRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	user, err := h.users.UpdateProfile(ctx.Request.Context(), userID, services.ProfileInput{Name: body.Name, Email: body.Email})
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    types.NewUserResponse(user),
	})
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	var body ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	err = h.users.ChangePassword(ctx.Request.Context(), userID, services.ChangePasswordInput{
		Current: body.CurrentPassword,
		New:     body.NewPassword,
		Confirm: body.ConfirmPassword,
	})
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Password updated successfully"})
}

func (h *AuthHandler) DeleteMe(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	var body DeleteUserRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Password is required for account deletion"})
		return
	}

	if err := h.users.Delete(ctx.Request.Context(), userID, body.Password); err != nil {
		respondError(ctx, h.log, err)
		return
	}

	h.setCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Account deleted successfully"})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var body ForgotPasswordRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	if err := h.users.ForgotPassword(ctx.Request.Context(), body.Email); err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "If that address has an account, a reset link is on its way"})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var body ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	if err := h.users.ResetPassword(ctx.Request.Context(), ctx.Param("token"), body.Password, body.ConfirmPassword); err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Password has been reset"})
}
