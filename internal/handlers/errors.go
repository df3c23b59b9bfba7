package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/utils"
	"go.uber.org/zap"
)

// respondError writes the error's status and public message. Internal and
// upstream failures are logged with their cause.
func respondError(ctx *gin.Context, log *zap.SugaredLogger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorw("request failed", "method", ctx.Request.Method, "path", ctx.FullPath(), "err", err)
	}
	ctx.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func invalidRequest(ctx *gin.Context) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

func unauthenticated(ctx *gin.Context) {
	ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (UTC).
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validation("Dates must be YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}

// optionalDate parses raw when set; an empty string yields nil.
func optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return parseDate(raw)
}

// requireUser writes a 401 and returns false when no user is in context.
func requireUser(ctx *gin.Context) (uint, bool) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		unauthenticated(ctx)
		return 0, false
	}
	return userID, true
}

// pathID writes a 400 and returns false when the named parameter is not a positive id.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := utils.ParamID(ctx, name)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": apperr.PublicMessage(err)})
		return 0, false
	}
	return id, true
}
