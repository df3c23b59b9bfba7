package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/auth"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/types"
	"go.uber.org/zap"
)

type AuthenticatedUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserResolver is the part of the user service the middleware needs.
type UserResolver interface {
	Get(ctx context.Context, id uint) (*models.User, error)
	ResolveIdentity(ctx context.Context, identity auth.Identity) (*models.User, error)
}

var errNoToken = errors.New("Authorization token is required")

type Authenticator struct {
	tokens      *auth.TokenManager
	users       UserResolver
	identity    auth.IdentityVerifier
	allowLegacy bool
	cookieName  string
	log         *zap.SugaredLogger
}

// NewAuthenticator builds the request authenticator. identity may be nil.
func NewAuthenticator(tokens *auth.TokenManager, users UserResolver, identity auth.IdentityVerifier, allowLegacy bool, cookieName string, log *zap.Logger) *Authenticator {
	if cookieName == "" {
		cookieName = types.DefaultCookieName
	}
	return &Authenticator{
		tokens:      tokens,
		users:       users,
		identity:    identity,
		allowLegacy: allowLegacy,
		cookieName:  cookieName,
		log:         log.Sugar().With("component", "auth"),
	}
}

func (a *Authenticator) CookieName() string { return a.cookieName }

// TokenFromRequest looks for a token in the Authorization header, then the
// auth cookie, then the ?token= query parameter.
func (a *Authenticator) TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			return "", errors.New("Authorization header format must be Bearer {token}")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie, err := r.Cookie(a.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errNoToken
}

// Resolve maps a token onto a user: our own JWT first, then a third-party
// identity token, then (when enabled) a bare numeric user id. An unreachable
// identity provider is reported as upstream failure unless a later step
// resolves the token.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*models.User, error) {
	if claims, err := a.tokens.VerifyJWT(token); err == nil {
		user, err := a.users.Get(ctx, claims.UserID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Unauthorized("User not found")
			}
			return nil, err
		}
		return user, nil
	}

	var providerErr error
	if a.identity != nil {
		identity, err := a.identity.Verify(ctx, token)
		switch {
		case err == nil:
			return a.users.ResolveIdentity(ctx, *identity)
		case !errors.Is(err, auth.ErrIdentityRejected):
			a.log.Warnw("identity verification failed", "err", err)
			providerErr = err
		}
	}

	if a.allowLegacy {
		if id, err := strconv.ParseUint(token, 10, 64); err == nil && id > 0 {
			user, err := a.users.Get(ctx, uint(id))
			if err == nil {
				return user, nil
			}
			if !apperr.Is(err, apperr.KindNotFound) {
				return nil, err
			}
		}
	}

	if providerErr != nil {
		return nil, apperr.Upstream("identity provider unavailable", providerErr)
	}
	return nil, apperr.Unauthorized("Invalid or expired token")
}

// Require rejects requests without a resolvable token and stores the
// AuthenticatedUser under types.ContextUserKey.
func (a *Authenticator) Require() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := a.TokenFromRequest(ctx.Request)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		user, err := a.Resolve(ctx.Request.Context(), token)
		if err != nil {
			if !apperr.Is(err, apperr.KindUnauthorized) {
				a.log.Errorw("failed to resolve user", "err", err)
			}
			ctx.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		})
		ctx.Next()
	}
}
