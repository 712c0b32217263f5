package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/store"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const sessionUserField = "user_id"

// SessionUserMiddleware exposes the logged-in user id, if any, under
// signal.SessionUserKey.
func SessionUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := sessions.Default(c).Get(sessionUserField).(string); ok && uid != "" {
			c.Set(signal.SessionUserKey, uid)
		}
		c.Next()
	}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(signal.SessionUserKey) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.UserID {
	return domain.UserID(c.GetString(signal.SessionUserKey))
}

func startSession(c *gin.Context, uid domain.UserID) error {
	s := sessions.Default(c)
	s.Set(sessionUserField, string(uid))
	return s.Save()
}

// respondErr maps domain and store errors onto HTTP statuses.
func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, store.ErrWeakPassword),
		errors.Is(err, domain.ErrUsernameEmpty),
		errors.Is(err, domain.ErrUsernameTooLong),
		errors.Is(err, domain.ErrEmailInvalid),
		errors.Is(err, domain.ErrMessageEmpty),
		errors.Is(err, domain.ErrMessageType),
		errors.Is(err, domain.ErrMessageNoRecipient):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// selfOnly rejects requests acting on another user's :param.
func selfOnly(c *gin.Context, param string) (domain.UserID, bool) {
	me := currentUser(c)
	if domain.UserID(c.Param(param)) != me {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return "", false
	}
	return me, true
}
