package httpapi

import (
	"errors"
	"net/http"

	"github.com/datatalksai/backend/internal/common"
	"github.com/datatalksai/backend/internal/server/users"
	"github.com/gin-gonic/gin"
)

// envelope is the uniform JSON response shape:
// {success, message, token?, data:{user}?}.
type envelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Token   string    `json:"token,omitempty"`
	Data    *userData `json:"data,omitempty"`
}

type userData struct {
	User *users.View `json:"user"`
}

// statusFromError maps the taxonomy to one status code per kind.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// respondError sends the failure envelope. Only taxonomy errors carry a
// caller-facing message; anything else is reported generically so internal
// detail never reaches the response body.
func respondError(c *gin.Context, err error) {
	message := "Something went wrong"
	var taxErr *common.Error
	if errors.As(err, &taxErr) {
		message = taxErr.Message
	}
	c.JSON(statusFromError(err), envelope{Success: false, Message: message})
}

func respondOK(c *gin.Context, message string) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message})
}

// respondSession sends a success envelope carrying the credential both in
// the body and as the session cookie.
func (s *Server) respondSession(c *gin.Context, message string, session *users.Session) {
	s.setSessionCookie(c, session.Token, int(s.cookieValidity.Seconds()))
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: message,
		Token:   session.Token,
		Data:    &userData{User: session.User},
	})
}
