package httpapi

import (
	"net/http"
	"strings"

	"github.com/datatalksai/backend/internal/common"
	"github.com/datatalksai/backend/internal/server/auth"
	"github.com/datatalksai/backend/internal/server/users"
	"github.com/gin-gonic/gin"
)

// sessionCookieName carries the signed credential; the same token is also
// accepted as an Authorization bearer header.
const sessionCookieName = "token"

const currentUserKey = "currentUser"

// requireAuth is the gate in front of handlers that need an authenticated
// caller: it verifies the credential and resolves the user record into the
// request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				envelope{Success: false, Message: "Please login to continue"})
			return
		}

		userID, err := auth.UserIDFromToken(token, s.jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				envelope{Success: false, Message: "Invalid or expired session"})
			return
		}

		user, err := s.users.UserByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(statusFromError(err),
				envelope{Success: false, Message: "Invalid or expired session"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// currentUser returns the record resolved by requireAuth.
func currentUser(c *gin.Context) (*users.User, error) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, common.E(common.ErrUnauthorized, "Please login to continue")
	}
	user, ok := v.(*users.User)
	if !ok {
		return nil, common.E(common.ErrUnauthorized, "Please login to continue")
	}
	return user, nil
}
