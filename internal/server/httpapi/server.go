// Package httpapi exposes the auth flows over HTTP: a gin router, the JSON
// response envelope, and the session-cookie handling.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/datatalksai/backend/internal/logging"
	"github.com/datatalksai/backend/internal/server/config"
	"github.com/datatalksai/backend/internal/server/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP front of the auth service.
type Server struct {
	addr           string
	engine         *gin.Engine
	logger         logging.Logger
	users          *users.Service
	jwtSecret      []byte
	cookieValidity time.Duration
	releaseMode    bool
}

func NewServer(cfg *config.Config, l logging.Logger, us *users.Service) *Server {
	if cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		addr:           cfg.ListenAddr,
		logger:         l.With("module", "httpapi"),
		users:          us,
		jwtSecret:      []byte(cfg.JWTSecret),
		cookieValidity: cfg.CookieValidity,
		releaseMode:    cfg.Mode == config.ModeRelease,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}
	engine.Use(cors.New(corsConfig))

	s.engine = engine
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.handleHealth)

	user := s.engine.Group("/api/user")
	{
		user.POST("/signup", s.handleSignup)
		user.POST("/verify", s.requireAuth(), s.handleVerify)
		user.POST("/resend-otp", s.requireAuth(), s.handleResendOTP)
		user.POST("/login", s.handleLogin)
		user.POST("/logout", s.handleLogout)
		user.POST("/forget-password", s.handleForgetPassword)
		user.POST("/reset-password", s.handleResetPassword)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setSessionCookie writes the credential cookie. Release mode requires
// Secure + SameSite=None so browser clients on other origins can carry it;
// debug mode relaxes to Lax over plain HTTP.
func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	if s.releaseMode {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(sessionCookieName, value, maxAge, "/", "", s.releaseMode, true)
}
