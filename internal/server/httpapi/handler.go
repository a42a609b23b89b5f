package httpapi

import (
	"net/http"

	"github.com/datatalksai/backend/internal/common"
	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordconfirm"`
}

type verifyRequest struct {
	OTP string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgetPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordconfirm"`
}

// handleHealth serves the public health banner on the root path.
func (s *Server) handleHealth(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8",
		[]byte(`<h1>Welcome to "The DataTalks AI" Backend</h1>`))
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.E(common.ErrValidation, "Invalid request body"))
		return
	}

	session, err := s.users.Signup(c.Request.Context(), req.Name, req.Email, req.Password, req.PasswordConfirm)
	if err != nil {
		respondError(c, err)
		return
	}

	s.respondSession(c, "Registration Successful", session)
}

func (s *Server) handleVerify(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.E(common.ErrValidation, "Otp is missing"))
		return
	}

	session, err := s.users.VerifyAccount(c.Request.Context(), user, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}

	s.respondSession(c, "Email has been verified", session)
}

func (s *Server) handleResendOTP(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := s.users.ResendOTP(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "A new otp has sent to your email")
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.E(common.ErrValidation, "Please Provide Email and password"))
		return
	}

	session, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	s.respondSession(c, "Login Successful", session)
}

// handleLogout invalidates the client-held credential by overwriting the
// cookie with a short-lived sentinel. Nothing is touched server-side.
func (s *Server) handleLogout(c *gin.Context) {
	s.setSessionCookie(c, "loggedout", 10)
	respondOK(c, "Logged Out Successfully")
}

func (s *Server) handleForgetPassword(c *gin.Context) {
	var req forgetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.E(common.ErrValidation, "Email is Required"))
		return
	}

	if err := s.users.ForgetPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Password Reset Otp is send to your email")
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.E(common.ErrValidation, "Invalid request body"))
		return
	}

	session, err := s.users.ResetPassword(c.Request.Context(),
		req.Email, req.OTP, req.Password, req.PasswordConfirm)
	if err != nil {
		respondError(c, err)
		return
	}

	s.respondSession(c, "Password reset successfully", session)
}
