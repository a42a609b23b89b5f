// Package users contains the account record store and the auth flow
// controller: signup, verify, resend-OTP, login, forgot- and reset-password.
// Every operation is a short sequential procedure over the record store,
// the notification sink, and the token issuer.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datatalksai/backend/internal/common"
	"github.com/datatalksai/backend/internal/logging"
	"github.com/datatalksai/backend/internal/server/auth"
	"github.com/datatalksai/backend/internal/server/config"
	"github.com/datatalksai/backend/internal/server/mail"
	"github.com/datatalksai/backend/internal/server/otp"
	"golang.org/x/crypto/bcrypt"
)

// Session is the result of an operation that authenticates the caller:
// a signed credential plus the sanitized record it asserts.
type Session struct {
	Token string
	User  *View
}

// Service orchestrates the auth flows over three collaborators: the user
// record store, the outbound mailer, and the JWT helpers. Concurrent
// operations on the same record are last-write-wins at the database; there
// is no locking above it.
type Service struct {
	repo          Repository
	mailer        mail.Mailer
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
	otpValidity   time.Duration
}

func NewService(repo Repository, mailer mail.Mailer, logger logging.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:          repo,
		mailer:        mailer,
		logger:        logger.With("module", "users"),
		jwtSecret:     []byte(cfg.JWTSecret),
		tokenValidity: cfg.TokenValidity,
		otpValidity:   cfg.OTPValidity,
	}
}

// Signup creates an unverified record with a fresh OTP pair and mails the
// code. If the mail cannot be sent the record stays created and the caller
// sees an internal error; a later resend can recover the flow.
func (s *Service) Signup(ctx context.Context, name, email, password, passwordConfirm string) (*Session, error) {
	if name == "" {
		return nil, common.E(common.ErrValidation, "Name is Required")
	}
	if email == "" {
		return nil, common.E(common.ErrValidation, "Email is Required")
	}
	if password == "" {
		return nil, common.E(common.ErrValidation, "Password is Required")
	}
	if passwordConfirm != "" && password != passwordConfirm {
		return nil, common.E(common.ErrValidation, "Passwords do not match")
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, common.E(common.ErrConflict, "Email Already Register, please login !")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, s.internal(ctx, "Error in Registration", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.internal(ctx, "Error in Registration", err)
	}

	code, expiresAt, err := s.newOTPPair()
	if err != nil {
		return nil, s.internal(ctx, "Error in Registration", err)
	}

	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		OTP:          &code,
		OTPExpiresAt: &expiresAt,
	}
	user, err = s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.E(common.ErrConflict, "Email Already Register, please login !")
		}
		return nil, s.internal(ctx, "Error in Registration", err)
	}

	if err := s.mailer.Send(ctx, signupMessage(user.Email, user.Name, code, s.otpValidity)); err != nil {
		// The record stays created: the user exists but is unnotified and
		// can request a resend.
		return nil, s.internal(ctx, "Error in Registration", err)
	}

	return s.newSession(ctx, user)
}

// VerifyAccount flips the record to verified when the supplied code matches
// the stored OTP before its expiry. Verification happens at most once; the
// OTP pair is cleared together with the flag update.
func (s *Service) VerifyAccount(ctx context.Context, user *User, code string) (*Session, error) {
	if code == "" {
		return nil, common.E(common.ErrValidation, "Otp is missing")
	}
	if user.IsVerified {
		return nil, common.E(common.ErrConflict, "User is already verified")
	}
	if user.OTP == nil || *user.OTP != code {
		return nil, common.E(common.ErrUnauthorized, "Invalid OTP")
	}
	if user.OTPExpiresAt == nil || time.Now().After(*user.OTPExpiresAt) {
		return nil, common.E(common.ErrExpired, "OTP has expired. Please request a new OTP")
	}

	if err := s.repo.SetVerified(ctx, user.ID); err != nil {
		return nil, s.internal(ctx, "Error in Verification", err)
	}

	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiresAt = nil

	return s.newSession(ctx, user)
}

// ResendOTP regenerates the signup OTP pair for an unverified caller and
// mails the new code. A failed send clears the pair again, leaving the user
// unable to verify until a further resend succeeds.
func (s *Service) ResendOTP(ctx context.Context, user *User) error {
	fresh, err := s.repo.GetByEmail(ctx, user.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.ErrNotFound, "User Not Found")
		}
		return s.internal(ctx, "Error in Resend OTP", err)
	}
	if fresh.IsVerified {
		return common.E(common.ErrConflict, "User is already verified")
	}

	code, expiresAt, err := s.newOTPPair()
	if err != nil {
		return s.internal(ctx, "Error in Resend OTP", err)
	}
	if err := s.repo.SetOTP(ctx, fresh.ID, &code, &expiresAt); err != nil {
		return s.internal(ctx, "Error in Resend OTP", err)
	}

	if err := s.mailer.Send(ctx, resendMessage(fresh.Email, fresh.Name, code, s.otpValidity)); err != nil {
		if clearErr := s.repo.SetOTP(ctx, fresh.ID, nil, nil); clearErr != nil {
			s.logger.Error(ctx, "failed to clear otp after send failure", "error", clearErr)
		}
		return s.internal(ctx, "Error in Resend OTP", err)
	}

	return nil
}

// Login checks the password against the stored bcrypt hash and issues a
// session on success. The comparison is constant-time.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, common.E(common.ErrValidation, "Please Provide Email and password")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrNotFound, "You are not registered...!")
		}
		return nil, s.internal(ctx, "Error in Login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.E(common.ErrUnauthorized, "Wrong Password")
	}

	return s.newSession(ctx, user)
}

// ForgetPassword stores a reset OTP pair and mails the code. A failed send
// clears the pair so a code the user never saw cannot linger.
func (s *Service) ForgetPassword(ctx context.Context, email string) error {
	if email == "" {
		return common.E(common.ErrValidation, "Email is Required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.ErrNotFound, "No user found")
		}
		return s.internal(ctx, "Error Reset Password", err)
	}

	code, expiresAt, err := s.newOTPPair()
	if err != nil {
		return s.internal(ctx, "Error Reset Password", err)
	}
	if err := s.repo.SetResetOTP(ctx, user.ID, &code, &expiresAt); err != nil {
		return s.internal(ctx, "Error Reset Password", err)
	}

	if err := s.mailer.Send(ctx, resetMessage(user.Email, code, s.otpValidity)); err != nil {
		if clearErr := s.repo.SetResetOTP(ctx, user.ID, nil, nil); clearErr != nil {
			s.logger.Error(ctx, "failed to clear reset otp after send failure", "error", clearErr)
		}
		return s.internal(ctx, "Error Reset Password", err)
	}

	return nil
}

// ResetPassword redeems a reset OTP through a single conditional lookup:
// email and code must match an unexpired pair. Storing the new hash clears
// the pair in the same statement, so the code cannot be redeemed twice.
func (s *Service) ResetPassword(ctx context.Context, email, code, password, passwordConfirm string) (*Session, error) {
	if email == "" || code == "" || password == "" {
		return nil, common.E(common.ErrValidation, "Email, otp and password are required")
	}
	if passwordConfirm != "" && password != passwordConfirm {
		return nil, common.E(common.ErrValidation, "Passwords do not match")
	}

	user, err := s.repo.GetByEmailAndResetOTP(ctx, email, code, time.Now())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrNotFound, "No user found")
		}
		return nil, s.internal(ctx, "Error Reset Password", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.internal(ctx, "Error Reset Password", err)
	}
	if err := s.repo.SetPassword(ctx, user.ID, string(hash)); err != nil {
		return nil, s.internal(ctx, "Error Reset Password", err)
	}

	user.PasswordHash = string(hash)
	user.ResetOTP = nil
	user.ResetOTPExpiresAt = nil

	return s.newSession(ctx, user)
}

// UserByID resolves the record asserted by a session credential. The auth
// gate calls this after verifying the token; a stale id maps to an
// authorization failure, not a 404.
func (s *Service) UserByID(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.ErrUnauthorized, "User not found")
		}
		return nil, s.internal(ctx, "Error in Authentication", err)
	}
	return user, nil
}

// --- helpers ---

func (s *Service) newOTPPair() (string, time.Time, error) {
	code, err := otp.New(otp.DefaultDigits)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("otp generation error: %w", err)
	}
	return code, time.Now().Add(s.otpValidity), nil
}

func (s *Service) newSession(ctx context.Context, user *User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, s.internal(ctx, "Error issuing session", err)
	}
	return &Session{Token: token, User: user.Sanitized()}, nil
}

// internal logs the underlying cause and returns a taxonomy error whose
// message is safe to show to the caller.
func (s *Service) internal(ctx context.Context, message string, err error) error {
	s.logger.Error(ctx, message, "error", err)
	return common.E(common.ErrInternal, message)
}
