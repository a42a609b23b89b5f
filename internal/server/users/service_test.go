package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/datatalksai/backend/internal/common"
	"github.com/datatalksai/backend/internal/logging"
	"github.com/datatalksai/backend/internal/server/auth"
	"github.com/datatalksai/backend/internal/server/config"
	"github.com/datatalksai/backend/internal/server/mail"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- fakes ---

type fakeRepo struct {
	mu      sync.Mutex
	byEmail map[string]*User
	failAll error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byEmail: map[string]*User{}}
}

func (f *fakeRepo) Create(ctx context.Context, user *User) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return nil, common.ErrConflict
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	user, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeRepo) getByID(id string) *User {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byEmail {
		if user.ID == id {
			return user
		}
	}
	return nil
}

func (f *fakeRepo) SetVerified(ctx context.Context, id string) error {
	user := f.getByID(id)
	if user == nil {
		return common.ErrNotFound
	}
	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiresAt = nil
	return nil
}

func (f *fakeRepo) SetOTP(ctx context.Context, id string, otp *string, expiresAt *time.Time) error {
	user := f.getByID(id)
	if user == nil {
		return common.ErrNotFound
	}
	user.OTP = otp
	user.OTPExpiresAt = expiresAt
	return nil
}

func (f *fakeRepo) SetResetOTP(ctx context.Context, id string, otp *string, expiresAt *time.Time) error {
	user := f.getByID(id)
	if user == nil {
		return common.ErrNotFound
	}
	user.ResetOTP = otp
	user.ResetOTPExpiresAt = expiresAt
	return nil
}

func (f *fakeRepo) GetByEmailAndResetOTP(ctx context.Context, email, otp string, now time.Time) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok || user.ResetOTP == nil || *user.ResetOTP != otp {
		return nil, common.ErrNotFound
	}
	if user.ResetOTPExpiresAt == nil || !user.ResetOTPExpiresAt.After(now) {
		return nil, common.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) SetPassword(ctx context.Context, id string, passwordHash string) error {
	user := f.getByID(id)
	if user == nil {
		return common.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.ResetOTP = nil
	user.ResetOTPExpiresAt = nil
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// --- helpers ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JWTSecret = "test-secret"
	cfg.TokenValidity = time.Hour
	cfg.OTPValidity = 5 * time.Minute
	return cfg
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeMailer) {
	t.Helper()
	repo := newFakeRepo()
	mailer := &fakeMailer{}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewService(repo, mailer, logger, testConfig()), repo, mailer
}

func signupUser(t *testing.T, s *Service, repo *fakeRepo, email string) *User {
	t.Helper()
	_, err := s.Signup(context.Background(), "A", email, "p1", "p1")
	require.NoError(t, err)
	return repo.byEmail[email]
}

// --- signup ---

func TestSignup_CreatesRecordAndIssuesSession(t *testing.T) {
	s, repo, mailer := newTestService(t)

	session, err := s.Signup(context.Background(), "A", "a@x.com", "p1", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, "a@x.com", session.User.Email)
	require.False(t, session.User.IsVerified)
	require.Equal(t, 1, mailer.sentCount())

	stored := repo.byEmail["a@x.com"]
	require.NotNil(t, stored)
	require.NotNil(t, stored.OTP)
	require.NotNil(t, stored.OTPExpiresAt)
	require.Len(t, *stored.OTP, 6)
	require.NotEqual(t, "p1", stored.PasswordHash)

	uid, err := auth.UserIDFromToken(session.Token, []byte("test-secret"))
	require.NoError(t, err)
	require.Equal(t, stored.ID, uid)
}

func TestSignup_DuplicateEmailIsConflict(t *testing.T) {
	s, repo, _ := newTestService(t)
	signupUser(t, s, repo, "a@x.com")

	_, err := s.Signup(context.Background(), "B", "a@x.com", "p2", "p2")
	require.ErrorIs(t, err, common.ErrConflict)
	require.Len(t, repo.byEmail, 1)
}

func TestSignup_MissingFieldsAreValidationErrors(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"", "a@x.com", "p"},
		{"A", "", "p"},
		{"A", "a@x.com", ""},
	}
	for _, tc := range cases {
		_, err := s.Signup(ctx, tc.name, tc.email, tc.password, tc.password)
		require.ErrorIs(t, err, common.ErrValidation)
	}

	_, err := s.Signup(ctx, "A", "a@x.com", "p1", "p2")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestSignup_MailFailureLeavesRecordCreated(t *testing.T) {
	s, repo, mailer := newTestService(t)
	mailer.err = errors.New("smtp down")

	_, err := s.Signup(context.Background(), "A", "a@x.com", "p1", "p1")
	require.ErrorIs(t, err, common.ErrInternal)

	// Partial failure by design: the user exists, unnotified.
	require.NotNil(t, repo.byEmail["a@x.com"])
}

// --- verify ---

func TestVerifyAccount_Success(t *testing.T) {
	s, repo, _ := newTestService(t)
	user := signupUser(t, s, repo, "a@x.com")
	code := *user.OTP

	session, err := s.VerifyAccount(context.Background(), user, code)
	require.NoError(t, err)
	require.True(t, session.User.IsVerified)
	require.NotEmpty(t, session.Token)

	stored := repo.byEmail["a@x.com"]
	require.True(t, stored.IsVerified)
	require.Nil(t, stored.OTP)
	require.Nil(t, stored.OTPExpiresAt)
}

func TestVerifyAccount_WrongCode(t *testing.T) {
	s, repo, _ := newTestService(t)
	user := signupUser(t, s, repo, "a@x.com")

	wrong := "000000"
	if *user.OTP == wrong {
		wrong = "000001"
	}

	_, err := s.VerifyAccount(context.Background(), user, wrong)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.False(t, repo.byEmail["a@x.com"].IsVerified)
}

func TestVerifyAccount_ExpiredCode(t *testing.T) {
	s, repo, _ := newTestService(t)
	user := signupUser(t, s, repo, "a@x.com")

	past := time.Now().Add(-time.Minute)
	user.OTPExpiresAt = &past

	_, err := s.VerifyAccount(context.Background(), user, *user.OTP)
	require.ErrorIs(t, err, common.ErrExpired)
	require.False(t, repo.byEmail["a@x.com"].IsVerified)
}

func TestVerifyAccount_MissingCode(t *testing.T) {
	s, repo, _ := newTestService(t)
	user := signupUser(t, s, repo, "a@x.com")

	_, err := s.VerifyAccount(context.Background(), user, "")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestVerifyAccount_AlreadyVerified(t *testing.T) {
	s, repo, _ := newTestService(t)
	user := signupUser(t, s, repo, "a@x.com")
	code := *user.OTP

	_, err := s.VerifyAccount(context.Background(), user, code)
	require.NoError(t, err)

	_, err = s.VerifyAccount(context.Background(), user, code)
	require.ErrorIs(t, err, common.ErrConflict)
}

// --- resend ---

func TestResendOTP_RegeneratesPair(t *testing.T) {
	s, repo, mailer := newTestService(t)
	user := signupUser(t, s, repo, "a@x.com")
	first := *user.OTP

	err := s.ResendOTP(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, 2, mailer.sentCount())

	stored := repo.byEmail["a@x.com"]
	require.NotNil(t, stored.OTP)
	require.NotNil(t, stored.OTPExpiresAt)
	if *stored.OTP == first {
		t.Logf("warning: regenerated OTP equals the first one; extremely unlikely")
	}
}

func TestResendOTP_AlreadyVerified(t *testing.T) {
	s, repo, _ := newTestService(t)
	user := signupUser(t, s, repo, "a@x.com")

	_, err := s.VerifyAccount(context.Background(), user, *repo.byEmail["a@x.com"].OTP)
	require.NoError(t, err)

	err = s.ResendOTP(context.Background(), user)
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestResendOTP_MailFailureClearsPair(t *testing.T) {
	s, repo, mailer := newTestService(t)
	user := signupUser(t, s, repo, "a@x.com")

	mailer.err = errors.New("smtp down")
	err := s.ResendOTP(context.Background(), user)
	require.ErrorIs(t, err, common.ErrInternal)

	stored := repo.byEmail["a@x.com"]
	require.Nil(t, stored.OTP)
	require.Nil(t, stored.OTPExpiresAt)
}

// --- login ---

func TestLogin_Success(t *testing.T) {
	s, repo, _ := newTestService(t)
	signupUser(t, s, repo, "a@x.com")

	session, err := s.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, "a@x.com", session.User.Email)
}

func TestLogin_UnregisteredEmail(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.Login(context.Background(), "nobody@x.com", "p1")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.EqualError(t, err, "You are not registered...!")
}

func TestLogin_WrongPasswordNeverIssuesToken(t *testing.T) {
	s, repo, _ := newTestService(t)
	signupUser(t, s, repo, "a@x.com")

	session, err := s.Login(context.Background(), "a@x.com", "wrong")
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.Nil(t, session)
}

func TestLogin_MissingFields(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.Login(context.Background(), "", "p1")
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Login(context.Background(), "a@x.com", "")
	require.ErrorIs(t, err, common.ErrValidation)
}

// --- forgot / reset ---

func TestForgetPassword_SetsResetPairAndSendsMail(t *testing.T) {
	s, repo, mailer := newTestService(t)
	signupUser(t, s, repo, "a@x.com")

	err := s.ForgetPassword(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, 2, mailer.sentCount())

	stored := repo.byEmail["a@x.com"]
	require.NotNil(t, stored.ResetOTP)
	require.NotNil(t, stored.ResetOTPExpiresAt)
}

func TestForgetPassword_UnknownEmail(t *testing.T) {
	s, _, _ := newTestService(t)

	err := s.ForgetPassword(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestForgetPassword_MailFailureClearsPair(t *testing.T) {
	s, repo, mailer := newTestService(t)
	signupUser(t, s, repo, "a@x.com")

	mailer.err = errors.New("smtp down")
	err := s.ForgetPassword(context.Background(), "a@x.com")
	require.ErrorIs(t, err, common.ErrInternal)

	stored := repo.byEmail["a@x.com"]
	require.Nil(t, stored.ResetOTP)
	require.Nil(t, stored.ResetOTPExpiresAt)
}

func TestResetPassword_SuccessInvalidatesCode(t *testing.T) {
	s, repo, _ := newTestService(t)
	signupUser(t, s, repo, "a@x.com")
	require.NoError(t, s.ForgetPassword(context.Background(), "a@x.com"))

	code := *repo.byEmail["a@x.com"].ResetOTP

	session, err := s.ResetPassword(context.Background(), "a@x.com", code, "newpass", "newpass")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	stored := repo.byEmail["a@x.com"]
	require.Nil(t, stored.ResetOTP)
	require.Nil(t, stored.ResetOTPExpiresAt)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpass")))

	// A redeemed code cannot be replayed.
	_, err = s.ResetPassword(context.Background(), "a@x.com", code, "other", "other")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestResetPassword_ExpiredCode(t *testing.T) {
	s, repo, _ := newTestService(t)
	signupUser(t, s, repo, "a@x.com")
	require.NoError(t, s.ForgetPassword(context.Background(), "a@x.com"))

	stored := repo.byEmail["a@x.com"]
	past := time.Now().Add(-time.Minute)
	stored.ResetOTPExpiresAt = &past

	_, err := s.ResetPassword(context.Background(), "a@x.com", *stored.ResetOTP, "newpass", "newpass")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestResetPassword_PasswordMismatch(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.ResetPassword(context.Background(), "a@x.com", "123456", "p1", "p2")
	require.ErrorIs(t, err, common.ErrValidation)
}
