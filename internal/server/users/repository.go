package users

import (
	"context"
	"time"
)

// Repository is the keyed user record store. Implementations return
// common.ErrNotFound for missing records and common.ErrConflict for
// duplicate emails.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)

	// SetVerified marks the record verified and clears the signup OTP pair
	// in the same statement.
	SetVerified(ctx context.Context, id string) error

	// SetOTP replaces the signup OTP pair. Passing nils clears the pair.
	SetOTP(ctx context.Context, id string, otp *string, expiresAt *time.Time) error

	// SetResetOTP replaces the password-reset OTP pair. Nils clear it.
	SetResetOTP(ctx context.Context, id string, otp *string, expiresAt *time.Time) error

	// GetByEmailAndResetOTP is the single conditional lookup used by the
	// reset flow: email and code must match and the pair must be unexpired
	// as of now.
	GetByEmailAndResetOTP(ctx context.Context, email, otp string, now time.Time) (*User, error)

	// SetPassword stores a new password hash and clears the reset OTP pair
	// in the same statement, so a redeemed code cannot be replayed.
	SetPassword(ctx context.Context, id string, passwordHash string) error
}
