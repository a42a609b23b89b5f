package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/datatalksai/backend/internal/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository stores user records in the users table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

const userColumns = `id, name, email, password_hash, is_verified,
       otp, otp_expires_at, reset_otp, reset_otp_expires_at, created_at`

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsVerified,
		&user.OTP, &user.OTPExpiresAt, &user.ResetOTP, &user.ResetOTPExpiresAt,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, name, email, password_hash, otp, otp_expires_at)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.OTP, user.OTPExpiresAt).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) SetVerified(ctx context.Context, id string) error {
	query :=
		`UPDATE users
		 SET is_verified = TRUE, otp = NULL, otp_expires_at = NULL
		 WHERE id = $1
		 `

	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) SetOTP(ctx context.Context, id string, otp *string, expiresAt *time.Time) error {
	query :=
		`UPDATE users
		 SET otp = $2, otp_expires_at = $3
		 WHERE id = $1
		 `

	return r.exec(ctx, query, id, otp, expiresAt)
}

func (r *PostgresRepository) SetResetOTP(ctx context.Context, id string, otp *string, expiresAt *time.Time) error {
	query :=
		`UPDATE users
		 SET reset_otp = $2, reset_otp_expires_at = $3
		 WHERE id = $1
		 `

	return r.exec(ctx, query, id, otp, expiresAt)
}

func (r *PostgresRepository) GetByEmailAndResetOTP(ctx context.Context, email, otp string, now time.Time) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1 AND reset_otp = $2 AND reset_otp_expires_at > $3`

	return scanUser(r.db.QueryRowContext(ctx, query, email, otp, now))
}

func (r *PostgresRepository) SetPassword(ctx context.Context, id string, passwordHash string) error {
	query :=
		`UPDATE users
		 SET password_hash = $2, reset_otp = NULL, reset_otp_expires_at = NULL
		 WHERE id = $1
		 `

	return r.exec(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
