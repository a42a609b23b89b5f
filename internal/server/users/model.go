package users

import "time"

// User is the stored account record. The OTP fields come in pairs: a code
// and its expiry are always set together and cleared together.
type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	IsVerified        bool
	OTP               *string
	OTPExpiresAt      *time.Time
	ResetOTP          *string
	ResetOTPExpiresAt *time.Time
	CreatedAt         time.Time
}

// View is the outward-facing shape of a user. The password hash and the
// pending OTP state never leave the service.
type View struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Sanitized returns the response-safe view of the record.
func (u *User) Sanitized() *View {
	return &View{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}
