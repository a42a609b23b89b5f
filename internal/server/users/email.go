package users

import (
	"fmt"
	"time"

	"github.com/datatalksai/backend/internal/server/mail"
)

func validityMinutes(d time.Duration) int {
	m := int(d.Minutes())
	if m < 1 {
		m = 1
	}
	return m
}

func signupMessage(to, name, code string, validity time.Duration) mail.Message {
	return mail.Message{
		To:      to,
		Subject: "Email Verification OTP",
		HTML: fmt.Sprintf(
			`<h1>Dear %s,</h1><p>We are excited to have you on board! As a part of our verification process, we have sent you a <b>One-Time Password (OTP)</b> to verify your email address.</p><h1>Your OTP is: %s</h1><p>This OTP is valid for <b>%d minutes</b> and is required to complete your registration. Please enter it on our website to verify your email address.</p><h4>Best Regards,</h4><h4>DataTalks.AI Team</h4>`,
			name, code, validityMinutes(validity)),
	}
}

func resendMessage(to, name, code string, validity time.Duration) mail.Message {
	return mail.Message{
		To:      to,
		Subject: "Resend OTP for Email Verification",
		HTML: fmt.Sprintf(
			`<h1>Dear %s,</h1><p>Here is the new code you requested.</p><h1>Your OTP is: %s</h1><p>This OTP is valid for <b>%d minutes</b> and is required to complete your registration.</p><h4>Best Regards,</h4><h4>DataTalks.AI Team</h4>`,
			name, code, validityMinutes(validity)),
	}
}

func resetMessage(to, code string, validity time.Duration) mail.Message {
	return mail.Message{
		To:      to,
		Subject: fmt.Sprintf("Your password reset OTP (valid for %d min)", validityMinutes(validity)),
		HTML:    fmt.Sprintf(`<h1>Your password reset OTP: %s</h1>`, code),
	}
}
