// Package mail is the outbound notification sink: it accepts a message and
// attempts delivery synchronously, reporting success or failure to the
// caller. There is no queue and no retry.
package mail

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers messages. The SMTP implementation is used in production;
// tests substitute fakes.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
