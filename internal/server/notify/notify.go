// Package notify delivers verification codes, reset OTPs and verification
// links to users. Engines hand messages to a Notifier and never wait for
// delivery; Senders do the actual transport.
package notify

import (
	"context"
	"fmt"
)

// Message kinds, carried as metadata for transports that route on them.
const (
	KindVerificationCode = "verification_code"
	KindVerificationLink = "verification_link"
	KindPasswordReset    = "password_reset"
)

// Message is a single outbound email.
type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier accepts messages for best-effort background delivery.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Sender performs synchronous delivery over one transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func VerificationCodeMessage(to, code string) Message {
	return Message{
		Kind:    KindVerificationCode,
		To:      to,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("<p>Your verification code is: <b>%s</b></p>", code),
	}
}

func VerificationLinkMessage(to, link string) Message {
	return Message{
		Kind:    KindVerificationLink,
		To:      to,
		Subject: "Verify your email",
		Body:    fmt.Sprintf(`<p>Click <a href="%s">here</a> to verify your email.</p>`, link),
	}
}

func PasswordResetMessage(to, otp string) Message {
	return Message{
		Kind:    KindPasswordReset,
		To:      to,
		Subject: "Password reset code",
		Body:    fmt.Sprintf("<p>Your password reset code is: <b>%s</b></p>", otp),
	}
}
