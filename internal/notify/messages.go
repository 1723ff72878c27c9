// Package notify delivers verification and password reset links to account
// holders.
package notify

import (
	"fmt"
	"html"
)

// Message is a rendered email ready for a transport.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

func VerificationMessage(email string, link string) Message {
	return Message{
		To:      email,
		Subject: "Verify your email",
		HTML:    fmt.Sprintf("<p>Click to verify your email:</p><p><a href=\"%s\">Verify Email</a></p>", html.EscapeString(link)),
		Text:    fmt.Sprintf("Verify your email: %s", link),
	}
}

func PasswordResetMessage(email string, link string) Message {
	return Message{
		To:      email,
		Subject: "Reset your password",
		HTML:    fmt.Sprintf("<p>Click to reset your password:</p><p><a href=\"%s\">Reset Password</a></p><p>The link expires in one hour.</p>", html.EscapeString(link)),
		Text:    fmt.Sprintf("Reset your password (expires in one hour): %s", link),
	}
}
