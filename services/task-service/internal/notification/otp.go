package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

const otpSubject = "Verify your email address"

// HTMLSender sends an HTML email with a plain-text alternative.
type HTMLSender interface {
	SendHTML(to []string, subject, htmlBody, textBody string) error
}

// OTPMailer delivers one-time verification codes by email.
type OTPMailer struct {
	sender HTMLSender
	logger *zerolog.Logger
}

func NewOTPMailer(sender HTMLSender, logger *zerolog.Logger) *OTPMailer {
	return &OTPMailer{sender: sender, logger: logger}
}

// SendOTP emails code to the given address.
func (m *OTPMailer) SendOTP(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>Thanks for signing up. Use the code below to verify your email address:</p>

		<p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p>

		<p>If you did not create an account, you can safely ignore this email.</p>

		<p>Thank you,</p>
		<p>Task Manager Team</p>
	`, code)
	textBody := fmt.Sprintf("Your verification code is %s", code)

	if err := m.sender.SendHTML([]string{email}, otpSubject, htmlBody, textBody); err != nil {
		return err
	}

	m.logger.Debug().Str("email", email).Msg("verification code sent")

	return nil
}
