package notification

import (
	"context"
	"fmt"

	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/smtp"
	"github.com/identity-api/internal/infrastructure/sns"
)

// Dispatcher constructs per-purpose OTP messages and hands them to the
// configured transports. Transport failures surface as domain.ErrDeliveryFailed
// and never affect the stored code — the caller re-runs issuance via resend.
type Dispatcher interface {
	SendOtpEmail(ctx context.Context, address string, purpose domain.OtpPurpose, code string) error
	SendOtpSMS(ctx context.Context, phone string, purpose domain.OtpPurpose, code string) error
}

type dispatcher struct {
	mailer    smtp.Mailer
	smsSender sns.SMSSender // nil when SNS is not configured
}

func NewDispatcher(mailer smtp.Mailer, smsSender sns.SMSSender) Dispatcher {
	return &dispatcher{mailer: mailer, smsSender: smsSender}
}

type template struct {
	subject string
	body    string // fmt verb receives the code
}

var templates = map[domain.OtpPurpose]template{
	domain.PurposeEmailVerification: {
		subject: "Confirm your email",
		body:    "Your email verification code is %s. It expires shortly.",
	},
	domain.PurposePasswordReset: {
		subject: "Password reset code",
		body:    "Your password reset code is %s. If you did not request this, ignore this message.",
	},
	domain.PurposeTwoFactor: {
		subject: "Your sign-in code",
		body:    "Your sign-in code is %s.",
	},
}

func (d *dispatcher) SendOtpEmail(ctx context.Context, address string, purpose domain.OtpPurpose, code string) error {
	tpl, ok := templates[purpose]
	if !ok {
		return fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	if err := d.mailer.SendEmail(address, tpl.subject, fmt.Sprintf(tpl.body, code)); err != nil {
		return fmt.Errorf("send otp email: %v: %w", err, domain.ErrDeliveryFailed)
	}
	return nil
}

func (d *dispatcher) SendOtpSMS(ctx context.Context, phone string, purpose domain.OtpPurpose, code string) error {
	tpl, ok := templates[purpose]
	if !ok {
		return fmt.Errorf("unknown otp purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	if d.smsSender == nil {
		return fmt.Errorf("sms transport not configured: %w", domain.ErrDeliveryFailed)
	}
	if err := d.smsSender.SendSMS(ctx, phone, fmt.Sprintf(tpl.body, code)); err != nil {
		return fmt.Errorf("send otp sms: %v: %w", err, domain.ErrDeliveryFailed)
	}
	return nil
}
