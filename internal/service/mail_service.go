package service

import (
	"context"
	"fmt"
	"html"
)

type MailAttachment struct {
	Filename string
	Data     []byte
}

type Mail struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []MailAttachment
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

func VerificationMail(to, name, link string) Mail {
	return Mail{
		To:      to,
		Subject: "Verify your HealthSync account",
		HTMLBody: fmt.Sprintf(`<h3>Welcome to HealthSync, %s</h3>
<p>Please verify your email by clicking the link below:</p>
<a href="%s">Verify Email</a>
<p>This link is valid for 15 minutes.</p>`, html.EscapeString(name), link),
	}
}

func PasswordResetMail(to, link string) Mail {
	return Mail{
		To:      to,
		Subject: "HealthSync - Reset Password",
		HTMLBody: fmt.Sprintf(`<h3>Password Reset Request</h3>
<p>Click the link below to reset your password:</p>
<a href="%s">Reset Password</a>
<p>This link is valid for 15 minutes.</p>`, link),
	}
}

func PaymentConfirmationMail(to, invoiceNumber string, invoicePDF []byte) Mail {
	return Mail{
		To:      to,
		Subject: "HealthSync - Payment Confirmation",
		HTMLBody: fmt.Sprintf(`<h3>Payment successful</h3>
<p>Your appointment is confirmed. Invoice <b>%s</b> is attached.</p>`, html.EscapeString(invoiceNumber)),
		Attachments: []MailAttachment{
			{Filename: invoiceNumber + ".pdf", Data: invoicePDF},
		},
	}
}
