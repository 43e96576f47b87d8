package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

// MailerSendMailer delivers codes through the MailerSend API.
type MailerSendMailer struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendMailer(apiKey, fromName, fromEmail string) (*MailerSendMailer, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, errors.New("mailersend requires MAILERSEND_API_KEY and SMTP_FROM")
	}
	return &MailerSendMailer{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}, nil
}

func (m *MailerSendMailer) SendVerificationCode(toEmail, code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	msg.SetSubject("Your verification code")
	msg.SetText(fmt.Sprintf("Your verification code is: %s\n\nIt expires in 10 minutes.", code))

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("mailersend: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("mailersend: unexpected status %d", res.StatusCode)
	}
	return nil
}
