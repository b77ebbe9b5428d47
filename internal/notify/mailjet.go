package notify

import (
	"context"
	"fmt"

	"github.com/mailjet/mailjet-apiv3-go"
)

type Mailjet struct {
	client   *mailjet.Client
	from     string
	fromName string
}

func NewMailjet(apiKey, secretKey, from string) *Mailjet {
	return &Mailjet{
		client:   mailjet.NewMailjetClient(apiKey, secretKey),
		from:     from,
		fromName: "Averulo",
	}
}

// Send posts through the v3.1 send API. The client does not take a context, so
// cancellation is only checked before the call.
func (m *Mailjet) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := mailjet.InfoMessagesV31{
		From: &mailjet.RecipientV31{
			Email: m.from,
			Name:  m.fromName,
		},
		To: &mailjet.RecipientsV31{
			mailjet.RecipientV31{Email: to},
		},
		Subject:  subject,
		HTMLPart: body,
	}
	if _, err := m.client.SendMailV31(&mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{msg}}); err != nil {
		return fmt.Errorf("mailjet send: %w", err)
	}
	return nil
}
