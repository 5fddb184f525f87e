package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// emailSender is the slice of the Resend client we use.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendDispatcher struct {
	emails emailSender
	from   string
}

func NewResendDispatcher(apiKey, from string) *ResendDispatcher {
	client := resend.NewClient(apiKey)
	return &ResendDispatcher{emails: client.Emails, from: from}
}

func (d *ResendDispatcher) Send(ctx context.Context, msg Message) error {
	rendered, err := Render(msg)
	if err != nil {
		return err
	}

	_, err = d.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    d.from,
		To:      []string{msg.To},
		Subject: rendered.Subject,
		Html:    rendered.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: send %s: %w", msg.Kind, err)
	}
	return nil
}
