package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ResendSender delivers notifications through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	logger zerolog.Logger
}

func NewResendSender(apiKey, from string, logger zerolog.Logger) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	rendered, err := render(msg)
	if err != nil {
		return err
	}

	request := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.Recipients,
		Subject: rendered.Subject,
		Text:    rendered.Body,
	}
	// Bulk registrant messages carry a sanitized HTML body alongside the
	// text rendering.
	if html, ok := msg.Payload["html_body"].(string); ok && html != "" {
		request.Html = html
	}

	sent, err := s.client.Emails.SendWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("send %s email: %w", msg.Template, err)
	}

	s.logger.Debug().
		Str("template", msg.Template).
		Str("email_id", sent.Id).
		Int("recipients", len(msg.Recipients)).
		Msg("notification sent")
	return nil
}
