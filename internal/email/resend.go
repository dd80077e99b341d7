package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ErrRateLimited is returned when Resend rejects a send with 429.
var ErrRateLimited = errors.New("email rate limit exceeded")

// message is one rendered email ready for delivery.
type message struct {
	to       string
	subject  string
	html     string
	template string
}

// deliver sends msg through Resend. Rate limit rejections are not retried;
// the welcome mail is best effort.
func (s *Service) deliver(ctx context.Context, msg message) error {
	if s.resendClient == nil {
		return errors.New("resend client not initialized")
	}

	req := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{msg.to},
		Subject: msg.subject,
		Html:    msg.html,
		Tags:    []resend.Tag{{Name: "template", Value: msg.template}},
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, req)
	if err != nil {
		var limited *resend.RateLimitError
		if errors.As(err, &limited) {
			s.logger.Warn().
				Str("template", msg.template).
				Str("limit", limited.Limit).
				Str("reset", limited.Reset).
				Msg("resend rate limit hit")
			return fmt.Errorf("%w (retry in %ss): %w", ErrRateLimited, limited.Reset, err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Info().Str("template", msg.template).Str("email_id", sent.Id).Msg("email delivered")
	return nil
}
