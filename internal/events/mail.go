package events

import "context"

// MailSender delivers user-facing mail. The production implementation
// hands the message to the notification pipeline over the broker; a
// dedicated mailer service consumes the topic.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type eventMailSender struct {
	publisher Publisher
}

func NewMailSender(publisher Publisher) MailSender {
	return &eventMailSender{publisher: publisher}
}

func (s *eventMailSender) Send(ctx context.Context, to, subject, body string) error {
	return s.publisher.Publish(ctx, NewEvent(TypeEmailRequested, EmailEvent{
		To:      to,
		Subject: subject,
		Body:    body,
	}))
}
