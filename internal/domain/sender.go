package domain

import "context"

// ChannelSender is the outbound transport boundary. Implementations may fail
// with transport errors; the notifier maps those to a FAILED record and never
// raises them to whatever triggered the send.
type ChannelSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSms(ctx context.Context, to, body string) error
}

// LivePublisher pushes accepted location readings to live subscribers.
// Fire-and-forget, no acknowledgment, must never block the reporting path.
type LivePublisher interface {
	Publish(topic, payload string) error
}
