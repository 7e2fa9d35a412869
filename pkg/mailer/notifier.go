package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Sender delivers a single plain text email. *Mailgun implements it.
type Sender interface {
	Send(ctx context.Context, to, subject, text string) error
}

// Publisher enqueues a JSON payload. *helpers.RabbitPublisher implements it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// DirectNotifier sends mail inline. Failures are logged and dropped.
type DirectNotifier struct {
	Sender Sender
	Logger *logrus.Logger
}

func NewDirectNotifier(sender Sender, logger *logrus.Logger) *DirectNotifier {
	return &DirectNotifier{Sender: sender, Logger: logger}
}

func (n *DirectNotifier) Notify(ctx context.Context, to, subject, body string) {
	if err := n.Sender.Send(ctx, to, subject, body); err != nil {
		logFailure(n.Logger, err, to, "error encountered while sending email")
		return
	}
	if n.Logger != nil {
		n.Logger.WithField("to", to).Debug("email sent")
	}
}

// QueueNotifier hands mail to the email worker through the queue.
// Failures are logged and dropped.
type QueueNotifier struct {
	Pub    Publisher
	Logger *logrus.Logger
}

func NewQueueNotifier(pub Publisher, logger *logrus.Logger) *QueueNotifier {
	return &QueueNotifier{Pub: pub, Logger: logger}
}

func (n *QueueNotifier) Notify(ctx context.Context, to, subject, body string) {
	job := EmailJob{To: to, Subject: subject, Text: body}
	if err := n.Pub.PublishJSON(ctx, job); err != nil {
		logFailure(n.Logger, err, to, "failed to publish email job")
		return
	}
	if n.Logger != nil {
		n.Logger.WithField("to", to).Debug("email job enqueued")
	}
}

// LogNotifier only records that a message would have been sent.
// Used when sending is enabled but no transport is configured.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (n LogNotifier) Notify(_ context.Context, to, subject, _ string) {
	if n.Logger != nil {
		n.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Warn("no mail transport configured; email not sent")
	}
}

func logFailure(logger *logrus.Logger, err error, to, msg string) {
	if logger == nil {
		return
	}
	logger.WithError(err).WithField("to", to).Error(msg)
}
