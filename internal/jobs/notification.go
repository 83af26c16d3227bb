package jobs

import (
	"context"

	"github.com/riverqueue/river"

	"github.com/gatherly/server/internal/notify"
)

// NotificationArgs is the payload for one queued notification email.
type NotificationArgs struct {
	Template   string         `json:"template"`
	Recipients []string       `json:"recipients"`
	Payload    map[string]any `json:"payload"`
}

func (NotificationArgs) Kind() string { return "notification" }

// NotificationWorker delivers queued notifications through the configured
// sender. River retries on error, so transient transport failures are
// retried with backoff; duplicates are possible and acceptable.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationArgs]
	sender notify.Sender
}

func NewNotificationWorker(sender notify.Sender) *NotificationWorker {
	return &NotificationWorker{sender: sender}
}

func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationArgs]) error {
	return w.sender.Send(ctx, notify.Message{
		Template:   job.Args.Template,
		Recipients: job.Args.Recipients,
		Payload:    job.Args.Payload,
	})
}
