package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog"

	"github.com/gatherly/server/internal/metrics"
	"github.com/gatherly/server/internal/notify"
)

// NewClient builds the river client with the notification worker
// registered. Start/Stop are the caller's responsibility.
func NewClient(pool *pgxpool.Pool, sender notify.Sender) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewNotificationWorker(sender)); err != nil {
		return nil, fmt.Errorf("register notification worker: %w", err)
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return client, nil
}

// Enqueuer implements the domain notifier by inserting river jobs.
// Enqueue failures are logged and dropped: notifications never block or
// fail the request that triggered them.
type Enqueuer struct {
	client *river.Client[pgx.Tx]
	logger zerolog.Logger
}

func NewEnqueuer(client *river.Client[pgx.Tx], logger zerolog.Logger) *Enqueuer {
	return &Enqueuer{client: client, logger: logger.With().Str("component", "jobs").Logger()}
}

func (e *Enqueuer) Send(ctx context.Context, template string, recipients []string, payload map[string]any) {
	if len(recipients) == 0 {
		return
	}
	_, err := e.client.Insert(ctx, NotificationArgs{
		Template:   template,
		Recipients: recipients,
		Payload:    payload,
	}, nil)
	if err != nil {
		e.logger.Error().Err(err).
			Str("template", template).
			Int("recipients", len(recipients)).
			Msg("failed to enqueue notification")
		return
	}
	metrics.NotificationsEnqueuedTotal.WithLabelValues(template).Inc()
}
