package mail

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/fineprint/internal/async"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
)

// Dispatcher hands batches to a background queue. Nothing it does can fail the caller's work.
type Dispatcher struct {
	queue   async.Queue
	sender  Sender
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewDispatcher(queue async.Queue, sender Sender, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{queue: queue, sender: sender, metrics: m, logger: logger}
}

// Dispatch enqueues msgs. A rejected enqueue is logged and counted, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	batch := append([]Message(nil), msgs...)
	err := d.queue.Enqueue(ctx, async.Job{
		Kind: "mail",
		Run: func(ctx context.Context) error {
			return d.deliver(ctx, batch)
		},
	})
	if err != nil {
		d.metrics.MailDispatched("dropped", len(batch))
		d.logger.Warn("mail.dispatch.dropped", "recipients", len(batch), "error", err)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msgs []Message) error {
	sent, err := d.sender.Send(ctx, msgs)
	failed := len(msgs) - sent
	d.metrics.MailDispatched("sent", sent)
	d.metrics.MailDispatched("failed", failed)
	if err != nil {
		d.logger.Error("mail.dispatch.failed", "sent", sent, "failed", failed, "error", err)
		return err
	}
	d.logger.Info("mail.dispatch.done", "sent", sent, "failed", failed)
	return nil
}
