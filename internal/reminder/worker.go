package reminder

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"toplan/internal/notifier"
	"toplan/internal/rabbit"
)

// Worker drains due reminders off the queue and hands them to the messaging
// sink. Delivery is fire-and-forget; a failed unmarshal is nacked back.
type Worker struct {
	rbt    *rabbit.Client
	sink   notifier.Notifier
	done   chan struct{}
	cancel context.CancelFunc
}

func NewWorker(rbt *rabbit.Client, sink notifier.Notifier) *Worker {
	return &Worker{
		rbt:  rbt,
		sink: sink,
		done: make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	zlog.Logger.Info().Msg("reminder worker started")

	go func() {
		defer close(w.done)

		handler := func(body []byte) error {
			var msg Message
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().Err(err).Msgf("failed to unmarshal reminder: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Int64("event_id", msg.EventID).
				Str("group_id", msg.DestinationID).
				Msg("reminder due, delivering")

			w.sink.Notify(msg.DestinationID, msg.Text)
			return nil
		}

		if err := w.rbt.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming reminders")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("reminder worker stopped by context")
	}()
}

func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}
