// Package reminder schedules deferred event notifications. Messages ride the
// delayed RabbitMQ exchange, so a pending reminder survives a process restart
// as long as the broker keeps it; the calling contract is just
// Schedule(event, destination, delay, message).
package reminder

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"toplan/internal/rabbit"
)

type Scheduler interface {
	Schedule(eventID int64, destinationID string, delay time.Duration, message string) error
}

// Message is the wire payload carried through the broker.
type Message struct {
	EventID       int64  `json:"event_id"`
	DestinationID string `json:"destination_id"`
	Text          string `json:"text"`
}

type QueueScheduler struct {
	rbt *rabbit.Client
	log *zerolog.Logger
}

func NewQueueScheduler(rbt *rabbit.Client, log *zerolog.Logger) *QueueScheduler {
	return &QueueScheduler{rbt: rbt, log: log}
}

// Schedule publishes the reminder with the given delay. Non-positive delays
// are dropped: the reminder tier is already in the past.
func (s *QueueScheduler) Schedule(eventID int64, destinationID string, delay time.Duration, message string) error {
	if delay <= 0 {
		s.log.Debug().Int64("event_id", eventID).Msg("reminder delay elapsed, skipping")
		return nil
	}

	payload, err := json.Marshal(Message{
		EventID:       eventID,
		DestinationID: destinationID,
		Text:          message,
	})
	if err != nil {
		return err
	}

	if err := s.rbt.Publish(payload, int(delay.Seconds())); err != nil {
		s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to schedule reminder")
		return err
	}

	s.log.Info().
		Int64("event_id", eventID).
		Str("group_id", destinationID).
		Dur("delay", delay).
		Msg("reminder scheduled")
	return nil
}
