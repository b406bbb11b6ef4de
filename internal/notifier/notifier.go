// Package notifier is the outbound messaging sink: a destination id and a
// text payload, fire-and-forget. The core never consumes a delivery result.
package notifier

import "github.com/rs/zerolog"

type Notifier interface {
	Notify(destinationID, text string)
}

// GroupChat is the mock BiP group sink. A real transport would POST to the
// messaging provider here; the delivery contract stays the same.
type GroupChat struct {
	log *zerolog.Logger
}

func NewGroupChat(log *zerolog.Logger) *GroupChat {
	return &GroupChat{log: log}
}

func (g *GroupChat) Notify(destinationID, text string) {
	g.log.Info().
		Str("group_id", destinationID).
		Str("text", text).
		Msgf("[MOCK BiP GRUP %s] %s", destinationID, text)
}
