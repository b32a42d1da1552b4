package feed

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Manager owns one poller per registered feed definition
type Manager struct {
	Definitions []Definition
	Submitter   Submitter
}

func (m *Manager) Run(ctx context.Context) {
	log.Info().Int("feeds", len(m.Definitions)).Msg("Starting feed pollers")

	for _, definition := range m.Definitions {
		log.Info().
			Str("feed", definition.Identifier).
			Str("format", string(definition.Format)).
			Dur("refresh", definition.RefreshRate).
			Msg("Registered feed")

		poller := NewPoller(definition, m.Submitter)
		go poller.Run(ctx)
	}
}
