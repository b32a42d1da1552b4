package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/transit"
)

// Poller repeatedly fetches one feed and hands the parsed reports to a
// Submitter. A failed cycle is logged and retried on the next refresh
type Poller struct {
	Definition Definition
	Submitter  Submitter

	client *http.Client
}

func NewPoller(definition Definition, submitter Submitter) *Poller {
	return &Poller{
		Definition: definition,
		Submitter:  submitter,
		client:     &http.Client{},
	}
}

func (p *Poller) Run(ctx context.Context) {
	log.Info().
		Str("feed", p.Definition.Identifier).
		Str("format", string(p.Definition.Format)).
		Dur("refresh", p.Definition.RefreshRate).
		Msg("Starting feed poller")

	for {
		startTime := time.Now()

		if err := p.poll(ctx); err != nil {
			log.Error().Err(err).Str("feed", p.Definition.Identifier).Msg("Feed poll cycle failed")
		}

		executionDuration := time.Since(startTime)
		waitTime := p.Definition.RefreshRate - executionDuration

		if waitTime <= 0 {
			waitTime = time.Millisecond
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(waitTime):
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	body, err := fetch(ctx, p.client, p.Definition)
	if err != nil {
		return err
	}

	reports, err := p.parse(body)
	if err != nil {
		return err
	}

	submitted := p.Submitter.SubmitReports(reports)

	log.Debug().
		Str("feed", p.Definition.Identifier).
		Int("retrieved", len(reports)).
		Int("submitted", submitted).
		Msg("Feed poll cycle complete")

	return nil
}

func (p *Poller) parse(body []byte) ([]*transit.AvlReport, error) {
	switch p.Definition.Format {
	case FormatGTFSRT:
		return ParseGTFSRT(body, p.Definition.Identifier)
	case FormatSiriVM:
		return ParseSiriVM(body, p.Definition.Identifier)
	case FormatCSV:
		return ParseCSV(body, p.Definition.Identifier)
	default:
		return nil, fmt.Errorf("unsupported feed format %s", p.Definition.Format)
	}
}
