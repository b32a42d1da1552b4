package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/transitflow/transitflow/pkg/elastic_client"
)

// MatchOutcomeElasticEvent records one matching attempt for offline rate
// analysis
type MatchOutcomeElasticEvent struct {
	Timestamp time.Time

	Success    bool
	FailReason string `json:",omitempty"`

	Vehicle string
	Route   string `json:",omitempty"`
	Trip    string `json:",omitempty"`

	Source string
}

// RecordMatchOutcome indexes the event into a weekly index, best effort
func RecordMatchOutcome(event MatchOutcomeElasticEvent) {
	yearNumber, weekNumber := event.Timestamp.ISOWeek()
	indexName := fmt.Sprintf("match-events-%d-%d", yearNumber, weekNumber)

	encoded, _ := json.Marshal(event)

	elastic_client.IndexRequest(indexName, bytes.NewReader(encoded))
}
