package schedule

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
)

type snapshotFile struct {
	Routes         []*Route `json:"routes"`
	Blocks         []*Block `json:"blocks"`
	ActiveServices []string `json:"active_services"`
}

// LoadSnapshot reads an externally built schedule index from a JSON snapshot
// file. Static schedule import itself lives outside the tracking core
func LoadSnapshot(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snapshot snapshotFile
	if err := json.NewDecoder(file).Decode(&snapshot); err != nil {
		return nil, err
	}

	log.Info().
		Str("path", path).
		Int("routes", len(snapshot.Routes)).
		Int("blocks", len(snapshot.Blocks)).
		Int("activeservices", len(snapshot.ActiveServices)).
		Msg("Loaded schedule snapshot")

	return NewIndex(snapshot.Routes, snapshot.Blocks, snapshot.ActiveServices), nil
}
