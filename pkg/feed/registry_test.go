package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRegistry(t *testing.T) {
	directory := t.TempDir()

	multiDocument := `identifier: metro-gtfsrt
format: gtfs-rt
source: https://example.com/vehiclepositions.pb
refreshrate: 10s
username: user
password: hunter2
---
identifier: metro-sirivm
format: siri-vm
source: https://example.com/siri
`

	assert.NoError(t, os.WriteFile(filepath.Join(directory, "metro.yaml"), []byte(multiDocument), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(directory, "ignored.txt"), []byte("not yaml"), 0644))

	definitions, err := LoadRegistry(directory)
	assert.NoError(t, err)
	assert.Len(t, definitions, 2)

	first := definitions[0]
	assert.Equal(t, "metro-gtfsrt", first.Identifier)
	assert.Equal(t, FormatGTFSRT, first.Format)
	assert.Equal(t, 10*time.Second, first.RefreshRate)
	assert.Equal(t, "user", first.Username)
	assert.Equal(t, defaultTimeout, first.Timeout)

	// Defaults fill in anything a definition leaves out
	second := definitions[1]
	assert.Equal(t, FormatSiriVM, second.Format)
	assert.Equal(t, defaultRefreshRate, second.RefreshRate)
}

func TestLoadRegistryEmptyDirectory(t *testing.T) {
	definitions, err := LoadRegistry(t.TempDir())
	assert.NoError(t, err)
	assert.Empty(t, definitions)
}

func TestLoadRegistryMalformedDocument(t *testing.T) {
	directory := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(directory, "bad.yaml"), []byte("identifier: [unclosed"), 0644))

	_, err := LoadRegistry(directory)
	assert.Error(t, err)
}
