package feed

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatGTFSRT Format = "gtfs-rt"
	FormatSiriVM Format = "siri-vm"
	FormatCSV    Format = "csv"
)

// Definition describes one AVL source the pollers should consume
type Definition struct {
	Identifier string `yaml:"identifier"`
	Format     Format `yaml:"format"`

	Source string `yaml:"source"`

	RefreshRate time.Duration `yaml:"-"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	Timeout time.Duration `yaml:"-"`
}

// Durations arrive as strings like "15s", which yaml cannot decode into
// time.Duration on its own
func (d *Definition) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Identifier string `yaml:"identifier"`
		Format     Format `yaml:"format"`

		Source string `yaml:"source"`

		RefreshRate string `yaml:"refreshrate"`

		Username string `yaml:"username"`
		Password string `yaml:"password"`

		Timeout string `yaml:"timeout"`
	}

	if err := value.Decode(&aux); err != nil {
		return err
	}

	d.Identifier = aux.Identifier
	d.Format = aux.Format
	d.Source = aux.Source
	d.Username = aux.Username
	d.Password = aux.Password

	if aux.RefreshRate != "" {
		parsed, err := time.ParseDuration(aux.RefreshRate)
		if err != nil {
			return err
		}
		d.RefreshRate = parsed
	}

	if aux.Timeout != "" {
		parsed, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return err
		}
		d.Timeout = parsed
	}

	return nil
}

const defaultRefreshRate = 15 * time.Second
const defaultTimeout = 30 * time.Second

// LoadRegistry reads every feed definition from the YAML files in a
// directory. Files can contain multiple documents, one definition each
func LoadRegistry(directory string) ([]Definition, error) {
	var definitions []Definition

	err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".yaml") {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		for {
			var definition Definition
			err := decoder.Decode(&definition)

			if errors.Is(err, io.EOF) {
				break
			} else if err != nil {
				return err
			}

			if definition.RefreshRate == 0 {
				definition.RefreshRate = defaultRefreshRate
			}
			if definition.Timeout == 0 {
				definition.Timeout = defaultTimeout
			}

			definitions = append(definitions, definition)
		}

		return nil
	})

	return definitions, err
}
