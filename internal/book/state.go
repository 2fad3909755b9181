package book

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"PolicyScan/internal/model"
)

// LoadState reads the policy book from a YAML file. Returns an empty book if the file doesn't exist.
func LoadState(filePath string) (*model.PolicyBook, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.PolicyBook{}, nil
		}
		return nil, eris.Wrap(err, "book: read file")
	}
	var state model.PolicyBook
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, eris.Wrapf(err, "book: parse %s", filePath)
	}
	return &state, nil
}

// SaveState writes the policy book to a YAML file, creating parent directories.
func SaveState(filePath string, state *model.PolicyBook) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "book: marshal")
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "book: create dir")
		}
	}
	return eris.Wrap(os.WriteFile(filePath, data, 0o644), "book: write file")
}
