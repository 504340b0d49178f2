package walkthrough

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifacts writes checkpoint screenshots into one directory. Files are only
// ever created; existing ones are overwritten by the same checkpoint of a
// later run and never read back.
type Artifacts struct {
	Dir string
}

// Ensure creates the directory if it is missing.
func (a Artifacts) Ensure() error {
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return nil
}

// Path returns the file for checkpoint index, e.g. "07_history_with_dream.png".
func (a Artifacts) Path(index int, name string) string {
	return filepath.Join(a.Dir, fmt.Sprintf("%02d_%s.png", index, name))
}

func (a Artifacts) Write(index int, name string, png []byte) (string, error) {
	path := a.Path(index, name)
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}
