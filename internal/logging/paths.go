package logging

import (
	"os"
	"path/filepath"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
)

// DefaultLogDir returns the default log directory (~/.gitlab-search/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".gitlab-search", "logs")
	}
	return filepath.Join(home, ".gitlab-search", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "gitlab-search.log")
}

// FindLogFile returns explicit if it exists, else the default log file.
func FindLogFile(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = DefaultLogPath()
	}
	if _, err := os.Stat(path); err != nil {
		return "", gserrors.New(gserrors.ErrCodeFileNotFound, "log file not found: "+path, err).
			WithSuggestion("Run a gitlab-search command first; logs are written on every run")
	}
	return path, nil
}
