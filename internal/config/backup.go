package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
)

const (
	// MaxBackups is the maximum number of config backups to keep
	MaxBackups = 3

	// BackupSuffix is the file extension for backup files
	BackupSuffix = ".bak"

	backupTimeFormat = "20060102-150405.000000"
)

// BackupConfig copies the config file at path to a timestamped backup next
// to it and prunes old backups. Returns "" when there is nothing to back up.
func BackupConfig(path string) (string, error) {
	path = ResolvePath(path)
	if !Exists(path) {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fileError("failed to read config for backup", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, time.Now().Format(backupTimeFormat))
	if err := os.WriteFile(backupPath, data, FileMode); err != nil {
		return "", fileError("failed to write config backup", err)
	}

	// Best effort; the backup itself succeeded.
	_ = cleanupOldBackups(path)

	return backupPath, nil
}

// ListBackups returns the backups of the config file at path, newest first.
func ListBackups(path string) ([]string, error) {
	path = ResolvePath(path)
	dir := filepath.Dir(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fileError("failed to list config directory", err)
	}

	prefix := filepath.Base(path) + BackupSuffix + "."
	var backups []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		backups = append(backups, filepath.Join(dir, entry.Name()))
	}

	// Timestamps sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// cleanupOldBackups removes backups beyond MaxBackups, keeping the newest.
func cleanupOldBackups(path string) error {
	backups, err := ListBackups(path)
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}
	for _, backup := range backups[MaxBackups:] {
		_ = os.Remove(backup)
	}
	return nil
}

// RestoreConfig replaces the config at path with backupPath. The current
// file is backed up first. The restored content must parse and validate.
func RestoreConfig(path, backupPath string) error {
	path = ResolvePath(path)

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return gserrors.New(gserrors.ErrCodeFileNotFound, fmt.Sprintf("backup %s not found", backupPath), err)
	}

	cfg := NewConfig()
	if err := cfg.mergeYAML(data, backupPath); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return WriteFileLocked(path, data)
}
