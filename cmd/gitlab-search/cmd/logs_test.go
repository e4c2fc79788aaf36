package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/logging"
)

func TestLogs_ShowsEntriesOfEarlierRun(t *testing.T) {
	// Given: a finished projects run that logged to the default file
	home := testEnv(t)
	srv := mockGitLab(t)
	cfgPath := writeConfig(t, home, srv.URL)
	_, _, err := runCmd(t, "--config", cfgPath, "projects")
	require.NoError(t, err)

	// When: viewing the logs filtered by event name
	stdout, _, err := runCmd(t, "logs", "--grep", "projects_enumerated", "--no-color")

	// Then: the enumeration entry is shown with its attributes
	require.NoError(t, err)
	assert.Contains(t, stdout, "INFO")
	assert.Contains(t, stdout, "projects_enumerated")
	assert.Contains(t, stdout, "instance=work")
	assert.NotContains(t, stdout, "command_started")
}

func TestLogs_LevelFilter(t *testing.T) {
	// Given: a debug-level run
	home := testEnv(t)
	srv := mockGitLab(t)
	cfgPath := writeConfig(t, home, srv.URL)
	_, _, err := runCmd(t, "--config", cfgPath, "projects")
	require.NoError(t, err)

	// When: asking for warnings and above
	stdout, _, err := runCmd(t, "logs", "--level", "warn")

	// Then: nothing from the healthy run is shown
	require.NoError(t, err)
	assert.NotContains(t, stdout, "projects_enumerated")
	assert.NotContains(t, stdout, "command_started")
}

func TestLogs_MissingFile(t *testing.T) {
	// Given: a fresh home with no earlier runs
	testEnv(t)

	// When: viewing the logs
	_, _, err := runCmd(t, "logs")

	// Then: the missing file is reported and not created as a side effect
	require.Error(t, err)
	assert.Equal(t, gserrors.ErrCodeFileNotFound, gserrors.GetCode(err))
	assert.NoFileExists(t, logging.DefaultLogPath())

	// And: a second look still reports it missing
	_, _, err = runCmd(t, "logs")
	assert.Equal(t, gserrors.ErrCodeFileNotFound, gserrors.GetCode(err))
}

func TestLogs_DoesNotLogItself(t *testing.T) {
	// Given: a log file from an earlier debug-level run
	home := testEnv(t)
	srv := mockGitLab(t)
	cfgPath := writeConfig(t, home, srv.URL)
	_, _, err := runCmd(t, "--config", cfgPath, "projects")
	require.NoError(t, err)
	before, err := os.ReadFile(logging.DefaultLogPath())
	require.NoError(t, err)

	// When: viewing the logs
	_, _, err = runCmd(t, "--config", cfgPath, "logs")
	require.NoError(t, err)

	// Then: the file is unchanged
	after, err := os.ReadFile(logging.DefaultLogPath())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestLogs_InvalidPattern(t *testing.T) {
	// Given: a log file exists
	home := testEnv(t)
	srv := mockGitLab(t)
	cfgPath := writeConfig(t, home, srv.URL)
	_, _, err := runCmd(t, "--config", cfgPath, "projects")
	require.NoError(t, err)

	// When: the pattern does not compile
	_, _, err = runCmd(t, "logs", "--grep", "(")

	// Then: it is a usage error
	require.Error(t, err)
	assert.Equal(t, gserrors.ErrCodeInvalidInput, gserrors.GetCode(err))
}
