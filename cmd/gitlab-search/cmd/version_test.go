package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shkmv/gitlab-search-cli/pkg/version"
)

func TestVersionCmd(t *testing.T) {
	testEnv(t)

	t.Run("default", func(t *testing.T) {
		stdout, _, err := runCmd(t, "version")
		require.NoError(t, err)
		assert.Equal(t, version.String(), strings.TrimSpace(stdout))
	})

	t.Run("short wins over json", func(t *testing.T) {
		stdout, _, err := runCmd(t, "version", "--short", "--json")
		require.NoError(t, err)
		assert.Equal(t, version.Short(), strings.TrimSpace(stdout))
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := runCmd(t, "version", "--json")
		require.NoError(t, err)

		var info version.BuildInfo
		require.NoError(t, json.Unmarshal([]byte(stdout), &info))
		assert.Equal(t, version.Short(), info.Version)
	})
}
