package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv isolates HOME, XDG_CONFIG_HOME and GITLAB_SEARCH_* so commands
// never touch the real user config or log directory.
func testEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{
		"GITLAB_SEARCH_TIMEOUT",
		"GITLAB_SEARCH_PER_PAGE",
		"GITLAB_SEARCH_RPS",
		"GITLAB_SEARCH_LOG_LEVEL",
		"GITLAB_SEARCH_INSTANCE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("NO_COLOR", "1")
	t.Cleanup(stopLogging)
	return home
}

// runCmd executes the root command with args and returns stdout and stderr.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a config with one default instance at url and
// returns its path.
func writeConfig(t *testing.T, dir, url string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`version: 1
instances:
  - name: work
    url: %s
    token: glpat-secret-token-1234
    default: true
search:
  timeout: 5s
  per_page: 50
rate_limit:
  requests_per_second: 0
log_level: debug
`, url)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// mockGitLab serves a small instance: group/app (id 1) with one match,
// group/lib (id 2) with none and an archived group/old (id 3).
func mockGitLab(t *testing.T) *httptest.Server {
	t.Helper()
	projects := []map[string]any{
		{"id": 1, "name": "app", "path_with_namespace": "group/app", "web_url": "https://gitlab.test/group/app"},
		{"id": 2, "name": "lib", "path_with_namespace": "group/lib", "web_url": "https://gitlab.test/group/lib"},
		{"id": 3, "name": "old", "path_with_namespace": "group/old", "web_url": "https://gitlab.test/group/old", "archived": true},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/version", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(t, w, map[string]string{"version": "17.2.0", "revision": "abc123"})
	})
	mux.HandleFunc("/api/v4/user", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(t, w, map[string]any{"id": 7, "username": "dev", "name": "Dev"})
	})
	mux.HandleFunc("/api/v4/projects", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(t, w, projects)
	})
	mux.HandleFunc("/api/v4/projects/1", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(t, w, projects[0])
	})
	mux.HandleFunc("/api/v4/projects/1/search", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(t, w, []map[string]any{
			{"path": "cmd/main.go", "data": "func main() {\n\trun()\n", "startline": 12, "project_id": 1, "ref": "main"},
		})
	})
	mux.HandleFunc("/api/v4/projects/2/search", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(t, w, []map[string]any{})
	})
	mux.HandleFunc("/api/v4/projects/3/search", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(t, w, []map[string]any{
			{"path": "legacy.go", "data": "func main() {}\n", "startline": 1, "project_id": 3, "ref": "main"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func serveJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}
