// Package logging configures structured file logging for gitlab-search.
//
// Logs are JSON lines written by log/slog to a size-rotated file under
// ~/.gitlab-search/logs/. Every process tags its records with a run_id so
// the lines of one invocation can be filtered with `gitlab-search logs --run`.
// Stderr mirroring is off by default so it never interleaves with progress
// rendering; --debug turns it on together with the debug level.
package logging
