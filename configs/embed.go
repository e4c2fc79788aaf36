// Package configs provides the embedded configuration template for
// gitlab-search.
//
// The template is embedded at build time so `gitlab-search config init`
// works for source builds and binary releases alike.
//
// Configuration precedence (see internal/config Load):
//  1. Hardcoded defaults (internal/config NewConfig)
//  2. User config ($XDG_CONFIG_HOME/gitlab-search/config.yaml)
//  3. Environment variables (GITLAB_SEARCH_*)
package configs

import _ "embed"

// UserConfigTemplate is written by `gitlab-search config init`.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
