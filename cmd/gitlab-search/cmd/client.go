package cmd

import (
	"log/slog"

	"github.com/shkmv/gitlab-search-cli/internal/config"
	"github.com/shkmv/gitlab-search-cli/internal/gitlab"
	"github.com/shkmv/gitlab-search-cli/internal/search"
	"github.com/shkmv/gitlab-search-cli/pkg/version"
)

// loadInstance loads the configuration and resolves name ("" = default).
func loadInstance(name string) (*config.Config, config.Instance, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Instance{}, err
	}
	inst, err := cfg.Registry().Resolve(name)
	if err != nil {
		return nil, config.Instance{}, err
	}
	return cfg, inst, nil
}

// newClient builds a GitLab client for inst using the configured timeout,
// page size and rate limit. burst follows the worker count.
func newClient(cfg *config.Config, inst config.Instance, burst int) (*gitlab.Client, error) {
	rps := cfg.RateLimit.RequestsPerSecond
	if rps == 0 {
		rps = -1
	}
	if burst <= 0 {
		burst = search.DefaultConcurrency
	}
	return gitlab.NewClient(gitlab.Options{
		BaseURL:           inst.URL,
		Token:             inst.Token,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: rps,
		Burst:             burst,
		PageSize:          cfg.Search.PerPage,
		UserAgent:         version.UserAgent(),
		Logger:            slog.Default().With(slog.String("instance", inst.Name)),
	})
}
