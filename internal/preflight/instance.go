package preflight

import (
	"context"
	"fmt"

	"github.com/shkmv/gitlab-search-cli/internal/config"
	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
	"github.com/shkmv/gitlab-search-cli/internal/gitlab"
)

// Prober is the part of the GitLab client the instance checks need.
type Prober interface {
	Version(ctx context.Context) (gitlab.VersionInfo, error)
	CurrentUser(ctx context.Context) (gitlab.User, error)
}

// ProberFactory builds a Prober for one instance.
type ProberFactory func(inst config.Instance) (Prober, error)

var _ Prober = (*gitlab.Client)(nil)

// CheckInstance probes one instance: first reachability through
// GET /version, then the token through GET /user. The token check is
// skipped when the instance is unreachable.
func (c *Checker) CheckInstance(ctx context.Context, inst config.Instance) []CheckResult {
	reach := CheckResult{Name: "reachable", Instance: inst.Name, Required: true}
	token := CheckResult{Name: "token", Instance: inst.Name, Required: true}

	if c.newProber == nil {
		reach.Status = StatusWarn
		reach.Message = "skipped"
		return []CheckResult{reach}
	}

	prober, err := c.newProber(inst)
	if err != nil {
		reach.Status = StatusFail
		reach.Message = describe(err)
		reach.Details = suggestion(err)
		return []CheckResult{reach}
	}

	v, err := prober.Version(ctx)
	switch {
	case err == nil:
		reach.Status = StatusPass
		reach.Message = fmt.Sprintf("%s (GitLab %s)", inst.URL, v.Version)
	case gserrors.GetCode(err) == gserrors.ErrCodeUnauthorized:
		// The server answered; the token check below explains the 401.
		reach.Status = StatusPass
		reach.Message = inst.URL
	default:
		reach.Status = StatusFail
		reach.Message = describe(err)
		reach.Details = suggestion(err)
		return []CheckResult{reach}
	}

	u, err := prober.CurrentUser(ctx)
	if err != nil {
		token.Status = StatusFail
		token.Message = describe(err)
		token.Details = suggestion(err)
	} else {
		token.Status = StatusPass
		token.Message = fmt.Sprintf("authenticated as %s", u.Username)
	}
	return []CheckResult{reach, token}
}

func describe(err error) string {
	if e, ok := gserrors.As(err); ok {
		return e.Message
	}
	return err.Error()
}

func suggestion(err error) string {
	if e, ok := gserrors.As(err); ok {
		return e.Suggestion
	}
	return ""
}
