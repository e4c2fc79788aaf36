package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
)

// Project is a GitLab project as returned by the projects API.
type Project struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
	DefaultBranch     string `json:"default_branch,omitempty"`
	Archived          bool   `json:"archived"`
}

// projectListQuery is the fixed query for listing projects. The full
// representation is requested because simple=true omits the archived flag.
func projectListQuery() url.Values {
	q := url.Values{}
	q.Set("membership", "true")
	q.Set("order_by", "id")
	q.Set("sort", "asc")
	return q
}

// ListProjects returns every project the token is a member of, in id order.
// Archived projects are included; callers filter locally. A project that
// shows up on two pages (the listing shifted while paging) is kept once, at
// its first position.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	fetched, err := FetchAll[Project](ctx, c, "/projects", projectListQuery(), c.pageSize)
	if err != nil {
		return nil, err
	}
	projects := dedupeProjects(fetched)
	for _, p := range projects {
		c.projects.Add(strconv.FormatInt(p.ID, 10), p)
		c.projects.Add(p.PathWithNamespace, p)
	}
	return projects, nil
}

func dedupeProjects(projects []Project) []Project {
	seen := make(map[int64]struct{}, len(projects))
	out := projects[:0:0]
	for _, p := range projects {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// FilterArchived drops archived projects unless includeArchived is set.
// The input slice is not modified.
func FilterArchived(projects []Project, includeArchived bool) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.Archived && !includeArchived {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GetProject resolves a project by numeric id or path_with_namespace.
// Lookups are cached for the lifetime of the client.
func (c *Client) GetProject(ctx context.Context, ref string) (Project, error) {
	ref = strings.Trim(strings.TrimSpace(ref), "/")
	if ref == "" {
		return Project{}, gserrors.New(gserrors.ErrCodeInvalidProjectRef, "project reference is empty", nil)
	}
	if p, ok := c.projects.Get(ref); ok {
		return p, nil
	}

	var p Project
	path := "/projects/" + url.PathEscape(ref)
	_, err := gserrors.RetryWithResult(ctx, c.retry, func() (struct{}, error) {
		_, err := c.get(ctx, path, nil, &p)
		return struct{}{}, err
	})
	if err != nil {
		if gserrors.GetCode(err) == gserrors.ErrCodeNotFound {
			return Project{}, gserrors.New(gserrors.ErrCodeInvalidProjectRef,
				fmt.Sprintf("project %q not found on %s", ref, c.base.Host), err).
				WithSuggestion("Use the numeric id or the full path, e.g. group/subgroup/project")
		}
		return Project{}, fmt.Errorf("resolve project %q: %w", ref, err)
	}

	c.projects.Add(ref, p)
	return p, nil
}
