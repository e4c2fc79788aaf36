package gitlab

import (
	"context"
)

// VersionInfo is the response of GET /version.
type VersionInfo struct {
	Version  string `json:"version"`
	Revision string `json:"revision"`
}

// User is the subset of GET /user used to identify the token owner.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Version probes the instance. It needs a valid token on most servers,
// so it doubles as a connectivity and credentials check.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	var v VersionInfo
	_, err := c.get(ctx, "/version", nil, &v)
	return v, err
}

// CurrentUser returns the owner of the token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var u User
	_, err := c.get(ctx, "/user", nil, &u)
	return u, err
}
