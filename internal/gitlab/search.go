package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// SearchPageSize is the per_page sent with blob searches.
const SearchPageSize = 100

// Blob is a single blob search match.
type Blob struct {
	Basename  string `json:"basename"`
	Data      string `json:"data"`
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Ref       string `json:"ref"`
	StartLine *int   `json:"startline"`
	ProjectID int64  `json:"project_id"`
}

// FilePath returns the path of the matched file, falling back to filename
// for older servers that do not send path.
func (b Blob) FilePath() string {
	if b.Path != "" {
		return b.Path
	}
	return b.Filename
}

// SearchBlobs runs a blob search inside one project. It issues exactly one
// request and does not retry; the caller owns the retry policy.
// The query is sent unmodified apart from URL encoding.
//
// Only the first page is requested, so at most SearchPageSize blobs come
// back. A full page means more matches may exist on the server.
func (c *Client) SearchBlobs(ctx context.Context, projectID int64, query string) ([]Blob, error) {
	q := url.Values{}
	q.Set("scope", "blobs")
	q.Set("search", query)
	q.Set("per_page", strconv.Itoa(SearchPageSize))

	var blobs []Blob
	if _, err := c.get(ctx, fmt.Sprintf("/projects/%d/search", projectID), q, &blobs); err != nil {
		return nil, err
	}
	return blobs, nil
}
