package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	gserrors "github.com/shkmv/gitlab-search-cli/internal/errors"
)

const (
	// DefaultPageSize is the per_page used when none is configured.
	DefaultPageSize = 50

	// MaxPageSize is GitLab's per_page cap.
	MaxPageSize = 100

	nextPageHeader = "X-Next-Page"
)

// ClampPageSize bounds n to [1, MaxPageSize]. Zero or negative means DefaultPageSize.
func ClampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// FetchAll requests every page of a list endpoint and returns the items in
// server order.
//
// Paging follows the X-Next-Page header. An empty header ends the listing; a
// value that is not a page number after the current one is a decode error.
// When the server omits the header, paging stops at the first empty or short
// page. Each page is retried on transient
// failure with the client's retry policy; a page that still fails aborts the
// whole fetch. Results are not a snapshot: data changing mid-enumeration can
// shift items between pages.
func FetchAll[T any](ctx context.Context, c *Client, path string, query url.Values, pageSize int) ([]T, error) {
	perPage := ClampPageSize(pageSize)

	var all []T
	page := 1
	for {
		q := cloneValues(query)
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))

		retry := c.retry
		retry.OnRetry = c.logRetry(path, page)

		res, err := gserrors.RetryWithResult(ctx, retry, func() (pageResult[T], error) {
			var items []T
			header, err := c.get(ctx, path, q, &items)
			if err != nil {
				return pageResult[T]{}, err
			}
			return pageResult[T]{
				items: items,
				has:   len(header.Values(nextPageHeader)) > 0,
				next:  header.Get(nextPageHeader),
			}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", path, page, err)
		}

		all = append(all, res.items...)

		c.logger.Debug("page_fetched",
			slog.String("path", path),
			slog.Int("page", page),
			slog.Int("items", len(res.items)),
			slog.Int("total", len(all)))

		if res.has {
			if res.next == "" {
				return all, nil
			}
			next, err := strconv.Atoi(res.next)
			if err != nil || next <= page {
				// Stopping here would return a partial listing as if complete.
				return nil, gserrors.DecodeError(
					fmt.Sprintf("invalid %s %q after page %d of %s", nextPageHeader, res.next, page, path), err)
			}
			page = next
			continue
		}

		if len(res.items) == 0 || len(res.items) < perPage {
			return all, nil
		}
		page++
	}
}

type pageResult[T any] struct {
	items []T
	next  string
	has   bool
}

// logRetry returns an OnRetry hook that records the scheduled retry.
func (c *Client) logRetry(path string, page int) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		c.logger.Warn("retry_scheduled",
			append([]any{
				slog.String("path", path),
				slog.Int("page", page),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			}, gserrors.FormatForLog(err)...)...)
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
