package keyvault

import (
	"context"
	"net/url"
	"strconv"
)

// listPage is one page of a vault list response.
type listPage[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"nextLink"`
}

// listAll fetches the page at segments and follows nextLink until the
// service stops returning one, accumulating items in encounter order.
// An empty first page (no items, no nextLink) yields an empty,
// non-nil slice.
func listAll[T any](ctx context.Context, c *Client, segments []string) ([]T, error) {
	query := url.Values{"maxresults": {strconv.Itoa(DefaultMaxResults)}}

	var page listPage[T]
	if err := c.do(ctx, "GET", segments, query, nil, &page); err != nil {
		return nil, err
	}

	items := make([]T, 0, len(page.Value))
	items = append(items, page.Value...)

	// nextLink is absolute and already carries api-version and
	// continuation state; it must be followed as served.
	for page.NextLink != "" {
		next := page.NextLink
		page = listPage[T]{}
		if err := c.doURL(ctx, "GET", next, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Value...)
	}
	return items, nil
}
