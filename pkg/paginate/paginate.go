// Package paginate pages tool output locally with limit/offset, layered on
// top of the cursor-driven aggregation of remote pages. The metadata tells
// an LLM caller exactly how to continue.
package paginate

import (
	"encoding/json"
	"strconv"

	"github.com/brontoio/bronto-mcp-server/pkg/aggregate"
)

const (
	DefaultLimit  = 50
	DefaultOffset = 0
)

// Metadata describes the position of a page within the full result set.
type Metadata struct {
	Total      int  `json:"total"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	HasMore    bool `json:"hasMore"`
	NextOffset int  `json:"nextOffset"`
}

// Page wraps one page of items. RemoteCursor and Truncated carry through the
// aggregation state: when Truncated is true the remote holds more data than
// was fetched, and RemoteCursor (when present) resumes the remote iteration.
type Page[T any] struct {
	Data         []T      `json:"data"`
	Pagination   Metadata `json:"pagination"`
	RemoteCursor string   `json:"remoteCursor,omitempty"`
	Truncated    bool     `json:"truncated,omitempty"`
}

// Params extracts limit and offset from tool arguments, falling back to the
// defaults on anything missing or malformed.
func Params(args any) (limit, offset int) {
	limit, offset = DefaultLimit, DefaultOffset

	m, ok := args.(map[string]any)
	if !ok {
		return limit, offset
	}
	if s, ok := m["limit"].(string); ok {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if s, ok := m["offset"].(string); ok {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// Slice returns the [offset, offset+limit) window of items.
func Slice[T any](items []T, offset, limit int) []T {
	if limit <= 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Wrap pages an aggregated result and serializes it with its metadata.
func Wrap[T any](res aggregate.Result[T], offset, limit int) ([]byte, error) {
	total := len(res.Items)
	nextOffset := offset + limit
	if nextOffset >= total {
		nextOffset = -1
	}

	return json.Marshal(Page[T]{
		Data: Slice(res.Items, offset, limit),
		Pagination: Metadata{
			Total:      total,
			Offset:     offset,
			Limit:      limit,
			HasMore:    nextOffset != -1,
			NextOffset: nextOffset,
		},
		RemoteCursor: res.NextCursor,
		Truncated:    res.Truncated,
	})
}
