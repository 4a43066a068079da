// Package aggregate reconciles paginated Bronto responses into a single
// ordered result under an item ceiling.
package aggregate

// Result is the merged outcome of one tool invocation. Items preserve the
// remote service's own ordering; no local re-sort and no de-duplication
// happen here, the remote is the source of truth for both. Truncated is true
// only when collection stopped at the ceiling while the remote still had
// more pages, so callers can tell "no more data" from "we stopped early".
type Result[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	Truncated  bool   `json:"truncated"`
}

// Collector accumulates pages up to a maximum item count. The zero max means
// no ceiling.
type Collector[T any] struct {
	max       int
	items     []T
	next      string
	truncated bool
}

func NewCollector[T any](max int) *Collector[T] {
	return &Collector[T]{max: max}
}

// Add appends one page and reports whether the caller should fetch another.
// next is the cursor the remote returned for this page ("" when exhausted).
func (c *Collector[T]) Add(items []T, next string) bool {
	room := len(items)
	if c.max > 0 {
		if remaining := c.max - len(c.items); remaining < room {
			room = remaining
		}
	}
	if room > 0 {
		c.items = append(c.items, items[:room]...)
	}

	full := c.max > 0 && len(c.items) >= c.max
	if full && (room < len(items) || next != "") {
		// Stopped early: either this page was cut, or more pages remain.
		c.truncated = true
		c.next = next
		return false
	}
	if next == "" {
		c.next = ""
		return false
	}
	c.next = next
	return true
}

// Len is the number of items collected so far.
func (c *Collector[T]) Len() int {
	return len(c.items)
}

// Result finalizes the collection. Items is never nil so the serialized
// result always carries an array.
func (c *Collector[T]) Result() Result[T] {
	items := c.items
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, NextCursor: c.next, Truncated: c.truncated}
}
