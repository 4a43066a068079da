package types

import "fmt"

// DefaultNumSlices matches the slicing factor the Bronto search endpoint
// expects for parallel server-side execution.
const DefaultNumSlices = 10

// SearchPayload is the POST /search request body. From carries dataset IDs,
// Cursor echoes an opaque continuation token from a previous page.
type SearchPayload struct {
	FromTS    int64    `json:"from_ts"`
	ToTS      int64    `json:"to_ts"`
	Where     string   `json:"where"`
	Select    []string `json:"select"`
	From      []string `json:"from"`
	Groups    []string `json:"groups,omitempty"`
	Metrics   []string `json:"metrics,omitempty"`
	NumSlices int      `json:"num_of_slices"`
	Cursor    string   `json:"cursor,omitempty"`
}

// Validate fills schema defaults and rejects payloads the Bronto API would
// refuse, so a broken request fails before it goes on the wire.
func (p *SearchPayload) Validate() error {
	if p.FromTS <= 0 || p.ToTS <= 0 {
		return fmt.Errorf("missing from_ts or to_ts timestamp")
	}
	if p.ToTS < p.FromTS {
		return fmt.Errorf("to_ts %d precedes from_ts %d", p.ToTS, p.FromTS)
	}
	if len(p.From) == 0 {
		return fmt.Errorf("missing or empty dataset list")
	}
	if len(p.Select) == 0 {
		p.Select = []string{"@raw"}
	}
	if p.NumSlices <= 0 {
		p.NumSlices = DefaultNumSlices
	}
	return nil
}
