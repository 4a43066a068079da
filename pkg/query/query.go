// Package query turns typed tool arguments into validated Bronto search
// requests. All validation happens here, before any network call.
package query

import (
	"errors"
	"fmt"
	"time"

	"github.com/brontoio/bronto-mcp-server/pkg/types"
)

var (
	// ErrNoDatasets is returned when the dataset set is empty, or when
	// include/exclude filtering leaves nothing to query.
	ErrNoDatasets = errors.New("no datasets to query")
	// ErrInvalidTimeRange is returned when end precedes start or a bound is
	// negative.
	ErrInvalidTimeRange = errors.New("invalid time range")
	// ErrTimeRangeTooLarge is returned when the span exceeds the configured
	// ceiling, which bounds the load a single tool call can put on Bronto.
	ErrTimeRangeTooLarge = errors.New("time range too large")
	// ErrConflictingIDs is returned when includeIds and excludeIds overlap.
	ErrConflictingIDs = errors.New("includeIds and excludeIds overlap")
)

// Kind discriminates the search variants the Bronto API supports.
type Kind string

const (
	KindEvent       Kind = "event"
	KindStatistical Kind = "statistical"
	KindTopKeys     Kind = "top-keys"
)

// TimeRange is a [Start, End] interval in epoch milliseconds. Never mutated
// after construction.
type TimeRange struct {
	Start int64
	End   int64
}

// NewTimeRange validates that both bounds are non-negative and ordered.
func NewTimeRange(start, end int64) (TimeRange, error) {
	if start < 0 || end < 0 {
		return TimeRange{}, fmt.Errorf("%w: negative bound (start=%d, end=%d)", ErrInvalidTimeRange, start, end)
	}
	if end < start {
		return TimeRange{}, fmt.Errorf("%w: end %d precedes start %d", ErrInvalidTimeRange, end, start)
	}
	return TimeRange{Start: start, End: end}, nil
}

// Span is the duration covered by the range.
func (r TimeRange) Span() time.Duration {
	return time.Duration(r.End-r.Start) * time.Millisecond
}

// LogQuery is a resolved log retrieval request. Datasets holds the effective
// dataset IDs after include/exclude filtering.
type LogQuery struct {
	Datasets []string
	Range    TimeRange
	Where    string
	Cursor   string
}

// SearchQuery is a resolved search request of a particular kind.
type SearchQuery struct {
	Datasets   []string
	Range      TimeRange
	Kind       Kind
	Expression string
	Select     []string
	GroupBy    []string
	Metrics    []string
	Cursor     string
}

// LogArgs are the raw arguments for a log retrieval.
type LogArgs struct {
	Datasets   []string
	Start      int64
	End        int64
	IncludeIDs []string
	ExcludeIDs []string
	Where      string
	Cursor     string
}

// SearchArgs are the raw arguments for a search.
type SearchArgs struct {
	Datasets   []string
	Start      int64
	End        int64
	Kind       Kind
	Expression string
	Select     []string
	GroupBy    []string
	Metrics    []string
	Cursor     string
}

// Builder validates and assembles queries under a maximum time span.
type Builder struct {
	maxSpan time.Duration
}

func NewBuilder(maxSpan time.Duration) *Builder {
	return &Builder{maxSpan: maxSpan}
}

// BuildLogQuery validates args and resolves the effective dataset set.
// IncludeIDs narrows the dataset set, ExcludeIDs removes from it; the two
// must be disjoint and the result non-empty.
func (b *Builder) BuildLogQuery(args LogArgs) (*LogQuery, error) {
	r, err := b.timeRange(args.Start, args.End)
	if err != nil {
		return nil, err
	}

	datasets, err := resolveDatasets(args.Datasets, args.IncludeIDs, args.ExcludeIDs)
	if err != nil {
		return nil, err
	}

	return &LogQuery{
		Datasets: datasets,
		Range:    r,
		Where:    args.Where,
		Cursor:   args.Cursor,
	}, nil
}

// BuildSearchQuery validates args for the given search kind.
func (b *Builder) BuildSearchQuery(args SearchArgs) (*SearchQuery, error) {
	switch args.Kind {
	case KindEvent, KindStatistical, KindTopKeys:
	default:
		return nil, fmt.Errorf("unknown search kind %q", args.Kind)
	}

	r, err := b.timeRange(args.Start, args.End)
	if err != nil {
		return nil, err
	}

	datasets, err := resolveDatasets(args.Datasets, nil, nil)
	if err != nil {
		return nil, err
	}

	if args.Kind == KindStatistical && len(args.Metrics) == 0 {
		return nil, fmt.Errorf("statistical search requires at least one metric function")
	}

	return &SearchQuery{
		Datasets:   datasets,
		Range:      r,
		Kind:       args.Kind,
		Expression: args.Expression,
		Select:     args.Select,
		GroupBy:    args.GroupBy,
		Metrics:    args.Metrics,
		Cursor:     args.Cursor,
	}, nil
}

func (b *Builder) timeRange(start, end int64) (TimeRange, error) {
	r, err := NewTimeRange(start, end)
	if err != nil {
		return TimeRange{}, err
	}
	if b.maxSpan > 0 && r.Span() > b.maxSpan {
		return TimeRange{}, fmt.Errorf("%w: span %s exceeds maximum %s; narrow the range or split the query",
			ErrTimeRangeTooLarge, r.Span(), b.maxSpan)
	}
	return r, nil
}

func resolveDatasets(datasets, include, exclude []string) ([]string, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("%w: provide at least one dataset ID", ErrNoDatasets)
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	for _, id := range include {
		if _, ok := excluded[id]; ok {
			return nil, fmt.Errorf("%w: %q is both included and excluded", ErrConflictingIDs, id)
		}
	}

	included := make(map[string]struct{}, len(include))
	for _, id := range include {
		included[id] = struct{}{}
	}

	resolved := make([]string, 0, len(datasets))
	for _, id := range datasets {
		if len(included) > 0 {
			if _, ok := included[id]; !ok {
				continue
			}
		}
		if _, ok := excluded[id]; ok {
			continue
		}
		resolved = append(resolved, id)
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: include/exclude filters removed every dataset", ErrNoDatasets)
	}
	return resolved, nil
}

// Payload serializes the query into the POST /search body, echoing any
// pagination cursor verbatim.
func (q *LogQuery) Payload() *types.SearchPayload {
	return &types.SearchPayload{
		FromTS: q.Range.Start,
		ToTS:   q.Range.End,
		Where:  q.Where,
		Select: []string{"@raw"},
		From:   q.Datasets,
		Cursor: q.Cursor,
	}
}

// Payload serializes the search into the POST /search body.
func (q *SearchQuery) Payload() *types.SearchPayload {
	return &types.SearchPayload{
		FromTS:  q.Range.Start,
		ToTS:    q.Range.End,
		Where:   q.Expression,
		Select:  q.Select,
		From:    q.Datasets,
		Groups:  q.GroupBy,
		Metrics: q.Metrics,
		Cursor:  q.Cursor,
	}
}
