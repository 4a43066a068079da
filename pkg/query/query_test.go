package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rangeStart = int64(1746057600000)
	rangeEnd   = int64(1746061200000)
)

func TestBuildLogQuery_Valid(t *testing.T) {
	b := NewBuilder(24 * time.Hour)

	q, err := b.BuildLogQuery(LogArgs{
		Datasets: []string{"ds-1", "ds-2"},
		Start:    rangeStart,
		End:      rangeEnd,
		Where:    "@status = 500",
		Cursor:   "cursor-token",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ds-1", "ds-2"}, q.Datasets)
	assert.Equal(t, rangeStart, q.Range.Start)
	assert.Equal(t, rangeEnd, q.Range.End)

	payload := q.Payload()
	assert.Equal(t, "cursor-token", payload.Cursor)
	assert.Equal(t, "@status = 500", payload.Where)
	assert.Equal(t, []string{"@raw"}, payload.Select)
}

func TestBuildLogQuery_ConflictingIDsFailBeforeAnyNetworkCall(t *testing.T) {
	b := NewBuilder(24 * time.Hour)

	_, err := b.BuildLogQuery(LogArgs{
		Datasets:   []string{"ds-1", "ds-2", "ds-3"},
		Start:      rangeStart,
		End:        rangeEnd,
		IncludeIDs: []string{"ds-1", "ds-2"},
		ExcludeIDs: []string{"ds-2"},
	})
	require.ErrorIs(t, err, ErrConflictingIDs)
}

func TestBuildLogQuery_IncludeExcludeResolution(t *testing.T) {
	b := NewBuilder(24 * time.Hour)

	q, err := b.BuildLogQuery(LogArgs{
		Datasets:   []string{"ds-1", "ds-2", "ds-3"},
		Start:      rangeStart,
		End:        rangeEnd,
		IncludeIDs: []string{"ds-1", "ds-3"},
		ExcludeIDs: []string{"ds-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ds-1", "ds-3"}, q.Datasets)
}

func TestBuildLogQuery_FiltersRemovingEverything(t *testing.T) {
	b := NewBuilder(24 * time.Hour)

	_, err := b.BuildLogQuery(LogArgs{
		Datasets:   []string{"ds-1"},
		Start:      rangeStart,
		End:        rangeEnd,
		ExcludeIDs: []string{"ds-1"},
	})
	require.ErrorIs(t, err, ErrNoDatasets)
}

func TestBuildLogQuery_Invalid(t *testing.T) {
	b := NewBuilder(24 * time.Hour)

	tests := []struct {
		name     string
		args     LogArgs
		expected error
	}{
		{
			name:     "empty dataset set",
			args:     LogArgs{Start: rangeStart, End: rangeEnd},
			expected: ErrNoDatasets,
		},
		{
			name:     "end precedes start",
			args:     LogArgs{Datasets: []string{"ds-1"}, Start: rangeEnd, End: rangeStart},
			expected: ErrInvalidTimeRange,
		},
		{
			name:     "negative bound",
			args:     LogArgs{Datasets: []string{"ds-1"}, Start: -1, End: rangeEnd},
			expected: ErrInvalidTimeRange,
		},
		{
			name: "span exceeds the ceiling",
			args: LogArgs{
				Datasets: []string{"ds-1"},
				Start:    rangeStart,
				End:      rangeStart + (48 * time.Hour).Milliseconds(),
			},
			expected: ErrTimeRangeTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.BuildLogQuery(tt.args)
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	b := NewBuilder(24 * time.Hour)

	q, err := b.BuildSearchQuery(SearchArgs{
		Datasets:   []string{"ds-1"},
		Start:      rangeStart,
		End:        rangeEnd,
		Kind:       KindStatistical,
		Expression: "environment = 'production'",
		GroupBy:    []string{"$service"},
		Metrics:    []string{"SUM"},
	})
	require.NoError(t, err)

	payload := q.Payload()
	assert.Equal(t, []string{"ds-1"}, payload.From)
	assert.Equal(t, "environment = 'production'", payload.Where)
	assert.Equal(t, []string{"$service"}, payload.Groups)
	assert.Equal(t, []string{"SUM"}, payload.Metrics)
}

func TestBuildSearchQuery_StatisticalRequiresMetrics(t *testing.T) {
	b := NewBuilder(24 * time.Hour)

	_, err := b.BuildSearchQuery(SearchArgs{
		Datasets: []string{"ds-1"},
		Start:    rangeStart,
		End:      rangeEnd,
		Kind:     KindStatistical,
	})
	require.Error(t, err)
}

func TestBuildSearchQuery_UnknownKind(t *testing.T) {
	b := NewBuilder(24 * time.Hour)

	_, err := b.BuildSearchQuery(SearchArgs{
		Datasets: []string{"ds-1"},
		Start:    rangeStart,
		End:      rangeEnd,
		Kind:     Kind("fuzzy"),
	})
	require.Error(t, err)
}

func TestNewTimeRange_Span(t *testing.T) {
	r, err := NewTimeRange(rangeStart, rangeEnd)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, r.Span())
}

func TestBuilder_NoCeiling(t *testing.T) {
	b := NewBuilder(0)

	_, err := b.BuildLogQuery(LogArgs{
		Datasets: []string{"ds-1"},
		Start:    0,
		End:      rangeEnd,
	})
	require.NoError(t, err)
}
