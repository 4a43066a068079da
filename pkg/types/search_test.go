package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPayload_ValidateDefaults(t *testing.T) {
	p := SearchPayload{
		FromTS: 1746057600000,
		ToTS:   1746061200000,
		From:   []string{"log-1"},
	}

	require.NoError(t, p.Validate())
	assert.Equal(t, []string{"@raw"}, p.Select)
	assert.Equal(t, DefaultNumSlices, p.NumSlices)
}

func TestSearchPayload_ValidateKeepsExplicitValues(t *testing.T) {
	p := SearchPayload{
		FromTS:    1746057600000,
		ToTS:      1746061200000,
		From:      []string{"log-1"},
		Select:    []string{"*", "@raw"},
		NumSlices: 4,
	}

	require.NoError(t, p.Validate())
	assert.Equal(t, []string{"*", "@raw"}, p.Select)
	assert.Equal(t, 4, p.NumSlices)
}

func TestSearchPayload_ValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload SearchPayload
	}{
		{"missing timestamps", SearchPayload{From: []string{"log-1"}}},
		{"missing to_ts", SearchPayload{FromTS: 1746057600000, From: []string{"log-1"}}},
		{
			"inverted range",
			SearchPayload{FromTS: 1746061200000, ToTS: 1746057600000, From: []string{"log-1"}},
		},
		{"no datasets", SearchPayload{FromTS: 1746057600000, ToTS: 1746061200000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.payload.Validate())
		})
	}
}
