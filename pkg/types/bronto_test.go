package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsResponse_Unmarshal(t *testing.T) {
	raw := `{
		"events": [
			{
				"@raw": "GET /health 200",
				"@status": 200,
				"@time": 1746894305000,
				"attributes": {"service": "gateway", "region": "eu-west-1"},
				"message_kvs": {"path": "/health", "latency_ms": 3.5}
			},
			{
				"@raw": "plain line"
			}
		],
		"next": "cursor-2"
	}`

	var resp EventsResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	assert.Equal(t, "cursor-2", resp.Next)
	require.Len(t, resp.Events, 2)

	first := resp.Events[0]
	assert.Equal(t, "GET /health 200", first.Message)
	assert.Equal(t, map[string]string{
		"@status":    "200",
		"@time":      "1746894305000",
		"service":    "gateway",
		"region":     "eu-west-1",
		"path":       "/health",
		"latency_ms": "3.5",
	}, first.Attributes)

	second := resp.Events[1]
	assert.Equal(t, "plain line", second.Message)
	assert.Empty(t, second.Attributes)
}

func TestEventsResponse_UnmarshalEmpty(t *testing.T) {
	var resp EventsResponse
	require.NoError(t, json.Unmarshal([]byte(`{}`), &resp))

	assert.NotNil(t, resp.Events)
	assert.Empty(t, resp.Events)
	assert.Empty(t, resp.Next)
}

func TestEventsResponse_UnmarshalMalformed(t *testing.T) {
	var resp EventsResponse
	assert.Error(t, json.Unmarshal([]byte(`{"events": "nope"}`), &resp))
}

func TestStatisticalResponse_UnmarshalTotals(t *testing.T) {
	raw := `{
		"totals": {
			"count": 42,
			"timeseries": [
				{"@timestamp": 1746057600000, "count": 40, "value": 12.5},
				{"@timestamp": 1746061200000, "count": 2, "quantiles": {"P95": 101.0}}
			]
		}
	}`

	var resp StatisticalResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	require.Contains(t, resp.Groups, "")
	totals := resp.Groups[""]
	assert.Equal(t, int64(42), totals.Count)
	require.Len(t, totals.Datapoints, 2)
	assert.Equal(t, int64(1746057600000), totals.Datapoints[0].Timestamp)
	assert.Equal(t, 12.5, totals.Datapoints[0].Value)
	assert.Equal(t, 101.0, totals.Datapoints[1].Quantiles["P95"])
}

func TestStatisticalResponse_UnmarshalGroups(t *testing.T) {
	raw := `{
		"groups_series": [
			{"name": "gateway", "count": 10, "timeseries": [{"@timestamp": 1746057600000, "count": 10}]},
			{"name": "billing", "count": 3, "timeseries": []}
		]
	}`

	var resp StatisticalResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	require.Len(t, resp.Groups, 2)
	assert.Equal(t, int64(10), resp.Groups["gateway"].Count)
	assert.Empty(t, resp.Groups["billing"].Datapoints)
}

func TestTopKeysResponse_KeyValues(t *testing.T) {
	resp := TopKeysResponse{
		"log-1": {
			"status": TopKeyStats{Values: map[string]int64{"500": 3, "200": 90, "404": 7}},
			"region": TopKeyStats{Values: map[string]int64{"eu-west-1": 100}},
		},
	}

	values := resp.KeyValues("log-1")
	assert.Equal(t, []string{"200", "404", "500"}, values["status"])
	assert.Equal(t, []string{"eu-west-1"}, values["region"])

	assert.Empty(t, resp.KeyValues("absent"))
}

func TestDatasetKey_AddValues(t *testing.T) {
	key := DatasetKey{Name: "status", Values: []string{"200"}}

	key.AddValues([]string{"500", "200", "404", "500"})

	assert.Equal(t, []string{"200", "500", "404"}, key.Values)
}
