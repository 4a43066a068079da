package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/brontoio/bronto-mcp-server/pkg/query"
	"github.com/brontoio/bronto-mcp-server/pkg/timeutil"
)

var validMetricFunctions = map[string]bool{
	"COUNT": true,
	"SUM":   true,
	"AVG":   true,
	"MIN":   true,
	"MAX":   true,
	"P50":   true,
	"P90":   true,
	"P95":   true,
	"P99":   true,
}

const allowedMetricFunctions = "AVG, COUNT, MAX, MIN, P50, P90, P95, P99, SUM"

// SearchEventsRequest holds the parsed parameters for an event search.
type SearchEventsRequest struct {
	Args  query.SearchArgs
	Limit int
}

func parseSearchEventsArgs(args map[string]any, loc *time.Location, maxResults int) (*SearchEventsRequest, error) {
	datasets := listArg(args, "datasets")
	if len(datasets) == 0 {
		return nil, fmt.Errorf(`"datasets" is required: a comma-separated list of dataset IDs (UUIDs). Use bronto_get_datasets to discover them`)
	}

	start, end, err := timeutil.ResolveTimestamps(args, "1h", loc)
	if err != nil {
		return nil, err
	}

	expression, _ := args["expression"].(string)
	cursor, _ := args["cursor"].(string)

	limit, err := intArg(args, "limit", maxResults)
	if err != nil {
		return nil, err
	}
	if limit > maxResults {
		limit = maxResults
	}

	return &SearchEventsRequest{
		Args: query.SearchArgs{
			Datasets:   datasets,
			Start:      start,
			End:        end,
			Kind:       query.KindEvent,
			Expression: expression,
			Select:     listArg(args, "select"),
			Cursor:     cursor,
		},
		Limit: limit,
	}, nil
}

func parseComputeMetricsArgs(args map[string]any, loc *time.Location) (*query.SearchArgs, error) {
	datasets := listArg(args, "datasets")
	if len(datasets) == 0 {
		return nil, fmt.Errorf(`"datasets" is required: a comma-separated list of dataset IDs (UUIDs). Use bronto_get_datasets to discover them`)
	}

	metrics := listArg(args, "metrics")
	if len(metrics) == 0 {
		return nil, fmt.Errorf(
			`"metrics" is required. Supported functions: %s. Tip: for event counts use {"metrics": "COUNT"}`,
			allowedMetricFunctions)
	}
	for i, m := range metrics {
		upper := strings.ToUpper(m)
		if !validMetricFunctions[upper] {
			return nil, fmt.Errorf("invalid metric function %q. Supported functions: %s", m, allowedMetricFunctions)
		}
		metrics[i] = upper
	}

	start, end, err := timeutil.ResolveTimestamps(args, "1h", loc)
	if err != nil {
		return nil, err
	}

	where, _ := args["where"].(string)

	return &query.SearchArgs{
		Datasets:   datasets,
		Start:      start,
		End:        end,
		Kind:       query.KindStatistical,
		Expression: where,
		GroupBy:    listArg(args, "groupBy"),
		Metrics:    metrics,
	}, nil
}
