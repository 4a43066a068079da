package tools

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brontoio/bronto-mcp-server/pkg/query"
	"github.com/brontoio/bronto-mcp-server/pkg/timeutil"
)

// GetLogsRequest holds the parsed parameters for a log retrieval.
type GetLogsRequest struct {
	Args  query.LogArgs
	Limit int
}

func parseGetLogsArgs(args map[string]any, loc *time.Location, maxResults int) (*GetLogsRequest, error) {
	datasets := listArg(args, "datasets")
	if len(datasets) == 0 {
		return nil, fmt.Errorf(`"datasets" is required: a comma-separated list of dataset IDs (UUIDs). Use bronto_get_datasets to discover them`)
	}

	start, end, err := timeutil.ResolveTimestamps(args, "1h", loc)
	if err != nil {
		return nil, err
	}

	where, _ := args["where"].(string)
	cursor, _ := args["cursor"].(string)

	limit, err := intArg(args, "limit", maxResults)
	if err != nil {
		return nil, err
	}
	if limit > maxResults {
		limit = maxResults
	}

	return &GetLogsRequest{
		Args: query.LogArgs{
			Datasets:   datasets,
			Start:      start,
			End:        end,
			IncludeIDs: listArg(args, "includeIds"),
			ExcludeIDs: listArg(args, "excludeIds"),
			Where:      where,
			Cursor:     cursor,
		},
		Limit: limit,
	}, nil
}

// listArg parses a comma-separated string argument into a cleaned list.
func listArg(args map[string]any, key string) []string {
	raw, _ := args[key].(string)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intArg(args map[string]any, key string, defaultVal int) (int, error) {
	str, _ := args[key].(string)
	if str == "" {
		return defaultVal, nil
	}
	num, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %q value %q: must be a number", key, str)
	}
	if num <= 0 {
		return defaultVal, nil
	}
	return num, nil
}
