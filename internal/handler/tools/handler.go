package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	brontoclient "github.com/brontoio/bronto-mcp-server/internal/client"
	"github.com/brontoio/bronto-mcp-server/internal/config"
	"github.com/brontoio/bronto-mcp-server/internal/contextutil"
	"github.com/brontoio/bronto-mcp-server/internal/telemetry"
	"github.com/brontoio/bronto-mcp-server/pkg/aggregate"
	"github.com/brontoio/bronto-mcp-server/pkg/paginate"
	"github.com/brontoio/bronto-mcp-server/pkg/query"
	"github.com/brontoio/bronto-mcp-server/pkg/timeutil"
	"github.com/brontoio/bronto-mcp-server/pkg/types"
)

const (
	// Timestamp parameter descriptions. Offset-less timestamps are resolved
	// in the configured timezone (UTC unless BRONTO_TIMEZONE is set), never
	// in the server's local time.
	startTimestampDesc = "Start time (optional, defaults to 1 hour ago). Supports: numeric timestamps (milliseconds since epoch), ISO 8601/RFC 3339 (e.g., '2006-01-02T15:04:05Z'), or '2006-01-02 15:04:05'. Timestamps without an offset are interpreted as UTC."
	endTimestampDesc   = "End time (optional, defaults to now). Supports: numeric timestamps (milliseconds since epoch), ISO 8601/RFC 3339 (e.g., '2006-01-02T15:04:05Z'), or '2006-01-02 15:04:05'. Timestamps without an offset are interpreted as UTC."
	timeRangeDesc      = "Time range string (optional, overrides start/end, ends now). Format: <number><unit> where unit is 'm' (minutes), 'h' (hours), or 'd' (days). Examples: '30m', '1h', '24h', '7d'."

	clientCacheSize = 64
)

type Handler struct {
	client      *brontoclient.Bronto
	logger      *zap.Logger
	cfg         *config.Config
	telemetry   *telemetry.Telemetry
	builder     *query.Builder
	clientCache *lru.Cache[string, *brontoclient.Bronto]
}

func NewHandler(log *zap.Logger, client *brontoclient.Bronto, cfg *config.Config, tel *telemetry.Telemetry) *Handler {
	cache, _ := lru.New[string, *brontoclient.Bronto](clientCacheSize)
	return &Handler{
		client:      client,
		logger:      log,
		cfg:         cfg,
		telemetry:   tel,
		builder:     query.NewBuilder(cfg.MaxTimeRange),
		clientCache: cache,
	}
}

// GetClient returns the client for this invocation. A per-request API key
// from the context overrides the configured one; override clients are kept
// in a bounded LRU so a hostile caller cannot grow the cache without limit.
func (h *Handler) GetClient(ctx context.Context) *brontoclient.Bronto {
	apiKey, ok := contextutil.GetAPIKey(ctx)
	if !ok || apiKey == "" {
		return h.client
	}
	if cached, ok := h.clientCache.Get(apiKey); ok {
		return cached
	}

	h.logger.Debug("Creating client with API key from context")
	newClient := brontoclient.NewClient(h.logger, h.cfg.APIEndpoint, apiKey,
		brontoclient.WithTimeout(h.cfg.RequestTimeout))
	h.clientCache.Add(apiKey, newClient)
	return newClient
}

// instrument wraps a tool handler with usage telemetry.
func (h *Handler) instrument(name string, fn server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := fn(ctx, req)
		callErr := err
		if callErr == nil && res != nil && res.IsError {
			callErr = errors.New("tool error")
		}
		h.telemetry.TrackToolCall(name, callErr, time.Since(start))
		return res, err
	}
}

func arguments(req mcp.CallToolRequest) map[string]any {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		return args
	}
	return map[string]any{}
}

func (h *Handler) RegisterDatasetHandlers(s *server.MCPServer) {
	h.logger.Debug("Registering dataset handlers")

	getDatasetsTool := mcp.NewTool("bronto_get_datasets",
		mcp.WithDescription("List the account's datasets from Bronto. Each dataset has a name (usually the service that produced the data), the collection it belongs to, a log ID (UUID) and key-value tags. IMPORTANT: This tool supports pagination using 'limit' and 'offset' parameters. The response includes 'pagination' metadata with 'total', 'hasMore', and 'nextOffset' fields. When searching for a specific dataset, ALWAYS check 'pagination.hasMore' and continue paginating via 'nextOffset' until you find it or 'hasMore' is false. Default: limit=50, offset=0."),
		mcp.WithString("name", mcp.Description("Optional dataset name to filter by (exact match).")),
		mcp.WithString("collection", mcp.Description("Optional collection name to filter by (exact match).")),
		mcp.WithString("limit", mcp.Description("Maximum number of datasets to return per page. Default: 50. Must be greater than 0.")),
		mcp.WithString("offset", mcp.Description("Number of results to skip before returning results. Check 'pagination.nextOffset' in the response for the next page. Default: 0. Must be >= 0.")),
	)

	s.AddTool(getDatasetsTool, h.instrument("bronto_get_datasets", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		h.logger.Debug("Tool called: bronto_get_datasets")
		args := arguments(req)
		limit, offset := paginate.Params(args)
		name, _ := args["name"].(string)
		collection, _ := args["collection"].(string)

		client := h.GetClient(ctx)
		collector := aggregate.NewCollector[types.Dataset](h.cfg.MaxResults)
		cursor := ""
		for {
			page, err := withRetry(ctx, func() (*types.DatasetsResponse, error) {
				return client.GetDatasets(ctx, cursor)
			})
			if err != nil {
				h.logger.Error("Failed to list datasets", zap.Error(err))
				return mcp.NewToolResultError(err.Error()), nil
			}

			datasets := page.Logs
			if name != "" || collection != "" {
				datasets = filterDatasets(datasets, name, collection)
			}
			if !collector.Add(datasets, page.Next) {
				break
			}
			cursor = page.Next
		}

		resultJSON, err := paginate.Wrap(collector.Result(), offset, limit)
		if err != nil {
			h.logger.Error("Failed to wrap datasets with pagination", zap.Error(err))
			return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}))

	getDatasetKeysTool := mcp.NewTool("bronto_get_dataset_keys",
		mcp.WithDescription("Discover the queryable keys of a dataset with sample values, merging the keys observed in recent events with the dataset's statistically most frequent keys. Use the returned key names in the 'where' and 'groupBy' parameters of the search tools."),
		mcp.WithString("logId", mcp.Required(), mcp.Description("Dataset log ID (UUID). Use bronto_get_datasets to discover dataset IDs.")),
	)

	s.AddTool(getDatasetKeysTool, h.instrument("bronto_get_dataset_keys", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logID, ok := arguments(req)["logId"].(string)
		if !ok || logID == "" {
			h.logger.Warn("Invalid or empty logId parameter")
			return mcp.NewToolResultError(`Parameter validation failed: "logId" must be a non-empty string (a dataset UUID). Example: {"logId": "a1b2c3d4-e5f6-7890-abcd-ef1234567890"}`), nil
		}

		h.logger.Debug("Tool called: bronto_get_dataset_keys", zap.String("logId", logID))
		client := h.GetClient(ctx)

		var recent, top map[string][]string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			recent, err = withRetry(gctx, func() (map[string][]string, error) {
				return client.GetRecentKeys(gctx, logID)
			})
			return err
		})
		g.Go(func() error {
			var err error
			top, err = withRetry(gctx, func() (map[string][]string, error) {
				return client.GetTopKeys(gctx, logID)
			})
			return err
		})
		if err := g.Wait(); err != nil {
			h.logger.Error("Failed to get dataset keys", zap.String("logId", logID), zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		keys := mergeKeys(recent, top)
		resultJSON, err := json.Marshal(keys)
		if err != nil {
			h.logger.Error("Failed to marshal dataset keys", zap.Error(err))
			return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}))
}

func (h *Handler) RegisterLogsHandlers(s *server.MCPServer) {
	h.logger.Debug("Registering logs handlers")

	getLogsTool := mcp.NewTool("bronto_get_logs",
		mcp.WithDescription("Fetch raw log events from one or more Bronto datasets within a time range. Pages are fetched from Bronto until the result set is exhausted or the item ceiling is reached; when 'truncated' is true in the response, more data exists and 'nextCursor' resumes the iteration. Defaults to the last hour if no time is specified."),
		mcp.WithString("datasets", mcp.Required(), mcp.Description("Comma-separated list of dataset log IDs (UUIDs) to query. Use bronto_get_datasets to discover them.")),
		mcp.WithString("timeRange", mcp.Description(timeRangeDesc)),
		mcp.WithString("start", mcp.Description(startTimestampDesc)),
		mcp.WithString("end", mcp.Description(endTimestampDesc)),
		mcp.WithString("includeIds", mcp.Description("Optional comma-separated dataset IDs to narrow the query to. Must not overlap with excludeIds.")),
		mcp.WithString("excludeIds", mcp.Description("Optional comma-separated dataset IDs to leave out. Must not overlap with includeIds.")),
		mcp.WithString("where", mcp.Description("Optional Bronto filter expression, e.g. \"@status = 500\" or \"environment = 'production'\". Use bronto_get_dataset_keys to discover key names.")),
		mcp.WithString("cursor", mcp.Description("Opaque continuation cursor from a previous truncated response. Pass it back verbatim to resume.")),
		mcp.WithString("limit", mcp.Description("Maximum number of events to aggregate across pages (default and ceiling: the configured maximum).")),
	)

	s.AddTool(getLogsTool, h.instrument("bronto_get_logs", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := arguments(req)

		parsed, err := parseGetLogsArgs(args, h.cfg.Timezone, h.cfg.MaxResults)
		if err != nil {
			h.logger.Warn("Invalid bronto_get_logs arguments", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		logQuery, err := h.builder.BuildLogQuery(parsed.Args)
		if err != nil {
			h.logger.Warn("Log query validation failed", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		h.logger.Debug("Tool called: bronto_get_logs",
			zap.Strings("datasets", logQuery.Datasets),
			zap.Int64("start", logQuery.Range.Start),
			zap.Int64("end", logQuery.Range.End),
			zap.Int("limit", parsed.Limit))

		client := h.GetClient(ctx)
		result, err := h.collectEvents(ctx, client, logQuery.Payload(), parsed.Limit)
		if err != nil {
			h.logger.Error("Failed to get logs", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		resultJSON, err := json.Marshal(result)
		if err != nil {
			h.logger.Error("Failed to marshal log events", zap.Error(err))
			return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}))
}

func (h *Handler) RegisterSearchHandlers(s *server.MCPServer) {
	h.logger.Debug("Registering search handlers")

	searchEventsTool := mcp.NewTool("bronto_search_events",
		mcp.WithDescription("Search log events in Bronto with a filter expression. Returns matching events in the order Bronto ranks them; when 'truncated' is true more data exists and 'nextCursor' resumes the iteration. Defaults to the last hour if no time is specified."),
		mcp.WithString("datasets", mcp.Required(), mcp.Description("Comma-separated list of dataset log IDs (UUIDs) to search. Use bronto_get_datasets to discover them.")),
		mcp.WithString("expression", mcp.Description("Bronto filter expression, e.g. \"@status = 500 AND environment = 'production'\". Use bronto_get_dataset_keys to discover key names.")),
		mcp.WithString("timeRange", mcp.Description(timeRangeDesc)),
		mcp.WithString("start", mcp.Description(startTimestampDesc)),
		mcp.WithString("end", mcp.Description(endTimestampDesc)),
		mcp.WithString("select", mcp.Description("Optional comma-separated fields to select (default: '@raw').")),
		mcp.WithString("cursor", mcp.Description("Opaque continuation cursor from a previous truncated response. Pass it back verbatim to resume.")),
		mcp.WithString("limit", mcp.Description("Maximum number of events to aggregate across pages (default and ceiling: the configured maximum).")),
	)

	s.AddTool(searchEventsTool, h.instrument("bronto_search_events", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := arguments(req)

		parsed, err := parseSearchEventsArgs(args, h.cfg.Timezone, h.cfg.MaxResults)
		if err != nil {
			h.logger.Warn("Invalid bronto_search_events arguments", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		searchQuery, err := h.builder.BuildSearchQuery(parsed.Args)
		if err != nil {
			h.logger.Warn("Search query validation failed", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		h.logger.Debug("Tool called: bronto_search_events",
			zap.Strings("datasets", searchQuery.Datasets),
			zap.String("expression", searchQuery.Expression))

		client := h.GetClient(ctx)
		result, err := h.collectEvents(ctx, client, searchQuery.Payload(), parsed.Limit)
		if err != nil {
			h.logger.Error("Failed to search events", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		resultJSON, err := json.Marshal(result)
		if err != nil {
			h.logger.Error("Failed to marshal search result", zap.Error(err))
			return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}))

	computeMetricsTool := mcp.NewTool("bronto_compute_metrics",
		mcp.WithDescription("Run a statistical search over Bronto log events: apply metric functions over a time range, optionally grouped by keys. Returns a timeseries per group; ungrouped totals use the empty group name. Defaults to the last hour if no time is specified."),
		mcp.WithString("datasets", mcp.Required(), mcp.Description("Comma-separated list of dataset log IDs (UUIDs) to query.")),
		mcp.WithString("metrics", mcp.Required(), mcp.Description("Comma-separated metric functions to compute. Supported: "+allowedMetricFunctions+".")),
		mcp.WithString("where", mcp.Description("Optional Bronto filter expression to restrict the events measured.")),
		mcp.WithString("groupBy", mcp.Description("Optional comma-separated keys to group the series by.")),
		mcp.WithString("timeRange", mcp.Description(timeRangeDesc)),
		mcp.WithString("start", mcp.Description(startTimestampDesc)),
		mcp.WithString("end", mcp.Description(endTimestampDesc)),
	)

	s.AddTool(computeMetricsTool, h.instrument("bronto_compute_metrics", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := arguments(req)

		searchArgs, err := parseComputeMetricsArgs(args, h.cfg.Timezone)
		if err != nil {
			h.logger.Warn("Invalid bronto_compute_metrics arguments", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		searchQuery, err := h.builder.BuildSearchQuery(*searchArgs)
		if err != nil {
			h.logger.Warn("Statistical query validation failed", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		h.logger.Debug("Tool called: bronto_compute_metrics",
			zap.Strings("datasets", searchQuery.Datasets),
			zap.Strings("metrics", searchQuery.Metrics),
			zap.Strings("groupBy", searchQuery.GroupBy))

		client := h.GetClient(ctx)
		groups, err := withRetry(ctx, func() (map[string]types.Timeseries, error) {
			return client.SearchStatistical(ctx, searchQuery.Payload())
		})
		if err != nil {
			h.logger.Error("Failed to compute metrics", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		resultJSON, err := json.Marshal(groups)
		if err != nil {
			h.logger.Error("Failed to marshal metrics", zap.Error(err))
			return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}))

	topKeysTool := mcp.NewTool("bronto_get_top_keys",
		mcp.WithDescription("Get the statistically most frequent keys of a dataset with their observed values. Useful for discovering what can be filtered or grouped on."),
		mcp.WithString("logId", mcp.Required(), mcp.Description("Dataset log ID (UUID). Use bronto_get_datasets to discover dataset IDs.")),
	)

	s.AddTool(topKeysTool, h.instrument("bronto_get_top_keys", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logID, ok := arguments(req)["logId"].(string)
		if !ok || logID == "" {
			h.logger.Warn("Invalid or empty logId parameter")
			return mcp.NewToolResultError(`Parameter validation failed: "logId" must be a non-empty string (a dataset UUID). Example: {"logId": "a1b2c3d4-e5f6-7890-abcd-ef1234567890"}`), nil
		}

		h.logger.Debug("Tool called: bronto_get_top_keys", zap.String("logId", logID))
		client := h.GetClient(ctx)
		keys, err := withRetry(ctx, func() (map[string][]string, error) {
			return client.GetTopKeys(ctx, logID)
		})
		if err != nil {
			h.logger.Error("Failed to get top keys", zap.String("logId", logID), zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		resultJSON, err := json.Marshal(keys)
		if err != nil {
			h.logger.Error("Failed to marshal top keys", zap.Error(err))
			return mcp.NewToolResultError("failed to marshal response: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}))
}

func (h *Handler) RegisterTimeHandlers(s *server.MCPServer) {
	h.logger.Debug("Registering time handlers")

	epochTool := mcp.NewTool("bronto_get_timestamp_as_unix_epoch",
		mcp.WithDescription("Convert a timestamp to milliseconds since unix epoch, the format Bronto expects for time bounds. Accepts numeric epochs, ISO 8601/RFC 3339 with optional offset, or '2006-01-02 15:04:05'. Timestamps without an explicit offset are interpreted in the configured timezone (UTC by default), not the server's local time. For instance '2025-05-01 00:00:00' yields 1746057600000."),
		mcp.WithString("time", mcp.Required(), mcp.Description("The timestamp to convert, e.g. '2025-05-01 00:00:00' or '2025-05-01T00:00:00+02:00'.")),
	)

	s.AddTool(epochTool, h.instrument("bronto_get_timestamp_as_unix_epoch", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, ok := arguments(req)["time"].(string)
		if !ok || input == "" {
			h.logger.Warn("Invalid or empty time parameter")
			return mcp.NewToolResultError(`Parameter validation failed: "time" must be a non-empty string. Example: {"time": "2025-05-01 00:00:00"}`), nil
		}

		h.logger.Debug("Tool called: bronto_get_timestamp_as_unix_epoch", zap.String("time", input))
		millis, err := timeutil.ToEpochMillisIn(input, h.cfg.Timezone)
		if err != nil {
			h.logger.Warn("Failed to normalize timestamp", zap.String("time", input), zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(strconv.FormatInt(millis, 10)), nil
	}))

	currentTimeTool := mcp.NewTool("bronto_get_current_time",
		mcp.WithDescription("Get the current time in UTC, formatted as '2006-01-02 15:04:05'. Combine with bronto_get_timestamp_as_unix_epoch to build time ranges relative to now."),
	)

	s.AddTool(currentTimeTool, h.instrument("bronto_get_current_time", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		h.logger.Debug("Tool called: bronto_get_current_time")
		return mcp.NewToolResultText(timeutil.CurrentTime()), nil
	}))
}

// collectEvents drives the cursor-based pagination of POST /search,
// fetching pages sequentially in cursor order until the remote is exhausted
// or the ceiling is hit. Each page fetch carries the retry policy.
func (h *Handler) collectEvents(ctx context.Context, client *brontoclient.Bronto, payload *types.SearchPayload, limit int) (aggregate.Result[types.LogEvent], error) {
	collector := aggregate.NewCollector[types.LogEvent](limit)
	for {
		page, err := withRetry(ctx, func() (*types.EventsResponse, error) {
			return client.SearchEvents(ctx, payload)
		})
		if err != nil {
			return aggregate.Result[types.LogEvent]{}, err
		}
		if !collector.Add(page.Events, page.Next) {
			break
		}
		payload.Cursor = page.Next
	}
	return collector.Result(), nil
}

func filterDatasets(datasets []types.Dataset, name, collection string) []types.Dataset {
	filtered := make([]types.Dataset, 0, len(datasets))
	for _, d := range datasets {
		if name != "" && d.Name != name {
			continue
		}
		if collection != "" && d.Collection != collection {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}

// mergeKeys combines recent and top key observations per key name, keeping
// values unique and the key list sorted for stable output.
func mergeKeys(recent, top map[string][]string) []types.DatasetKey {
	byName := make(map[string]*types.DatasetKey)
	for _, source := range []map[string][]string{recent, top} {
		for name, values := range source {
			key, ok := byName[name]
			if !ok {
				key = &types.DatasetKey{Name: name}
				byName[name] = key
			}
			key.AddValues(values)
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	keys := make([]types.DatasetKey, 0, len(names))
	for _, name := range names {
		keys = append(keys, *byName[name])
	}
	return keys
}
