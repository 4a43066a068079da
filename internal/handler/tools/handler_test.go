package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	brontoclient "github.com/brontoio/bronto-mcp-server/internal/client"
	"github.com/brontoio/bronto-mcp-server/internal/config"
	"github.com/brontoio/bronto-mcp-server/internal/contextutil"
	"github.com/brontoio/bronto-mcp-server/internal/telemetry"
	"github.com/brontoio/bronto-mcp-server/pkg/types"
)

func testConfig() *config.Config {
	return &config.Config{
		APIKey:         "test-key",
		APIEndpoint:    "http://bronto.invalid",
		Timezone:       time.UTC,
		MaxTimeRange:   30 * 24 * time.Hour,
		MaxResults:     1000,
		RequestTimeout: 5 * time.Second,
	}
}

func newTestHandler(t *testing.T, handlerFunc http.HandlerFunc) (*Handler, *brontoclient.Bronto) {
	t.Helper()
	srv := httptest.NewServer(handlerFunc)
	t.Cleanup(srv.Close)

	client := brontoclient.NewClient(zap.NewNop(), srv.URL, "test-key",
		brontoclient.WithHTTPClient(srv.Client()))
	h := NewHandler(zap.NewNop(), client, testConfig(), telemetry.New(zap.NewNop(), ""))
	return h, client
}

func TestCollectEvents_FollowsCursorsAcrossPages(t *testing.T) {
	pages := map[string]string{
		"":       `{"events": [{"@raw": "one"}, {"@raw": "two"}], "next": "page-2"}`,
		"page-2": `{"events": [{"@raw": "three"}], "next": "page-3"}`,
		"page-3": `{"events": [{"@raw": "four"}]}`,
	}
	hits := 0
	h, client := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		var payload types.SearchPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		body, ok := pages[payload.Cursor]
		require.True(t, ok, "unexpected cursor %q", payload.Cursor)
		w.Write([]byte(body))
	})

	payload := &types.SearchPayload{
		FromTS: 1746057600000,
		ToTS:   1746061200000,
		From:   []string{"log-1"},
	}
	result, err := h.collectEvents(context.Background(), client, payload, 1000)
	require.NoError(t, err)

	assert.Equal(t, 3, hits)
	require.Len(t, result.Items, 4)
	assert.Equal(t, "one", result.Items[0].Message)
	assert.Equal(t, "four", result.Items[3].Message)
	assert.False(t, result.Truncated)
	assert.Empty(t, result.NextCursor)
}

func TestCollectEvents_StopsAtCeiling(t *testing.T) {
	hits := 0
	h, client := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprintf(w, `{"events": [{"@raw": "line %d-a"}, {"@raw": "line %d-b"}], "next": "page-%d"}`, hits, hits, hits+1)
	})

	payload := &types.SearchPayload{
		FromTS: 1746057600000,
		ToTS:   1746061200000,
		From:   []string{"log-1"},
	}
	result, err := h.collectEvents(context.Background(), client, payload, 3)
	require.NoError(t, err)

	assert.Equal(t, 2, hits)
	assert.Len(t, result.Items, 3)
	assert.True(t, result.Truncated)
	assert.NotEmpty(t, result.NextCursor)
}

func TestCollectEvents_SurfacesRemoteFailure(t *testing.T) {
	h, client := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	payload := &types.SearchPayload{
		FromTS: 1746057600000,
		ToTS:   1746061200000,
		From:   []string{"log-1"},
	}
	_, err := h.collectEvents(context.Background(), client, payload, 1000)
	require.Error(t, err)
	assert.Equal(t, brontoclient.KindAuthentication, brontoclient.Kind(err))
}

func TestGetClient_UsesConfiguredClientByDefault(t *testing.T) {
	h, client := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	assert.Same(t, client, h.GetClient(context.Background()))
	assert.Same(t, client, h.GetClient(contextutil.SetAPIKey(context.Background(), "")))
}

func TestGetClient_CachesPerContextKey(t *testing.T) {
	h, client := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	ctx := contextutil.SetAPIKey(context.Background(), "other-key")
	override := h.GetClient(ctx)
	assert.NotSame(t, client, override)
	assert.Same(t, override, h.GetClient(ctx))
}
