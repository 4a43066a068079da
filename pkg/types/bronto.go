package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Dataset is a named, identified collection of log events on the Bronto
// service. Field names follow the Bronto wire schema: the dataset name
// usually matches the service that produced the data, the collection groups
// related datasets, and tags carry key-value context such as
// "environment"="production".
type Dataset struct {
	ID         string            `json:"log_id"`
	Name       string            `json:"log"`
	Collection string            `json:"logset"`
	Tags       map[string]string `json:"tags"`
}

// LogEvent is a single log record. Message holds the raw log line;
// Attributes folds the event's service attributes, parsed message key-values
// and the @status/@time envelope fields into one flat map.
type LogEvent struct {
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes"`
}

// DatasetKey is a queryable key observed in a dataset together with sample
// values.
type DatasetKey struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// AddValues appends values not already present, preserving insertion order.
func (k *DatasetKey) AddValues(values []string) {
	seen := make(map[string]struct{}, len(k.Values))
	for _, v := range k.Values {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		k.Values = append(k.Values, v)
	}
}

// Datapoint is one sample of a statistical search result.
type Datapoint struct {
	Timestamp int64              `json:"@timestamp"`
	Count     int64              `json:"count"`
	Quantiles map[string]float64 `json:"quantiles"`
	Value     float64            `json:"value"`
}

// Timeseries is the series of datapoints computed for one group.
type Timeseries struct {
	Count      int64       `json:"count"`
	Datapoints []Datapoint `json:"timeseries"`
}

// DatasetsResponse is the GET /logs envelope. Next carries the opaque
// continuation cursor when the listing is paginated.
type DatasetsResponse struct {
	Logs []Dataset `json:"logs"`
	Next string    `json:"next,omitempty"`
}

// EventsResponse is the decoded POST /search envelope for event searches.
type EventsResponse struct {
	Events []LogEvent
	Next   string
}

// wireEvent mirrors a raw search event. Attribute values are not guaranteed
// to be JSON strings, so everything goes through attrString.
type wireEvent struct {
	Raw        string         `json:"@raw"`
	Status     any            `json:"@status"`
	Time       any            `json:"@time"`
	Attributes map[string]any `json:"attributes"`
	MessageKVs map[string]any `json:"message_kvs"`
}

func attrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// UnmarshalJSON folds the wire event shape into LogEvents. A malformed
// envelope fails decoding here rather than propagating untyped data.
func (r *EventsResponse) UnmarshalJSON(b []byte) error {
	var env struct {
		Events []wireEvent `json:"events"`
		Next   string      `json:"next"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}

	r.Next = env.Next
	r.Events = make([]LogEvent, 0, len(env.Events))
	for _, ev := range env.Events {
		attrs := make(map[string]string, len(ev.Attributes)+len(ev.MessageKVs)+2)
		if ev.Status != nil {
			attrs["@status"] = attrString(ev.Status)
		}
		if ev.Time != nil {
			attrs["@time"] = attrString(ev.Time)
		}
		for k, v := range ev.Attributes {
			attrs[k] = attrString(v)
		}
		for k, v := range ev.MessageKVs {
			attrs[k] = attrString(v)
		}
		r.Events = append(r.Events, LogEvent{Message: ev.Raw, Attributes: attrs})
	}
	return nil
}

// StatisticalResponse is the decoded POST /search envelope for statistical
// searches. Groups is keyed by group name; ungrouped results use the empty
// key.
type StatisticalResponse struct {
	Groups map[string]Timeseries
}

func (r *StatisticalResponse) UnmarshalJSON(b []byte) error {
	var env struct {
		Totals       *Timeseries `json:"totals"`
		GroupsSeries []struct {
			Name string `json:"name"`
			Timeseries
		} `json:"groups_series"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}

	r.Groups = make(map[string]Timeseries)
	if env.Totals != nil {
		r.Groups[""] = *env.Totals
	}
	for _, g := range env.GroupsSeries {
		r.Groups[g.Name] = g.Timeseries
	}
	return nil
}

// TopKeyStats describes one key of the GET /top-keys response: observed
// values mapped to their occurrence counts.
type TopKeyStats struct {
	Values map[string]int64 `json:"values"`
}

// TopKeysResponse is keyed by dataset ID, then by key name.
type TopKeysResponse map[string]map[string]TopKeyStats

// KeyValues flattens the stats for one dataset into key -> sorted values.
func (r TopKeysResponse) KeyValues(logID string) map[string][]string {
	keys := r[logID]
	out := make(map[string][]string, len(keys))
	for name, stats := range keys {
		values := make([]string, 0, len(stats.Values))
		for v := range stats.Values {
			values = append(values, v)
		}
		sort.Strings(values)
		out[name] = values
	}
	return out
}
