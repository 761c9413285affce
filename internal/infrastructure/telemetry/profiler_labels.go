package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// WithProfilingLabels runs fn with pprof labels attached so Pyroscope can
// slice profiles by them. Keep labels low-cardinality: route and method,
// never document IDs.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// HTTPRequestLabels are the labels attached to one API request
func HTTPRequestLabels(route, method string) map[string]string {
	return map[string]string{"route": route, "method": method}
}

// labelPairs flattens labels into key/value pairs sorted by key, dropping
// empty entries and normalising keys to lower snake case.
func labelPairs(labels map[string]string) []string {
	normalise := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	clean := make(map[string]string, len(labels))
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		if k == "" || v == "" {
			continue
		}
		key := strings.ToLower(normalise.Replace(k))
		if _, dup := clean[key]; !dup {
			keys = append(keys, key)
		}
		clean[key] = v
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, clean[k])
	}
	return pairs
}
