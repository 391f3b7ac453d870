// Package metrics documents the Prometheus metrics exposed by the
// extractor. Collectors are defined with promauto next to the code they
// observe (pkg/client, pkg/characters) to keep packages self-contained.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the extractor.
// All collectors register on it automatically via promauto.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - marvel_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - marvel_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//
// Retry Metrics (pkg/client):
//   - marvel_retries_total{endpoint} (Counter): Retry attempts
//   - marvel_retry_backoff_seconds{endpoint} (Histogram): Backoff duration before each retry
//   - marvel_retry_exhausted_total{endpoint} (Counter): Requests that exhausted max attempts
//
// Extraction Metrics (pkg/characters):
//   - marvel_pages_fetched_total (Counter): Catalog pages fetched
//   - marvel_records_fetched_total (Counter): Raw records accumulated
//
// Example Prometheus Queries:
//
//   # Request error rate
//   rate(marvel_requests_total{status!~"2.."}[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(marvel_request_duration_seconds_bucket[5m]))
//
//   # Retry pressure
//   rate(marvel_retries_total[5m])
