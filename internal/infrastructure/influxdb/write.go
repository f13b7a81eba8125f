package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Statement metric schema.
const (
	statementMeasurement = "statements"

	statusOK    = "ok"
	statusError = "error"
)

// WriteStatementMetric records the duration of one database operation.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Calls on a closed client are dropped.
//
// Parameters:
//   - database: Logical database name (never a credential)
//   - kind: Operation kind (execute, query, count, script, transaction)
//   - d: Time spent in the engine
//   - failed: Whether the operation returned an error
func (c *Client) WriteStatementMetric(database, kind string, d time.Duration, failed bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statementPoint(database, kind, d, failed, time.Now()))
}

// statementPoint builds the point written by WriteStatementMetric.
func statementPoint(database, kind string, d time.Duration, failed bool, ts time.Time) *write.Point {
	status := statusOK
	if failed {
		status = statusError
	}

	return write.NewPoint(
		statementMeasurement,
		map[string]string{
			"database": database,
			"kind":     kind,
			"status":   status,
		},
		map[string]any{
			"duration_ms": float64(d) / float64(time.Millisecond),
		},
		ts,
	)
}
