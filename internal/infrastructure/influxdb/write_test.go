package influxdb

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/sealdb/internal/infrastructure/config"
)

func TestStatementPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	tests := []struct {
		name   string
		kind   string
		d      time.Duration
		failed bool
		tags   string
		field  string
	}{
		{
			name:  "success",
			kind:  "execute",
			d:     1500 * time.Microsecond,
			tags:  "statements,database=notes,kind=execute,status=ok ",
			field: "duration_ms=1.5 ",
		},
		{
			name:   "failure",
			kind:   "transaction",
			d:      2 * time.Millisecond,
			failed: true,
			tags:   "statements,database=notes,kind=transaction,status=error ",
			field:  "duration_ms=2 ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := statementPoint("notes", tt.kind, tt.d, tt.failed, ts)
			got := write.PointToLineProtocol(p, time.Second)
			if !strings.HasPrefix(got, tt.tags) {
				t.Errorf("line protocol = %q, want prefix %q", got, tt.tags)
			}
			if !strings.Contains(got, tt.field) {
				t.Errorf("line protocol = %q, want field %q", got, tt.field)
			}
			if !strings.Contains(got, " 1700000000") {
				t.Errorf("line protocol = %q, want timestamp 1700000000", got)
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name          string
		batchSize     int
		flushInterval int
		wantBatch     uint
		wantFlushMs   uint
	}{
		{name: "configured", batchSize: 50, flushInterval: 2, wantBatch: 50, wantFlushMs: 2000},
		{name: "zero uses defaults", wantBatch: defaultBatchSize, wantFlushMs: defaultFlushInterval * millisecondsPerSecond},
		{name: "negative uses defaults", batchSize: -5, flushInterval: -1, wantBatch: defaultBatchSize, wantFlushMs: defaultFlushInterval * millisecondsPerSecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := clientOptions(config.InfluxDBConfig{BatchSize: tt.batchSize, FlushInterval: tt.flushInterval})
			if got := opts.BatchSize(); got != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", got, tt.wantBatch)
			}
			if got := opts.FlushInterval(); got != tt.wantFlushMs {
				t.Errorf("FlushInterval() = %d, want %d", got, tt.wantFlushMs)
			}
			if got := opts.WriteOptions().DefaultTags()[serviceTag]; got != serviceValue {
				t.Errorf("default %s tag = %q, want %q", serviceTag, got, serviceValue)
			}
		})
	}
}

func TestClosedClientDropsWrites(t *testing.T) {
	client := &Client{}
	client.closed.Store(true)

	if client.IsConnected() {
		t.Error("IsConnected() = true for closed client")
	}
	// Must not touch the nil write API.
	client.WriteStatementMetric("notes", "execute", time.Millisecond, false)
	client.Flush()
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDrainErrorsCountsFailures(t *testing.T) {
	client := &Client{}
	var seen []error
	client.SetOnError(func(err error) { seen = append(seen, err) })

	errs := make(chan error, 2)
	errs <- errors.New("bucket not found")
	errs <- errors.New("unauthorized")
	close(errs)
	client.drainErrors(errs)

	if got := client.FailedWrites(); got != 2 {
		t.Errorf("FailedWrites() = %d, want 2", got)
	}
	if len(seen) != 2 {
		t.Errorf("callback saw %d errors, want 2", len(seen))
	}
}
