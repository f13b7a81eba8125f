// Package influxdb records SealDB statement metrics in InfluxDB.
//
// # Schema
//
// Every store operation becomes one point:
//
//	statements,database=<name>,kind=<execute|query|count|script|transaction>,service=sealdb,status=<ok|error> duration_ms=<float>
//
// Tags never carry credentials or SQL text.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteStatementMetric("notes", "execute", 3*time.Millisecond, false)
//
// # Errors
//
// Writes are batched and never block the caller. Rejected batches are
// counted by FailedWrites and passed to the SetOnError callback.
package influxdb
