// Package telemetry exports perceptd traces and metrics over OTLP.
//
// New installs the tracer and meter providers as the otel globals; the
// perception service, HTTP middleware and MCP tools instrument against those
// globals. Telemetry is off by default:
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: "grpc"        # or "http/protobuf"
//	  sample_rate: 1.0
//	  metrics_interval: "15s"
//
// Insecure export is refused for non-loopback endpoints.
//
// Tests use TestTelemetry:
//
//	tt := telemetry.NewTestTelemetry()
//	tt.Install(t)
//	// ... exercise instrumented code ...
//	tt.AssertSpanExists(t, "perception.analyze")
package telemetry
