// Package telemetry provides OpenTelemetry tracing and metrics for momentd.
//
// New builds a TracerProvider and MeterProvider that export over OTLP (gRPC by
// default, HTTP/protobuf when configured) and installs them globally together
// with W3C trace-context propagation. Exporter failures degrade the instance
// instead of failing startup; Health reports the last failure.
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	tracer := tel.Tracer("momentd/moments")
//	ctx, span := tracer.Start(ctx, "moments.CreateAndMatch")
//	defer span.End()
//
// NewTestTelemetry records spans in memory for tests.
package telemetry
