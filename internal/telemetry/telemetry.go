// Package telemetry wires the process-wide OTel MeterProvider at the
// composition root. Every other package calls otel.Meter(...) directly
// (see internal/syncengine/metrics.go) and gets real instruments once
// Setup has run; before that they silently no-op against the global
// delegating provider.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Setup installs an SDK-backed MeterProvider with a manual reader and no
// push exporter. The reader is not returned, so no caller collects the
// recorded metrics. It returns a shutdown func to flush and release the
// provider's resources.
func Setup() (shutdown func(context.Context) error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return provider.Shutdown
}
