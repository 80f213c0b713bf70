package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"

	sdk "go.opentelemetry.io/otel/sdk/metric"

	"github.com/looplj/caseflow/internal/log"
)

// NewProvider builds the meter provider. It returns nil when metrics are disabled.
func NewProvider(cfg Config) (*sdk.MeterProvider, error) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	var (
		exporter sdk.Exporter
		err      error
	)

	switch cfg.Exporter {
	case "":
		return nil, nil
	case ExporterStdout:
		exporter, err = stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	case ExporterOTLP:
		opts := []otlpmetrichttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}

		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		exporter, err = otlpmetrichttp.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("invalid metrics exporter: %s", cfg.Exporter)
	}

	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	log.Info(context.Background(), "metrics enabled",
		log.String("exporter", cfg.Exporter),
		log.Duration("interval", interval),
	)

	return sdk.NewMeterProvider(
		sdk.WithReader(sdk.NewPeriodicReader(exporter, sdk.WithInterval(interval))),
	), nil
}

// SetupMetrics installs provider as the global meter provider.
func SetupMetrics(provider *sdk.MeterProvider, name string) error {
	if provider == nil {
		return nil
	}

	otel.SetMeterProvider(provider)

	log.Debug(context.Background(), "global meter provider installed", log.String("name", name))

	return nil
}
