package metrics

import (
	"context"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	sdk "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/looplj/caseflow"

// Recorder counts authorization decisions.
type Recorder struct {
	permissionChecks    metric.Int64Counter
	transitionDecisions metric.Int64Counter
	accessDecisions     metric.Int64Counter
}

// NewRecorder creates the decision counters on provider.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(meterName)

	permissionChecks, err := meter.Int64Counter("caseflow.permission.checks",
		metric.WithDescription("Permission matrix lookups by decision"))
	if err != nil {
		return nil, err
	}

	transitionDecisions, err := meter.Int64Counter("caseflow.transition.decisions",
		metric.WithDescription("Status transition validations by decision and reason"))
	if err != nil {
		return nil, err
	}

	accessDecisions, err := meter.Int64Counter("caseflow.access.decisions",
		metric.WithDescription("Case access resolutions by decision and reason"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		permissionChecks:    permissionChecks,
		transitionDecisions: transitionDecisions,
		accessDecisions:     accessDecisions,
	}, nil
}

// NewRecorderFromSDK uses provider, or a noop provider when metrics are disabled.
func NewRecorderFromSDK(provider *sdk.MeterProvider) (*Recorder, error) {
	if provider == nil {
		return NewNoopRecorder(), nil
	}

	return NewRecorder(provider)
}

func NewNoopRecorder() *Recorder {
	r, _ := NewRecorder(noop.NewMeterProvider())
	return r
}

func decision(ok bool) attribute.KeyValue {
	return attribute.String("decision", lo.Ternary(ok, "allow", "deny"))
}

func (r *Recorder) PermissionCheck(ctx context.Context, role, feature string, allowed bool) {
	r.permissionChecks.Add(ctx, 1, metric.WithAttributes(
		decision(allowed),
		attribute.String("role", role),
		attribute.String("feature", feature),
	))
}

func (r *Recorder) TransitionDecision(ctx context.Context, admit bool, reason string) {
	r.transitionDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decision", lo.Ternary(admit, "admit", "reject")),
		attribute.String("reason", reason),
	))
}

func (r *Recorder) AccessDecision(ctx context.Context, allowed bool, reason string) {
	r.accessDecisions.Add(ctx, 1, metric.WithAttributes(
		decision(allowed),
		attribute.String("reason", reason),
	))
}
