package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys shared by the identity and alert services.
const (
	AttrProviderSource  = "identity.provider"
	AttrProviderOutcome = "identity.outcome"
	AttrPrincipalID     = "principal.id"
	AttrPrincipalRole   = "principal.role"
	AttrPrincipalNew    = "principal.created"
	AttrAlertID         = "alert.id"
)

// StartSpan starts a span on the named tracer.
//
//	ctx, span := telemetry.StartSpan(ctx, tracerName, "identity.Resolve",
//	    attribute.String(telemetry.AttrProviderSource, "federated"),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError marks the span failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent records a domain event, such as a link slot backfill or a role
// correction, on the span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
