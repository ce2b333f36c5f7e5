// internal/common/observability/observability_test.go
package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"xtenda-workers/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_WithoutJaeger(t *testing.T) {
	o := New(Settings{ServiceName: "xtenda-workers", Registerer: promclient.NewRegistry()}, logger.NewNoOpLogger())

	assert.Nil(t, o.tracerProvider)
	assert.NotNil(t, o.meterProvider)

	ctx, span := o.StartJobSpan(context.Background(), "compute-loan-quote", 42)
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	EndJobSpan(span, nil)

	o.RecordJob(context.Background(), "compute-loan-quote", "completed", 15*time.Millisecond)
	assert.NoError(t, o.Shutdown(context.Background()))
}

func TestStartJobSpan_RecordsAttributesAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	o := &Observability{tracer: tp.Tracer("test")}

	_, ok := o.StartJobSpan(context.Background(), "compute-loan-quote", 7)
	EndJobSpan(ok, nil)

	_, failed := o.StartJobSpan(context.Background(), "update-repayment-schedule", 8)
	EndJobSpan(failed, errors.New("schedule rejected"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "compute-loan-quote", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("job.key", 7))
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "schedule rejected", spans[1].Status().Description)
	assert.Len(t, spans[1].Events(), 1)
}

func TestRecordJob_NilInstrumentsAreSafe(t *testing.T) {
	o := &Observability{}
	o.RecordJob(context.Background(), "x", "failed", time.Second)
	assert.NoError(t, o.Shutdown(context.Background()))
}
