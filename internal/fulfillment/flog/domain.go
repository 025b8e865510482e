// Package flog defines the fulfillment log: a durable audit trail of
// every state transition a post-payment fulfillment run goes through.
//
// Each row is an immutable event. The log serves two purposes:
//
//  1. Observability: query the store to see exactly where a run is (or
//     was) and jump to the distributed trace via the trace_id field.
//
//  2. Reconciliation: a run that failed after payment was captured
//     leaves a FAILED row naming the step, so an operator can re-drive
//     the print job or refund by hand.
package flog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Status is the lifecycle state of a fulfillment run.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// Entry is a single fulfillment log row.
type Entry struct {
	// OrderID identifies the run; it equals the checkout-session ID so
	// the log can be joined with business data.
	OrderID string

	// Status is the lifecycle state at the time this row was written.
	Status Status

	// CurrentStep names the step that just executed or failed.
	CurrentStep string

	// ErrorMessages accumulates failure details as a JSON array of
	// strings, one per failed step or compensation.
	ErrorMessages string

	// TraceID and SpanID are the W3C identifiers of the OpenTelemetry
	// span active when the row was written. Empty when no span exists
	// (for example, in unit tests).
	TraceID string
	SpanID  string

	UpdatedAt time.Time
}

// Repository is the port for persisting log entries. The pipeline
// depends on this abstraction, not on the document store directly.
type Repository interface {
	// Save appends a row; the log is append-only, never upserted.
	Save(ctx context.Context, entry *Entry) error
}

// NewEntry builds an Entry with trace info extracted from ctx.
func NewEntry(ctx context.Context, orderID string, status Status, currentStep string, errs []string) *Entry {
	sc := trace.SpanFromContext(ctx).SpanContext()

	errJSON := "[]"
	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			errJSON = string(b)
		}
	}

	entry := &Entry{
		OrderID:       orderID,
		Status:        status,
		CurrentStep:   currentStep,
		ErrorMessages: errJSON,
		UpdatedAt:     time.Now().UTC(),
	}
	if sc.IsValid() {
		entry.TraceID = sc.TraceID().String()
		entry.SpanID = sc.SpanID().String()
	}
	return entry
}
