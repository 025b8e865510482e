// Package fulfillment runs the post-payment pipeline: mark the order
// paid, submit the print-on-demand job, send the confirmation email.
//
// The pipeline is triggered by the payment provider's webhook and runs
// detached from the HTTP request, so the provider's delivery timeout
// cannot cancel it mid-flight.
package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkpress/bookstore/internal/fulfillment/flog"
)

// Step is a single unit of work in the pipeline. Each step must be able
// to undo its effects when a later step fails.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Pipeline executes steps sequentially with LIFO compensation on
// failure. Every transition is appended to the fulfillment log.
type Pipeline struct {
	orderID string
	steps   []Step
	log     flog.Repository // nil-safe: logging skipped if nil
}

func NewPipeline(orderID string, steps []Step, log flog.Repository) *Pipeline {
	return &Pipeline{orderID: orderID, steps: steps, log: log}
}

// Run executes the steps in order. If a step fails, the previously
// successful steps are compensated in reverse order and the step's
// error is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	p.record(ctx, flog.StatusStarted, "", nil)

	var done []Step
	for _, step := range p.steps {
		slog.InfoContext(ctx, "executing fulfillment step", "order_id", p.orderID, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			slog.ErrorContext(ctx, "fulfillment step failed, compensating",
				"order_id", p.orderID, "step", step.Name(), "error", err)
			errs := []string{fmt.Sprintf("step %s failed: %v", step.Name(), err)}
			p.record(ctx, flog.StatusCompensating, step.Name(), errs)

			errs = append(errs, p.rollback(ctx, done)...)
			p.record(ctx, flog.StatusFailed, step.Name(), errs)
			return fmt.Errorf("fulfillment: step %s: %w", step.Name(), err)
		}
		done = append(done, step)
		p.record(ctx, flog.StatusStepDone, step.Name(), nil)
	}

	p.record(ctx, flog.StatusCompleted, "", nil)
	slog.InfoContext(ctx, "fulfillment completed", "order_id", p.orderID)
	return nil
}

// rollback compensates the given steps in reverse order and returns a
// message per compensation that itself failed.
func (p *Pipeline) rollback(ctx context.Context, steps []Step) []string {
	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		slog.WarnContext(ctx, "compensating fulfillment step", "order_id", p.orderID, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: compensation failed",
				"order_id", p.orderID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("compensation of %s failed: %v", step.Name(), err))
		}
	}
	return errs
}

func (p *Pipeline) record(ctx context.Context, status flog.Status, step string, errs []string) {
	if p.log == nil {
		return
	}
	entry := flog.NewEntry(ctx, p.orderID, status, step, errs)
	if err := p.log.Save(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to write fulfillment log", "order_id", p.orderID, "error", err)
	}
}
