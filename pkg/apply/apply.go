// Package apply runs atoms in order and reports the outcome.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/comtrya/pkg/atom"
	"github.com/macropower/comtrya/pkg/log"
)

// ErrAtomFailed is returned when an atom ran but did not succeed.
var ErrAtomFailed = errors.New("atom failed")

// AtomError reports which atom stopped a run.
type AtomError struct {
	Err    error
	Atom   string
	Stderr string
	Code   int
}

func (e *AtomError) Error() string {
	if errors.Is(e.Err, ErrAtomFailed) && e.Code != 0 {
		return fmt.Sprintf("%s: exited with code %d", e.Atom, e.Code)
	}

	return fmt.Sprintf("%s: %v", e.Atom, e.Err)
}

func (e *AtomError) Unwrap() error {
	return e.Err
}

// Report summarizes a run.
type Report struct {
	Executed int
	Skipped  int
	Failed   int
	Duration time.Duration
}

func (r Report) String() string {
	return fmt.Sprintf("%d executed, %d skipped, %d failed in %s",
		r.Executed, r.Skipped, r.Failed, r.Duration.Round(time.Millisecond))
}

// Step is a named group of atoms, usually one manifest.
type Step struct {
	Name  string
	Atoms []atom.Atom
}

// Opt configures an [Orchestrator].
type Opt func(*Orchestrator)

// WithDryRun logs each atom that would execute instead of executing it.
func WithDryRun(dryRun bool) Opt {
	return func(o *Orchestrator) {
		o.dryRun = dryRun
	}
}

// Orchestrator executes steps sequentially.
type Orchestrator struct {
	tracer trace.Tracer
	dryRun bool
}

func NewOrchestrator(opts ...Opt) *Orchestrator {
	o := &Orchestrator{
		tracer: otel.Tracer("apply"),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run plans and executes every atom of every step, in order.
//
// Atoms whose Plan returns false are skipped. The first atom that returns
// an error or ends in [atom.StateFailed] stops the run; the returned
// [*AtomError] wraps the execution error or [ErrAtomFailed].
func (o *Orchestrator) Run(ctx context.Context, steps ...Step) (Report, error) {
	ctx, span := o.tracer.Start(ctx, "apply", trace.WithAttributes(
		attribute.Int("steps", len(steps)),
		attribute.Bool("dry_run", o.dryRun),
	))
	defer span.End()

	var report Report

	start := time.Now()

	for _, step := range steps {
		logger := log.WithContext(ctx).With(slog.String("manifest", step.Name))

		for _, a := range step.Atoms {
			err := ctx.Err()
			if err != nil {
				report.Duration = time.Since(start)

				return report, fmt.Errorf("apply: %w", context.Cause(ctx))
			}

			if !a.Plan() {
				report.Skipped++

				logger.DebugContext(ctx, "atom skipped", slog.String("atom", a.String()))

				continue
			}

			if o.dryRun {
				report.Skipped++

				logger.InfoContext(ctx, "would execute", slog.String("atom", a.String()))

				continue
			}

			err = o.execute(ctx, logger, a)
			report.Executed++

			if err != nil {
				report.Failed++
				report.Duration = time.Since(start)

				span.RecordError(err)
				span.SetStatus(codes.Error, "atom failed")

				return report, err
			}
		}
	}

	report.Duration = time.Since(start)

	return report, nil
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, a atom.Atom) error {
	ctx, span := o.tracer.Start(ctx, "atom", trace.WithAttributes(
		attribute.String("atom", a.String()),
	))
	defer span.End()

	logger.InfoContext(ctx, "executing", slog.String("atom", a.String()))

	start := time.Now()
	err := a.Execute(ctx)
	status := a.Status()

	logger.DebugContext(ctx, "atom finished",
		slog.String("atom", a.String()),
		slog.String("state", status.State.String()),
		slog.Int("code", status.Code),
		slog.String("stdout", humanize.Bytes(uint64(len(status.Stdout)))),
		slog.String("stderr", humanize.Bytes(uint64(len(status.Stderr)))),
		slog.Duration("duration", time.Since(start)),
	)

	if err != nil {
		return &AtomError{Atom: a.String(), Err: err, Code: status.Code, Stderr: a.ErrorMessage()}
	}

	if status.State == atom.StateFailed {
		logger.ErrorContext(ctx, "atom failed",
			slog.String("atom", a.String()),
			slog.Int("code", status.Code),
			slog.String("stderr", a.ErrorMessage()),
		)

		return &AtomError{Atom: a.String(), Err: ErrAtomFailed, Code: status.Code, Stderr: a.ErrorMessage()}
	}

	return nil
}
