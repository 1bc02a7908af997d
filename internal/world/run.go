package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/quickstep/internal/quickstep"
)

// Run steps the world for cfg.Duration. It stops early, returning the
// partial result, when ctx is canceled, when a joint breaks the stepper
// contract, or, with ValidateState, when a body becomes invalid. The latter
// two are recorded in Result.Errors as *RunError.
func (w *World) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Times:      make([]float64, 0, steps+1),
		RMS:        make([]float64, 0, steps),
		Iterations: make([]int, 0, steps),
		Metrics:    make(map[string]float64),
	}
	if cfg.RecordStates {
		result.States = make([][]float64, 0, steps+1)
		result.States = append(result.States, w.State())
	}
	result.Times = append(result.Times, w.time)

	for _, m := range w.metrics {
		m.Reset()
	}

	w.logger.Info("run started",
		"bodies", len(w.bodies),
		"joints", len(w.joints),
		"dt", cfg.Dt,
		"steps", steps,
		"strategy", w.stepper.Parameters().Strategy)
	start := time.Now()
	initialEnergy := w.Energy()

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		stats, err := w.safeStep(cfg.Dt)
		if err != nil {
			result.Errors = append(result.Errors, &RunError{Step: i, Time: w.time, Wrapped: err})
			break
		}
		if !stats.Converged {
			result.Unconverged++
		}

		for _, m := range w.metrics {
			m.Observe(w, stats, w.time)
		}
		for _, obs := range w.observers {
			obs.OnStep(w, stats, w.time)
		}

		result.StepsTaken++
		result.Times = append(result.Times, w.time)
		result.RMS = append(result.RMS, stats.RMS)
		result.Iterations = append(result.Iterations, stats.Iterations)
		if cfg.RecordStates {
			result.States = append(result.States, w.State())
		}

		if cfg.ValidateState {
			if name, ok := w.firstInvalid(); !ok {
				result.Errors = append(result.Errors, &RunError{Step: i, Time: w.time, Body: name, Wrapped: ErrInvalidState})
				break
			}
		}
	}

	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(w.Energy()-initialEnergy) / math.Abs(initialEnergy)
	}
	for _, m := range w.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if result.Unconverged > 0 {
		w.logger.Warn("solver did not converge",
			"steps", result.Unconverged,
			"of", result.StepsTaken)
	}
	w.logger.Info("run finished",
		"steps", result.StepsTaken,
		"stepper_steps", w.stepper.Steps(),
		"errors", len(result.Errors),
		"energy_drift", result.EnergyDrift,
		"elapsed", time.Since(start))
	return result, nil
}

// safeStep turns stepper contract panics into errors.
func (w *World) safeStep(h float64) (stats quickstep.Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, quickstep.ErrContract) {
				err = e
				return
			}
			panic(r)
		}
	}()
	return w.Step(h), nil
}

func (w *World) firstInvalid() (string, bool) {
	for _, b := range w.bodies {
		if !b.IsValid() {
			return b.Name, false
		}
	}
	return "", true
}

func validateConfig(cfg RunConfig) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Duration < cfg.Dt {
		return fmt.Errorf("%w: duration %f shorter than dt %f", ErrInvalidConfig, cfg.Duration, cfg.Dt)
	}
	return nil
}
