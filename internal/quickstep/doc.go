// Package quickstep implements the constrained rigid-body stepper: an
// iterative Successive-Over-Relaxation solver for the mixed linear
// complementarity problem formed by joint and contact rows.
//
// One call to [Stepper.Step] runs the whole pipeline:
//
//   - world-frame inertia, gravity and gyroscopic torque per body
//   - row collection through [joint.Source] (Info1, Info2)
//   - right-hand sides and the two diagonal scalings (Ad, AdPrecon)
//   - row ordering and chunking
//   - preconditioned, then unconditioned SOR sweeps, one task per chunk
//   - feedback extraction and velocity/position integration
//
// # Two systems
//
// Every row carries two multipliers. lambda solves the system whose bias is
// clipped to the row's maximum correcting velocity; lambdaErp solves the
// system with the full error-reduction bias. Positions are advanced with the
// lambdaErp velocities, after which the difference is removed again, so
// resting contacts do not keep the correction velocity.
//
// # Concurrency
//
// Chunks may overlap. Overlapping chunks update the shared per-body
// accumulators without synchronization. This is intentional: the solver is
// approximate and iterative, and locking would change both its convergence
// and its cost. Results are bit-identical only for a single worker.
// With Tolerance set, a multi-chunk solve converges to within ten times the
// final RMS of the single-chunk solve of the same rows.
//
// # Errors
//
// Invalid [Parameters] are reported by [New]. A joint that violates the
// row contract, or a body that is not part of the step, panics with
// [ErrContract]. Running out of iterations is not an error: see
// [Stats.Converged] and [Stats.RMS].
package quickstep
