// Package dynamo provides the numerical primitives the closed-loop harness
// is built on.
//
//   - [State]: vector representing plant state
//   - [System]: interface for plant ODEs (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator interface
//
// The lateral control core does not depend on this package; only the
// vehicle plant and the simulator do.
package dynamo
