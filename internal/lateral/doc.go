// Package lateral implements the lateral steering torque controller.
//
// Each control tick the controller takes a desired curvature and the current
// vehicle motion and produces a normalized torque command in
// [-SaturationLimit, SaturationLimit]:
//
//   - [ErrorModel]: blends lateral acceleration with a scaled curvature term
//     so that setpoint and measurement stay well conditioned at low speed
//   - [PID]: speed-scheduled PI with optional derivative and feedforward,
//     anti-windup and override handling
//   - [TorqueController]: the Active/Inactive state machine around both
//
// # Sign convention
//
// Curvature, yaw rate and steering angle are left positive throughout the
// package. The internal regulator output follows the same sign as the
// curvature error; the returned torque is its negation, applied once in
// [TorqueController.Update].
//
// # Derivative
//
// With [DerivativeContinuous] the error is differentiated every tick. With
// [DerivativeDecimated] it is differentiated once every
// ControlHz/UpstreamHz ticks against the error sampled at the previous
// refresh, and held in between.
//
// # Usage
//
//	ctrl, err := lateral.New(cfg, vehicleModel)
//	out := ctrl.Update(req, vs, cal) // once per control tick
//
// Callers must gate speed at MinSteerSpeed before relying on yaw-rate
// measurement; Update does so itself by going Inactive.
package lateral
