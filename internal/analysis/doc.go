// Package analysis looks for oscillation in recorded controller signals.
//
//   - [PowerSpectrum]: one-sided magnitude spectrum of a uniformly sampled
//     signal
//   - [DominantFrequency]: the strongest non-DC component
//
// A torque trace whose dominant frequency sits well above the scenario's
// curvature content usually means the gains are too high:
//
//	f, _, err := analysis.DominantFrequency(torque, 100)
package analysis
