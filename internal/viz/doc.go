// Package viz is the terminal live view of a closed-loop run.
//
//   - [Model]: steps a [sim.Session] at 60 frames per second and renders the
//     road, curvature tracking and controller terms
//   - [Picker]: scenario and preset selection in front of the live view
//   - [Canvas]: braille dot canvas used for the road trail
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart the scenario with the starting gains
//	Tab   - Select gain; Up/Down scale it by 5%
//	[ ]   - Rewind / forward through the recorded ticks
//	+ -   - Run faster / slower
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
