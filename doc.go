// Package armteleop provides VR teleoperation control for OpenArm
// dual-arm robots.
//
// A headset streams arm pose samples (joint orientations plus shoulder
// and wrist positions) over a websocket. The control loop retargets
// each sample onto the robot at a fixed rate, either joint by joint,
// through an inverse-kinematics solve on the wrist position, or a
// hybrid of both.
//
// # Installation
//
//	go install github.com/openarm-robotics/armteleop/cmd/armteleop@latest
//
// # Usage
//
// First, run setup to detect the arms and record their servo ranges:
//
//	armteleop setup
//
// Then start teleoperation:
//
//	armteleop teleoperate
//
// Pass --dry-run to drive simulated arms without hardware.
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/armteleop: CLI with setup and teleoperate commands
//   - cmd/arm-info: serial bus diagnostic scanner
//   - pkg/kinematics: kinematic chain, forward kinematics, CCD solver
//   - pkg/retarget: per-joint filtering pipeline
//   - pkg/robot: arm drive, calibration, and configuration
//   - pkg/tracking: headset pose feed
//   - pkg/teleop: control loop and retargeting strategies
package armteleop
