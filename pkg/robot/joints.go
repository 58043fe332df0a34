// Package robot provides abstractions for driving OpenArm robot arms.
package robot

// JointName identifies a joint in the arm.
type JointName string

// Joint names for one 7-DOF OpenArm, base to wrist.
const (
	ShoulderPitch JointName = "shoulder_pitch"
	ShoulderRoll  JointName = "shoulder_roll"
	ShoulderYaw   JointName = "shoulder_yaw"
	Elbow         JointName = "elbow"
	WristRoll     JointName = "wrist_roll"
	WristPitch    JointName = "wrist_pitch"
	WristYaw      JointName = "wrist_yaw"
)

// AllJoints returns all joint names in chain order (matching servo IDs 1-7).
func AllJoints() []JointName {
	return []JointName{
		ShoulderPitch,
		ShoulderRoll,
		ShoulderYaw,
		Elbow,
		WristRoll,
		WristPitch,
		WristYaw,
	}
}

// Side identifies one arm of the dual-arm robot.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Sides returns both arm sides in a stable order.
func Sides() []Side {
	return []Side{Left, Right}
}
