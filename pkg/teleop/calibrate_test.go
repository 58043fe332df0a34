package teleop

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/openarm-robotics/armteleop/pkg/robot"
	"github.com/openarm-robotics/armteleop/pkg/robot/fake"
	"github.com/openarm-robotics/armteleop/pkg/tracking"
)

func TestCalibrateSnapsAndHolds(t *testing.T) {
	cfg := testArmConfig()
	drive := fake.NewDrive()
	rig := newTestRig(t, cfg, drive)
	o := NewOrchestrator(robot.IKConfig{}, map[robot.Side]*ArmRig{robot.Left: rig}, golog.NewTestLogger(t))

	mock := clock.NewMock()
	targets := []float64{90, 0, 0, 0, 0, 0, 0}
	cal := NewCalibrator(robot.CalibrationConfig{
		TargetsDeg:  targets,
		HoldSeconds: 1.5,
	}, mock)

	// The operator's current (arbitrary) pose becomes the neutral.
	pose := poseWithAngles(cfg, map[robot.JointName]float64{
		robot.ShoulderPitch: 37,
		robot.Elbow:         -54,
	})
	err := cal.Calibrate(context.Background(), rig, pose, true)
	test.That(t, err, test.ShouldBeNil)

	// Every joint snapped to its desired target and reached the drive
	// immediately.
	for i, name := range robot.AllJoints() {
		cmd, ok := drive.LastCommand(name)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, cmd.AngleDeg, test.ShouldAlmostEqual, targets[i], 1e-9)
	}
	test.That(t, rig.Locked(mock.Now()), test.ShouldBeTrue)

	// During the hold, contrary tracking input cannot move the joints.
	moving := poseWithAngles(cfg, map[robot.JointName]float64{
		robot.ShoulderPitch: -80,
		robot.Elbow:         60,
	})
	for tick := 0; tick < 30; tick++ {
		mock.Add(time.Second / 60)
		statuses := o.Step(context.Background(), sampleFor(robot.Left, moving), true, mock.Now(), testDT)
		status := statuses[robot.Left]
		test.That(t, status.Locked, test.ShouldBeTrue)
		test.That(t, status.Angles[robot.ShoulderPitch], test.ShouldAlmostEqual, 90, 1e-9)
		test.That(t, status.Angles[robot.Elbow], test.ShouldAlmostEqual, 0, 1e-9)
	}

	// Past the hold the lock expires and tracking resumes, measured
	// against the rebased neutral: the shoulder reading 37 at capture
	// now maps to offset + (raw - neutral) = 90 + (-80 - 37).
	mock.Add(2 * time.Second)
	statuses := o.Step(context.Background(), sampleFor(robot.Left, moving), true, mock.Now(), testDT)
	status := statuses[robot.Left]
	test.That(t, status.Locked, test.ShouldBeFalse)
	test.That(t, status.Angles[robot.ShoulderPitch], test.ShouldAlmostEqual, 90+(-80-37), 1e-9)
	test.That(t, status.Angles[robot.Elbow], test.ShouldAlmostEqual, 0+(60-(-54)), 1e-9)
}

func TestCalibrateWithoutPoseKeepsNeutrals(t *testing.T) {
	cfg := testArmConfig()
	drive := fake.NewDrive()
	rig := newTestRig(t, cfg, drive)

	mock := clock.NewMock()
	cal := NewCalibrator(robot.CalibrationConfig{
		TargetsDeg:  make([]float64, 7),
		HoldSeconds: 0.5,
	}, mock)

	err := cal.Calibrate(context.Background(), rig, tracking.ArmPose{}, false)
	test.That(t, err, test.ShouldBeNil)
	for _, ch := range rig.Channels {
		test.That(t, ch.IsLocked(), test.ShouldBeTrue)
		test.That(t, ch.LastCommanded(), test.ShouldAlmostEqual, 0, 1e-9)
	}
}

func TestControllerStepPublishesState(t *testing.T) {
	cfg := testArmConfig()
	drive := fake.NewDrive()
	rig := newTestRig(t, cfg, drive)

	var source tracking.StaticSource
	source.Set(sampleFor(robot.Left, poseWithAngles(cfg, map[robot.JointName]float64{
		robot.Elbow: 25,
	})))

	mock := clock.NewMock()
	ctrl := NewController(Config{Hz: 60}, map[robot.Side]*ArmRig{robot.Left: rig}, &source, mock, golog.NewTestLogger(t))

	ctrl.step(context.Background(), testDT)

	select {
	case state := <-ctrl.States():
		test.That(t, state.Mode, test.ShouldEqual, ModeSingleJoint)
		test.That(t, state.Arms[robot.Left].Angles[robot.Elbow], test.ShouldAlmostEqual, 25, 1e-9)
	default:
		t.Fatal("no state published")
	}
}

func TestControllerCalibrateCommand(t *testing.T) {
	cfg := testArmConfig()
	drive := fake.NewDrive()
	rig := newTestRig(t, cfg, drive)

	var source tracking.StaticSource
	mock := clock.NewMock()
	ctrl := NewController(Config{
		Hz:          60,
		Calibration: robot.CalibrationConfig{TargetsDeg: make([]float64, 7), HoldSeconds: 1},
	}, map[robot.Side]*ArmRig{robot.Left: rig}, &source, mock, golog.NewTestLogger(t))

	ctrl.handleCommand(context.Background(), command{kind: cmdCalibrate, side: robot.Left})
	test.That(t, rig.Locked(mock.Now()), test.ShouldBeTrue)

	ctrl.handleCommand(context.Background(), command{kind: cmdCycleMode})
	test.That(t, ctrl.Mode(), test.ShouldEqual, ModeIK)
}

func TestControllerCloseClosesDrives(t *testing.T) {
	cfg := testArmConfig()
	drive := fake.NewDrive()
	rig := newTestRig(t, cfg, drive)

	var source tracking.StaticSource
	ctrl := NewController(Config{}, map[robot.Side]*ArmRig{robot.Left: rig}, &source, nil, golog.NewTestLogger(t))
	test.That(t, ctrl.Close(), test.ShouldBeNil)
}
