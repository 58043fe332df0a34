package tracking

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/openarm-robotics/armteleop/pkg/robot"
)

func TestDecodeFrame(t *testing.T) {
	data := []byte(`{
		"timestamp_us": 1724900000000000,
		"arms": {
			"left": {
				"shoulder": [0.1, 1.4, -0.2],
				"wrist": [0.5, 1.1, -0.1],
				"joints": {
					"elbow": [0.9659, 0, 0.2588, 0]
				}
			},
			"right": {
				"joints": {}
			}
		}
	}`)

	sample, err := decodeFrame(data)
	test.That(t, err, test.ShouldBeNil)

	leftArm, ok := sample.Arm(robot.Left)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, leftArm.HasShoulder, test.ShouldBeTrue)
	test.That(t, leftArm.HasWrist, test.ShouldBeTrue)
	test.That(t, leftArm.Shoulder.Y, test.ShouldAlmostEqual, 1.4, 1e-9)
	test.That(t, leftArm.Wrist.X, test.ShouldAlmostEqual, 0.5, 1e-9)

	q, ok := leftArm.Orientations[robot.Elbow]
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, q.Real, test.ShouldAlmostEqual, 0.9659, 1e-9)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, 0.2588, 1e-9)

	rightArm, ok := sample.Arm(robot.Right)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, rightArm.HasShoulder, test.ShouldBeFalse)
	test.That(t, rightArm.HasWrist, test.ShouldBeFalse)
}

func TestDecodeFrameMalformed(t *testing.T) {
	_, err := decodeFrame([]byte(`{"arms": `))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestServerLatest(t *testing.T) {
	logger := golog.NewTestLogger(t)
	s := NewServer(":0", logger)

	_, ok := s.Latest()
	test.That(t, ok, test.ShouldBeFalse)

	sample, err := decodeFrame([]byte(`{"timestamp_us": 1, "arms": {"left": {}}}`))
	test.That(t, err, test.ShouldBeNil)
	s.store(sample)

	got, ok := s.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	_, hasLeft := got.Arm(robot.Left)
	test.That(t, hasLeft, test.ShouldBeTrue)
}

func TestStaticSource(t *testing.T) {
	var src StaticSource

	_, ok := src.Latest()
	test.That(t, ok, test.ShouldBeFalse)

	src.Set(PoseSample{})
	_, ok = src.Latest()
	test.That(t, ok, test.ShouldBeTrue)

	src.Clear()
	_, ok = src.Latest()
	test.That(t, ok, test.ShouldBeFalse)
}
