package robot

import (
	"math"
	"testing"
)

func TestServoCalibration_DegreesFromRaw(t *testing.T) {
	cal := ServoCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
		MinDeg:   -90,
		MaxDeg:   90,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, -90.0}, // min -> MinDeg
		{3000, 90.0},  // max -> MaxDeg
		{2000, 0.0},   // mid -> 0
		{1500, -45.0}, // quarter
		{2500, 45.0},  // three-quarter
	}

	for _, tt := range tests {
		got := cal.DegreesFromRaw(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("DegreesFromRaw(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestServoCalibration_RawFromDegrees(t *testing.T) {
	cal := ServoCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
		MinDeg:   -90,
		MaxDeg:   90,
	}

	tests := []struct {
		deg      float64
		expected int
	}{
		{-90.0, 1000},
		{90.0, 3000},
		{0.0, 2000},
		{-45.0, 1500},
		{45.0, 2500},
		{180.0, 3000},  // out of range clamps to max
		{-180.0, 1000}, // out of range clamps to min
	}

	for _, tt := range tests {
		got := cal.RawFromDegrees(tt.deg)
		if got != tt.expected {
			t.Errorf("RawFromDegrees(%f) = %d, want %d", tt.deg, got, tt.expected)
		}
	}
}

func TestServoCalibration_RoundTrip(t *testing.T) {
	cal := ServoCalibration{
		RangeMin: 823,
		RangeMax: 3540,
		MinDeg:   -100,
		MaxDeg:   100,
	}

	// Test round-trip: raw -> degrees -> raw
	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
		deg := cal.DegreesFromRaw(raw)
		back := cal.RawFromDegrees(deg)
		if math.Abs(float64(back-raw)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, deg, back)
		}
	}
}

func TestCalibration_ServoIDs(t *testing.T) {
	cal := Calibration{
		ShoulderPitch: ServoCalibration{ID: 1},
		ShoulderRoll:  ServoCalibration{ID: 2},
		ShoulderYaw:   ServoCalibration{ID: 3},
		Elbow:         ServoCalibration{ID: 4},
		WristRoll:     ServoCalibration{ID: 5},
		WristPitch:    ServoCalibration{ID: 6},
		WristYaw:      ServoCalibration{ID: 7},
	}

	ids := cal.ServoIDs()
	expected := []int{1, 2, 3, 4, 5, 6, 7}

	if len(ids) != len(expected) {
		t.Fatalf("ServoIDs returned %d IDs, want %d", len(ids), len(expected))
	}

	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("ServoIDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := Calibration{
		ShoulderPitch: ServoCalibration{ID: 1, RangeMin: 100, RangeMax: 200},
		WristYaw:      ServoCalibration{ID: 7, RangeMin: 300, RangeMax: 400},
	}

	name, sc, ok := cal.ByID(1)
	if !ok {
		t.Fatal("ByID(1) returned false")
	}
	if name != ShoulderPitch {
		t.Errorf("ByID(1) returned name %s, want shoulder_pitch", name)
	}
	if sc.RangeMin != 100 {
		t.Errorf("ByID(1) returned wrong calibration: %+v", sc)
	}

	_, _, ok = cal.ByID(99)
	if ok {
		t.Error("ByID(99) should return false")
	}
}

func TestDefaultConfigShape(t *testing.T) {
	cfg := DefaultConfig()

	for _, arm := range []*ArmConfig{&cfg.Left, &cfg.Right} {
		if len(arm.Joints) != len(AllJoints()) {
			t.Fatalf("arm has %d joints, want %d", len(arm.Joints), len(AllJoints()))
		}
		if len(arm.RestPositions) != len(arm.Joints) {
			t.Fatalf("arm has %d rest positions for %d joints", len(arm.RestPositions), len(arm.Joints))
		}
		for i, jc := range arm.Joints {
			if jc.Name != string(AllJoints()[i]) {
				t.Errorf("joint %d named %q, want %q", i, jc.Name, AllJoints()[i])
			}
			if jc.MinDeg >= jc.MaxDeg {
				t.Errorf("joint %s has empty range [%v, %v]", jc.Name, jc.MinDeg, jc.MaxDeg)
			}
		}
	}

	if len(cfg.Right.MirrorJoints) == 0 {
		t.Error("right arm should mirror roll/yaw joints")
	}
	if len(cfg.Calibration.TargetsDeg) != len(AllJoints()) {
		t.Errorf("calibration targets length %d, want %d", len(cfg.Calibration.TargetsDeg), len(AllJoints()))
	}
}
