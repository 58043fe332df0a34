package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServoCalibration holds calibration data for a single servo: its bus
// ID, the raw count range recorded during setup, and the joint angle
// range that raw range spans.
type ServoCalibration struct {
	ID       int     `json:"id"`
	RangeMin int     `json:"range_min"`
	RangeMax int     `json:"range_max"`
	MinDeg   float64 `json:"min_deg"`
	MaxDeg   float64 `json:"max_deg"`
}

// Calibration holds calibration data for all servos, keyed by joint name.
type Calibration map[JointName]ServoCalibration

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	// Parse into a map with string keys first
	var raw map[string]ServoCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	cal := make(Calibration, len(raw))
	for name, sc := range raw {
		cal[JointName(name)] = sc
	}

	return cal, nil
}

// DegreesFromRaw converts a raw servo position to a joint angle in degrees.
func (c ServoCalibration) DegreesFromRaw(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return c.MinDeg
	}
	frac := float64(raw-c.RangeMin) / rangeSize
	return c.MinDeg + frac*(c.MaxDeg-c.MinDeg)
}

// RawFromDegrees converts a joint angle in degrees to a raw servo
// position, clamped to the recorded raw range.
func (c ServoCalibration) RawFromDegrees(deg float64) int {
	degSpan := c.MaxDeg - c.MinDeg
	if degSpan == 0 {
		return c.RangeMin
	}
	frac := (deg - c.MinDeg) / degSpan
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return c.RangeMin + int(frac*float64(c.RangeMax-c.RangeMin)+0.5)
}

// ServoIDs returns the bus IDs for all joints in the calibration, in
// chain order.
func (c Calibration) ServoIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllJoints() to ensure consistent ordering
	for _, name := range AllJoints() {
		if sc, ok := c[name]; ok {
			ids = append(ids, sc.ID)
		}
	}
	return ids
}

// ByID returns joint name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (JointName, ServoCalibration, bool) {
	for name, sc := range c {
		if sc.ID == id {
			return name, sc, true
		}
	}
	return "", ServoCalibration{}, false
}
