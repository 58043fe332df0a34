// Package fake provides an in-memory Drive for tests and dry runs.
package fake

import (
	"context"
	"sync"

	"github.com/openarm-robotics/armteleop/pkg/robot"
)

// Drive records drive commands and pretends the arm reaches each target
// instantly. Safe for concurrent use.
type Drive struct {
	mu        sync.Mutex
	targets   map[robot.JointName]robot.JointCommand
	positions map[robot.JointName]float64
	writes    int
	closed    bool
}

// NewDrive creates an empty fake drive.
func NewDrive() *Drive {
	return &Drive{
		targets:   make(map[robot.JointName]robot.JointCommand),
		positions: make(map[robot.JointName]float64),
	}
}

// WriteTargets stores the batch and moves each joint straight to its
// target angle.
func (d *Drive) WriteTargets(_ context.Context, targets map[robot.JointName]robot.JointCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, cmd := range targets {
		d.targets[name] = cmd
		d.positions[name] = cmd.AngleDeg
	}
	d.writes++
	return nil
}

// ReadPositions returns a copy of the current joint angles.
func (d *Drive) ReadPositions(context.Context) (map[robot.JointName]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[robot.JointName]float64, len(d.positions))
	for name, deg := range d.positions {
		out[name] = deg
	}
	return out, nil
}

// LastCommand returns the most recent command for a joint.
func (d *Drive) LastCommand(name robot.JointName) (robot.JointCommand, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cmd, ok := d.targets[name]
	return cmd, ok
}

// Writes returns how many target batches have been written.
func (d *Drive) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// Close marks the drive closed.
func (d *Drive) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
