package robot

import (
	"context"

	"github.com/openarm-robotics/armteleop/pkg/retarget"
)

// JointCommand is one per-tick drive order for a joint. Stiffness,
// damping and force limit ride along unmodified for backends that can
// apply them.
type JointCommand struct {
	AngleDeg   float64
	Stiffness  float64
	Damping    float64
	ForceLimit float64
}

// Drive actuates a set of joints. Writes are fire-and-forget from the
// control loop's point of view: a returned error is worth logging but
// never stops the loop.
type Drive interface {
	// WriteTargets pushes the batch of commands for this tick.
	WriteTargets(ctx context.Context, targets map[JointName]JointCommand) error
	// ReadPositions reads back current joint angles in degrees, for
	// backends that support it.
	ReadPositions(ctx context.Context) (map[JointName]float64, error)
	Close() error
}

// Batch collects per-joint targets from retargeting channels during a
// tick and flushes them to a Drive in one write. It implements
// retarget.Actuator.
type Batch struct {
	pending map[JointName]JointCommand
}

// NewBatch creates an empty target batch.
func NewBatch() *Batch {
	return &Batch{pending: make(map[JointName]JointCommand, 7)}
}

// SetJointTarget records the target for one joint, replacing any
// earlier target from the same tick.
func (b *Batch) SetJointTarget(joint string, t retarget.Target) {
	b.pending[JointName(joint)] = JointCommand{
		AngleDeg:   t.AngleDeg,
		Stiffness:  t.Stiffness,
		Damping:    t.Damping,
		ForceLimit: t.ForceLimit,
	}
}

// Flush writes all collected targets to the drive and clears the batch.
// An empty batch is a no-op.
func (b *Batch) Flush(ctx context.Context, drive Drive) error {
	if len(b.pending) == 0 || drive == nil {
		return nil
	}
	targets := b.pending
	b.pending = make(map[JointName]JointCommand, len(targets))
	return drive.WriteTargets(ctx, targets)
}

// Len returns the number of targets collected so far this tick.
func (b *Batch) Len() int {
	return len(b.pending)
}
