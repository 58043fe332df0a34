package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Arm drives one physical OpenArm over a feetech serial servo bus. It
// implements Drive. The feetech position registers carry only the
// target angle; stiffness, damping and force limit are accepted for
// interface compatibility and ignored by this backend.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// NewArm creates and initializes an arm connection.
func NewArm(port string, cal Calibration) (*Arm, error) {
	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	// Create servo group from calibration IDs
	ids := cal.ServoIDs()
	group := feetech.NewServoGroupByIDs(bus, ids...)

	return &Arm{
		bus:         bus,
		group:       group,
		calibration: cal,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadPositions reads current joint angles in degrees from all servos.
func (a *Arm) ReadPositions(ctx context.Context) (map[JointName]float64, error) {
	// Read raw positions using sync read
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	positions := make(map[JointName]float64, len(rawPositions))
	for id, raw := range rawPositions {
		name, sc, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		positions[name] = sc.DegreesFromRaw(raw)
	}

	return positions, nil
}

// WriteTargets writes the tick's drive commands to all servos in one
// sync write. Joints without calibration entries are skipped.
func (a *Arm) WriteTargets(ctx context.Context, targets map[JointName]JointCommand) error {
	rawPositions := make(feetech.PositionMap, len(targets))
	for name, cmd := range targets {
		sc, ok := a.calibration[name]
		if !ok {
			continue
		}
		rawPositions[sc.ID] = sc.RawFromDegrees(cmd.AngleDeg)
	}
	if len(rawPositions) == 0 {
		return nil
	}

	// Write using sync write
	if err := a.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write targets: %w", err)
	}

	return nil
}
