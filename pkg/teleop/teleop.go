package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.uber.org/multierr"

	"github.com/openarm-robotics/armteleop/pkg/robot"
	"github.com/openarm-robotics/armteleop/pkg/tracking"
)

// State represents the current state of teleoperation, published once
// per control tick.
type State struct {
	Mode      Mode
	Arms      map[robot.Side]ArmStatus
	Timestamp time.Time
	Error     error
}

// Config holds configuration for the controller.
type Config struct {
	Hz          int
	IK          robot.IKConfig
	Calibration robot.CalibrationConfig
}

type commandKind int

const (
	cmdCycleMode commandKind = iota
	cmdCalibrate
)

type command struct {
	kind commandKind
	side robot.Side
}

// Controller owns the fixed-rate control loop. All rig and channel
// state is touched only from the loop goroutine; the TUI consumes the
// state and log channels.
type Controller struct {
	orch   *Orchestrator
	cal    *Calibrator
	source tracking.Source
	hz     int
	clk    clock.Clock
	logger golog.Logger

	mu      sync.RWMutex
	running bool
	stateCh chan State
	logCh   chan string
	cmdCh   chan command
}

// NewController creates a controller over pre-built rigs. A nil clock
// falls back to wall time.
func NewController(cfg Config, rigs map[robot.Side]*ArmRig, source tracking.Source, clk clock.Clock, logger golog.Logger) *Controller {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{
		orch:    NewOrchestrator(cfg.IK, rigs, logger),
		cal:     NewCalibrator(cfg.Calibration, clk),
		source:  source,
		hz:      cfg.Hz,
		clk:     clk,
		logger:  logger,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
		cmdCh:   make(chan command, 4),
	}
}

// Close closes the controller and the drives of every rig.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var err error
	for _, side := range robot.Sides() {
		if rig, ok := c.orch.Rig(side); ok && rig.Drive != nil {
			err = multierr.Append(err, rig.Drive.Close())
		}
	}
	return err
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Mode returns the active control mode.
func (c *Controller) Mode() Mode {
	return c.orch.Mode()
}

// CycleMode asks the control loop to switch to the next mode.
func (c *Controller) CycleMode() {
	select {
	case c.cmdCh <- command{kind: cmdCycleMode}:
	default:
	}
}

// Calibrate asks the control loop to zero one arm.
func (c *Controller) Calibrate(side robot.Side) {
	select {
	case c.cmdCh <- command{kind: cmdCalibrate, side: side}:
	default:
	}
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", c.clk.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start begins the control loop and blocks until the context ends.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Teleoperation started at %d Hz in %s mode", c.hz, c.orch.Mode())

	ticker := c.clk.Ticker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	// Rate limiting and smoothing assume a stable tick, so dt is the
	// nominal period, not the measured wall time between wakeups.
	dt := 1.0 / float64(c.hz)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case cmd := <-c.cmdCh:
			c.handleCommand(ctx, cmd)
		case <-ticker.C:
			c.step(ctx, dt)
		}
	}
}

func (c *Controller) handleCommand(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdCycleMode:
		mode := c.orch.CycleMode()
		c.log("Control mode: %s", mode)
	case cmdCalibrate:
		rig, ok := c.orch.Rig(cmd.side)
		if !ok {
			c.log("No %s arm to calibrate", cmd.side)
			return
		}
		sample, haveSample := c.source.Latest()
		var pose tracking.ArmPose
		havePose := false
		if haveSample {
			pose, havePose = sample.Arm(cmd.side)
		}
		if err := c.cal.Calibrate(ctx, rig, pose, havePose); err != nil {
			c.log("Calibration error: %v", err)
			return
		}
		c.log("Calibrated %s arm, holding for %s", cmd.side, c.cal.HoldDuration())
	}
}

func (c *Controller) step(ctx context.Context, dt float64) {
	sample, haveSample := c.source.Latest()

	statuses := c.orch.Step(ctx, sample, haveSample, c.clk.Now(), dt)
	for side, status := range statuses {
		if status.WriteErr != nil {
			c.log("%s arm write error: %v", side, status.WriteErr)
		}
	}

	c.sendState(State{
		Mode:      c.orch.Mode(),
		Arms:      statuses,
		Timestamp: c.clk.Now(),
	})
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.log("Teleoperation stopped")
}
