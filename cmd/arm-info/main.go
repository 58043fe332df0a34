// Command arm-info scans serial ports for OpenArm units and prints
// what it finds: servo IDs, models, current positions, and whether the
// saved configuration covers each port. Useful when teleoperation
// refuses to start and you want to see what the bus actually reports.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/openarm-robotics/armteleop/pkg/robot"
)

const armServoCount = 7

func main() {
	fmt.Println("OpenArm Port Scanner")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	cfg, cfgErr := robot.LoadConfig()

	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		os.Exit(1)
	}

	found := 0
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		if inspectPort(port, cfg) {
			found++
		}
	}

	fmt.Println()
	if found == 0 {
		fmt.Println("No OpenArm units found.")
		fmt.Println("Make sure your arms are connected and powered on.")
		os.Exit(1)
	}

	fmt.Printf("Found %d arm(s).\n", found)
	if cfgErr != nil {
		fmt.Println("No saved configuration. Run 'armteleop setup' to assign sides.")
	}
}

// inspectPort probes one serial port and reports any arm found on it.
func inspectPort(port string, cfg *robot.Config) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return false
	}
	defer bus.Close()

	servos, err := bus.Scan(ctx, 1, armServoCount)
	if err != nil || len(servos) == 0 {
		return false
	}

	fmt.Printf("%s: %d servo(s)%s\n", port, len(servos), roleFor(port, cfg))
	if len(servos) != armServoCount {
		fmt.Printf("  incomplete arm: expected IDs 1-%d\n", armServoCount)
	}

	joints := robot.AllJoints()
	for _, s := range servos {
		servo := feetech.NewServo(bus, s.ID, s.Model)
		pos, err := servo.Position(ctx)
		name := "?"
		if s.ID >= 1 && s.ID <= len(joints) {
			name = string(joints[s.ID-1])
		}
		if err != nil {
			fmt.Printf("  id %d  %-14s model %v  position: read error: %v\n", s.ID, name, s.Model, err)
			continue
		}
		fmt.Printf("  id %d  %-14s model %v  position %d\n", s.ID, name, s.Model, pos)
	}
	return true
}

// roleFor reports which configured side, if any, claims this port.
func roleFor(port string, cfg *robot.Config) string {
	if cfg == nil {
		return ""
	}
	switch port {
	case cfg.Left.Port:
		if cfg.Left.IsCalibrated() {
			return "  [left, calibrated]"
		}
		return "  [left, not calibrated]"
	case cfg.Right.Port:
		if cfg.Right.IsCalibrated() {
			return "  [right, calibrated]"
		}
		return "  [right, not calibrated]"
	}
	return "  [unassigned]"
}
