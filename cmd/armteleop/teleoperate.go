package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/edaniels/golog"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/openarm-robotics/armteleop/pkg/robot"
	"github.com/openarm-robotics/armteleop/pkg/robot/fake"
	"github.com/openarm-robotics/armteleop/pkg/teleop"
	"github.com/openarm-robotics/armteleop/pkg/tracking"
)

type TeleoperateCommand struct {
	Hz     int  `long:"hz" default:"60" description:"Control loop frequency"`
	DryRun bool `long:"dry-run" description:"Drive simulated arms instead of hardware"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors - distinct colors for each joint
var jointColors = map[robot.JointName]string{
	robot.ShoulderPitch: "196", // red
	robot.ShoulderRoll:  "208", // orange
	robot.ShoulderYaw:   "226", // yellow
	robot.Elbow:         "46",  // green
	robot.WristRoll:     "51",  // cyan
	robot.WristPitch:    "201", // magenta
	robot.WristYaw:      "99",  // purple
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

type teleopModel struct {
	ctrl       *teleop.Controller
	chart      *streamlinechart.Model
	width      int      // terminal width
	height     int      // terminal height
	logs       []string // last N log messages
	quitting   bool
	mode       teleop.Mode
	lastAngles map[string]float64 // previous commanded angles, to freeze the chart when idle
	residuals  map[robot.Side]float64
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any commanded angle has changed from the last state
func (m *teleopModel) hasMovement(angles map[string]float64) bool {
	if m.lastAngles == nil {
		return true // first reading, consider it movement
	}
	for name, deg := range angles {
		if last, ok := m.lastAngles[name]; !ok || deg != last {
			return true
		}
	}
	return false
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// seriesName is the chart data-set key for one joint of one arm.
func seriesName(side robot.Side, joint robot.JointName) string {
	return fmt.Sprintf("%s/%s", side, joint)
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(ctrl *teleop.Controller, sides []robot.Side) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-180, 180),
	)

	// The right arm reuses the per-joint colors with a thinner line so
	// both arms stay readable on one chart.
	for _, side := range sides {
		lineStyle := runes.ThinLineStyle
		if side == robot.Right {
			lineStyle = runes.ArcLineStyle
		}
		for _, name := range robot.AllJoints() {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[name]))
			chart.SetDataSetStyles(seriesName(side, name), lineStyle, style)
		}
	}

	return teleopModel{
		ctrl:      ctrl,
		chart:     &chart,
		residuals: make(map[robot.Side]float64),
	}
}

func (m teleopModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "m":
			m.ctrl.CycleMode()
		case "c":
			m.ctrl.Calibrate(robot.Left)
		case "C":
			m.ctrl.Calibrate(robot.Right)
		}

	case stateMsg:
		state := teleop.State(msg)
		m.mode = state.Mode
		angles := make(map[string]float64)
		for side, status := range state.Arms {
			m.residuals[side] = status.IKResidual
			for name, deg := range status.Angles {
				angles[seriesName(side, name)] = deg
			}
		}
		// Only update chart if there's movement (freeze when idle)
		if len(angles) > 0 && m.hasMovement(angles) {
			for name, deg := range angles {
				m.chart.PushDataSet(name, deg)
			}
			m.chart.DrawAll()
			m.lastAngles = angles
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("OpenArm Teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz - ", m.ctrl.Hz()))
	sb.WriteString(modeStyle.Render(m.mode.String()))
	if m.mode != teleop.ModeSingleJoint {
		for _, side := range robot.Sides() {
			if r, ok := m.residuals[side]; ok {
				sb.WriteString(statusStyle.Render(fmt.Sprintf("  %s ik %.3fm", side, r)))
			}
		}
	}
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("q quit · m cycle mode · c/C calibrate left/right")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range robot.AllJoints() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[name])).Bold(true)
		item := colorStyle.Render("━━") + " " + string(name)
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

// buildRigs opens a drive per configured arm and assembles its rig. A
// side with no port and no dry-run flag is skipped, so a single-arm
// setup still works.
func buildRigs(cfg *robot.Config, dryRun bool, logger golog.Logger) (map[robot.Side]*teleop.ArmRig, error) {
	armConfigs := map[robot.Side]robot.ArmConfig{
		robot.Left:  cfg.Left,
		robot.Right: cfg.Right,
	}

	rigs := make(map[robot.Side]*teleop.ArmRig)
	for _, side := range robot.Sides() {
		ac := armConfigs[side]
		var drive robot.Drive
		switch {
		case dryRun:
			drive = fake.NewDrive()
		case ac.Port != "":
			arm, err := robot.NewArm(ac.Port, ac.Calibration)
			if err != nil {
				closeRigs(rigs)
				return nil, fmt.Errorf("open %s arm: %w", side, err)
			}
			drive = arm
		default:
			continue
		}

		rig, err := teleop.NewArmRig(side, ac, drive, cfg.IK.Solver, logger)
		if err != nil {
			drive.Close()
			closeRigs(rigs)
			return nil, fmt.Errorf("build %s rig: %w", side, err)
		}
		rigs[side] = rig
	}
	return rigs, nil
}

func closeRigs(rigs map[robot.Side]*teleop.ArmRig) {
	for _, rig := range rigs {
		rig.Drive.Close()
	}
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfig()
	if err != nil {
		if !c.DryRun {
			fmt.Fprintln(os.Stderr, "No configuration found. Run 'armteleop setup' first.")
			os.Exit(1)
		}
		cfg = robot.DefaultConfig()
	}
	if c.Hz > 0 {
		cfg.Control.Hz = c.Hz
	}

	if !c.DryRun {
		if cfg.Left.Port == "" && cfg.Right.Port == "" {
			fmt.Fprintln(os.Stderr, "No arms configured. Run 'armteleop setup' first.")
			os.Exit(1)
		}
		if (cfg.Left.Port != "" && !cfg.Left.IsCalibrated()) ||
			(cfg.Right.Port != "" && !cfg.Right.IsCalibrated()) {
			fmt.Fprintln(os.Stderr, "Arms not calibrated. Run 'armteleop setup' first.")
			os.Exit(1)
		}
		fmt.Printf("Loaded configuration from %s\n", robot.DefaultConfigFile)
	}

	logger := golog.NewDevelopmentLogger("armteleop")

	rigs, err := buildRigs(cfg, c.DryRun, logger)
	if err != nil {
		log.Fatalf("Failed to open arms: %v", err)
	}

	source := tracking.NewServer(cfg.Tracking.Listen, logger)

	ctrl := teleop.NewController(teleop.Config{
		Hz:          cfg.Control.Hz,
		IK:          cfg.IK,
		Calibration: cfg.Calibration,
	}, rigs, source, nil, logger)
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pose feed and control loop run in the background; the TUI owns
	// the terminal.
	go func() {
		if err := source.ListenAndServe(ctx); err != nil && err != context.Canceled {
			log.Printf("Tracking server error: %v", err)
		}
	}()
	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	sides := make([]robot.Side, 0, len(rigs))
	for _, side := range robot.Sides() {
		if _, ok := rigs[side]; ok {
			sides = append(sides, side)
		}
	}

	p := tea.NewProgram(initialTeleopModel(ctrl, sides), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	return nil
}
