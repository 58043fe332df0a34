package kinematics

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
)

// SolverConfig tunes the CCD solver.
type SolverConfig struct {
	// MaxIterations bounds the number of full tip-to-root passes.
	MaxIterations int `json:"max_iterations"`
	// Tolerance is the residual distance, in meters, below which a
	// solution counts as converged.
	Tolerance float64 `json:"tolerance"`
	// LearningRate scales each per-joint correction to damp overshoot
	// between joints that share influence over the end effector.
	LearningRate float64 `json:"learning_rate"`
	// MinPasses is the number of passes to run before a pass with no
	// improving update is allowed to stop the solve early.
	MinPasses int `json:"min_passes"`
}

// DefaultSolverConfig returns solver settings suitable for a 7-DOF arm
// driven at control rate.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations: 30,
		Tolerance:     0.01,
		LearningRate:  0.7,
		MinPasses:     5,
	}
}

// Solution is the outcome of one Solve call. Solve never fails hard: a
// target that cannot be reached still yields the best angle vector seen,
// with Converged false and the residual reported.
type Solution struct {
	// Angles is the solved angle vector in degrees, one per joint.
	Angles []float64
	// Position is the end-effector position the angles achieve.
	Position r3.Vector
	// Residual is the distance from Position to the requested target.
	Residual float64
	// Converged is true when the residual is inside the tolerance, or
	// inside the relaxed 2x band on a best-effort exit.
	Converged bool
}

// The relaxed acceptance band for best-effort solutions. Tunable; no
// measured behavior depends on the exact factor.
const partialToleranceFactor = 2

// singularNudgeDeg is the kick applied to a mid-chain joint when a full
// pass changes no angle at all: with the chain collinear to the target
// ray, every per-joint correction projects to zero and the descent
// stalls on the singular line.
const singularNudgeDeg = 5.0

// CCDSolver solves inverse kinematics for one chain by cyclic
// coordinate descent: one joint at a time, tip to root, each adjusted to
// swing the end effector toward the target.
type CCDSolver struct {
	chain  *Chain
	cfg    SolverConfig
	logger golog.Logger
}

// NewCCDSolver wraps a chain in a solver. Zero or negative config
// fields fall back to defaults.
func NewCCDSolver(chain *Chain, cfg SolverConfig, logger golog.Logger) *CCDSolver {
	def := DefaultSolverConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.MinPasses <= 0 {
		cfg.MinPasses = def.MinPasses
	}
	return &CCDSolver{chain: chain, cfg: cfg, logger: logger}
}

// Chain returns the chain this solver operates on.
func (s *CCDSolver) Chain() *Chain {
	return s.chain
}

// Solve runs CCD toward the target position, warm-started from seed
// (typically the current commanded angles, for pose continuity). The
// returned solution is never worse than the seed: the best vector seen
// across the whole run is tracked and returned.
func (s *CCDSolver) Solve(target r3.Vector, seed []float64) Solution {
	n := s.chain.DOF()
	angles := make([]float64, n)
	copy(angles, seed)

	best := append([]float64(nil), angles...)
	bestDist := target.Sub(s.chain.EndEffectorPosition(angles)).Norm()
	if bestDist < s.cfg.Tolerance {
		return s.solution(best, bestDist, true)
	}

	for pass := 0; pass < s.cfg.MaxIterations; pass++ {
		improved := false
		changed := false
		for i := n - 1; i >= 0; i-- {
			ee := s.chain.EndEffectorPosition(angles)
			dist := target.Sub(ee).Norm()
			if dist < s.cfg.Tolerance {
				return s.solution(angles, dist, true)
			}

			jointPos := s.chain.JointPosition(angles, i)
			axis := s.chain.JointAxisWorld(angles, i)
			toEE := ee.Sub(jointPos)
			toTarget := target.Sub(jointPos)
			if toEE.Norm() < defaultEpsilon {
				continue
			}

			// Project both vectors onto the plane perpendicular to the
			// joint axis; the signed angle between the projections is
			// the single-axis correction for this joint.
			projEE := toEE.Sub(axis.Mul(toEE.Dot(axis)))
			projTarget := toTarget.Sub(axis.Mul(toTarget.Dot(axis)))
			if projEE.Norm() < defaultEpsilon || projTarget.Norm() < defaultEpsilon {
				continue
			}
			delta := signedAngleDeg(projEE, projTarget, axis)

			next := s.chain.ClampToLimits(i, angles[i]+s.cfg.LearningRate*delta)
			if math.Abs(next-angles[i]) > defaultEpsilon {
				changed = true
			}
			angles[i] = next

			newDist := target.Sub(s.chain.EndEffectorPosition(angles)).Norm()
			if newDist < bestDist {
				bestDist = newDist
				copy(best, angles)
				improved = true
			}
		}
		if !changed {
			// Stalled without touching a single joint: the chain lies on
			// the target ray. Kick a mid-chain joint off the singular
			// line so the next pass sees nonzero corrections.
			mid := n / 2
			nudged := s.chain.ClampToLimits(mid, angles[mid]+singularNudgeDeg)
			if nudged == angles[mid] {
				nudged = s.chain.ClampToLimits(mid, angles[mid]-singularNudgeDeg)
			}
			angles[mid] = nudged
			continue
		}
		if !improved && pass+1 >= s.cfg.MinPasses {
			break
		}
	}

	converged := bestDist < partialToleranceFactor*s.cfg.Tolerance
	if s.logger != nil && !converged {
		s.logger.Debugw("ik did not converge", "residual", bestDist, "tolerance", s.cfg.Tolerance)
	}
	return s.solution(best, bestDist, converged)
}

func (s *CCDSolver) solution(angles []float64, residual float64, converged bool) Solution {
	out := append([]float64(nil), angles...)
	return Solution{
		Angles:    out,
		Position:  s.chain.EndEffectorPosition(out),
		Residual:  residual,
		Converged: converged,
	}
}
