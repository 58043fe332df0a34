package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/openarm-robotics/armteleop/pkg/robot"
)

// Wire format: one JSON frame per websocket message.
type wireFrame struct {
	TimestampUS int64              `json:"timestamp_us"`
	Arms        map[string]wireArm `json:"arms"`
}

type wireArm struct {
	Shoulder *[3]float64           `json:"shoulder,omitempty"`
	Wrist    *[3]float64           `json:"wrist,omitempty"`
	Joints   map[string][4]float64 `json:"joints,omitempty"` // w, x, y, z
}

// Server ingests pose frames from the tracking client over a websocket
// and exposes the latest sample to the control loop. It implements
// Source.
type Server struct {
	addr     string
	logger   golog.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	latest PoseSample
	has    bool
}

// NewServer creates a pose-ingest server listening on addr.
func NewServer(addr string, logger golog.Logger) *Server {
	return &Server{
		addr:   addr,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Latest returns the most recent pose sample received.
func (s *Server) Latest() (PoseSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}

// HandlePoseWS upgrades the connection and consumes pose frames until
// the client disconnects. A malformed frame is logged and skipped, not
// fatal to the connection.
func (s *Server) HandlePoseWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("pose websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.logger.Infow("pose client connected", "remote", conn.RemoteAddr())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Infow("pose client disconnected", "error", err)
			return
		}
		sample, err := decodeFrame(data)
		if err != nil {
			s.logger.Warnw("dropping malformed pose frame", "error", err)
			continue
		}
		s.store(sample)
	}
}

// ListenAndServe runs the ingest endpoint at /pose until the context is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/pose", s.HandlePoseWS)
	srv := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return errors.Wrap(err, "pose server")
	}
}

func (s *Server) store(sample PoseSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = sample
	s.has = true
}

func decodeFrame(data []byte) (PoseSample, error) {
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return PoseSample{}, errors.Wrap(err, "decode pose frame")
	}

	sample := PoseSample{
		Arms:      make(map[robot.Side]ArmPose, len(frame.Arms)),
		Timestamp: time.UnixMicro(frame.TimestampUS),
	}
	for sideName, arm := range frame.Arms {
		side := robot.Side(sideName)
		pose := ArmPose{
			Orientations: make(map[robot.JointName]quat.Number, len(arm.Joints)),
		}
		if arm.Shoulder != nil {
			pose.Shoulder = r3.Vector{X: arm.Shoulder[0], Y: arm.Shoulder[1], Z: arm.Shoulder[2]}
			pose.HasShoulder = true
		}
		if arm.Wrist != nil {
			pose.Wrist = r3.Vector{X: arm.Wrist[0], Y: arm.Wrist[1], Z: arm.Wrist[2]}
			pose.HasWrist = true
		}
		for joint, q := range arm.Joints {
			pose.Orientations[robot.JointName(joint)] = quat.Number{
				Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3],
			}
		}
		sample.Arms[side] = pose
	}
	return sample, nil
}
