package sim

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/netfabrik/netsim/internal/logging"
	"github.com/netfabrik/netsim/internal/observability"
)

// maxRequestBytes bounds the single read performed per control connection.
// Larger requests are truncated, not reassembled.
const maxRequestBytes = 8192

// controlServer exposes the engine's read/control surface over a one-shot TCP
// protocol: one command per connection, exactly one JSON response, then the
// connection is closed.
type controlServer struct {
	engine  *Engine
	log     logging.Logger
	metrics *observability.SimCollector
	tracer  trace.Tracer

	readTimeout time.Duration

	lis net.Listener
	wg  sync.WaitGroup
}

func newControlServer(engine *Engine, readTimeout time.Duration, log logging.Logger, metrics *observability.SimCollector) *controlServer {
	return &controlServer{
		engine:      engine,
		log:         log,
		metrics:     metrics,
		tracer:      otel.Tracer("github.com/netfabrik/netsim/sim"),
		readTimeout: readTimeout,
	}
}

// start binds the listener and launches the accept loop. A bind failure is
// returned to the caller, who treats it as non-fatal degradation.
func (s *controlServer) start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = lis

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info(context.Background(), "control plane listening",
		logging.String("addr", lis.Addr().String()))
	return nil
}

// addr returns the bound listener address, or "" when remote control is
// unavailable.
func (s *controlServer) addr() string {
	if s == nil || s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// close shuts the listener down, which aborts the accept loop, and waits for
// in-flight connection handlers to finish.
func (s *controlServer) close() {
	if s == nil || s.lis == nil {
		return
	}
	_ = s.lis.Close()
	s.wg.Wait()
}

// acceptLoop handles incoming connections until the listener is closed.
// Any accept error ends the loop; it is logged, never retried.
func (s *controlServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.lis.Accept()
		if err != nil {
			s.log.Debug(context.Background(), "control accept loop ending",
				logging.String("error", err.Error()))
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn services one control connection: a single bounded read, one
// decoded command, one JSON response. Malformed requests are answered with an
// error object; the handler never aborts abnormally.
func (s *controlServer) handleConn(conn net.Conn) {
	defer conn.Close()

	ctx, log := logging.WithConnLogger(context.Background(), s.log)
	ctx, span := s.tracer.Start(ctx, "control.command")
	defer span.End()

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	buf := make([]byte, maxRequestBytes)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		if err != nil {
			log.Warn(ctx, "control read failed", logging.String("error", err.Error()))
		}
		return
	}

	cmd := ParseCommand(buf[:n])
	span.SetAttributes(attribute.String("control.cmd", cmd.String()))
	s.metrics.ObserveControlRequest(cmd.String())

	resp := s.dispatch(cmd)
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error(ctx, "control response encoding failed", logging.String("error", err.Error()))
		return
	}
	if _, err := conn.Write(data); err != nil {
		log.Warn(ctx, "control write failed", logging.String("error", err.Error()))
		return
	}

	log.Debug(ctx, "control command handled", logging.String("cmd", cmd.String()))
}

// dispatch maps a decoded command onto engine operations. Status, stats and
// links are read-only mirrors; pause and resume are the only remote mutators.
func (s *controlServer) dispatch(cmd Command) any {
	switch cmd {
	case CmdStatus:
		return statusResponse{Status: "running", Nodes: s.engine.Nodes()}
	case CmdPause:
		_ = s.engine.Pause()
		return pauseResponse{Status: "paused"}
	case CmdResume:
		_ = s.engine.Resume()
		return pauseResponse{Status: "resumed"}
	case CmdStats:
		return statsResponse{Stats: s.engine.Stats()}
	case CmdLinks:
		return linksResponse{Links: s.engine.Links()}
	default:
		return errorResponse{Error: "unknown command"}
	}
}
