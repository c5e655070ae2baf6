// Package gateway exposes the platform channel to out-of-process agents over
// websockets.
//
// Each text frame carries one request:
//
//	{"ref": "7", "agent_id": 3, "action": "like_post", "payload": {"post_id": 1}}
//
// and is answered, possibly out of order, by
//
//	{"ref": "7", "correlation_id": "...", "agent_id": 3, "result": {...}}
//
// Requests on one connection are served concurrently; the platform still
// executes them one at a time.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/metrics"
	"github.com/roach88/agora/internal/platform"
)

// Frame is a client request.
type Frame struct {
	Ref     string          `json:"ref,omitempty"`
	AgentID int64           `json:"agent_id"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply answers one Frame.
type Reply struct {
	Ref           string        `json:"ref,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	AgentID       int64         `json:"agent_id"`
	Result        action.Result `json:"result"`
}

type wsWriter interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

// Server serves /ws, /metrics and /healthz.
type Server struct {
	ch      *platform.Channel
	metrics *metrics.Metrics
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a gateway in front of ch.
func NewServer(ch *platform.Channel, opts ...Option) *Server {
	s := &Server{ch: ch, logger: slog.Default(), mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.ch.Done():
		http.Error(w, "platform stopped", http.StatusServiceUnavailable)
	default:
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()
	if err := s.serve(ctx, conn); err != nil {
		s.logger.Debug("websocket session ended", "error", err)
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

// serve reads frames until the peer closes or the platform stops.
func (s *Server) serve(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.ch.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			reply := s.handle(ctx, data)
			if err := writeJSON(ctx, conn, reply); err != nil {
				s.logger.Debug("write reply failed", "ref", reply.Ref, "error", err)
			}
		}()
	}
}

// handle turns one frame into a reply. Malformed frames and non-agent
// actions are answered with a failure result; they never reach the platform.
func (s *Server) handle(ctx context.Context, data []byte) Reply {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Reply{Result: action.Fail(fmt.Sprintf("malformed frame: %v", err))}
	}
	reply := Reply{Ref: f.Ref, AgentID: f.AgentID}

	kind, err := action.ParseKind(f.Action)
	if err != nil {
		reply.Result = action.Fail(err.Error())
		return reply
	}
	if !action.AgentFacing(kind) {
		reply.Result = action.Fail(fmt.Sprintf("action %q is not available to agents", kind))
		return reply
	}
	cmd, err := action.Decode(f.Action, f.Payload)
	if err != nil {
		reply.Result = action.Fail(err.Error())
		return reply
	}

	id, err := s.ch.Submit(ctx, action.Request{AgentID: f.AgentID, Command: cmd})
	if err != nil {
		reply.Result = action.Fail(err.Error())
		return reply
	}
	reply.CorrelationID = id
	resp, err := s.ch.AwaitResponse(ctx, id)
	if err != nil {
		reply.Result = action.Fail(err.Error())
		return reply
	}
	reply.Result = resp.Result
	return reply
}

func writeJSON(ctx context.Context, w wsWriter, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.Write(ctx, websocket.MessageText, payload)
}
