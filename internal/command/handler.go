// Package command implements the control plane: JSON-RPC over a Unix
// domain socket, mirroring the device's ioctl surface.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/madlink306/antsdr-streamd/internal/frame"
	"github.com/madlink306/antsdr-streamd/internal/stream"
)

// Handler dispatches control plane commands to the streaming engine.
type Handler struct {
	engine       *stream.Engine
	shutdownFunc func() // called by daemon_shutdown to trigger graceful stop
	startTime    time.Time
}

// NewHandler creates a command handler around the engine.
func NewHandler(engine *stream.Engine) *Handler {
	return &Handler{
		engine:    engine,
		startTime: time.Now(),
	}
}

// SetShutdownFunc sets the callback invoked by the daemon_shutdown command.
func (h *Handler) SetShutdownFunc(fn func()) {
	h.shutdownFunc = fn
}

// Command represents a control plane command.
type Command struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     string          `json:"id"`
}

// Response represents a command response.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents an error in the response.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal error
)

// Handle processes a command and returns a response.
func (h *Handler) Handle(ctx context.Context, cmd Command) Response {
	slog.Info("handling command", "method", cmd.Method, "id", cmd.ID)

	switch cmd.Method {
	case "stream_start":
		return h.handleStreamStart(cmd)
	case "stream_stop":
		return h.handleStreamStop(cmd)
	case "stream_status":
		return h.handleStreamStatus(cmd)
	case "get_stats":
		return h.handleGetStats(cmd)
	case "reset_stats":
		return h.handleResetStats(cmd)
	case "set_pulse_mode":
		return h.handleSetPulseMode(cmd)
	case "set_destination":
		return h.handleSetDestination(cmd)
	case "ping":
		return Response{ID: cmd.ID, Result: "pong"}
	case "daemon_shutdown":
		return h.handleDaemonShutdown(cmd)
	default:
		return Response{
			ID: cmd.ID,
			Error: &ErrorInfo{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("method %q not found", cmd.Method),
			},
		}
	}
}

func (h *Handler) handleStreamStart(cmd Command) Response {
	if err := h.engine.Start(); err != nil {
		return internalError(cmd, "start failed: %v", err)
	}
	return Response{ID: cmd.ID, Result: map[string]interface{}{"status": "streaming"}}
}

func (h *Handler) handleStreamStop(cmd Command) Response {
	if err := h.engine.Stop(); err != nil {
		return internalError(cmd, "stop failed: %v", err)
	}
	return Response{ID: cmd.ID, Result: map[string]interface{}{"status": "idle"}}
}

func (h *Handler) handleStreamStatus(cmd Command) Response {
	st := h.engine.Stats()
	return Response{
		ID: cmd.ID,
		Result: map[string]interface{}{
			"state":          st.State,
			"session_id":     st.SessionID,
			"pulse_mode":     st.PulseMode,
			"destination":    st.Destination,
			"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		},
	}
}

func (h *Handler) handleGetStats(cmd Command) Response {
	return Response{ID: cmd.ID, Result: h.engine.Stats()}
}

func (h *Handler) handleResetStats(cmd Command) Response {
	h.engine.ResetStats()
	return Response{ID: cmd.ID, Result: map[string]interface{}{"status": "reset"}}
}

// SetPulseModeParams carries the set_pulse_mode parameters.
type SetPulseModeParams struct {
	Mode string `json:"mode"` // "short" or "long"
}

func (h *Handler) handleSetPulseMode(cmd Command) Response {
	var params SetPulseModeParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return invalidParams(cmd, err)
	}
	mode, err := frame.ParsePulseMode(params.Mode)
	if err != nil {
		return invalidParams(cmd, err)
	}
	if err := h.engine.SetMode(mode); err != nil {
		return internalError(cmd, "set pulse mode failed: %v", err)
	}
	return Response{ID: cmd.ID, Result: map[string]interface{}{"pulse_mode": mode.String()}}
}

// SetDestinationParams carries the set_destination parameters.
type SetDestinationParams struct {
	Destination string `json:"destination"` // "host:port"
}

func (h *Handler) handleSetDestination(cmd Command) Response {
	var params SetDestinationParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return invalidParams(cmd, err)
	}
	if err := h.engine.SetDestination(params.Destination); err != nil {
		return internalError(cmd, "set destination failed: %v", err)
	}
	return Response{ID: cmd.ID, Result: map[string]interface{}{"destination": params.Destination}}
}

func (h *Handler) handleDaemonShutdown(cmd Command) Response {
	if h.shutdownFunc == nil {
		return internalError(cmd, "shutdown not available")
	}
	// Respond first, then trigger the stop so the reply reaches the client.
	go h.shutdownFunc()
	return Response{ID: cmd.ID, Result: map[string]interface{}{"status": "shutting_down"}}
}

func invalidParams(cmd Command, err error) Response {
	return Response{
		ID: cmd.ID,
		Error: &ErrorInfo{
			Code:    ErrCodeInvalidParams,
			Message: fmt.Sprintf("invalid params: %v", err),
		},
	}
}

func internalError(cmd Command, format string, args ...interface{}) Response {
	return Response{
		ID: cmd.ID,
		Error: &ErrorInfo{
			Code:    ErrCodeInternalError,
			Message: fmt.Sprintf(format, args...),
		},
	}
}
