package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// UDSClient is a JSON-RPC client over Unix Domain Socket.
type UDSClient struct {
	socketPath string
	timeout    time.Duration
}

// NewUDSClient creates a new UDS client.
func NewUDSClient(socketPath string, timeout time.Duration) *UDSClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &UDSClient{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// Call sends a command and waits for response.
func (c *UDSClient) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		paramsJSON = data
	}

	reqID := fmt.Sprintf("req-%d", time.Now().UnixNano())
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsJSON,
		ID:      reqID,
	}

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return nil, fmt.Errorf("connection closed without response")
	}

	var jsonrpcResp JSONRPCResponse
	if err := json.Unmarshal(scanner.Bytes(), &jsonrpcResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	respIDStr := fmt.Sprintf("%v", jsonrpcResp.ID)
	if respIDStr != reqID {
		return nil, fmt.Errorf("response ID mismatch: expected %v, got %v", reqID, respIDStr)
	}

	return &Response{
		ID:     respIDStr,
		Result: jsonrpcResp.Result,
		Error:  jsonrpcResp.Error,
	}, nil
}

// StreamStart is a convenience method for the stream_start command.
func (c *UDSClient) StreamStart(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "stream_start", nil)
}

// StreamStop is a convenience method for the stream_stop command.
func (c *UDSClient) StreamStop(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "stream_stop", nil)
}

// StreamStatus is a convenience method for the stream_status command.
func (c *UDSClient) StreamStatus(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "stream_status", nil)
}

// GetStats is a convenience method for the get_stats command.
func (c *UDSClient) GetStats(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "get_stats", nil)
}

// ResetStats is a convenience method for the reset_stats command.
func (c *UDSClient) ResetStats(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "reset_stats", nil)
}

// SetPulseMode is a convenience method for the set_pulse_mode command.
func (c *UDSClient) SetPulseMode(ctx context.Context, mode string) (*Response, error) {
	return c.Call(ctx, "set_pulse_mode", SetPulseModeParams{Mode: mode})
}

// SetDestination is a convenience method for the set_destination command.
func (c *UDSClient) SetDestination(ctx context.Context, destination string) (*Response, error) {
	return c.Call(ctx, "set_destination", SetDestinationParams{Destination: destination})
}

// Shutdown is a convenience method for the daemon_shutdown command.
func (c *UDSClient) Shutdown(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "daemon_shutdown", nil)
}

// Ping checks whether the daemon is alive.
func (c *UDSClient) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, "ping", nil)
	return err
}
