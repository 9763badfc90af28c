package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/podds"
	"github.com/richard-senior/matchpredict/pkg/protocol"
	"github.com/richard-senior/matchpredict/pkg/tools"
	"github.com/richard-senior/matchpredict/pkg/transport"
)

// ServerName is reported to clients during initialize
const (
	ServerName    = "matchpredict"
	ServerVersion = "1.0.0"
	toolPrefix    = "mcp___"
)

// Server represents an MCP server
type Server struct {
	transport transport.Transport
	mu        sync.Mutex
	handlers  map[string]HandlerFunc
	tools     []protocol.Tool
}

// HandlerFunc handles one method or tool call. A nil result with a nil error means no response.
type HandlerFunc func(params any) (any, error)

// New creates a server with the protocol handlers registered
func New(t transport.Transport) *Server {
	s := &Server{
		transport: t,
		handlers:  make(map[string]HandlerFunc),
	}
	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodInitialized)] = s.handleInitialized
	s.handlers[string(protocol.MethodPing)] = s.handlePing
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
	s.handlers[string(protocol.MethodToolsCall)] = s.handleToolsCall
	s.handlers[string(protocol.MethodShutdown)] = s.handlePing
	return s
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// RegisterDefaultTools registers the prediction tools backed by tb
func (s *Server) RegisterDefaultTools(tb *tools.Toolbox) {
	logger.Info("Registering default tools...")
	s.RegisterTool(tools.FootballPredictTool(), tb.HandleFootballPredict)
	s.RegisterTool(tools.TeamFormTool(), tb.HandleTeamForm)
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Tool(nil), s.tools...)
}

// Start processes requests until the client disconnects, ctx is done or a signal arrives
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting MCP server")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal:", sig.String())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessRequests reads and answers requests until EOF
func (s *Server) ProcessRequests() error {
	for {
		req, err := s.transport.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var rpcErr *protocol.JsonRpcError
			if errors.As(err, &rpcErr) {
				if werr := s.transport.WriteResponse(protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, nil, nil)); werr != nil {
					return werr
				}
				continue
			}
			return err
		}

		resp := s.handleRequest(req)
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// handleRequest returns nil for notifications
func (s *Server) handleRequest(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)
	logger.Debug("Full request:", req.String())

	if strings.HasPrefix(req.Method, "notifications/") {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	s.mu.Lock()
	handler := s.handlers[req.Method]
	s.mu.Unlock()
	if handler == nil {
		if req.IsNotification() {
			return nil
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil, req.ID)
	}

	result, err := handler(req.Params)
	if req.IsNotification() || (err == nil && result == nil) {
		return nil
	}
	if err != nil {
		code, message := protocol.ErrToolExecutionFailed, err.Error()
		var rpcErr *protocol.JsonRpcError
		if errors.As(err, &rpcErr) {
			code, message = rpcErr.Code, rpcErr.Message
		}
		return protocol.NewJsonRpcErrorResponse(code, message, nil, req.ID)
	}

	resp, err := protocol.NewJsonRpcResponse(result, req.ID)
	if err != nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, "Failed to marshal result: "+err.Error(), nil, req.ID)
	}
	logger.Debug("Full response:", resp.String())
	return resp
}

func (s *Server) handleToolsList(params any) (any, error) {
	logger.Info("Handling tools/list request")
	return protocol.ToolsResponse{Tools: s.GetTools()}, nil
}

func (s *Server) handlePing(params any) (any, error) {
	return struct{}{}, nil
}

// handleInitialize echoes the client's protocol version and advertises tools
func (s *Server) handleInitialize(params any) (any, error) {
	version := protocol.DefaultProtocolVersion
	if raw, ok := params.(json.RawMessage); ok && len(raw) > 0 {
		var p struct {
			ProtocolVersion string `json:"protocolVersion"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid initialize params: " + err.Error()}
		}
		if p.ProtocolVersion != "" {
			version = p.ProtocolVersion
		}
	}
	logger.Info("Handling initialize request with", len(s.GetTools()), "tools, protocol version", version)

	type serverInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	return struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      serverInfo     `json:"serverInfo"`
	}{
		ProtocolVersion: version,
		Capabilities:    map[string]any{"tools": map[string]any{"listChanged": false}},
		ServerInfo:      serverInfo{Name: ServerName, Version: ServerVersion},
	}, nil
}

// 'initialized' does not require a response
func (s *Server) handleInitialized(params any) (any, error) {
	logger.Info("Handling initialized notification")
	return nil, nil
}

// handleToolsCall runs a tool. Bad arguments become a JSON-RPC invalid params
// error, any other failure is reported inside the tool result with isError set.
func (s *Server) handleToolsCall(params any) (any, error) {
	raw, _ := params.(json.RawMessage)
	var call protocol.ToolCallParams
	if err := json.Unmarshal(raw, &call); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid tools/call parameters: " + err.Error()}
	}
	logger.Info("Tool call requested for:", call.Name)

	name := strings.TrimPrefix(call.Name, toolPrefix)
	s.mu.Lock()
	handler := s.handlers[name]
	known := false
	for _, t := range s.tools {
		if t.Name == name {
			known = true
			break
		}
	}
	s.mu.Unlock()
	if !known || handler == nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "tool not found: " + call.Name}
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	result, err := handler(args)
	if err != nil {
		var ip *podds.InvalidParameterError
		if errors.As(err, &ip) {
			return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: ip.Error()}
		}
		logger.Warn("Tool execution failed:", call.Name, err)
		res := protocol.TextResult(fmt.Sprintf("%s failed: %v", call.Name, err))
		res.IsError = true
		return res, nil
	}
	if _, ok := result.(*protocol.ToolCallResult); ok {
		return result, nil
	}
	b, err := json.MarshalIndent(result, "", " ")
	if err != nil {
		return nil, err
	}
	return protocol.TextResult(string(b)), nil
}
