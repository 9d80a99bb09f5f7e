package mcp

import "github.com/mbsekit/flexo-bridge/pkg/protocol"

type Request = protocol.JSONRPCRequest
type Response = protocol.JSONRPCResponse
type Tool = protocol.Tool
type ToolCall = protocol.ToolCall

type ClientInfo struct {
	Name    string
	Version string
}
