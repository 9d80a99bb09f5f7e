// Package version pins the release and MCP protocol versions.
package version

const Version = "0.3.0"

// ProtocolVersion is the default when negotiation with the client fails.
const ProtocolVersion = "2025-06-18"

var SupportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}
