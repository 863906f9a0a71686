package ir

// Version constants for the document protocol and the tool.
const (
	// ProtocolVersion is the vertex document protocol version.
	ProtocolVersion = "1"

	// Version is the gview release version.
	Version = "0.1.0"
)
