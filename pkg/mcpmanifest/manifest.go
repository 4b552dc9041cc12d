// Package mcpmanifest defines the JSON document that describes what an MCP
// server exposes. The front door serves it at:
//
//	GET /docs
//
// so humans and tooling can see the mounted tools and resources without
// speaking the protocol.
package mcpmanifest

import "encoding/json"

// SchemaVersion is the MCP protocol revision the manifest layout follows.
const SchemaVersion = "2025-06-18"

// Tool describes a tool the server exposes.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"` // JSON Schema object
}

// Resource describes a resource the server exposes.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Manifest is the top-level document.
type Manifest struct {
	SchemaVersion string     `json:"schemaVersion"`
	Name          string     `json:"name"`
	Version       string     `json:"version"`
	Description   string     `json:"description,omitempty"`
	Endpoint      string     `json:"endpoint"`
	Tools         []Tool     `json:"tools"`
	Resources     []Resource `json:"resources"`
}
