// Package capability holds the tools and resources this server exposes and
// turns them into a Model Context Protocol server.
//
// Registration is explicit: build a Registry at process start, register each
// capability with RegisterTool or RegisterResource, then call Server once.
// The first call to Server seals the registry.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jmerrifield20/mcp-demo-server/pkg/mcpmanifest"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	ErrInvalidName       = errors.New("capability: name must not be empty")
	ErrDuplicateTool     = errors.New("capability: tool already registered")
	ErrDuplicateResource = errors.New("capability: resource already registered")
	ErrSealed            = errors.New("capability: registry is sealed")
	ErrInvalidArguments  = errors.New("capability: invalid arguments")
)

// Info identifies the server to MCP clients.
type Info struct {
	Name         string
	Version      string
	Instructions string
}

// CallKind distinguishes tool calls from resource reads in observer callbacks.
type CallKind string

const (
	KindTool     CallKind = "tool"
	KindResource CallKind = "resource"
)

// CallObserver is notified after every tool call and resource read.
type CallObserver func(kind CallKind, name string, success bool, elapsed time.Duration)

// ToolFunc is the typed body of a tool.
type ToolFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// Producer returns the value of a resource. The value is served as JSON.
type Producer func(ctx context.Context) (any, error)

type toolEntry struct {
	def  mcpmanifest.Tool
	bind func(*mcp.Server)
}

type resourceEntry struct {
	def  mcpmanifest.Resource
	bind func(*mcp.Server)
}

// Registry maps tool names and resource URIs to their contracts.
type Registry struct {
	info   Info
	logger *zap.Logger

	mu        sync.RWMutex
	tools     []toolEntry
	resources []resourceEntry
	toolIdx   map[string]struct{}
	resIdx    map[string]struct{}
	observe   CallObserver
	server    *mcp.Server
}

// New creates an empty Registry.
func New(info Info, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		info:    info,
		logger:  logger,
		toolIdx: make(map[string]struct{}),
		resIdx:  make(map[string]struct{}),
	}
}

// Info returns the server identity.
func (r *Registry) Info() Info { return r.info }

// SetCallObserver installs fn as the call observer. Pass nil to remove it.
func (r *Registry) SetCallObserver(fn CallObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observe = fn
}

// ToolOption customises a tool registration.
type ToolOption func(*toolConfig)

type toolConfig struct {
	schema   *jsonschema.Schema
	defaults map[string]any
}

// WithDefault declares a default value for an input property. The default is
// published in the tool's input schema and used only when the caller omits
// the property.
func WithDefault(property string, value any) ToolOption {
	return func(c *toolConfig) {
		if c.defaults == nil {
			c.defaults = make(map[string]any)
		}
		c.defaults[property] = value
	}
}

// WithInputSchema replaces the schema derived from the input type. Use it
// when In holds types the schema generator cannot describe, such as big.Int.
func WithInputSchema(schema *jsonschema.Schema) ToolOption {
	return func(c *toolConfig) { c.schema = schema }
}

// Texter is implemented by outputs whose text content is not their JSON
// encoding, e.g. scalars.
type Texter interface {
	Text() string
}

// RegisterTool adds a tool whose input schema is derived from In.
//
// Arguments are decoded straight from the request JSON into In, so numbers
// keep their exact literal value.
func RegisterTool[In, Out any](r *Registry, name, description string, fn ToolFunc[In, Out], opts ...ToolOption) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	var cfg toolConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	schema := cfg.schema
	if schema == nil {
		var err error
		if schema, err = jsonschema.For[In](nil); err != nil {
			return fmt.Errorf("input schema for tool %q: %w", name, err)
		}
	}
	for prop, value := range cfg.defaults {
		ps, ok := schema.Properties[prop]
		if !ok {
			return fmt.Errorf("tool %q: default for unknown property %q", name, prop)
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("tool %q: encode default for %q: %w", name, prop, err)
		}
		ps.Default = raw
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve input schema for tool %q: %w", name, err)
	}

	rawSchema, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode input schema for tool %q: %w", name, err)
	}

	tool := &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}
	var handler mcp.ToolHandler = func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}

		var in In
		if err := decodeArguments(args, schema, resolved, &in); err != nil {
			r.record(KindTool, name, false, 0)
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidArguments, name, err)
		}

		start := time.Now()
		out, err := fn(ctx, in)
		r.record(KindTool, name, err == nil, time.Since(start))
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return toolResult(out)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		return ErrSealed
	}
	if _, dup := r.toolIdx[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.toolIdx[name] = struct{}{}
	r.tools = append(r.tools, toolEntry{
		def: mcpmanifest.Tool{
			Name:        name,
			Description: description,
			InputSchema: rawSchema,
		},
		bind: func(s *mcp.Server) { s.AddTool(tool, handler) },
	})
	r.logger.Debug("tool registered", zap.String("tool", name))
	return nil
}

// decodeArguments fills missing properties from schema defaults, checks the
// result against the schema and decodes it into in. Property values are
// carried as raw JSON throughout.
func decodeArguments(args json.RawMessage, schema *jsonschema.Schema, resolved *jsonschema.Resolved, in any) error {
	fields := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(args)) > 0 && !bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		if err := json.Unmarshal(args, &fields); err != nil {
			return fmt.Errorf("arguments must be an object: %w", err)
		}
	}
	for prop, ps := range schema.Properties {
		if _, ok := fields[prop]; !ok && len(ps.Default) > 0 {
			fields[prop] = ps.Default
		}
	}
	for _, prop := range schema.Required {
		if _, ok := fields[prop]; !ok {
			return fmt.Errorf("missing required argument %q", prop)
		}
	}

	filled, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	// The validator wants plain JSON values; this copy is only checked, never used.
	var instance map[string]any
	if err := json.Unmarshal(filled, &instance); err != nil {
		return err
	}
	if err := resolved.Validate(instance); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(filled))
	dec.UseNumber()
	return dec.Decode(in)
}

func toolResult(out any) (*mcp.CallToolResult, error) {
	var text string
	if t, ok := out.(Texter); ok {
		text = t.Text()
	} else {
		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("encode tool output: %w", err)
		}
		text = string(data)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: out,
	}, nil
}

// RegisterResource adds a static resource at uri. The producer runs on every
// read; its value is encoded as application/json.
func (r *Registry) RegisterResource(uri, name, description string, produce Producer) error {
	if strings.TrimSpace(uri) == "" || strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	res := &mcp.Resource{
		URI:         uri,
		Name:        name,
		Description: description,
		MIMEType:    "application/json",
	}
	var handler mcp.ResourceHandler = func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		start := time.Now()
		data, err := encodeResource(ctx, produce)
		r.record(KindResource, uri, err == nil, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", uri, err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: res.MIMEType,
				Text:     string(data),
			}},
		}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		return ErrSealed
	}
	if _, dup := r.resIdx[uri]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, uri)
	}
	r.resIdx[uri] = struct{}{}
	r.resources = append(r.resources, resourceEntry{
		def: mcpmanifest.Resource{
			URI:         uri,
			Name:        name,
			Description: description,
			MimeType:    res.MIMEType,
		},
		bind: func(s *mcp.Server) { s.AddResource(res, handler) },
	})
	r.logger.Debug("resource registered", zap.String("uri", uri))
	return nil
}

func encodeResource(ctx context.Context, produce Producer) ([]byte, error) {
	v, err := produce(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Tools returns the registered tool definitions in registration order.
func (r *Registry) Tools() []mcpmanifest.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcpmanifest.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.def)
	}
	return out
}

// Resources returns the registered resource definitions in registration order.
func (r *Registry) Resources() []mcpmanifest.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcpmanifest.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res.def)
	}
	return out
}

// Manifest describes the registry for documentation. endpoint is the path
// the protocol server is reachable at.
func (r *Registry) Manifest(endpoint string) mcpmanifest.Manifest {
	return mcpmanifest.Manifest{
		SchemaVersion: mcpmanifest.SchemaVersion,
		Name:          r.info.Name,
		Version:       r.info.Version,
		Description:   r.info.Instructions,
		Endpoint:      endpoint,
		Tools:         r.Tools(),
		Resources:     r.Resources(),
	}
}

// Server returns the MCP server with every registration applied. It is built
// on the first call; later calls return the same server.
func (r *Registry) Server() *mcp.Server {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		return r.server
	}

	var opts *mcp.ServerOptions
	if r.info.Instructions != "" {
		opts = &mcp.ServerOptions{Instructions: r.info.Instructions}
	}
	s := mcp.NewServer(&mcp.Implementation{Name: r.info.Name, Version: r.info.Version}, opts)
	for _, t := range r.tools {
		t.bind(s)
	}
	for _, res := range r.resources {
		res.bind(s)
	}
	r.server = s

	r.logger.Info("mcp server built",
		zap.String("name", r.info.Name),
		zap.Int("tools", len(r.tools)),
		zap.Int("resources", len(r.resources)),
	)
	return s
}

func (r *Registry) record(kind CallKind, name string, success bool, elapsed time.Duration) {
	r.mu.RLock()
	fn := r.observe
	r.mu.RUnlock()

	if !success {
		r.logger.Warn("capability call failed", zap.String("kind", string(kind)), zap.String("name", name))
	}
	if fn != nil {
		fn(kind, name, success, elapsed)
	}
}
