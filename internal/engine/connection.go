package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/querysql"
)

// Row is one backend result row: each projected alias mapped to its decoded
// JSON value.
type Row map[string]ir.IRValue

// Cursor iterates the rows of one executed query.
type Cursor interface {
	Next() bool
	Row() (Row, error)
	Err() error
	Close() error
}

// Backend executes emitted query text. Execution errors are returned to the
// caller unchanged.
type Backend interface {
	ExecuteQuery(ctx context.Context, text string) (Cursor, error)
}

// SpillSource loads adjacency lists stored outside their vertex document.
// Edges are returned in the order they were spilled.
type SpillSource interface {
	Edges(ctx context.Context, vertexID string, reverse bool) ([]ir.IRObject, error)
}

// IncomingSource reconstructs reverse adjacency lists for backends that do
// not store them. Each returned document carries _srcV like a stored
// reverse edge.
type IncomingSource interface {
	IncomingEdges(ctx context.Context, vertexID string) ([]ir.IRObject, error)
}

// Connection is one logical session against a backend. It owns the vertex
// cache shared by every query issued through it.
//
// A connection is not safe for concurrent decodes: callers must serialize
// Portal and Expander use on the same connection.
type Connection struct {
	backend         Backend
	dialect         querysql.Dialect
	useReverseEdges bool
	cache           *VertexCache
	sessionID       string
	logger          *slog.Logger
	tracer          trace.Tracer
	spill           SpillSource
	incoming        IncomingSource
	idGen           IDGenerator
}

// ConnectionOption configures a connection.
type ConnectionOption func(*Connection)

// WithDialect sets the query dialect. Default: querysql.DialectSQL.
func WithDialect(d querysql.Dialect) ConnectionOption {
	return func(c *Connection) {
		c.dialect = d
	}
}

// WithReverseEdges declares whether the backend stores reverse adjacency
// lists. Default: true.
func WithReverseEdges(stored bool) ConnectionOption {
	return func(c *Connection) {
		c.useReverseEdges = stored
	}
}

// WithLogger sets the connection logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ConnectionOption {
	return func(c *Connection) {
		c.logger = l
	}
}

// WithTracer sets the tracer for query spans. Default: the global
// OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) ConnectionOption {
	return func(c *Connection) {
		c.tracer = t
	}
}

// WithSpillSource sets where spilled adjacency lists are loaded from.
func WithSpillSource(s SpillSource) ConnectionOption {
	return func(c *Connection) {
		c.spill = s
	}
}

// WithIncomingSource sets where unstored reverse edges are rebuilt from.
func WithIncomingSource(s IncomingSource) ConnectionOption {
	return func(c *Connection) {
		c.incoming = s
	}
}

// WithIDGenerator sets the session id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) ConnectionOption {
	return func(c *Connection) {
		c.idGen = g
	}
}

// NewConnection opens a session on backend.
func NewConnection(backend Backend, opts ...ConnectionOption) *Connection {
	c := &Connection{
		backend:         backend,
		dialect:         querysql.DialectSQL,
		useReverseEdges: true,
		cache:           NewVertexCache(),
		logger:          slog.Default(),
		tracer:          otel.Tracer("gview/engine"),
		idGen:           UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sessionID = c.idGen.Generate()
	c.logger = c.logger.With("session", c.sessionID)
	return c
}

// Dialect returns the query dialect.
func (c *Connection) Dialect() querysql.Dialect { return c.dialect }

// UseReverseEdges reports whether the backend stores reverse adjacency lists.
func (c *Connection) UseReverseEdges() bool { return c.useReverseEdges }

// Cache returns the connection's vertex cache.
func (c *Connection) Cache() *VertexCache { return c.cache }

// SessionID returns the connection's session id.
func (c *Connection) SessionID() string { return c.sessionID }

// Logger returns the session-scoped logger.
func (c *Connection) Logger() *slog.Logger { return c.logger }

// PlanOptions returns the emission options matching this connection.
func (c *Connection) PlanOptions() querysql.PlanOptions {
	return querysql.PlanOptions{Dialect: c.dialect, UseReverseEdges: c.useReverseEdges}
}

// Portal returns a decoder bound to this connection.
func (c *Connection) Portal() *Portal {
	return &Portal{conn: c}
}

// Expander returns an adjacency expander bound to this connection.
func (c *Connection) Expander() *Expander {
	return &Expander{conn: c}
}
