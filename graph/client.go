// Package graph is the boundary to the external graph store driver.
// The rest of the module only sees the GraphClient and Transaction
// interfaces: run query text with parameters, get back result rows.
package graph

import (
	"context"
	"time"

	"github.com/savasp/graphmodel-go/types"
)

// GraphClient provides an interface for graph database operations.
// Implementations must be safe for concurrent access.
type GraphClient interface {
	// Connect establishes a connection to the graph database.
	Connect(ctx context.Context) error

	// Close releases all resources and closes the database connection.
	Close(ctx context.Context) error

	// Health returns the current health status of the connection.
	Health(ctx context.Context) types.HealthStatus

	// Read executes a Cypher query in an auto-committed read transaction.
	Read(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// Write executes a Cypher query in an auto-committed write transaction.
	Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// BeginTransaction opens an explicit transaction. The transaction is
	// single-use: after Commit or Rollback any further Run fails fast.
	BeginTransaction(ctx context.Context) (Transaction, error)
}

// Transaction is an explicit transaction scope around a sequence of
// queries. Exactly one of Commit or Rollback must be called; the
// transaction is owned exclusively by its caller for its lifetime.
type Transaction interface {
	// Run executes a Cypher query inside the transaction.
	Run(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// Commit makes all queries run in the transaction durable.
	Commit(ctx context.Context) error

	// Rollback discards all queries run in the transaction.
	Rollback(ctx context.Context) error
}

// QueryResult represents the result of a Cypher query execution.
type QueryResult struct {
	// Records contains the result rows as maps of column name to value.
	// Node and relationship values are converted to graph.Node and
	// graph.Relationship; everything else keeps the driver's Go mapping.
	Records []map[string]any

	// Columns contains the names of the columns in the result set.
	Columns []string

	// Summary contains metadata about the query execution.
	Summary QuerySummary
}

// QuerySummary provides metadata about query execution.
type QuerySummary struct {
	ExecutionTime        time.Duration
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}

// Node is the driver-independent shape of a node result value.
type Node struct {
	ElementID string
	Labels    []string
	Props     map[string]any
}

// Relationship is the driver-independent shape of a relationship result value.
type Relationship struct {
	ElementID      string
	Type           string
	StartElementID string
	EndElementID   string
	Props          map[string]any
}

// ClientConfig contains configuration options for graph database clients.
type ClientConfig struct {
	// URI is the connection URI. For Neo4j use "bolt://host:port" for
	// unencrypted connections, "bolt+s://" for TLS, or "neo4j://" for
	// routing. Encryption is controlled by the URI scheme.
	URI string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// Database name to connect to. Empty string uses the default database.
	Database string

	// MaxConnectionPoolSize limits the number of connections in the pool.
	// Zero or negative values use the driver default.
	MaxConnectionPoolSize int

	// ConnectionTimeout is the maximum time to wait for a connection.
	ConnectionTimeout time.Duration

	// MaxTransactionRetryTime is the maximum time to retry failed
	// managed transactions.
	MaxTransactionRetryTime time.Duration
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		Password:                "password",
		Database:                "",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c ClientConfig) Validate() error {
	if c.URI == "" {
		return types.NewConfigError("URI cannot be empty", nil)
	}
	if c.Username == "" {
		return types.NewConfigError("Username cannot be empty", nil)
	}
	if c.Password == "" {
		return types.NewConfigError("Password cannot be empty", nil)
	}
	if c.ConnectionTimeout <= 0 {
		return types.NewConfigError("ConnectionTimeout must be positive", nil)
	}
	if c.MaxTransactionRetryTime <= 0 {
		return types.NewConfigError("MaxTransactionRetryTime must be positive", nil)
	}
	return nil
}
