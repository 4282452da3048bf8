package graph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/savasp/graphmodel-go/types"
)

// Neo4jClient implements GraphClient for Neo4j graph databases.
// It provides connection pooling via the driver, connection retries with
// exponential backoff, and health monitoring.
type Neo4jClient struct {
	config ClientConfig
	driver neo4j.DriverWithContext
}

// NewNeo4jClient creates a new Neo4j client with the given configuration.
// The client must be connected via Connect() before use.
func NewNeo4jClient(config ClientConfig) (*Neo4jClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Neo4jClient{
		config: config,
	}, nil
}

// Connect establishes a connection to the Neo4j database.
// Uses exponential backoff for connection retries.
func (c *Neo4jClient) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.config.Username, c.config.Password, "")

	driverConfig := func(config *neo4j.Config) {
		config.MaxConnectionPoolSize = c.config.MaxConnectionPoolSize
		config.ConnectionAcquisitionTimeout = c.config.ConnectionTimeout
		config.MaxTransactionRetryTime = c.config.MaxTransactionRetryTime
	}

	var driver neo4j.DriverWithContext
	var lastErr error
	maxRetries := 5
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		var err error
		driver, err = neo4j.NewDriverWithContext(c.config.URI, auth, driverConfig)
		if err == nil {
			err = driver.VerifyConnectivity(ctx)
			if err == nil {
				c.driver = driver
				return nil
			}
		}

		lastErr = err

		if ctx.Err() != nil {
			return types.NewConnectionError("connection attempt cancelled", ctx.Err())
		}

		// Backoff delay: baseDelay * 2^attempt, capped at the connection timeout.
		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.config.ConnectionTimeout {
			delay = c.config.ConnectionTimeout
		}

		select {
		case <-time.After(delay):
			continue
		case <-ctx.Done():
			return types.NewConnectionError("connection attempt cancelled", ctx.Err())
		}
	}

	return types.NewConnectionError(
		fmt.Sprintf("failed to connect after %d attempts", maxRetries), lastErr)
}

// Close releases all resources and closes the database connection.
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}

	if err := c.driver.Close(ctx); err != nil {
		return types.NewConnectionError("failed to close driver", err)
	}

	c.driver = nil
	return nil
}

// Health returns the current health status of the Neo4j connection.
func (c *Neo4jClient) Health(ctx context.Context) types.HealthStatus {
	if c.driver == nil {
		return types.Unhealthy("driver not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.driver.VerifyConnectivity(healthCtx); err != nil {
		return types.Unhealthy(fmt.Sprintf("connectivity check failed: %v", err))
	}

	return types.Healthy("connected to Neo4j")
}

// Read executes a Cypher query in an auto-committed read transaction.
func (c *Neo4jClient) Read(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return c.execute(ctx, cypher, params, neo4j.AccessModeRead)
}

// Write executes a Cypher query in an auto-committed write transaction.
func (c *Neo4jClient) Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return c.execute(ctx, cypher, params, neo4j.AccessModeWrite)
}

func (c *Neo4jClient) execute(ctx context.Context, cypher string, params map[string]any, mode neo4j.AccessMode) (QueryResult, error) {
	if c.driver == nil {
		return QueryResult{}, types.NewConnectionError("driver not connected", nil)
	}

	startTime := time.Now()

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   mode,
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		neoResult, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}

		records, err := neoResult.Collect(ctx)
		if err != nil {
			return nil, err
		}

		summary, err := neoResult.Consume(ctx)
		if err != nil {
			return nil, err
		}

		return convertResult(records, summary), nil
	}

	var result any
	var err error
	if mode == neo4j.AccessModeRead {
		result, err = session.ExecuteRead(ctx, work)
	} else {
		result, err = session.ExecuteWrite(ctx, work)
	}

	if err != nil {
		return QueryResult{}, types.WrapStoreError("query execution failed", err).
			WithContext("query", cypher)
	}

	queryResult := result.(QueryResult)
	queryResult.Summary.ExecutionTime = time.Since(startTime)

	return queryResult, nil
}

// BeginTransaction opens an explicit transaction backed by a dedicated
// session. The session is released when the transaction is committed or
// rolled back.
func (c *Neo4jClient) BeginTransaction(ctx context.Context) (Transaction, error) {
	if c.driver == nil {
		return nil, types.NewConnectionError("driver not connected", nil)
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   neo4j.AccessModeWrite,
	})

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, types.NewTransactionError("failed to begin transaction", err)
	}

	return &neo4jTransaction{session: session, tx: tx}, nil
}

// neo4jTransaction wraps an explicit driver transaction plus the session
// that owns it.
type neo4jTransaction struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	closed  bool
}

// Run executes a Cypher query inside the transaction.
func (t *neo4jTransaction) Run(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	if t.closed {
		return QueryResult{}, types.NewTransactionError("transaction already closed", nil)
	}

	neoResult, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return QueryResult{}, types.WrapStoreError("query execution failed in transaction", err).
			WithContext("query", cypher)
	}

	records, err := neoResult.Collect(ctx)
	if err != nil {
		return QueryResult{}, types.WrapStoreError("failed to collect transaction results", err)
	}

	summary, err := neoResult.Consume(ctx)
	if err != nil {
		return QueryResult{}, types.WrapStoreError("failed to consume transaction results", err)
	}

	return convertResult(records, summary), nil
}

// Commit makes the transaction durable and releases the session.
func (t *neo4jTransaction) Commit(ctx context.Context) error {
	if t.closed {
		return types.NewTransactionError("transaction already closed", nil)
	}
	t.closed = true

	defer t.session.Close(ctx)
	if err := t.tx.Commit(ctx); err != nil {
		return types.NewTransactionError("commit failed", err)
	}
	return nil
}

// Rollback discards the transaction and releases the session.
func (t *neo4jTransaction) Rollback(ctx context.Context) error {
	if t.closed {
		return types.NewTransactionError("transaction already closed", nil)
	}
	t.closed = true

	defer t.session.Close(ctx)
	if err := t.tx.Rollback(ctx); err != nil {
		return types.NewTransactionError("rollback failed", err)
	}
	return nil
}

// convertResult converts Neo4j records and summary to QueryResult,
// mapping dbtype values into the driver-independent Node/Relationship
// shapes so callers never import the driver.
func convertResult(records []*neo4j.Record, summary neo4j.ResultSummary) QueryResult {
	result := QueryResult{
		Records: make([]map[string]any, 0, len(records)),
		Columns: []string{},
	}

	if len(records) > 0 {
		result.Columns = records[0].Keys
	}

	for _, record := range records {
		recordMap := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			recordMap[key] = convertValue(record.Values[i])
		}
		result.Records = append(result.Records, recordMap)
	}

	if summary != nil && summary.Counters() != nil {
		counters := summary.Counters()
		result.Summary = QuerySummary{
			NodesCreated:         counters.NodesCreated(),
			NodesDeleted:         counters.NodesDeleted(),
			RelationshipsCreated: counters.RelationshipsCreated(),
			RelationshipsDeleted: counters.RelationshipsDeleted(),
			PropertiesSet:        counters.PropertiesSet(),
		}
	}

	return result
}

// convertValue maps driver values to driver-independent ones, recursing
// into lists and maps.
func convertValue(value any) any {
	switch v := value.(type) {
	case dbtype.Node:
		return Node{
			ElementID: v.ElementId,
			Labels:    v.Labels,
			Props:     v.Props,
		}
	case dbtype.Relationship:
		return Relationship{
			ElementID:      v.ElementId,
			Type:           v.Type,
			StartElementID: v.StartElementId,
			EndElementID:   v.EndElementId,
			Props:          v.Props,
		}
	case []any:
		converted := make([]any, len(v))
		for i, item := range v {
			converted[i] = convertValue(item)
		}
		return converted
	case map[string]any:
		converted := make(map[string]any, len(v))
		for key, item := range v {
			converted[key] = convertValue(item)
		}
		return converted
	default:
		return v
	}
}
