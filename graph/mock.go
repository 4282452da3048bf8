package graph

import (
	"context"
	"sync"
	"time"

	"github.com/savasp/graphmodel-go/types"
)

// MockCall represents a recorded query execution on the mock client.
type MockCall struct {
	Method    string
	Cypher    string
	Params    map[string]any
	Timestamp time.Time
}

// MockGraphClient is a mock implementation of GraphClient for testing.
// It records every query with its parameters, returns configured results
// in FIFO order, and can be told to fail on a specific call so
// transactional rollback paths can be exercised.
type MockGraphClient struct {
	mu sync.Mutex

	connected bool
	calls     []MockCall

	// Configurable responses. Results are shared between Read, Write and
	// transaction Run calls, consumed FIFO.
	results      []QueryResult
	runError     error
	failOnCall   int // 1-based index of the run call that fails; 0 disables
	connectError error
	beginError   error
	commitError  error

	runCount     int
	transactions []*MockTransaction
}

// NewMockGraphClient creates a new mock graph client for testing.
func NewMockGraphClient() *MockGraphClient {
	return &MockGraphClient{
		calls:   make([]MockCall, 0),
		results: make([]QueryResult, 0),
	}
}

// Connect records the call and simulates connection.
func (m *MockGraphClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Connect", "", nil)
	if m.connectError != nil {
		return m.connectError
	}
	m.connected = true
	return nil
}

// Close records the call and simulates disconnection.
func (m *MockGraphClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Close", "", nil)
	m.connected = false
	return nil
}

// Health reports healthy while connected.
func (m *MockGraphClient) Health(ctx context.Context) types.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return types.Unhealthy("not connected")
	}
	return types.Healthy("mock graph client")
}

// Read records the call and returns the next configured result.
func (m *MockGraphClient) Read(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run("Read", cypher, params)
}

// Write records the call and returns the next configured result.
func (m *MockGraphClient) Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run("Write", cypher, params)
}

// BeginTransaction returns a mock transaction sharing this client's
// result queue and call log.
func (m *MockGraphClient) BeginTransaction(ctx context.Context) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("BeginTransaction", "", nil)
	if m.beginError != nil {
		return nil, m.beginError
	}

	tx := &MockTransaction{client: m}
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

// run executes one recorded query. Caller must hold the mutex.
func (m *MockGraphClient) run(method, cypher string, params map[string]any) (QueryResult, error) {
	m.record(method, cypher, params)
	m.runCount++

	if m.failOnCall > 0 && m.runCount == m.failOnCall {
		return QueryResult{}, types.WrapStoreError("mock failure", nil).WithContext("query", cypher)
	}
	if m.runError != nil {
		return QueryResult{}, m.runError
	}

	if len(m.results) > 0 {
		result := m.results[0]
		m.results = m.results[1:]
		return result, nil
	}

	return QueryResult{
		Records: []map[string]any{},
		Columns: []string{},
	}, nil
}

func (m *MockGraphClient) record(method, cypher string, params map[string]any) {
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Cypher:    cypher,
		Params:    params,
		Timestamp: time.Now(),
	})
}

// MockTransaction is the transaction companion of MockGraphClient.
// It tracks whether Commit or Rollback was called so tests can assert
// the partial-failure policy.
type MockTransaction struct {
	client     *MockGraphClient
	closed     bool
	Committed  bool
	RolledBack bool
}

// Run executes a query against the shared mock state.
func (t *MockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	t.client.mu.Lock()
	defer t.client.mu.Unlock()

	if t.closed {
		return QueryResult{}, types.NewTransactionError("transaction already closed", nil)
	}
	return t.client.run("TxRun", cypher, params)
}

// Commit marks the transaction committed.
func (t *MockTransaction) Commit(ctx context.Context) error {
	t.client.mu.Lock()
	defer t.client.mu.Unlock()

	if t.closed {
		return types.NewTransactionError("transaction already closed", nil)
	}
	if t.client.commitError != nil {
		return t.client.commitError
	}
	t.closed = true
	t.Committed = true
	return nil
}

// Rollback marks the transaction rolled back.
func (t *MockTransaction) Rollback(ctx context.Context) error {
	t.client.mu.Lock()
	defer t.client.mu.Unlock()

	if t.closed {
		return types.NewTransactionError("transaction already closed", nil)
	}
	t.closed = true
	t.RolledBack = true
	return nil
}

// Configuration helpers.

// AddResult appends a query result to the FIFO queue.
func (m *MockGraphClient) AddResult(result QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

// AddRecords appends a result consisting of the given records.
func (m *MockGraphClient) AddRecords(records ...map[string]any) {
	m.AddResult(QueryResult{Records: records})
}

// SetRunError configures every subsequent run call to return err.
func (m *MockGraphClient) SetRunError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runError = err
}

// FailOnCall configures the n-th run call (1-based, counting Read, Write
// and transaction Run together) to fail.
func (m *MockGraphClient) FailOnCall(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOnCall = n
}

// SetCommitError configures transaction commits to fail.
func (m *MockGraphClient) SetCommitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitError = err
}

// SetConnectError configures Connect() to return an error.
func (m *MockGraphClient) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectError = err
}

// SetBeginError configures BeginTransaction() to return an error.
func (m *MockGraphClient) SetBeginError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beginError = err
}

// Inspection helpers.

// Calls returns a copy of all recorded calls.
func (m *MockGraphClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// QueryCalls returns the recorded calls that carried a Cypher query.
func (m *MockGraphClient) QueryCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockCall, 0, len(m.calls))
	for _, call := range m.calls {
		if call.Cypher != "" {
			calls = append(calls, call)
		}
	}
	return calls
}

// Transactions returns all transactions handed out by BeginTransaction.
func (m *MockGraphClient) Transactions() []*MockTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	txs := make([]*MockTransaction, len(m.transactions))
	copy(txs, m.transactions)
	return txs
}
