package graphmodel

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/types"
)

// GraphConfig configures a Graph: the store connection plus the mapping
// layer's own knobs.
type GraphConfig struct {
	// URI is the store connection URI, e.g. "bolt://localhost:7687".
	URI string `yaml:"uri" json:"uri" mapstructure:"uri"`

	// Username for authentication.
	Username string `yaml:"username" json:"username" mapstructure:"username"`

	// Password for authentication.
	Password string `yaml:"password" json:"password" mapstructure:"password"`

	// Database name. Empty uses the store's default database.
	Database string `yaml:"database" json:"database" mapstructure:"database"`

	// MaxConnectionPoolSize limits the driver connection pool. Zero uses
	// the driver default.
	MaxConnectionPoolSize int `yaml:"max_connection_pool_size" json:"max_connection_pool_size" mapstructure:"max_connection_pool_size"`

	// ConnectionTimeout bounds connection establishment.
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout" mapstructure:"connection_timeout"`

	// MaxTransactionRetryTime bounds retries of managed transactions.
	MaxTransactionRetryTime time.Duration `yaml:"max_transaction_retry_time" json:"max_transaction_retry_time" mapstructure:"max_transaction_retry_time"`

	// TraversalDepth bounds complex-property nesting for serialization
	// and hydration.
	TraversalDepth int `yaml:"traversal_depth" json:"traversal_depth" mapstructure:"traversal_depth"`
}

// DefaultConfig returns a config suitable for a local development store.
func DefaultConfig() GraphConfig {
	cc := graph.DefaultClientConfig()
	return GraphConfig{
		URI:                     cc.URI,
		Username:                cc.Username,
		Password:                cc.Password,
		MaxConnectionPoolSize:   cc.MaxConnectionPoolSize,
		ConnectionTimeout:       cc.ConnectionTimeout,
		MaxTransactionRetryTime: cc.MaxTransactionRetryTime,
		TraversalDepth:          DefaultDepthAllowed,
	}
}

// ApplyDefaults fills unset fields from DefaultConfig.
func (c *GraphConfig) ApplyDefaults() {
	d := DefaultConfig()
	if c.URI == "" {
		c.URI = d.URI
	}
	if c.Username == "" {
		c.Username = d.Username
	}
	if c.Password == "" {
		c.Password = d.Password
	}
	if c.MaxConnectionPoolSize == 0 {
		c.MaxConnectionPoolSize = d.MaxConnectionPoolSize
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = d.ConnectionTimeout
	}
	if c.MaxTransactionRetryTime == 0 {
		c.MaxTransactionRetryTime = d.MaxTransactionRetryTime
	}
	if c.TraversalDepth == 0 {
		c.TraversalDepth = DefaultDepthAllowed
	}
}

// Validate checks the config for usability.
func (c GraphConfig) Validate() error {
	if err := c.ClientConfig().Validate(); err != nil {
		return err
	}
	if c.TraversalDepth < 1 {
		return types.NewConfigError(
			fmt.Sprintf("traversal_depth must be positive, got %d", c.TraversalDepth), nil)
	}
	return nil
}

// ClientConfig projects the store connection part of the config.
func (c GraphConfig) ClientConfig() graph.ClientConfig {
	return graph.ClientConfig{
		URI:                     c.URI,
		Username:                c.Username,
		Password:                c.Password,
		Database:                c.Database,
		MaxConnectionPoolSize:   c.MaxConnectionPoolSize,
		ConnectionTimeout:       c.ConnectionTimeout,
		MaxTransactionRetryTime: c.MaxTransactionRetryTime,
	}
}

// LoadConfig reads a YAML config file, applies defaults, and validates.
func LoadConfig(path string) (GraphConfig, error) {
	var cfg GraphConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, types.NewConfigError(fmt.Sprintf("cannot read config file %q", path), err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, types.NewConfigError(fmt.Sprintf("cannot parse config file %q", path), err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
