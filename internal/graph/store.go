// Package graph runs Cypher against a Bolt graph database (Memgraph or
// Neo4j) and exports the stored graph for use as model context.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kalambet/odin/internal/logger"
)

// Config holds Bolt connection settings. An empty User connects without
// authentication, which is how Memgraph runs by default.
type Config struct {
	URI         string
	User        string
	Password    string
	Database    string
	Timeout     time.Duration
	MaxPoolSize int
}

// Store is a connected graph database.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
}

// Open connects to the database and verifies connectivity.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("graph: URI required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 10
	}

	auth := neo4j.NoAuth()
	if cfg.User != "" {
		auth = neo4j.BasicAuth(cfg.User, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("graph: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify connectivity to %s: %w", cfg.URI, err)
	}

	return &Store{
		driver:   driver,
		database: cfg.Database,
		log:      log.With("component", "graph"),
	}, nil
}

// Close releases the driver.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

// RunUpdate executes query as one write transaction and discards its
// result. The store's error text is returned wrapped.
func (s *Store) RunUpdate(ctx context.Context, query string, params map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("graph update: %w", err)
	}
	return nil
}

// RunSelect executes a read query and returns every row as a map.
func (s *Store) RunSelect(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, len(records))
		for i, rec := range records {
			rows[i] = rec.AsMap()
		}
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph select: %w", err)
	}
	return out.([]map[string]any), nil
}

// IsEmpty reports whether the database holds no nodes.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	rows, err := s.RunSelect(ctx, `MATCH (n) RETURN n LIMIT 1`, nil)
	if err != nil {
		return false, err
	}
	return len(rows) == 0, nil
}

// DeleteAll removes every node and relationship.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.log.Info("deleting all graph data")
	return s.RunUpdate(ctx, `MATCH (n) DETACH DELETE n`, nil)
}
