// Package health provides dependency probes for the /health endpoint.
package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/henzogomes/git-shame/internal/core/ports"
	infraDB "github.com/henzogomes/git-shame/internal/infrastructure/db"
)

// checker pairs a dependency name with its probe function.
type checker struct {
	name  string
	probe func(ctx context.Context) error
}

func (c *checker) Name() string                    { return c.name }
func (c *checker) Check(ctx context.Context) error { return c.probe(ctx) }

// NewDBHealthChecker probes the Postgres connection behind the cache.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker {
	return &checker{
		name:  "database",
		probe: func(ctx context.Context) error { return db.DB.PingContext(ctx) },
	}
}

// NewRedisHealthChecker probes Redis. Only wired when the rate limiter runs
// on the redis backend.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &checker{
		name:  "redis",
		probe: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
}
