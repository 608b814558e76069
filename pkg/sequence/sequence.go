// Package sequence supplies human-readable reference numbers such as
// MAT/2026/00001. The engine asks for a reference whenever a caller leaves
// one at the placeholder value.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/aulasoft/academia-engine/pkg/clock"
)

// Generator returns the next reference for a sequence code ("MAT", "FAC").
type Generator interface {
	Next(ctx context.Context, code string) (string, error)
}

func format(code string, year int, n int64) string {
	return fmt.Sprintf("%s/%d/%05d", code, year, n)
}

// Redis implements Generator with INCR, making references unique across
// processes. Counters restart per year.
type Redis struct {
	client *redis.Client
	clk    clock.Clock
}

// NewRedis builds a Redis-backed generator.
func NewRedis(client *redis.Client, clk clock.Clock) *Redis {
	if clk == nil {
		clk = clock.System{}
	}
	return &Redis{client: client, clk: clk}
}

// Next increments the yearly counter for code.
func (g *Redis) Next(ctx context.Context, code string) (string, error) {
	year := g.clk.Now().Year()
	key := fmt.Sprintf("academia:seq:%s:%d", code, year)
	n, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("next sequence %s: %w", code, err)
	}
	return format(code, year, n), nil
}

// Memory is an in-process generator for tests and single-node setups.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
	clk      clock.Clock
}

// NewMemory builds an in-memory generator.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.System{}
	}
	return &Memory{counters: make(map[string]int64), clk: clk}
}

// Next increments the in-process counter for code.
func (g *Memory) Next(_ context.Context, code string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	year := g.clk.Now().Year()
	key := fmt.Sprintf("%s:%d", code, year)
	g.counters[key]++
	return format(code, year, g.counters[key]), nil
}
