package redis

import (
	"context"
	"fmt"
)

// HealthState is the coarse health of the cache connection
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// HealthStatus describes the cache connection at one point in time
type HealthStatus struct {
	Status  HealthState
	Message string
	Details map[string]string
}

// Health returns the cache health status
func (c *Cache) Health(ctx context.Context) (*HealthStatus, error) {
	// Check Redis connection with PING
	if err := c.client.Ping(ctx).Err(); err != nil {
		return &HealthStatus{
			Status:  HealthUnhealthy,
			Message: fmt.Sprintf("Redis ping failed: %v", err),
			Details: map[string]string{
				"error":   err.Error(),
				"address": c.config.Address,
			},
		}, nil
	}

	stats := c.client.PoolStats()

	status := HealthHealthy
	message := fmt.Sprintf("healthy, %d connections", stats.TotalConns)

	// Check if pool is near capacity
	if stats.TotalConns >= uint32(c.config.PoolSize*90/100) {
		status = HealthDegraded
		message = fmt.Sprintf("pool near capacity: %d/%d connections", stats.TotalConns, c.config.PoolSize)
	}

	return &HealthStatus{
		Status:  status,
		Message: message,
		Details: map[string]string{
			"address":     c.config.Address,
			"total_conns": fmt.Sprintf("%d", stats.TotalConns),
			"idle_conns":  fmt.Sprintf("%d", stats.IdleConns),
			"pool_size":   fmt.Sprintf("%d", c.config.PoolSize),
		},
	}, nil
}
