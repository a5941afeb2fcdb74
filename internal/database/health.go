package database

import (
	"context"
	"fmt"
	"time"
)

// Health check statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the current health status of the database
type HealthStatus struct {
	Status          string                 `json:"status"`
	Timestamp       time.Time              `json:"timestamp"`
	ResponseTime    time.Duration          `json:"response_time"`
	ConnectionCount int                    `json:"connection_count"`
	Errors          []string               `json:"errors,omitempty"`
	Details         map[string]interface{} `json:"details"`
}

var criticalTables = []string{"groups", "posts", "comments", "group_badges"}

// Health pings the pool and confirms the core tables are queryable.
func (m *Manager) Health(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		Status:    StatusHealthy,
		Timestamp: start.UTC(),
		Details:   make(map[string]interface{}),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.DB().PingContext(ctx); err != nil {
		status.Status = StatusUnhealthy
		status.Errors = append(status.Errors, fmt.Sprintf("ping failed: %v", err))
		status.ResponseTime = time.Since(start)
		return status
	}

	for _, table := range criticalTables {
		var exists bool
		err := m.DB().QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
		).Scan(&exists)
		if err != nil || !exists {
			status.Status = StatusDegraded
			status.Errors = append(status.Errors, fmt.Sprintf("table %s unavailable", table))
		}
	}

	stats := m.Stats()
	queries, errs, slow := m.QueryStats()
	status.ConnectionCount = stats.OpenConnections
	status.Details["in_use"] = stats.InUse
	status.Details["idle"] = stats.Idle
	status.Details["wait_count"] = stats.WaitCount
	status.Details["query_count"] = queries
	status.Details["error_count"] = errs
	status.Details["slow_query_count"] = slow
	status.ResponseTime = time.Since(start)

	return status
}
