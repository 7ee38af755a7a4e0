package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zuricore/identity-service/app/metrics"
)

// HealthResponse reports the service and its dependencies.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

type CheckResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

var startTime = time.Now()

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]CheckResult{
		"database": app.checkDatabase(ctx),
		"redis":    app.checkRedis(ctx),
	}
	if app.amqpConn != nil {
		checks["rabbitmq"] = app.checkRabbitMQ()
	}

	overall := "healthy"
	for _, c := range checks {
		if c.Status != "up" {
			overall = "unhealthy"
		}
	}

	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Uptime:    time.Since(startTime).String(),
	})
}

func (app *application) checkDatabase(ctx context.Context) CheckResult {
	start := time.Now()
	if app.db == nil {
		return CheckResult{Status: "down", Error: "not configured"}
	}
	if err := app.db.PingContext(ctx); err != nil {
		metrics.SetDependencyHealth("database", false)
		return CheckResult{Status: "down", ResponseTime: time.Since(start).String(), Error: err.Error()}
	}
	metrics.SetDependencyHealth("database", true)
	return CheckResult{Status: "up", ResponseTime: time.Since(start).String()}
}

func (app *application) checkRedis(ctx context.Context) CheckResult {
	start := time.Now()
	if app.redis == nil {
		return CheckResult{Status: "down", Error: "not configured"}
	}
	if err := app.redis.Ping(ctx).Err(); err != nil {
		metrics.SetDependencyHealth("redis", false)
		return CheckResult{Status: "down", ResponseTime: time.Since(start).String(), Error: err.Error()}
	}
	metrics.SetDependencyHealth("redis", true)
	return CheckResult{Status: "up", ResponseTime: time.Since(start).String()}
}

func (app *application) checkRabbitMQ() CheckResult {
	if app.amqpConn.IsClosed() || (app.amqpCh != nil && app.amqpCh.IsClosed()) {
		metrics.SetDependencyHealth("rabbitmq", false)
		return CheckResult{Status: "down", Error: "connection closed"}
	}
	metrics.SetDependencyHealth("rabbitmq", true)
	return CheckResult{Status: "up"}
}
