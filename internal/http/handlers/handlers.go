// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"

	"github.com/jmylchreest/siteaudit-api/internal/version"
)

// HealthCheckOutput represents health check response.
type HealthCheckOutput struct {
	Body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
}

// HealthCheck returns the health status of the API.
func HealthCheck(ctx context.Context, input *struct{}) (*HealthCheckOutput, error) {
	return &HealthCheckOutput{
		Body: struct {
			Status  string `json:"status"`
			Version string `json:"version"`
		}{
			Status:  "healthy",
			Version: version.Version,
		},
	}, nil
}
