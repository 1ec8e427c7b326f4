// Package services holds the gopsutil-backed sensors that describe the
// machine hostwatch runs on.
package services

import "context"

// Sensor defines the interface for all local sensors.
type Sensor interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Collect(ctx context.Context) (any, error)
}
