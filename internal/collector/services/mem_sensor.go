package services

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
)

const bytesPerMB = 1024 * 1024

type MemResult struct {
	UsedPercent float64
	TotalMB     float64
	UsedMB      float64
}

type MemSensor struct{}

func NewMemSensor() *MemSensor {
	return &MemSensor{}
}

func (s *MemSensor) Name() string {
	return "Memory"
}

func (s *MemSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *MemSensor) Disconnect(ctx context.Context) error {
	return nil
}

func (s *MemSensor) Collect(ctx context.Context) (any, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get virtual memory: %w", err)
	}

	return MemResult{
		UsedPercent: v.UsedPercent,
		TotalMB:     float64(v.Total) / bytesPerMB,
		UsedMB:      float64(v.Used) / bytesPerMB,
	}, nil
}
